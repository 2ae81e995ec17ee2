package normalize

import (
	"strings"
	"testing"
)

func TestClean_SpacedOutWords(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "scattered single letters",
			input:    "M e t f o r m i n",
			expected: "Metformin",
		},
		{
			name:     "scattered word inside sentence",
			input:    "Take M e t f o r m i n daily.",
			expected: "Take Metformin daily.",
		},
		{
			name:     "two-letter run untouched",
			input:    "Plan A B covers generics.",
			expected: "Plan A B covers generics.",
		},
		{
			name:     "two scattered digits untouched",
			input:    "Copay $ 1 0",
			expected: "Copay $ 1 0",
		},
		{
			name:     "ordinary text unchanged",
			input:    "Tier 1 generic medications.",
			expected: "Tier 1 generic medications.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clean(tt.input, Options{})
			if got != tt.expected {
				t.Errorf("Clean() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestClean_BoilerplateRemoval(t *testing.T) {
	input := "Metformin is covered as Tier 1.\n" +
		"Oscar Health Insurance | Page 23 | January 2026\n" +
		"Lisinopril is covered as Tier 1.\n"

	got := Clean(input, Options{StripBoilerplate: true})

	if strings.Contains(got, "Page 23") {
		t.Errorf("header line survived cleaning: %q", got)
	}
	if !strings.Contains(got, "Metformin is covered as Tier 1.") {
		t.Errorf("body text before header was altered: %q", got)
	}
	if !strings.Contains(got, "Lisinopril is covered as Tier 1.") {
		t.Errorf("body text after header was altered: %q", got)
	}
}

func TestClean_PageNumberLines(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantGone string
		wantKept string
	}{
		{
			name:     "standalone number line",
			input:    "Coverage details follow.\n23\nDeductible applies.",
			wantGone: "\n23\n",
			wantKept: "Deductible applies.",
		},
		{
			name:     "page N line",
			input:    "Coverage details follow.\nPage 23\nDeductible applies.",
			wantGone: "Page 23",
			wantKept: "Deductible applies.",
		},
		{
			name:     "N of M line",
			input:    "Coverage details follow.\n23 of 100\nDeductible applies.",
			wantGone: "23 of 100",
			wantKept: "Deductible applies.",
		},
		{
			name:     "number inside sentence preserved",
			input:    "See page 23 of the handbook for details.",
			wantGone: "",
			wantKept: "See page 23 of the handbook for details.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clean(tt.input, Options{StripBoilerplate: true})
			if tt.wantGone != "" && strings.Contains(got, strings.TrimSpace(tt.wantGone)) {
				t.Errorf("boilerplate %q survived: %q", tt.wantGone, got)
			}
			if !strings.Contains(got, tt.wantKept) {
				t.Errorf("body text %q missing from %q", tt.wantKept, got)
			}
		})
	}
}

func TestClean_EncodingRepair(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"curly apostrophe", "memberâ€™s plan.", "member's plan."},
		{"unicode right quote", "member’s plan.", "member's plan."},
		{"en dash", "2025–2026 plan year.", "2025-2026 plan year."},
		{"nbsp artifact", "TierÂ 1 drugs.", "Tier 1 drugs."},
		{"bullet artifact", "â€¢ Covered services.", "• Covered services."},
		{"intact bullet preserved", "• Covered services.", "• Covered services."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clean(tt.input, Options{})
			if got != tt.expected {
				t.Errorf("Clean() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestClean_LineReflow(t *testing.T) {
	input := "Metformin is a common\nmedication for type 2\ndiabetes.\n\nCopay: $10."
	want := "Metformin is a common medication for type 2 diabetes.\n\nCopay: $10."

	got := Clean(input, Options{})
	if got != want {
		t.Errorf("Clean() = %q, want %q", got, want)
	}
}

func TestClean_WhitespaceNormalization(t *testing.T) {
	input := "Tier\t1:   Generic    medications.\r\n\n\n\nCopay: $10."
	want := "Tier 1: Generic medications.\n\nCopay: $10."

	got := Clean(input, Options{})
	if got != want {
		t.Errorf("Clean() = %q, want %q", got, want)
	}
}

func TestClean_NeverFails(t *testing.T) {
	inputs := []string{"", "   ", "\n\n\n", string([]byte{0xff, 0xfe, 0x00})}
	for _, in := range inputs {
		got := Clean(in, Options{StripBoilerplate: true})
		_ = got // must not panic; empty input yields empty output
	}
	if Clean("", Options{}) != "" {
		t.Error("empty input should produce empty output")
	}
}
