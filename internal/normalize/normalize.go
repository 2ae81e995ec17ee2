// Package normalize repairs text extracted from insurance PDFs before
// it is chunked and embedded. Extraction artifacts it handles: mojibake
// from mis-decoded punctuation, per-page headers and footers, glyph
// positioning that scatters single letters ("M e t f o r m i n"), and
// layout-driven line breaks that split sentences.
package normalize

import (
	"regexp"
	"strings"
)

// Options controls the optional normalization steps. The zero value
// keeps boilerplate removal off.
type Options struct {
	// StripBoilerplate removes standalone page-number lines and header
	// lines matching the built-in and configured patterns.
	StripBoilerplate bool

	// HeaderPatterns are extra regular expressions; any line matching
	// one of them is treated as page furniture and dropped. Invalid
	// patterns are ignored.
	HeaderPatterns []string
}

// encodingRepairs maps mis-decoded byte sequences from PDF extraction
// to their intended characters. Multi-byte mojibake entries come
// first so single-byte fragments don't shadow them.
var encodingRepairs = []struct{ old, new string }{
	{"â€™", "'"},
	{"â€˜", "'"},
	{"â€œ", `"`},
	{"â€\x9d", `"`},
	{"â€¢", "•"},
	{"â€“", "-"},
	{"â€”", "--"},
	{"Â", ""},
	{"–", "-"},  // en dash
	{"—", "--"}, // em dash
	{"‘", "'"},
	{"’", "'"},
	{"“", `"`},
	{"”", `"`},
}

var (
	pageNumberLine = regexp.MustCompile(`(?i)^\s*(page\s+\d+|\d+\s+of\s+\d+|\d+)\s*$`)
	bracketedPage  = regexp.MustCompile(`(?i)\|\s*page\s+\d+\s*\|`)
)

// Clean applies the full normalization sequence to one page of raw
// text. It is pure and never fails: on input it cannot improve, it
// returns the content unchanged apart from the substitution table.
// The step order is fixed; boilerplate lines must go before reflow or
// they would be folded into adjacent paragraphs.
func Clean(raw string, opts Options) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	text := repairEncoding(raw)
	if opts.StripBoilerplate {
		text = stripBoilerplate(text, opts.HeaderPatterns)
	}
	text = collapseSpacedWords(text)
	text = reflowLines(text)
	text = normalizeWhitespace(text)
	return strings.TrimSpace(text)
}

func repairEncoding(text string) string {
	for _, r := range encodingRepairs {
		text = strings.ReplaceAll(text, r.old, r.new)
	}
	return text
}

// stripBoilerplate removes page furniture line by line. Only whole
// lines are dropped, so numbers embedded in running sentences are
// never touched.
func stripBoilerplate(text string, extra []string) string {
	patterns := make([]*regexp.Regexp, 0, len(extra))
	for _, p := range extra {
		re, err := regexp.Compile(p)
		if err != nil {
			continue
		}
		patterns = append(patterns, re)
	}

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			if pageNumberLine.MatchString(trimmed) || bracketedPage.MatchString(trimmed) {
				continue
			}
			drop := false
			for _, re := range patterns {
				if re.MatchString(trimmed) {
					drop = true
					break
				}
			}
			if drop {
				continue
			}
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// collapseSpacedWords joins runs of three or more single-rune words
// into one word, repairing glyph-positioned extraction like
// "M e t f o r m i n". Runs of one or two are left alone so initials
// and short words survive.
func collapseSpacedWords(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = collapseLine(line)
	}
	return strings.Join(lines, "\n")
}

func collapseLine(line string) string {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return line
	}

	var out []string
	i := 0
	for i < len(fields) {
		j := i
		for j < len(fields) && isSingleWordRune(fields[j]) {
			j++
		}
		if j-i >= 3 {
			out = append(out, strings.Join(fields[i:j], ""))
			i = j
			continue
		}
		for ; i < j; i++ {
			out = append(out, fields[i])
		}
		if i < len(fields) {
			out = append(out, fields[i])
			i++
		}
	}

	// Preserve indentation; interior spacing is renormalized later.
	indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
	return indent + strings.Join(out, " ")
}

func isSingleWordRune(s string) bool {
	runes := []rune(s)
	if len(runes) != 1 {
		return false
	}
	r := runes[0]
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// reflowLines joins consecutive lines into one paragraph unless the
// line ends with sentence-terminal punctuation or is followed by a
// blank line. Paragraph breaks are preserved as exactly one blank line.
func reflowLines(text string) string {
	lines := strings.Split(text, "\n")
	var result []string
	var paragraph []string

	flush := func() {
		if len(paragraph) > 0 {
			result = append(result, strings.Join(paragraph, " "))
			paragraph = nil
		}
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			if n := len(result); n > 0 && result[n-1] != "" {
				result = append(result, "")
			}
			continue
		}
		paragraph = append(paragraph, line)
		if endsWithTerminal(line) {
			flush()
		}
	}
	flush()

	for len(result) > 0 && result[len(result)-1] == "" {
		result = result[:len(result)-1]
	}
	return strings.Join(result, "\n")
}

func endsWithTerminal(line string) bool {
	switch line[len(line)-1] {
	case '.', '!', '?', ':':
		return true
	}
	return false
}

var (
	multiSpace   = regexp.MustCompile(` {2,}`)
	multiNewline = regexp.MustCompile(`\n{3,}`)
)

func normalizeWhitespace(text string) string {
	text = strings.ReplaceAll(text, "\t", " ")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(multiSpace.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")

	return multiNewline.ReplaceAllString(text, "\n\n")
}
