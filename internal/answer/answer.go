// Package answer produces grounded answers from retrieved chunks. The
// model is instructed to answer only from the provided plan excerpts
// and to cite them by chunk ID.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/docdex/docdex/internal/document"
)

// ErrUnavailable indicates the generation backend could not be
// reached or refused the request.
var ErrUnavailable = errors.New("answer model unavailable")

// Generator turns a question plus supporting chunks into an answer.
type Generator interface {
	Generate(ctx context.Context, question string, chunks []document.Chunk) (string, error)
}

const systemPrompt = `You are an assistant answering questions about health insurance plan documents.
Answer using ONLY the provided excerpts. Cite the excerpt IDs you used in square brackets, like [nc-formulary-p3-c1].
If the excerpts do not contain the answer, say so plainly instead of guessing.`

// OpenAIGenerator generates answers through the OpenAI chat API.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator creates a generator for the given model.
func NewOpenAIGenerator(apiKey, model string) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("answer generation requires an API key")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIGenerator{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

// Generate builds the grounded prompt and requests a completion.
func (g *OpenAIGenerator) Generate(ctx context.Context, question string, chunks []document.Chunk) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("empty question")
	}
	if len(chunks) == 0 {
		return "", fmt.Errorf("no context chunks provided")
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(question, chunks)},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrUnavailable)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// BuildPrompt renders the question and excerpts into the user message.
// Each excerpt carries its chunk ID and provenance so the model can
// cite precisely.
func BuildPrompt(question string, chunks []document.Chunk) string {
	var b strings.Builder
	b.WriteString("Excerpts:\n\n")
	for _, c := range chunks {
		fmt.Fprintf(&b, "[%s] (%s, page %d, %s/%s)\n%s\n\n",
			c.ChunkID, c.SourceID, c.PageNumber, c.Region, c.Category, c.Text)
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}
