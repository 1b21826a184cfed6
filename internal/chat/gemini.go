package chat

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/apperrors"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/config"
)

// Generator produces the assistant's reply for a grounded prompt.
type Generator interface {
	Generate(ctx context.Context, system string, history []Message, prompt string) (string, error)
}

// GeminiGenerator generates replies with a Gemini model.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a Gemini client from cfg.
// Returns ErrChatDisabled when no API key is configured.
func NewGeminiGenerator(ctx context.Context, cfg config.ChatConfig) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, apperrors.ErrChatDisabled
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: cfg.Model}, nil
}

// Generate sends the conversation history followed by prompt.
func (g *GeminiGenerator) Generate(ctx context.Context, system string, history []Message, prompt string) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		role := genai.Role(genai.RoleModel)
		if m.Role == RoleUser {
			role = genai.RoleUser
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate reply: %w", err)
	}
	return resp.Text(), nil
}
