package services

import (
	"context"
	"fmt"
	"log"

	"google.golang.org/genai"
)

const geminiModel = "gemini-2.0-flash"

// GeminiService is the Gemini chat-completion provider, used when
// LLM_PROVIDER=gemini.
type GeminiService struct {
	apiKey string
	model  string
}

var _ Completer = (*GeminiService)(nil)

func NewGeminiService(apiKey string) *GeminiService {
	return &GeminiService{
		apiKey: apiKey,
		model:  geminiModel,
	}
}

// Complete runs a single-turn generation and returns the response text.
func (s *GeminiService) Complete(ctx context.Context, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create genai client: %w", err)
	}

	resp, err := client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned no text")
	}

	log.Printf("[Gemini] Completion returned (%d chars)", len(text))
	return text, nil
}
