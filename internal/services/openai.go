package services

import (
	"context"
	"fmt"
	"log"

	openai "github.com/sashabaranov/go-openai"
)

const openaiModel = openai.GPT4o

// OpenAIService is the OpenAI chat-completion provider.
type OpenAIService struct {
	client      *openai.Client
	temperature float32
}

var _ Completer = (*OpenAIService)(nil)

func NewOpenAIService(apiKey string, temperature float32) *OpenAIService {
	if temperature == 0 {
		temperature = 1.0
	}
	return &OpenAIService{
		client:      openai.NewClient(apiKey),
		temperature: temperature,
	}
}

// Complete runs a single-turn chat completion and returns the raw text.
func (s *OpenAIService) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openaiModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: s.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}

	content := resp.Choices[0].Message.Content
	log.Printf("[OpenAI] Completion returned (%d chars)", len(content))

	return content, nil
}
