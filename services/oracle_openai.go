package services

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIOracle backs the oracle interface with the chat completions API.
type OpenAIOracle struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAIOracle(apiKey, model string) *OpenAIOracle {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIOracle{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: 60 * time.Second,
	}
}

func (o *OpenAIOracle) Call(prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %v", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completions returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// NewOracle selects an oracle implementation by provider name. An empty or
// unrecognized provider returns nil; the recommender then runs purely on
// heuristics.
func NewOracle(provider, apiKey, model string) Oracle {
	if apiKey == "" {
		return nil
	}
	switch provider {
	case "openai":
		return NewOpenAIOracle(apiKey, model)
	case "gemini":
		return NewGeminiOracle(apiKey, model)
	default:
		return nil
	}
}
