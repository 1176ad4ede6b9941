package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mbd888/chainrisk/internal/upstream"
	"github.com/sashabaranov/go-openai"
)

const systemPrompt = "You are a blockchain forensics analyst. Answer with a single JSON object and nothing else."

// OpenAI uses the chat completions API in JSON mode.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates an OpenAI client. baseURL may point at any compatible
// endpoint; empty uses the public API.
func NewOpenAI(apiKey, model, baseURL string, client *http.Client) *OpenAI {
	if model == "" {
		model = openai.GPT4oMini
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = client
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model}
}

func (o *OpenAI) Name() string { return "openai/" + o.model }

// Generate sends one prompt and returns the first choice's content.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature:         temperature,
		TopP:                topP,
		MaxCompletionTokens: maxOutputTokens,
		ResponseFormat:      &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		var apiErr *openai.APIError
		var reqErr *openai.RequestError
		switch {
		case errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0:
			err = &upstream.StatusError{Code: apiErr.HTTPStatusCode}
		case errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0:
			err = &upstream.StatusError{Code: reqErr.HTTPStatusCode}
		}
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
