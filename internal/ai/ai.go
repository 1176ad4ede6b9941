// Package ai provides the language-model clients behind behavioral and
// cross-chain analysis. Both providers are asked for a single JSON document;
// decoding and validation of that document belong to the callers.
package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrEmptyResponse is returned when the model answers with no content.
var ErrEmptyResponse = errors.New("ai: empty model response")

// Model generates a JSON completion for a prompt.
type Model interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Generation parameters shared by both providers.
const (
	temperature     = 0.2
	topK            = 40
	topP            = 0.95
	maxOutputTokens = 2048
)

// Options selects and configures a provider.
type Options struct {
	Provider string // "gemini" or "openai"
	APIKey   string
	Model    string
	BaseURL  string
	Client   *http.Client
}

// New returns the configured model, or nil when no credential is set.
// A nil Model means behavioral and cross-chain analysis are unavailable.
func New(opts Options) Model {
	if opts.APIKey == "" {
		return nil
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	switch strings.ToLower(opts.Provider) {
	case "openai":
		return NewOpenAI(opts.APIKey, opts.Model, opts.BaseURL, opts.Client)
	default:
		return NewGemini(opts.APIKey, opts.Model, opts.BaseURL, opts.Client)
	}
}

// StripFences removes an optional markdown code fence around a JSON answer.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:] // drop the language tag line
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
