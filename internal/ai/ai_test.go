package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mbd888/chainrisk/internal/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_NoKeyMeansNoModel(t *testing.T) {
	assert.Nil(t, New(Options{Provider: "gemini"}))
	assert.Nil(t, New(Options{Provider: "openai"}))
}

func TestNew_SelectsProvider(t *testing.T) {
	assert.IsType(t, &Gemini{}, New(Options{Provider: "gemini", APIKey: "k"}))
	assert.IsType(t, &OpenAI{}, New(Options{Provider: "OpenAI", APIKey: "k"}))
	assert.IsType(t, &Gemini{}, New(Options{APIKey: "k"}), "gemini is the default")
}

func TestStripFences(t *testing.T) {
	tests := map[string]string{
		`{"a":1}`:                   `{"a":1}`,
		"  {\"a\":1}\n":             `{"a":1}`,
		"```json\n{\"a\":1}\n```":   `{"a":1}`,
		"```\n{\"a\":1}\n```":       `{"a":1}`,
		"```json {\"a\":1}```":      `{"a":1}`,
		"```JSON\n[1,2]\n```  \n":   `[1,2]`,
	}
	for in, want := range tests {
		assert.Equal(t, want, StripFences(in), "input %q", in)
	}
}

func TestGemini_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-test:generateContent", r.URL.Path)
		assert.Empty(t, r.URL.RawQuery, "key must not be sent in the query string")
		assert.Equal(t, "gk", r.Header.Get("x-goog-api-key"))

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "analyze 0xabc", req.Contents[0].Parts[0].Text)
		assert.Equal(t, "application/json", req.GenerationConfig.ResponseMimeType)
		assert.Equal(t, 2048, req.GenerationConfig.MaxOutputTokens)
		assert.InDelta(t, 0.2, req.GenerationConfig.Temperature, 1e-9)

		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"risk_score\":10}"}]}}]}`))
	}))
	defer srv.Close()

	g := NewGemini("gk", "gemini-test", srv.URL+"/v1beta/", srv.Client())
	out, err := g.Generate(context.Background(), "analyze 0xabc")
	require.NoError(t, err)
	assert.Equal(t, `{"risk_score":10}`, out)
	assert.Equal(t, "gemini/gemini-test", g.Name())
}

func fixedServer(status int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func TestGemini_EmptyAndErrorResponses(t *testing.T) {
	empty := fixedServer(http.StatusOK, `{"candidates":[]}`)
	defer empty.Close()
	_, err := NewGemini("gk", "m", empty.URL, empty.Client()).Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrEmptyResponse)

	blank := fixedServer(http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`)
	defer blank.Close()
	_, err = NewGemini("gk", "m", blank.URL, blank.Client()).Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrEmptyResponse)

	denied := fixedServer(http.StatusForbidden, `{"error":{"message":"API key gk invalid"}}`)
	defer denied.Close()
	_, err = NewGemini("gk", "m", denied.URL, denied.Client()).Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Equal(t, "upstream status 403", upstream.Reason(err))
}

func TestOpenAI_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer ok", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req["model"])
		format, _ := req["response_format"].(map[string]any)
		assert.Equal(t, "json_object", format["type"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"pattern_type\":\"single_chain\"}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	o := NewOpenAI("ok", "gpt-test", srv.URL+"/v1", srv.Client())
	out, err := o.Generate(context.Background(), "classify")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "single_chain"))
}

func TestOpenAI_StatusErrorIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	o := NewOpenAI("bad", "gpt-test", srv.URL+"/v1", srv.Client())
	_, err := o.Generate(context.Background(), "classify")
	require.Error(t, err)
	assert.Equal(t, "upstream status 401", upstream.Reason(err))
}
