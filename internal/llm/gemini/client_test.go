package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pdf-field-extractor/internal/llm"
)

func TestComplete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-2.0-flash:generateContent"), r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":" {\"fields\":[]} "}]},"finishReason":"STOP"}]}`)
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), Config{APIKey: "test-key", BaseURL: srv.URL, Timeout: 5 * time.Second}, nil)
	require.NoError(t, err)
	content, err := c.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "sys"},
			{Role: llm.RoleUser, Content: "doc"},
		},
		MaxTokens:    256,
		JSONResponse: true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"fields":[]}`, content)

	require.Contains(t, got, "systemInstruction")
	contents := got["contents"].([]any)
	require.Len(t, contents, 1)
	gen := got["generationConfig"].(map[string]any)
	assert.Equal(t, "application/json", gen["responseMimeType"])
	assert.EqualValues(t, 256, gen["maxOutputTokens"])
}

func TestCompleteEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[]}`)
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), Config{APIKey: "k", BaseURL: srv.URL}, nil)
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), llm.CompletionRequest{Model: "gemini-2.0-flash"})
	assert.ErrorIs(t, err, errEmptyContent)
}
