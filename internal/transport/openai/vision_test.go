package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseTags_StrictJSON(t *testing.T) {
	tags := parseTags(`{"tags": ["hammer", "screwdriver"]}`)
	assert.Equal(t, []string{"hammer", "screwdriver"}, tags)
}

func TestParseTags_FencedJSON(t *testing.T) {
	tags := parseTags("```json\n{\"tags\": [\"cordless drill\"]}\n```")
	assert.Equal(t, []string{"cordless drill"}, tags)
}

func TestParseTags_JSONInsideProse(t *testing.T) {
	tags := parseTags(`Sure! Here is the result: {"tags": ["wrench"]} Hope that helps.`)
	assert.Equal(t, []string{"wrench"}, tags)
}

func TestParseTags_FreeTextFallback(t *testing.T) {
	tags := parseTags("- hammer\n- tape measure\n")
	assert.Equal(t, []string{"hammer", "tape measure"}, tags)
}

func TestParseTags_CommaSeparatedFallback(t *testing.T) {
	tags := parseTags("hammer, pliers, level")
	assert.Equal(t, []string{"hammer", "pliers", "level"}, tags)
}

func TestParseTags_EmptyList(t *testing.T) {
	assert.Empty(t, parseTags(`{"tags": []}`))
}

func TestVision_Detect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Messages []struct {
				Content []struct {
					Type     string `json:"type"`
					ImageURL *struct {
						URL string `json:"url"`
					} `json:"image_url"`
				} `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		require.Len(t, req.Messages[0].Content, 2)
		assert.True(t, strings.HasPrefix(req.Messages[0].Content[1].ImageURL.URL, "data:"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "{\"tags\": [\"hammer\", \"chisel\"]}"}}]
		}`))
	}))
	defer server.Close()

	v := NewVision(&Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
		Logger:  zap.NewNop(),
	})

	outcome := v.Detect(context.Background(), []byte("fake image bytes"))
	require.False(t, outcome.IsDegraded(), "degraded: %s", outcome.Degraded())
	require.Len(t, outcome.Observations(), 2)
	assert.Equal(t, "hammer", outcome.Observations()[0].Label())
	assert.Equal(t, 1.0, outcome.Observations()[0].Confidence())
}

func TestVision_Detect_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": {"message": "rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	v := NewVision(&Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
		Logger:  zap.NewNop(),
	})

	outcome := v.Detect(context.Background(), []byte("fake image bytes"))
	assert.True(t, outcome.IsDegraded())
	assert.Empty(t, outcome.Observations())
}

func TestVision_Detect_NoKey(t *testing.T) {
	v := NewVision(&Config{Logger: zap.NewNop()})
	assert.False(t, v.Available())

	outcome := v.Detect(context.Background(), []byte("x"))
	assert.True(t, outcome.IsDegraded())
}
