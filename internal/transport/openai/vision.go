// Package openai implements the remote vision-language detector backend
// against the OpenAI-compatible chat completions API.
package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/fieldstash/toolscout/internal/domain/detect"
)

const backendName = "vision"

// tagPrompt instructs the model to answer with strict JSON. Models still
// occasionally wrap the payload in a markdown fence or fall back to prose,
// so parsing tolerates both.
const tagPrompt = `Identify every hand tool or power tool visible in this photo.
Respond with strict JSON only, no prose: {"tags": ["tool name", ...]}.
Use short lowercase tool names. If no tools are visible, respond {"tags": []}.`

// Vision is a Detector backed by a remote vision-language model.
type Vision struct {
	client *openai.Client
	model  string
	apiKey string
	logger *zap.Logger
}

// Config holds the vision backend settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewVision creates the remote vision detector.
func NewVision(cfg *Config) *Vision {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Vision{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		apiKey: cfg.APIKey,
		logger: cfg.Logger,
	}
}

// Name implements detect.Detector.
func (v *Vision) Name() string { return backendName }

// Available implements detect.Detector.
func (v *Vision) Available() bool { return v.apiKey != "" }

// Detect sends the image to the model and parses the tag list. Recoverable
// failures (API error, timeout, malformed response) come back as a degraded
// outcome, never as a panic or error; the other backend may still contribute.
func (v *Vision) Detect(ctx context.Context, image []byte) detect.Outcome {
	if !v.Available() {
		return detect.DegradedOutcome(backendName, "no API key configured")
	}

	resp, err := v.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: v.model,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: tagPrompt},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL: dataURL(image),
					},
				},
			},
		}},
	})
	if err != nil {
		reason := apiErrorReason(err)
		v.logger.Warn("vision request failed", zap.String("reason", reason), zap.Error(err))
		return detect.DegradedOutcome(backendName, reason)
	}
	if len(resp.Choices) == 0 {
		return detect.DegradedOutcome(backendName, "empty completion response")
	}

	labels := parseTags(resp.Choices[0].Message.Content)
	observations := make([]detect.Observation, 0, len(labels))
	for _, label := range labels {
		// The model gives no calibrated score; treat a mention as certain.
		obs, err := detect.NewObservation(label, 1.0)
		if err != nil {
			continue
		}
		observations = append(observations, obs)
	}
	return detect.NewOutcome(backendName, observations)
}

func dataURL(image []byte) string {
	mimeType := http.DetectContentType(image)
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)
}

// parseTags extracts tag names from the model response. It first tries the
// requested strict-JSON shape, stripping a markdown code fence if present,
// and falls back to scraping quoted or comma-separated names from prose.
func parseTags(content string) []string {
	text := stripFence(strings.TrimSpace(content))

	var parsed struct {
		Tags []string `json:"tags"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err == nil {
		return cleanTags(parsed.Tags)
	}

	// Some responses bury the JSON object inside prose.
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err == nil {
			return cleanTags(parsed.Tags)
		}
	}

	return cleanTags(freeTextTags(text))
}

func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// freeTextTags handles the prose fallback: one tool name per line or a
// single comma-separated line, list markers stripped.
func freeTextTags(text string) []string {
	var tags []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*0123456789. "))
		if line == "" {
			continue
		}
		for _, part := range strings.Split(line, ",") {
			tags = append(tags, part)
		}
	}
	return tags
}

func cleanTags(raw []string) []string {
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.Trim(strings.TrimSpace(t), `"'`)
		if t == "" || len(t) > 64 {
			continue
		}
		tags = append(tags, t)
	}
	return tags
}

func apiErrorReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Sprintf("API error %d", reqErr.HTTPStatusCode)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	return "request failed"
}
