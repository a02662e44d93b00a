package genclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"

	"appforge/internal/pipeline"
)

type Config struct {
	BaseURL string
	Model   string
	APIKey  string
}

// Client generates application code through the OpenAI Responses API.
type Client struct {
	cfg     Config
	service responses.ResponseService
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts := []option.RequestOption{option.WithHTTPClient(httpClient)}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		opts = append(opts, option.WithAPIKey(key))
	}
	return &Client{
		cfg:     cfg,
		service: responses.NewResponseService(opts...),
	}
}

// Generate asks the model for the full file set of the requested app and
// echoes back the saved attachment descriptors so the committing step knows
// what to push.
func (c *Client) Generate(ctx context.Context, req pipeline.GenerateRequest) (pipeline.GenerateResult, error) {
	params := responses.ResponseNewParams{
		Input: responses.ResponseNewParamsInputUnion{OfString: param.NewOpt(BuildPrompt(req))},
	}
	if model := strings.TrimSpace(c.cfg.Model); model != "" {
		params.Model = model
	}

	// The SDK's typed Response carries union content parts; decoding the raw
	// body into a minimal shape keeps us off that surface.
	var rawBody []byte
	_, err := c.service.New(ctx, params, option.WithResponseBodyInto(&rawBody))
	if err != nil {
		return pipeline.GenerateResult{}, fmt.Errorf("responses api: %w", err)
	}
	if len(rawBody) == 0 {
		return pipeline.GenerateResult{}, errors.New("responses api returned empty body")
	}

	text, err := finalText(rawBody)
	if err != nil {
		return pipeline.GenerateResult{}, err
	}
	files, err := ParseFiles(text)
	if err != nil {
		return pipeline.GenerateResult{}, err
	}
	return pipeline.GenerateResult{Files: files, Attachments: req.Attachments}, nil
}

type responseContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responseItem struct {
	Type    string                `json:"type"`
	Content []responseContentPart `json:"content"`
}

type responsePayload struct {
	ID     string         `json:"id"`
	Output []responseItem `json:"output"`
}

func finalText(raw []byte) (string, error) {
	var decoded responsePayload
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decode responses body: %w", err)
	}
	var out strings.Builder
	for _, item := range decoded.Output {
		for _, content := range item.Content {
			if strings.TrimSpace(content.Type) != "output_text" || strings.TrimSpace(content.Text) == "" {
				continue
			}
			if out.Len() > 0 {
				out.WriteString("\n")
			}
			out.WriteString(content.Text)
		}
	}
	return out.String(), nil
}

// ParseFiles extracts the path→content map from the model's answer. The
// prompt demands a bare JSON object `{"files": {...}}`; a top-level map of
// paths is accepted too, since models drift.
func ParseFiles(text string) (map[string]string, error) {
	raw := extractJSONObject(text)
	if raw == "" {
		return nil, errors.New("generation answer carried no JSON object")
	}

	var wrapped struct {
		Files map[string]string `json:"files"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err == nil && len(wrapped.Files) > 0 {
		return wrapped.Files, nil
	}

	var flat map[string]string
	if err := json.Unmarshal([]byte(raw), &flat); err != nil {
		return nil, fmt.Errorf("decode generation answer: %w", err)
	}
	if len(flat) == 0 {
		return nil, errors.New("generation answer contained no files")
	}
	return flat, nil
}

// extractJSONObject strips markdown fences and leading prose around the
// outermost JSON object.
func extractJSONObject(text string) string {
	text = strings.TrimSpace(text)
	if after, ok := strings.CutPrefix(text, "```json"); ok {
		text = after
	} else if after, ok := strings.CutPrefix(text, "```"); ok {
		text = after
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}
