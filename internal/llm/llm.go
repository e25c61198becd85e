// Package llm is a thin client for an Anthropic-style messages API.
// Calls are capped to a small number in flight and responses are cached
// in memory, so repeated analyses of the same page stay cheap.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dtoro641/confiable/internal/logging"
)

const (
	defaultBaseURL     = "https://api.anthropic.com"
	defaultTextModel   = "claude-3-5-haiku-20241022"
	defaultVisionModel = "claude-sonnet-4-5-20250929"
	apiVersion         = "2023-06-01"
)

// ErrNotConfigured is returned without any network activity when the client
// has no usable API key.
var ErrNotConfigured = errors.New("llm: api key not configured")

// Completer is the completion contract agents depend on.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	CompleteStructured(ctx context.Context, req Request, out any) error
	TextModel() string
	VisionModel() string
	Configured() bool
}

// Message is one conversation turn.
type Message struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

// Content is a single content block within a message.
type Content struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *ImageSource `json:"source,omitempty"`
}

// ImageSource carries base64 image data for vision calls.
type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// UserText builds a plain text user message.
func UserText(text string) Message {
	return Message{Role: "user", Content: []Content{{Type: "text", Text: text}}}
}

// UserTextWithImage builds a user message carrying a base64 JPEG screenshot
// followed by a text block.
func UserTextWithImage(text, imageBase64 string) Message {
	return Message{Role: "user", Content: []Content{
		{Type: "image", Source: &ImageSource{Type: "base64", MediaType: "image/jpeg", Data: imageBase64}},
		{Type: "text", Text: text},
	}}
}

// Request describes one completion call.
type Request struct {
	Model       string
	System      string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Config controls the client.
type Config struct {
	APIKey        string
	BaseURL       string
	TextModel     string
	VisionModel   string
	MaxConcurrent int
	Timeout       time.Duration
}

// Client implements Completer against the HTTP API.
type Client struct {
	cfg    Config
	httpc  *http.Client
	sem    chan struct{}
	logger logging.Logger

	mu    sync.Mutex
	cache map[string]string
}

var _ Completer = (*Client)(nil)

// NewClient constructs a Client. Zero config fields fall back to defaults.
func NewClient(cfg Config, logger logging.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.TextModel == "" {
		cfg.TextModel = defaultTextModel
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = defaultVisionModel
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		cfg:    cfg,
		httpc:  &http.Client{Timeout: cfg.Timeout},
		sem:    make(chan struct{}, cfg.MaxConcurrent),
		logger: logger.With(logging.Field{Key: "component", Value: "llm"}),
		cache:  make(map[string]string),
	}
}

// TextModel returns the default model for text-only calls.
func (c *Client) TextModel() string { return c.cfg.TextModel }

// VisionModel returns the model used when a screenshot is attached.
func (c *Client) VisionModel() string { return c.cfg.VisionModel }

// Configured reports whether a usable API key is present. Keys left at a
// placeholder value ("your_...") count as missing.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != "" && !strings.HasPrefix(c.cfg.APIKey, "your_")
}

func cacheKey(req Request) string {
	msgs, _ := json.Marshal(req.Messages)
	return fmt.Sprintf("%s|%s|%s|%g|%d", req.Model, req.System, msgs, req.Temperature, req.MaxTokens)
}

// Complete runs one completion and returns the text of the first content
// block. Results are cached by the full request.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	if req.Model == "" {
		req.Model = c.cfg.TextModel
	}

	key := cacheKey(req)
	c.mu.Lock()
	if cached, ok := c.cache[key]; ok {
		c.mu.Unlock()
		c.logger.Debug("serving completion from cache", logging.Field{Key: "model", Value: req.Model})
		return cached, nil
	}
	c.mu.Unlock()

	text, err := c.call(ctx, req)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.cache[key] = text
	c.mu.Unlock()
	return text, nil
}

// CompleteStructured runs one completion expected to answer with a JSON
// object and unmarshals it into out. A short instruction demanding raw JSON
// is appended to the system prompt; markdown fences and trailing prose in
// the reply are tolerated.
func (c *Client) CompleteStructured(ctx context.Context, req Request, out any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	if req.Model == "" {
		req.Model = c.cfg.TextModel
	}
	if req.System == "" {
		req.System = "You are a helpful AI assistant."
	}
	req.System += "\n\nRespond with ONLY a valid JSON object matching the fields described above. No markdown, no commentary."

	key := cacheKey(req) + fmt.Sprintf("|%T", out)
	c.mu.Lock()
	cached, ok := c.cache[key]
	c.mu.Unlock()
	if ok {
		if err := json.Unmarshal([]byte(cached), out); err == nil {
			c.logger.Debug("serving structured completion from cache", logging.Field{Key: "model", Value: req.Model})
			return nil
		}
		// Cached payload no longer matches the target shape; drop it.
		c.mu.Lock()
		delete(c.cache, key)
		c.mu.Unlock()
	}

	text, err := c.call(ctx, req)
	if err != nil {
		return err
	}

	jsonStr := ExtractJSON(text)
	if err := json.Unmarshal([]byte(jsonStr), out); err != nil {
		return fmt.Errorf("decode structured reply: %w", err)
	}

	c.mu.Lock()
	c.cache[key] = jsonStr
	c.mu.Unlock()
	return nil
}

type apiRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) call(ctx context.Context, req Request) (string, error) {
	// Bounded concurrency so bursts of agents do not trip rate limits.
	select {
	case c.sem <- struct{}{}:
		defer func() { <-c.sem }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if req.MaxTokens <= 0 {
		req.MaxTokens = 1024
	}

	body, err := json.Marshal(apiRequest{
		Model:       req.Model,
		System:      req.System,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	c.logger.Debug("completion request",
		logging.Field{Key: "model", Value: req.Model},
		logging.Field{Key: "max_tokens", Value: req.MaxTokens})

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		c.logger.Warn("completion request failed", logging.Field{Key: "error", Value: err.Error()})
		return "", fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	var decoded apiResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if decoded.Error != nil {
			msg = decoded.Error.Message
		}
		c.logger.Warn("completion api error",
			logging.Field{Key: "status", Value: resp.StatusCode},
			logging.Field{Key: "error", Value: msg})
		return "", fmt.Errorf("api status %d: %s", resp.StatusCode, msg)
	}
	if len(decoded.Content) == 0 {
		return "", fmt.Errorf("empty completion content")
	}
	return decoded.Content[0].Text, nil
}

// ExtractJSON peels a JSON object out of a model reply. It strips markdown
// code fences and, when the reply starts with "{", cuts at the matching
// closing brace so trailing prose does not break decoding.
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	s = strings.TrimSpace(s)

	if !strings.HasPrefix(s, "{") {
		return s
	}
	depth := 0
	inString := false
	escaped := false
	for i, r := range s {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[:i+1]
				}
			}
		}
	}
	return s
}
