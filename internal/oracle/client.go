// Package oracle talks to the external vision scoring service. One call per
// image: encoded payload in, structured judgment out. Failures degrade into a
// result with an error verdict; they never cross this boundary as Go errors.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	"aperture/internal/logging"
)

// DefaultBaseURL targets the OpenAI-compatible completions API.
const DefaultBaseURL = "https://api.openai.com/v1"

// DefaultModel is the vision-capable model consulted per image.
const DefaultModel = "gpt-4o"

// DefaultTimeout bounds one scoring round trip.
const DefaultTimeout = 120 * time.Second

// Config carries construction-time client settings.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	// SystemPrompt overrides the built-in rubric when non-empty.
	SystemPrompt string
}

// Client is the scoring-oracle client. The feedback context is mutable state
// guarded by a mutex since the reviewer loop installs it between calls.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	log        *slog.Logger

	mu              sync.Mutex
	systemPrompt    string
	feedbackContext string
}

// NewClient constructs a Client. The API key falls back to the
// OPENAI_API_KEY environment variable when unset.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = BaseSystemPrompt
	}
	return &Client{
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		log:          logging.New("oracle"),
	}
}

// SetSystemPrompt replaces the base rubric. Any installed feedback context is
// cleared, since a digest built against the old rubric no longer applies.
func (c *Client) SetSystemPrompt(prompt string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.systemPrompt = prompt
	c.feedbackContext = ""
}

// SetFeedbackContext installs a reviewer-feedback digest to be prepended to
// the rubric on subsequent calls. The digest is capped at maxFeedbackChars
// with a trailing ellipsis marker. An empty summary clears the context.
func (c *Client) SetFeedbackContext(summary string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if summary == "" {
		c.feedbackContext = ""
		return
	}
	// Cap counts runes, not bytes, so truncation never splits a multibyte
	// sequence and sends invalid UTF-8 in the prompt.
	if utf8.RuneCountInString(summary) > maxFeedbackChars {
		runes := []rune(summary)
		summary = string(runes[:maxFeedbackChars-3]) + "..."
	}
	c.feedbackContext = feedbackPreambleHead + summary + feedbackPreambleTail
}

// ClearFeedbackContext removes any installed feedback digest.
func (c *Client) ClearFeedbackContext() {
	c.SetFeedbackContext("")
}

// FeedbackContext returns the currently installed digest wrapper, empty when
// none is set.
func (c *Client) FeedbackContext() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.feedbackContext
}

// systemInstructions composes the effective system prompt for one call.
func (c *Client) systemInstructions() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.feedbackContext != "" {
		return c.feedbackContext + c.systemPrompt
	}
	return c.systemPrompt
}

// Analyze sends the encoded payload to the scoring service and returns the
// parsed judgment decorated with filename, post-processed flag, and
// nil-initialized feedback slots. On any failure (network, service, parse) it
// returns a degraded result with an error verdict; it never returns a Go
// error past this boundary.
func (c *Client) Analyze(ctx context.Context, payload, filename string, postProcessed bool) *Result {
	userPrompt := fmt.Sprintf("Analyze this landscape photograph. Filename: %s.", filename)
	if postProcessed {
		userPrompt += " Note: This image has been post-processed."
	}

	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: c.systemInstructions()},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: userPrompt},
				{Type: "image_url", ImageURL: &imageURL{
					URL: "data:image/jpeg;base64," + payload,
				}},
			}},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	content, err := c.complete(ctx, body)
	if err != nil {
		c.log.Error("analysis failed", "filename", filename, "error", err)
		return degraded(filename, postProcessed, err)
	}

	res, err := parseResult([]byte(content))
	if err != nil {
		c.log.Error("analysis unparseable", "filename", filename, "error", err)
		return degraded(filename, postProcessed, err)
	}

	res.Filename = filename
	res.PostProcessed = postProcessed
	res.UserVerdictOverride = nil
	res.UserFeedback = nil
	res.LearningSignal = nil
	res.RelativeRank = nil
	return res
}

// complete performs one chat-completions round trip and returns the message
// content of the first choice.
func (c *Client) complete(ctx context.Context, body chatRequest) (string, error) {
	requestBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("scoring request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("scoring service returned status %d: %s", resp.StatusCode, truncate(string(data), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode completion envelope: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("scoring service error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion has no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// degraded builds the error-verdict result returned when a call fails.
func degraded(filename string, postProcessed bool, err error) *Result {
	return &Result{
		Filename:      filename,
		Verdict:       VerdictError,
		Score:         0,
		PostProcessed: postProcessed,
		Error:         err.Error(),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// --- chat-completions wire types ---

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

// chatMessage content is either a plain string (system) or []contentPart
// (multimodal user message).
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}
