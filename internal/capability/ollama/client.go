// Package ollama is an HTTP client for a local ollama host, used for both
// vision descriptions of slides and study-note generation.
package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"lectern/internal/capability"
	"lectern/internal/logging"
	"lectern/internal/services"
)

// Config describes an ollama connection.
type Config struct {
	Host    string
	Model   string
	Timeout time.Duration
}

// Client talks to a single ollama model.
type Client struct {
	host       string
	model      string
	httpClient *http.Client
	retry      services.RetryPolicy
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(policy services.RetryPolicy) Option {
	return func(c *Client) {
		c.retry = policy
	}
}

// New creates a Client. A nil logger disables logging.
func New(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	client := &Client{
		host:       strings.TrimRight(strings.TrimSpace(cfg.Host), "/"),
		model:      strings.TrimSpace(cfg.Model),
		httpClient: &http.Client{Timeout: timeout},
		retry:      services.DefaultRetryPolicy(),
		logger:     logging.NewComponentLogger(logger, "ollama"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

var (
	_ capability.VisionDescriber  = (*Client)(nil)
	_ capability.SectionGenerator = (*Client)(nil)
)

type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Stream bool     `json:"stream"`
	Images []string `json:"images,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate submits a prompt (with optional raw image payloads) and returns
// the model's full response. Transient failures retry with backoff.
func (c *Client) Generate(ctx context.Context, prompt string, images [][]byte) (string, error) {
	encoded := make([]string, 0, len(images))
	for _, img := range images {
		encoded = append(encoded, base64.StdEncoding.EncodeToString(img))
	}
	payload, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Images: encoded,
	})
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "ollama", "encode request", "marshal generate request", err)
	}

	var result string
	err = c.retry.Do(ctx, func() error {
		var attemptErr error
		result, attemptErr = c.generateOnce(ctx, payload)
		return attemptErr
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

func (c *Client) generateOnce(ctx context.Context, payload []byte) (string, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "ollama", "build request", "create generate request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "ollama", "generate", "ollama host unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "ollama", "generate", "read response body", err)
	}

	switch {
	case resp.StatusCode >= 500:
		return "", services.Wrap(services.ErrTransient, "ollama", "generate", fmt.Sprintf("http %d", resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		return "", services.Wrap(services.ErrCapability, "ollama", "generate", fmt.Sprintf("http %d: %s", resp.StatusCode, truncate(string(body), 256)), nil)
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", services.Wrap(services.ErrMalformed, "ollama", "generate", "decode generate response", err)
	}
	if c.logger != nil {
		c.logger.Debug("generation complete",
			logging.String("model", c.model),
			logging.Int("response_chars", len(parsed.Response)),
			logging.Duration("elapsed", time.Since(start)),
		)
	}
	return parsed.Response, nil
}

// DescribeImage asks the vision model to describe a slide image. The OCR
// hint, when present, is embedded in the prompt.
func (c *Client) DescribeImage(ctx context.Context, imagePath, ocrHint string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "ollama", "describe image", "read slide image", err)
	}

	prompt := "Describe this lecture slide. Focus on the main topic, any diagrams or " +
		"figures, and text content. Be concise and factual."
	if hint := strings.TrimSpace(ocrHint); hint != "" {
		prompt += "\n\nOCR extracted the following text from the slide; use it to " +
			"correct your reading:\n" + hint
	}

	response, err := c.Generate(ctx, prompt, [][]byte{data})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response), nil
}

// truncate caps s at n bytes without splitting a multi-byte rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
