package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"lectern/internal/logging"
	"lectern/internal/services"
)

var (
	errEmptyBaseURL   = errors.New("credential base url is empty")
	errInvalidBaseURL = errors.New("credential base url is not a valid URL")
)

// Outcome classifies a single segment fetch.
type Outcome int

const (
	// OutcomeSuccess means a valid segment body was returned.
	OutcomeSuccess Outcome = iota
	// OutcomeTransient means the attempt failed in a way worth retrying.
	OutcomeTransient
	// OutcomeEndOfStream means the server returned 404 for a well-formed
	// URL: the stream has fewer segments than assumed. Not an error.
	OutcomeEndOfStream
	// OutcomeAuthExpired means the server returned 403: the credential is
	// dead and no retry with it can succeed.
	OutcomeAuthExpired
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTransient:
		return "transient_failure"
	case OutcomeEndOfStream:
		return "end_of_stream"
	case OutcomeAuthExpired:
		return "auth_expired"
	default:
		return "unknown"
	}
}

// FetchResult is the classified outcome of one fetch attempt.
type FetchResult struct {
	Outcome Outcome
	Body    []byte
	Status  int
	Err     error
}

// Fetcher retrieves individual segments and classifies every response.
type Fetcher struct {
	httpClient *http.Client
	minBytes   int64
	logger     *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		if client != nil {
			f.httpClient = client
		}
	}
}

// NewFetcher creates a Fetcher. Bodies smaller than minBytes are rejected
// as invalid segments. A nil logger disables logging.
func NewFetcher(timeout time.Duration, minBytes int64, logger *slog.Logger, opts ...FetcherOption) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if minBytes <= 0 {
		minBytes = 1024
	}
	f := &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		minBytes:   minBytes,
		logger:     logging.NewComponentLogger(logger, "fetcher"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves one URL and classifies the response. Network errors and
// 5xx responses are transient; 404 is end-of-stream; 403 is credential
// expiry; undersized bodies are treated as transient corruption.
func (f *Fetcher) Fetch(ctx context.Context, url string) FetchResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return FetchResult{Outcome: OutcomeTransient, Err: fmt.Errorf("build request: %w", err)}
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return FetchResult{Outcome: OutcomeTransient, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return FetchResult{Outcome: OutcomeAuthExpired, Status: resp.StatusCode}
	case resp.StatusCode == http.StatusNotFound:
		return FetchResult{Outcome: OutcomeEndOfStream, Status: resp.StatusCode}
	case resp.StatusCode >= 500:
		return FetchResult{
			Outcome: OutcomeTransient,
			Status:  resp.StatusCode,
			Err:     fmt.Errorf("http %d", resp.StatusCode),
		}
	case resp.StatusCode != http.StatusOK:
		return FetchResult{
			Outcome: OutcomeTransient,
			Status:  resp.StatusCode,
			Err:     fmt.Errorf("unexpected http %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FetchResult{Outcome: OutcomeTransient, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) < f.minBytes {
		return FetchResult{
			Outcome: OutcomeTransient,
			Status:  resp.StatusCode,
			Err:     fmt.Errorf("segment too small: %d bytes", len(body)),
		}
	}
	return FetchResult{Outcome: OutcomeSuccess, Body: body, Status: resp.StatusCode}
}

// FetchWithRetry retries transient outcomes per the policy. EndOfStream and
// AuthExpired return immediately; a still-transient result after the final
// attempt is returned as-is.
func (f *Fetcher) FetchWithRetry(ctx context.Context, url string, policy services.RetryPolicy) FetchResult {
	var result FetchResult
	for attempt := 1; attempt <= policy.Attempts(); attempt++ {
		result = f.Fetch(ctx, url)
		if result.Outcome != OutcomeTransient {
			return result
		}
		if attempt == policy.Attempts() {
			break
		}
		if f.logger != nil {
			f.logger.Debug("transient fetch failure, retrying",
				logging.Int("attempt", attempt),
				logging.Error(result.Err),
			)
		}
		if err := policy.Sleep(ctx, policy.Delay(attempt)); err != nil {
			result.Err = err
			return result
		}
	}
	return result
}
