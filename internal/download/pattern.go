package download

import (
	"context"
	"fmt"
	"log/slog"

	"lectern/internal/logging"
	"lectern/internal/services"
)

// Pattern describes one chunk-naming convention: a filename prefix and a
// zero-padding width (0 means unpadded).
type Pattern struct {
	Prefix  string
	Padding int
}

// Filename renders the segment filename for an index.
func (p Pattern) Filename(index int) string {
	if p.Padding > 0 {
		return fmt.Sprintf("%s%0*d.ts", p.Prefix, p.Padding, index)
	}
	return fmt.Sprintf("%s%d.ts", p.Prefix, index)
}

func (p Pattern) String() string {
	return fmt.Sprintf("%s/pad=%d", p.Prefix, p.Padding)
}

// PatternCandidates returns the naming conventions observed in the wild,
// ordered by likelihood.
func PatternCandidates() []Pattern {
	return []Pattern{
		{Prefix: "data", Padding: 6},
		{Prefix: "data", Padding: 0},
		{Prefix: "data", Padding: 5},
		{Prefix: "data", Padding: 4},
		{Prefix: "chunk_", Padding: 0},
		{Prefix: "segment", Padding: 0},
	}
}

// ResolvePattern probes each candidate at the given index and adopts the
// first one returning Success or EndOfStream. Resolution happens at most
// once per download job; the adopted pattern is used for every subsequent
// index. AuthExpired aborts immediately. The FetchResult for the winning
// probe is returned so the caller does not fetch the index twice.
func ResolvePattern(ctx context.Context, fetcher *Fetcher, cred StreamCredential, index int, policy services.RetryPolicy, logger *slog.Logger) (Pattern, FetchResult, error) {
	var lastErr error
	for _, candidate := range PatternCandidates() {
		url := cred.SegmentURL(candidate.Filename(index))
		result := fetcher.FetchWithRetry(ctx, url, policy)
		switch result.Outcome {
		case OutcomeSuccess, OutcomeEndOfStream:
			if logger != nil {
				logger.Info("chunk naming pattern resolved",
					logging.String("pattern", candidate.String()),
					logging.Int("probe_index", index),
					logging.String("outcome", result.Outcome.String()),
				)
			}
			return candidate, result, nil
		case OutcomeAuthExpired:
			return Pattern{}, result, services.Wrap(services.ErrAuthExpired, "download", "resolve pattern", fmt.Sprintf("http %d", result.Status), nil)
		default:
			lastErr = result.Err
		}
	}
	return Pattern{}, FetchResult{}, services.Wrap(services.ErrTransient, "download", "resolve pattern", "no candidate pattern produced a valid segment", lastErr)
}
