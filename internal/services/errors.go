package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks failures worth retrying with backoff (timeouts,
	// 5xx responses, connection resets).
	ErrTransient = errors.New("transient failure")
	// ErrAuthExpired marks a 403 from the upstream CDN. The credential can
	// never succeed again; the caller must re-capture it.
	ErrAuthExpired = errors.New("credentials expired")
	// ErrEndOfStream marks a 404 on a well-formed chunk URL. It is an early
	// termination signal, not a failure.
	ErrEndOfStream = errors.New("end of stream")
	// ErrExternalTool marks a media toolchain invocation failure.
	ErrExternalTool = errors.New("external tool error")
	// ErrCapability marks a failed transcription/OCR/vision/generation call.
	ErrCapability = errors.New("capability error")
	// ErrMalformed marks unparsable capability output that is downgraded to
	// a placeholder artifact instead of failing the stage.
	ErrMalformed = errors.New("malformed response")
	ErrValidation = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ErrorCode maps an error to the short code exposed on terminal job records.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuthExpired):
		return "auth_expired"
	case errors.Is(err, ErrExternalTool):
		return "media_tool_failure"
	case errors.Is(err, ErrCapability):
		return "capability_failure"
	case errors.Is(err, ErrMalformed):
		return "malformed_response"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "transient"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
