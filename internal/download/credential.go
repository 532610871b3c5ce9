package download

import (
	"net/url"
	"sort"
	"strings"
)

// StreamCredential carries everything the capture collaborator hands over
// for one stream: the segment base URL and the CDN auth tokens. It is
// immutable once handed to the downloader; the tokens expire server-side at
// an unknown time, visible only as 403 responses.
type StreamCredential struct {
	BaseURL            string            `json:"base_url"`
	AuthTokens         map[string]string `json:"auth_tokens"`
	LastKnownGoodIndex *int              `json:"last_known_good_index,omitempty"`
}

// leadingTokens are appended ahead of any remaining tokens, matching the
// CloudFront signed-URL convention the capture extension observes.
var leadingTokens = []string{"Key-Pair-Id", "Policy", "Signature"}

// SegmentURL builds the authenticated URL for a segment filename.
func (c StreamCredential) SegmentURL(filename string) string {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	full := base + "/" + filename

	query := c.authQuery()
	if query == "" {
		return full
	}
	return full + "?" + query
}

func (c StreamCredential) authQuery() string {
	if len(c.AuthTokens) == 0 {
		return ""
	}

	used := make(map[string]struct{}, len(c.AuthTokens))
	parts := make([]string, 0, len(c.AuthTokens))
	for _, key := range leadingTokens {
		if value, ok := c.AuthTokens[key]; ok && value != "" {
			parts = append(parts, key+"="+url.QueryEscape(value))
			used[key] = struct{}{}
		}
	}

	rest := make([]string, 0, len(c.AuthTokens))
	for key := range c.AuthTokens {
		if _, ok := used[key]; ok {
			continue
		}
		rest = append(rest, key)
	}
	sort.Strings(rest)
	for _, key := range rest {
		if value := c.AuthTokens[key]; value != "" {
			parts = append(parts, key+"="+url.QueryEscape(value))
		}
	}
	return strings.Join(parts, "&")
}

// Validate reports whether the credential can be used at all.
func (c StreamCredential) Validate() error {
	trimmed := strings.TrimSpace(c.BaseURL)
	if trimmed == "" {
		return errEmptyBaseURL
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return errInvalidBaseURL
	}
	return nil
}
