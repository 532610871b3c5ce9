package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"lectern/internal/services"
)

func testPolicy(attempts int) services.RetryPolicy {
	return services.RetryPolicy{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		Sleeper:     func(time.Duration) {},
	}
}

func validBody() string {
	return strings.Repeat("x", 2048)
}

func TestFetchClassifiesStatusCodes(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		outcome Outcome
	}{
		{"success", http.StatusOK, validBody(), OutcomeSuccess},
		{"auth expired", http.StatusForbidden, "", OutcomeAuthExpired},
		{"end of stream", http.StatusNotFound, "", OutcomeEndOfStream},
		{"server error", http.StatusBadGateway, "", OutcomeTransient},
		{"undersized body", http.StatusOK, "tiny", OutcomeTransient},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			fetcher := NewFetcher(time.Second, 1024, nil)
			result := fetcher.Fetch(context.Background(), server.URL)
			if result.Outcome != tc.outcome {
				t.Fatalf("outcome = %v, want %v", result.Outcome, tc.outcome)
			}
		})
	}
}

func TestFetchWithRetryRecoversFromTransient(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(validBody()))
	}))
	defer server.Close()

	fetcher := NewFetcher(time.Second, 1024, nil)
	result := fetcher.FetchWithRetry(context.Background(), server.URL, testPolicy(5))
	if result.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %v, err = %v", result.Outcome, result.Err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestFetchWithRetryNeverRetriesAuthExpired(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	fetcher := NewFetcher(time.Second, 1024, nil)
	result := fetcher.FetchWithRetry(context.Background(), server.URL, testPolicy(5))
	if result.Outcome != OutcomeAuthExpired {
		t.Fatalf("outcome = %v", result.Outcome)
	}
	if calls.Load() != 1 {
		t.Fatalf("403 must not retry, calls = %d", calls.Load())
	}
}

func TestFetchWithRetryExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	fetcher := NewFetcher(time.Second, 1024, nil)
	result := fetcher.FetchWithRetry(context.Background(), server.URL, testPolicy(4))
	if result.Outcome != OutcomeTransient {
		t.Fatalf("outcome = %v", result.Outcome)
	}
	if calls.Load() != 4 {
		t.Fatalf("calls = %d, want 4", calls.Load())
	}
}

func TestSegmentURLTokenOrder(t *testing.T) {
	cred := StreamCredential{
		BaseURL: "https://cdn.example.com/stream/",
		AuthTokens: map[string]string{
			"Signature":   "si g+n",
			"Key-Pair-Id": "KP123",
			"Policy":      "pol=icy",
			"Extra":       "e1",
			"Another":     "a1",
		},
	}
	got := cred.SegmentURL("data000090.ts")
	want := "https://cdn.example.com/stream/data000090.ts?" +
		"Key-Pair-Id=KP123&Policy=pol%3Dicy&Signature=si+g%2Bn&Another=a1&Extra=e1"
	if got != want {
		t.Fatalf("url = %q\nwant %q", got, want)
	}
}

func TestCredentialValidate(t *testing.T) {
	if err := (StreamCredential{}).Validate(); err == nil {
		t.Fatal("empty credential should be invalid")
	}
	if err := (StreamCredential{BaseURL: "not a url"}).Validate(); err == nil {
		t.Fatal("malformed base url should be invalid")
	}
	if err := (StreamCredential{BaseURL: "https://cdn.example.com/s"}).Validate(); err != nil {
		t.Fatalf("valid credential rejected: %v", err)
	}
}
