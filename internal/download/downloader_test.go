package download

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lectern/internal/services"
)

// streamServer serves `count` segments under the data/6-pad naming and
// 404s beyond the end.
func streamServer(t *testing.T, count int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < count; i++ {
			if r.URL.Path == fmt.Sprintf("/s/data%06d.ts", i) {
				_, _ = w.Write([]byte(validBody()))
				return
			}
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestDownloader() (*Downloader, Options) {
	opts := Options{
		RetryPolicy:      testPolicy(3),
		MinSegmentBytes:  1024,
		ChunkSeconds:     10,
		EstimateHeadroom: 100,
		EstimateFallback: 500,
	}
	return NewDownloader(NewFetcher(time.Second, 1024, nil), opts, nil), opts
}

func TestDownloadWritesSequentialSegments(t *testing.T) {
	server := streamServer(t, 5)
	dir := t.TempDir()
	d, _ := newTestDownloader()

	var lastCompleted, lastTotal int
	result, err := d.Download(context.Background(), StreamCredential{BaseURL: server.URL + "/s"}, dir, nil,
		func(completed, total int) {
			lastCompleted, lastTotal = completed, total
		})
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if result.Segments != 5 {
		t.Fatalf("segments = %d, want 5", result.Segments)
	}
	for i := 0; i < 5; i++ {
		path := filepath.Join(dir, SegmentFilename(i))
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("missing segment %d: %v", i, err)
		}
	}
	if lastCompleted != 5 || lastTotal != 5 {
		t.Fatalf("final progress = %d/%d, want 5/5", lastCompleted, lastTotal)
	}
}

func TestDownloadAuthExpiryAbortsImmediately(t *testing.T) {
	var maxIndex int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var idx int
		if _, err := fmt.Sscanf(r.URL.Path, "/s/data%06d.ts", &idx); err == nil {
			if idx > maxIndex {
				maxIndex = idx
			}
			if idx < 3 {
				_, _ = w.Write([]byte(validBody()))
				return
			}
			w.WriteHeader(http.StatusForbidden)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	d, _ := newTestDownloader()
	_, err := d.Download(context.Background(), StreamCredential{BaseURL: server.URL + "/s"}, t.TempDir(), nil, nil)
	if err == nil {
		t.Fatal("expected auth expiry error")
	}
	if got := errCode(err); got != "auth_expired" {
		t.Fatalf("error code = %q, err = %v", got, err)
	}
	if maxIndex != 3 {
		t.Fatalf("no index beyond the 403 should be requested, max = %d", maxIndex)
	}
}

func TestDownloadResumeSkipsExistingSegments(t *testing.T) {
	var fetched []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetched = append(fetched, r.URL.Path)
		for i := 0; i < 3; i++ {
			if r.URL.Path == fmt.Sprintf("/s/data%06d.ts", i) {
				_, _ = w.Write([]byte(validBody()))
				return
			}
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	dir := t.TempDir()
	// Segment 0 already complete from an earlier run.
	if err := os.WriteFile(filepath.Join(dir, SegmentFilename(0)), []byte(validBody()), 0o644); err != nil {
		t.Fatal(err)
	}

	d, _ := newTestDownloader()
	result, err := d.Download(context.Background(), StreamCredential{BaseURL: server.URL + "/s"}, dir, nil, nil)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if result.Segments != 3 {
		t.Fatalf("segments = %d, want 3", result.Segments)
	}
	for _, path := range fetched {
		if path == "/s/data000000.ts" {
			t.Fatal("existing segment should not be re-fetched")
		}
	}
}

func TestDownloadEmptyStreamFails(t *testing.T) {
	server := streamServer(t, 0)
	d, _ := newTestDownloader()
	_, err := d.Download(context.Background(), StreamCredential{BaseURL: server.URL + "/s"}, t.TempDir(), nil, nil)
	if err == nil {
		t.Fatal("expected error for empty stream")
	}
}

func TestDownloadWindowCapsIndices(t *testing.T) {
	server := streamServer(t, 50)
	dir := t.TempDir()
	d, _ := newTestDownloader()

	// 25s..55s at 10s chunks: indices 2..5.
	result, err := d.Download(context.Background(), StreamCredential{BaseURL: server.URL + "/s"}, dir,
		&Range{StartSeconds: 25, EndSeconds: 55}, nil)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if result.FirstIndex != 2 {
		t.Fatalf("first index = %d, want 2", result.FirstIndex)
	}
	if result.Segments != 4 {
		t.Fatalf("segments = %d, want 4", result.Segments)
	}
	// Output naming restarts at zero regardless of upstream indices.
	if _, err := os.Stat(filepath.Join(dir, SegmentFilename(0))); err != nil {
		t.Fatalf("windowed download should write segment_000000.ts: %v", err)
	}
}

func TestDownloadEstimateUsesLastKnownGoodIndex(t *testing.T) {
	server := streamServer(t, 3)
	d, _ := newTestDownloader()
	lastKnown := 200

	var firstTotal int
	_, err := d.Download(context.Background(),
		StreamCredential{BaseURL: server.URL + "/s", LastKnownGoodIndex: &lastKnown},
		t.TempDir(), nil,
		func(completed, total int) {
			if firstTotal == 0 {
				firstTotal = total
			}
		})
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if firstTotal != 300 {
		t.Fatalf("initial estimate = %d, want lastKnownGoodIndex+headroom = 300", firstTotal)
	}
}

func errCode(err error) string {
	return services.ErrorCode(err)
}
