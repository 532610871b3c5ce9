package services

import (
	"errors"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	err := Wrap(ErrAuthExpired, "download", "fetch chunk", "http 403", nil)
	if !errors.Is(err, ErrAuthExpired) {
		t.Fatalf("expected ErrAuthExpired marker, got %v", err)
	}
	if got := err.Error(); got != "credentials expired: download: fetch chunk: http 403" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "", "", "", errors.New("boom"))
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestErrorCode(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{Wrap(ErrAuthExpired, "download", "", "", nil), "auth_expired"},
		{Wrap(ErrExternalTool, "merge", "", "", nil), "media_tool_failure"},
		{Wrap(ErrCapability, "transcription", "", "", nil), "capability_failure"},
		{Wrap(ErrMalformed, "notes", "", "", nil), "malformed_response"},
		{errors.New("anything else"), "transient"},
	}
	for _, tc := range cases {
		if got := ErrorCode(tc.err); got != tc.want {
			t.Fatalf("ErrorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
