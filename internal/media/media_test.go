package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lectern/internal/services"
)

func TestMergeSegmentsBuildsConcatList(t *testing.T) {
	dir := t.TempDir()
	segments := []string{
		filepath.Join(dir, "segment_000000.ts"),
		filepath.Join(dir, "segment_000001.ts"),
	}

	toolbox := NewToolbox("", nil)
	var gotArgs []string
	var listContent string
	toolbox.SetRunner(func(ctx context.Context, name string, args ...string) (string, error) {
		gotArgs = args
		// Capture the list before MergeSegments removes it.
		data, err := os.ReadFile(filepath.Join(dir, "concat.txt"))
		if err != nil {
			t.Errorf("concat list missing: %v", err)
		}
		listContent = string(data)
		return "", nil
	})

	output := filepath.Join(dir, "video.mp4")
	if err := toolbox.MergeSegments(context.Background(), dir, segments, output); err != nil {
		t.Fatalf("merge: %v", err)
	}

	joined := strings.Join(gotArgs, " ")
	if !strings.Contains(joined, "-f concat") || !strings.Contains(joined, "-c copy") {
		t.Fatalf("args = %v", gotArgs)
	}
	if !strings.Contains(listContent, "file '"+segments[0]+"'") {
		t.Fatalf("list content = %q", listContent)
	}
}

func TestMergeSegmentsRejectsEmptyInput(t *testing.T) {
	toolbox := NewToolbox("", nil)
	err := toolbox.MergeSegments(context.Background(), t.TempDir(), nil, "out.mp4")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMergeSegmentsWrapsToolFailure(t *testing.T) {
	dir := t.TempDir()
	toolbox := NewToolbox("", nil)
	toolbox.SetRunner(func(ctx context.Context, name string, args ...string) (string, error) {
		return "", errors.New("exit status 1")
	})
	err := toolbox.MergeSegments(context.Background(), dir, []string{filepath.Join(dir, "a.ts")}, "out.mp4")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestSplitIntoClips(t *testing.T) {
	cases := []struct {
		name          string
		clipSeconds   float64
		totalSeconds  float64
		failClip      int
		wantClips     []string
		wantStarts    []string
		wantErr       error
	}{
		{
			name:         "even windows",
			clipSeconds:  120,
			totalSeconds: 360,
			wantClips:    []string{"clip_001.mp4", "clip_002.mp4", "clip_003.mp4"},
			wantStarts:   []string{"0.000", "120.000", "240.000"},
		},
		{
			name:         "trailing partial window",
			clipSeconds:  120,
			totalSeconds: 300,
			wantClips:    []string{"clip_001.mp4", "clip_002.mp4", "clip_003.mp4"},
			wantStarts:   []string{"0.000", "120.000", "240.000"},
		},
		{
			name:         "failed clip is skipped",
			clipSeconds:  100,
			totalSeconds: 250,
			failClip:     2,
			wantClips:    []string{"clip_001.mp4", "clip_003.mp4"},
			wantStarts:   []string{"0.000", "100.000", "200.000"},
		},
		{
			name:        "zero duration rejected",
			clipSeconds: 0, totalSeconds: 300,
			wantErr: services.ErrValidation,
		},
		{
			name:        "unknown total rejected",
			clipSeconds: 120, totalSeconds: 0,
			wantErr: services.ErrValidation,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			toolbox := NewToolbox("", nil)
			var gotStarts []string
			call := 0
			toolbox.SetRunner(func(ctx context.Context, name string, args ...string) (string, error) {
				call++
				for i, arg := range args {
					if arg == "-ss" {
						gotStarts = append(gotStarts, args[i+1])
					}
				}
				if call == tc.failClip {
					return "", errors.New("exit status 1")
				}
				return "", nil
			})

			clips, err := toolbox.SplitIntoClips(context.Background(), "video.mp4", tc.clipSeconds, tc.totalSeconds, dir)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("split: %v", err)
			}
			var gotNames []string
			for _, path := range clips {
				gotNames = append(gotNames, filepath.Base(path))
			}
			if strings.Join(gotNames, ",") != strings.Join(tc.wantClips, ",") {
				t.Fatalf("clips = %v, want %v", gotNames, tc.wantClips)
			}
			if strings.Join(gotStarts, ",") != strings.Join(tc.wantStarts, ",") {
				t.Fatalf("start offsets = %v, want %v", gotStarts, tc.wantStarts)
			}
		})
	}
}

func TestSplitIntoClipsFailsWhenNothingExtracted(t *testing.T) {
	toolbox := NewToolbox("", nil)
	toolbox.SetRunner(func(ctx context.Context, name string, args ...string) (string, error) {
		return "", errors.New("exit status 1")
	})
	_, err := toolbox.SplitIntoClips(context.Background(), "video.mp4", 120, 200, t.TempDir())
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestParseShowinfoTimestamps(t *testing.T) {
	stderr := `
[Parsed_showinfo_1 @ 0x55] n:   0 pts:  12800 pts_time:4.26667 duration:512
[Parsed_showinfo_1 @ 0x55] n:   1 pts:  89600 pts_time:29.8667 duration:512
[Parsed_showinfo_1 @ 0x55] n:   2 pts: 102400 pts_time:garbage duration:512
frame=  123 fps= 45
`
	got := parseShowinfoTimestamps(stderr)
	if len(got) != 2 {
		t.Fatalf("timestamps = %v", got)
	}
	if got[0] != 4.26667 || got[1] != 29.8667 {
		t.Fatalf("timestamps = %v", got)
	}
}

func TestDetectSceneChangesUsesThreshold(t *testing.T) {
	toolbox := NewToolbox("", nil)
	var gotArgs []string
	toolbox.SetRunner(func(ctx context.Context, name string, args ...string) (string, error) {
		gotArgs = args
		return "pts_time:10.5 ", nil
	})

	got, err := toolbox.DetectSceneChanges(context.Background(), "video.mp4", 0.15)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != 10.5 {
		t.Fatalf("timestamps = %v", got)
	}
	joined := strings.Join(gotArgs, " ")
	if !strings.Contains(joined, "select='gt(scene,0.15)',showinfo") {
		t.Fatalf("args = %v", gotArgs)
	}
}

func TestExtractFramePassesTimestamp(t *testing.T) {
	toolbox := NewToolbox("", nil)
	var gotArgs []string
	toolbox.SetRunner(func(ctx context.Context, name string, args ...string) (string, error) {
		gotArgs = args
		return "", nil
	})

	if err := toolbox.ExtractFrame(context.Background(), "video.mp4", 93.5, "slide.png"); err != nil {
		t.Fatal(err)
	}
	joined := strings.Join(gotArgs, " ")
	for _, want := range []string{"-ss 93.500", "-frames:v 1", "-q:v 2"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args missing %q: %v", want, gotArgs)
		}
	}
}
