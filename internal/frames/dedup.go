package frames

import (
	"image/png"
	"math"
	"os"

	"github.com/corona10/goimagehash"

	"lectern/internal/logging"
)

// Deduplicate removes near-duplicate frames. A candidate is dropped only
// when a retained frame is both perceptually similar (hash distance within
// the threshold) and temporally close (time delta under the minimum
// interval). Visually identical slides far apart in time are kept, since a
// lecturer returning to an earlier slide is a distinct moment. Dropped
// frames are deleted from disk; frames whose hash cannot be computed are
// retained as-is.
func (e *Extractor) Deduplicate(frames []Frame) []Frame {
	retained := make([]Frame, 0, len(frames))
	for i := range frames {
		frame := frames[i]
		frame.hash = e.perceptionHash(frame.Path)
		if frame.hash == nil {
			retained = append(retained, frame)
			continue
		}

		duplicate := false
		for j := range retained {
			kept := &retained[j]
			if kept.hash == nil {
				continue
			}
			distance, err := frame.hash.Distance(kept.hash)
			if err != nil {
				continue
			}
			delta := math.Abs(frame.TimestampSeconds - kept.TimestampSeconds)
			if distance <= e.opts.HashThreshold && delta < e.opts.MinInterval {
				duplicate = true
				break
			}
		}
		if duplicate {
			if err := os.Remove(frame.Path); err != nil && e.logger != nil {
				e.logger.Warn("failed to remove duplicate frame",
					logging.String("path", frame.Path),
					logging.Error(err),
				)
			}
			continue
		}
		retained = append(retained, frame)
	}
	return retained
}

func (e *Extractor) perceptionHash(path string) *goimagehash.ImageHash {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		if e.logger != nil {
			e.logger.Warn("failed to decode frame for hashing", logging.String("path", path), logging.Error(err))
		}
		return nil
	}
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return nil
	}
	return hash
}
