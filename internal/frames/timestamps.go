package frames

import (
	"math"
	"sort"
)

// IntervalTimestamps generates the fixed-interval sampling grid, starting
// after the intro exclusion and stopping before the outro exclusion.
func (e *Extractor) IntervalTimestamps(duration float64) []float64 {
	var timestamps []float64
	end := math.Max(0, duration-e.opts.SkipOutro)
	for t := e.opts.SkipIntro; t < end && len(timestamps) < e.opts.MaxFrames; t += e.opts.FixedInterval {
		timestamps = append(timestamps, t)
	}
	return timestamps
}

// MergeTimestamps combines scene-detected and interval timestamps. Scene
// timestamps win; interval timestamps are added only when no existing
// timestamp is within the minimum interval. Timestamps inside the intro or
// outro exclusion windows are dropped, and the result is capped at
// MaxFrames in ascending order.
func (e *Extractor) MergeTimestamps(sceneTS, intervalTS []float64, duration float64) []float64 {
	minTime := e.opts.SkipIntro
	maxTime := math.Inf(1)
	if duration > 0 {
		maxTime = duration - e.opts.SkipOutro
	}

	var merged []float64
	for _, ts := range sceneTS {
		if ts < minTime || ts > maxTime {
			continue
		}
		merged = append(merged, ts)
	}

	for _, ts := range intervalTS {
		if ts < minTime || ts > maxTime {
			continue
		}
		tooClose := false
		for _, existing := range merged {
			if math.Abs(ts-existing) < e.opts.MinInterval {
				tooClose = true
				break
			}
		}
		if !tooClose {
			merged = append(merged, ts)
		}
	}

	sort.Float64s(merged)
	if len(merged) > e.opts.MaxFrames {
		merged = merged[:e.opts.MaxFrames]
	}
	return merged
}
