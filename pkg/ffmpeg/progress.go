package ffmpeg

import (
	"regexp"
	"strconv"
	"time"
)

var (
	durationPattern = regexp.MustCompile(`Duration:\s(\d\d:\d\d:\d\d\.\d\d)`)
	positionPattern = regexp.MustCompile(`time=(\d\d:\d\d:\d\d\.\d\d)`)
)

// ProgressFunc receives fractional progress in [0, 1].
type ProgressFunc func(fraction float64)

// progressRouter turns ffmpeg stderr chatter into progress reports.
// The total duration line appears once near the start; position lines
// repeat while the filter runs.
type progressRouter struct {
	total  time.Duration
	report ProgressFunc
}

func (r *progressRouter) processLine(line string) {
	if r.total == 0 {
		if m := durationPattern.FindStringSubmatch(line); m != nil {
			r.total = parseClock(m[1])
		}
		return
	}

	m := positionPattern.FindStringSubmatch(line)
	if m == nil || r.report == nil {
		return
	}
	position := parseClock(m[1])
	r.report(float64(position) / float64(r.total))
}

// parseClock parses ffmpeg's HH:MM:SS.ff timestamps. Malformed input
// yields zero.
func parseClock(s string) time.Duration {
	if len(s) != 11 {
		return 0
	}
	hours, err1 := strconv.Atoi(s[0:2])
	minutes, err2 := strconv.Atoi(s[3:5])
	seconds, err3 := strconv.Atoi(s[6:8])
	centis, err4 := strconv.Atoi(s[9:11])
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return 0
	}
	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(centis)*10*time.Millisecond
}
