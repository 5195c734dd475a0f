package viewhelpers

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"expensetracker/internal/form"
)

const (
	CountUpDuration = 2 * time.Second
	FrameInterval   = 16 * time.Millisecond
)

var (
	nonNumeric    = regexp.MustCompile(`[^0-9.\-]+`)
	leadingNumber = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)`)
)

// EaseOutQuart maps animation progress in [0,1] onto the easing curve.
func EaseOutQuart(t float64) float64 {
	t--
	return 1 - t*t*t*t
}

// ParseStatValue extracts the number shown in a stat such as "₹12,500".
// Everything but digits, '.' and '-' is dropped and the longest leading
// number is parsed.
func ParseStatValue(text string) (float64, bool) {
	m := leadingNumber.FindString(nonNumeric.ReplaceAllString(text, ""))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// SplitStatText returns the text before the first digit and the text after
// the numeric run that starts there. Digits, ',' and '.' belong to the run.
func SplitStatText(text string) (prefix, suffix string) {
	start := strings.IndexFunc(text, isDigit)
	if start < 0 {
		return text, ""
	}
	end := start
	for end < len(text) && (isDigit(rune(text[end])) || text[end] == ',' || text[end] == '.') {
		end++
	}
	return text[:start], text[end:]
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

type countUp struct {
	text           string
	prefix, suffix string
	target         float64
}

func newCountUp(text string) (countUp, bool) {
	target, ok := ParseStatValue(text)
	if !ok {
		return countUp{}, false
	}
	prefix, suffix := SplitStatText(text)
	// A sign already shown in the prefix is not repeated in the number.
	if target < 0 && strings.Contains(prefix, "-") {
		target = -target
	}
	return countUp{text: text, prefix: prefix, suffix: suffix, target: target}, true
}

// frame renders the stat at the given progress. The last frame is the
// original text so fraction digits dropped while counting come back.
func (c countUp) frame(progress float64) string {
	if progress >= 1 {
		return c.text
	}
	current := math.Floor(c.target * EaseOutQuart(progress))
	return c.prefix + FormatNumber(int64(current)) + c.suffix
}

// CountUp animates a stat from zero to the value in text over
// CountUpDuration. The first frame renders immediately; each later one is
// scheduled FrameInterval after the previous until the duration elapses.
// It cannot be cancelled once started. It reports false, rendering
// nothing, when text holds no number.
func CountUp(sched form.Scheduler, now func() time.Time, text string, render func(string)) bool {
	c, ok := newCountUp(text)
	if !ok {
		return false
	}
	start := now()
	var step func()
	step = func() {
		progress := math.Min(float64(now().Sub(start))/float64(CountUpDuration), 1)
		render(c.frame(progress))
		if progress < 1 {
			sched.AfterFunc(FrameInterval, step)
		}
	}
	step()
	return true
}

// CountUpFrames returns every frame CountUp would render for text, in
// order, or nil when text holds no number. The dashboard ships them to the
// page, which only has to display them on time.
func CountUpFrames(text string) []string {
	clock := &frameClock{now: time.Unix(0, 0)}
	var frames []string
	if !CountUp(clock, clock.Now, text, func(s string) { frames = append(frames, s) }) {
		return nil
	}
	for len(clock.queue) > 0 {
		fn := clock.queue[0]
		clock.queue = clock.queue[1:]
		fn()
	}
	return frames
}

// frameClock is a virtual clock on which time passes as callbacks are
// scheduled, so frames can be sampled without waiting.
type frameClock struct {
	now   time.Time
	queue []func()
}

func (c *frameClock) Now() time.Time { return c.now }

func (c *frameClock) AfterFunc(d time.Duration, fn func()) form.Timer {
	c.now = c.now.Add(d)
	c.queue = append(c.queue, fn)
	return stoppedTimer{}
}

type stoppedTimer struct{}

func (stoppedTimer) Stop() bool { return false }
