// Package classify turns pane captures into session statuses.
//
// Everything here is pure: no I/O, no clocks, no tmux. The poller feeds in
// the previous status, whether the fingerprint changed, and how long the
// pane has been quiet; the classifier returns the new status.
package classify

import (
	"regexp"
	"time"

	"github.com/cactusdev/cactus/internal/model"
)

// Defaults. The prompt patterns and debounce window are tunable via
// configuration; these values were calibrated against real agent
// transcripts rather than derived from any agent's source.
const (
	// DefaultReadyAfter is the quiescence required before a working
	// session is declared Ready. About three poll intervals — long
	// enough that a single unchanged poll never flips the status.
	DefaultReadyAfter = 6 * time.Second

	// DefaultCaptureLines is the trailing window examined for prompt
	// patterns and hashed for change detection. Small enough that
	// scrollback from earlier turns cannot leak into the verdict.
	DefaultCaptureLines = 8
)

// DefaultPromptPatterns are the built-in prompt-for-input patterns,
// matched line by line against the trailing window.
func DefaultPromptPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		regexp.MustCompile(`(?i)do you want to`),
		regexp.MustCompile(`(?i)would you like to proceed`),
		regexp.MustCompile(`(?i)\(y/n\)`),
		regexp.MustCompile(`(?i)\(y\)es`),
		regexp.MustCompile(`(?i)^\s*(❯\s*)?1\.\s*yes`),
		regexp.MustCompile(`\?\s*$`),
	}
}

// Classifier maps pane snapshots to statuses.
type Classifier struct {
	patterns     []*regexp.Regexp
	readyAfter   time.Duration
	captureLines int
}

// New creates a classifier. Nil patterns or non-positive thresholds fall
// back to the defaults.
func New(patterns []*regexp.Regexp, readyAfter time.Duration, captureLines int) *Classifier {
	if patterns == nil {
		patterns = DefaultPromptPatterns()
	}
	if readyAfter <= 0 {
		readyAfter = DefaultReadyAfter
	}
	if captureLines <= 0 {
		captureLines = DefaultCaptureLines
	}
	return &Classifier{
		patterns:     patterns,
		readyAfter:   readyAfter,
		captureLines: captureLines,
	}
}

// ReadyAfter returns the debounce window.
func (c *Classifier) ReadyAfter() time.Duration {
	return c.readyAfter
}

// Classify decides the next status for one session. First match wins:
//
//  1. NeedsInput — a prompt pattern matches the trailing window. Checked
//     every poll regardless of debounce; a stuck prompt must surface
//     immediately.
//  2. Working — output changed since the previous capture.
//  3. Ready — output unchanged past the debounce window and the session
//     was previously Working or NeedsInput.
//  4. Otherwise the previous status is retained. Seen is never produced
//     here; it is only reachable via explicit acknowledgment.
func (c *Classifier) Classify(prev model.Status, fingerprintChanged bool, quiescent time.Duration, paneText string) model.Status {
	lines := normalizeLines(paneText)

	// A session with no output yet (just created) counts as Working.
	if len(lines) == 0 {
		return model.StatusWorking
	}

	if c.promptInWindow(lines) {
		return model.StatusNeedsInput
	}

	if fingerprintChanged {
		return model.StatusWorking
	}

	if quiescent >= c.readyAfter &&
		(prev == model.StatusWorking || prev == model.StatusNeedsInput) {
		return model.StatusReady
	}

	return prev
}

// promptInWindow reports whether any prompt pattern matches a line in the
// trailing window.
func (c *Classifier) promptInWindow(lines []string) bool {
	window := tailWindow(lines, c.captureLines)
	for _, line := range window {
		for _, re := range c.patterns {
			if re.MatchString(line) {
				return true
			}
		}
	}
	return false
}

// tailWindow returns the last n lines of a slice.
func tailWindow(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}
