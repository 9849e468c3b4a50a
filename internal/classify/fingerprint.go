package classify

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Fingerprint returns a hex-encoded SHA256 digest of the trailing capture
// window, normalized so that cursor blink and other trailing-whitespace
// noise never registers as a change. An empty pane yields "".
func (c *Classifier) Fingerprint(paneText string) string {
	lines := normalizeLines(paneText)
	if len(lines) == 0 {
		return ""
	}
	window := tailWindow(lines, c.captureLines)
	h := sha256.Sum256([]byte(strings.Join(window, "\n")))
	return fmt.Sprintf("%x", h)
}

// normalizeLines splits pane text into lines with trailing whitespace
// trimmed per line, then drops trailing blank lines. Interior blank lines
// are kept — they are real layout, not noise.
func normalizeLines(paneText string) []string {
	if paneText == "" {
		return nil
	}
	lines := strings.Split(paneText, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	end := len(lines)
	for end > 0 && lines[end-1] == "" {
		end--
	}
	return lines[:end]
}
