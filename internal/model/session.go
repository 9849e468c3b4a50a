package model

import (
	"fmt"
	"time"
)

// Session is one tracked agent session. The ID doubles as the tmux session
// name; DisplayName is a user-editable label decoupled from it.
type Session struct {
	ID          string
	DisplayName string
	CreatedAt   time.Time

	Status         Status
	PreviousStatus Status

	// LastFingerprint is the normalized digest of the most recent pane
	// capture, used for change detection.
	LastFingerprint string
	// LastChangedAt is when the fingerprint last changed. Monotonically
	// non-decreasing per session.
	LastChangedAt time.Time

	// Acknowledged is set when the user has viewed a Ready session and
	// cleared whenever output changes again.
	Acknowledged bool

	// FailedPolls counts consecutive capture failures. Reset on any
	// successful capture.
	FailedPolls int
}

// staleAfterFailures is how many consecutive capture failures it takes
// before a session is surfaced as stale instead of silently healthy.
const staleAfterFailures = 3

// View is the read-only projection consumed by the presentation layer.
// It deliberately omits PreviousStatus and the fingerprint.
type View struct {
	ID            string    `json:"id"`
	DisplayName   string    `json:"display_name"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	LastChangedAt time.Time `json:"last_changed_at"`
	Stale         bool      `json:"stale,omitempty"`
}

// View projects the session into its presentation form.
func (s Session) View() View {
	return View{
		ID:            s.ID,
		DisplayName:   s.DisplayName,
		Status:        s.Status,
		CreatedAt:     s.CreatedAt,
		LastChangedAt: s.LastChangedAt,
		Stale:         s.FailedPolls >= staleAfterFailures,
	}
}

// TimeAgo formats the elapsed time since t as a compact dashboard string.
func TimeAgo(t time.Time, now time.Time) string {
	secs := int(now.Sub(t).Seconds())
	switch {
	case secs < 60:
		return "now"
	case secs < 3600:
		return fmt.Sprintf("%dm", secs/60)
	case secs < 86400:
		return fmt.Sprintf("%dh", secs/3600)
	case secs < 604800:
		return fmt.Sprintf("%dd", secs/86400)
	default:
		return fmt.Sprintf("%dw", secs/604800)
	}
}
