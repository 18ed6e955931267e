package throttler

import (
	"chaldea/sources/tracing"
	"time"
)

// DefaultWindow applies to commands that declare no cooldown.
const DefaultWindow = time.Second

// Throttler is the per-command, per-user cooldown table.
type Throttler interface {
	// Acquire records now for (command, userID) unless the previous acquisition is still
	// inside window. When it is, ok is false and remaining is the time left.
	Acquire(log *tracing.Logger, command string, userID int64, window time.Duration) (remaining time.Duration, ok bool)
}

// RemainingSeconds is the whole-second wait reported to users, rounded up.
func RemainingSeconds(remaining time.Duration) int64 {
	if remaining <= 0 {
		return 0
	}
	return int64((remaining + time.Second - 1) / time.Second)
}

// Window converts a declared cooldown in seconds to a window; zero falls back to DefaultWindow.
func Window(seconds int) time.Duration {
	if seconds <= 0 {
		return DefaultWindow
	}
	return time.Duration(seconds) * time.Second
}
