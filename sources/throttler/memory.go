package throttler

import (
	"chaldea/sources/tracing"
	"sync"
	"time"
)

type stamp struct {
	at     time.Time
	window time.Duration
}

// MemoryThrottler keeps the table in process. Sweep drops entries whose window elapsed,
// so memory stays proportional to users active within the longest cooldown.
type MemoryThrottler struct {
	mu    sync.Mutex
	table map[string]map[int64]stamp
	now   func() time.Time
}

func NewMemoryThrottler() *MemoryThrottler {
	return NewMemoryThrottlerWithClock(time.Now)
}

func NewMemoryThrottlerWithClock(now func() time.Time) *MemoryThrottler {
	return &MemoryThrottler{table: make(map[string]map[int64]stamp), now: now}
}

func (x *MemoryThrottler) Acquire(log *tracing.Logger, command string, userID int64, window time.Duration) (time.Duration, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	now := x.now()
	stamps, ok := x.table[command]
	if !ok {
		stamps = make(map[int64]stamp)
		x.table[command] = stamps
	}

	if last, ok := stamps[userID]; ok {
		if expires := last.at.Add(window); now.Before(expires) {
			return expires.Sub(now), false
		}
	}

	stamps[userID] = stamp{at: now, window: window}
	return 0, true
}

// Sweep removes expired entries and returns how many were dropped.
func (x *MemoryThrottler) Sweep() int {
	x.mu.Lock()
	defer x.mu.Unlock()

	now, dropped := x.now(), 0
	for command, stamps := range x.table {
		for userID, last := range stamps {
			if !now.Before(last.at.Add(last.window)) {
				delete(stamps, userID)
				dropped++
			}
		}
		if len(stamps) == 0 {
			delete(x.table, command)
		}
	}
	return dropped
}

func (x *MemoryThrottler) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()

	total := 0
	for _, stamps := range x.table {
		total += len(stamps)
	}
	return total
}
