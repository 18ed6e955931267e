package sessions

import (
	"chaldea/sources/tracing"
	"sync"
	"time"
)

type MemoryTable struct {
	name string
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]Entry
}

func NewMemoryTable(name string, ttl time.Duration) *MemoryTable {
	return NewMemoryTableWithClock(name, ttl, time.Now)
}

func NewMemoryTableWithClock(name string, ttl time.Duration, now func() time.Time) *MemoryTable {
	return &MemoryTable{name: name, ttl: ttl, now: now, entries: make(map[string]Entry)}
}

func (x *MemoryTable) Name() string {
	return x.name
}

func (x *MemoryTable) Put(log *tracing.Logger, key string, entry Entry) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = x.now()
	}
	x.entries[key] = entry

	log.D("Session stored", tracing.SessionTable, x.name, tracing.SessionKey, key, tracing.CommandIssued, entry.Command)
	return nil
}

func (x *MemoryTable) Get(log *tracing.Logger, key string) (Entry, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	entry, ok := x.entries[key]
	if !ok {
		return Entry{}, ErrSessionNotFound
	}
	if x.expired(entry) {
		delete(x.entries, key)
		log.D("Session expired", tracing.SessionTable, x.name, tracing.SessionKey, key)
		return Entry{}, ErrSessionNotFound
	}
	return entry, nil
}

func (x *MemoryTable) Update(log *tracing.Logger, key string, mutate func(*Entry)) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	entry, ok := x.entries[key]
	if !ok || x.expired(entry) {
		delete(x.entries, key)
		return ErrSessionNotFound
	}

	mutate(&entry)
	x.entries[key] = entry
	return nil
}

func (x *MemoryTable) Delete(log *tracing.Logger, key string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	delete(x.entries, key)
	return nil
}

func (x *MemoryTable) Count(log *tracing.Logger) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.entries), nil
}

// Sweep drops expired entries and returns how many were removed.
func (x *MemoryTable) Sweep() int {
	x.mu.Lock()
	defer x.mu.Unlock()

	dropped := 0
	for key, entry := range x.entries {
		if x.expired(entry) {
			delete(x.entries, key)
			dropped++
		}
	}
	return dropped
}

func (x *MemoryTable) expired(entry Entry) bool {
	return x.ttl > 0 && !x.now().Before(entry.CreatedAt.Add(x.ttl))
}
