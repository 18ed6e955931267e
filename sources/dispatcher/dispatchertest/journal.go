package dispatchertest

import (
	"chaldea/sources/persistence/entities"
	"chaldea/sources/tracing"
	"sync"
)

// Journal keeps recorded invocations in memory.
type Journal struct {
	mu   sync.Mutex
	rows []entities.Invocation
}

func (j *Journal) Enabled() bool {
	return true
}

func (j *Journal) Record(_ *tracing.Logger, invocation entities.Invocation) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.rows = append(j.rows, invocation)
	return nil
}

func (j *Journal) Rows() []entities.Invocation {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]entities.Invocation(nil), j.rows...)
}
