package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"
)

type inMemory struct {
	mu    sync.RWMutex
	runs  map[string][]byte
	order []string
}

// NewMemoryStore returns the RunStore in process memory.
// Runs are stored as JSON, so the returned values are copies.
func NewMemoryStore() RunStore {
	return &inMemory{}
}

func (m *inMemory) Create(ctx context.Context, run *Run) error {
	if err := validateRun(run); err != nil {
		return err
	}
	data, err := json.Marshal(run)
	if err != nil {
		return errors.Wrap(err, "failed to marshal run")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runs == nil {
		// create on first use
		m.runs = make(map[string][]byte)
	}
	if _, ok := m.runs[run.ID]; ok {
		return errors.Wrapf(ErrAlreadyExists, "run %s", run.ID)
	}
	m.runs[run.ID] = data
	m.order = append(m.order, run.ID)
	return nil
}

func (m *inMemory) Update(ctx context.Context, run *Run) error {
	if err := validateRun(run); err != nil {
		return err
	}
	data, err := json.Marshal(run)
	if err != nil {
		return errors.Wrap(err, "failed to marshal run")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[run.ID]; !ok {
		return errors.Wrapf(ErrNotFound, "run %s", run.ID)
	}
	m.runs[run.ID] = data
	return nil
}

func (m *inMemory) Get(ctx context.Context, id string) (*Run, error) {
	m.mu.RLock()
	data, ok := m.runs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "run %s", id)
	}
	return unmarshalRun(data)
}

func (m *inMemory) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]*Run, 0, min(limit, len(m.order)))
	for i := len(m.order) - 1; i >= 0 && len(list) < limit; i-- {
		run, err := unmarshalRun(m.runs[m.order[i]])
		if err != nil {
			return nil, err
		}
		list = append(list, run)
	}
	return list, nil
}

func unmarshalRun(data []byte) (*Run, error) {
	run := new(Run)
	if err := json.Unmarshal(data, run); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal run")
	}
	return run, nil
}
