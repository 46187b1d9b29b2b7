package journal

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/newthinker/dipper/internal/core"
	"github.com/newthinker/dipper/internal/ledger"
)

// MemoryStore is an in-memory run journal holding at most maxSize runs.
type MemoryStore struct {
	runs      []Run
	positions map[string][]ledger.Position
	maxSize   int
	mu        sync.RWMutex
}

// NewMemoryStore creates a new in-memory store with max capacity.
func NewMemoryStore(maxSize int) *MemoryStore {
	return &MemoryStore{
		runs:      make([]Run, 0, maxSize),
		positions: make(map[string][]ledger.Position),
		maxSize:   maxSize,
	}
}

// SaveRun adds or replaces a run.
func (m *MemoryStore) SaveRun(ctx context.Context, run Run, positions []ledger.Position) error {
	if run.ID == "" {
		return fmt.Errorf("run id is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs = slices.DeleteFunc(m.runs, func(r Run) bool { return r.ID == run.ID })
	m.runs = append(m.runs, run)
	m.positions[run.ID] = slices.Clone(positions)

	// Trim if over capacity (remove oldest)
	if m.maxSize > 0 && len(m.runs) > m.maxSize {
		for _, r := range m.runs[:len(m.runs)-m.maxSize] {
			delete(m.positions, r.ID)
		}
		m.runs = slices.Clone(m.runs[len(m.runs)-m.maxSize:])
	}

	return nil
}

// GetRun retrieves a run by ID.
func (m *MemoryStore) GetRun(ctx context.Context, id string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.runs {
		if m.runs[i].ID == id {
			run := m.runs[i]
			return &run, nil
		}
	}
	return nil, core.WrapError(core.ErrRunNotFound, fmt.Errorf("run %s", id))
}

// ListRuns returns runs matching the filter, newest first.
func (m *MemoryStore) ListRuns(ctx context.Context, filter ListFilter) ([]Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Run
	for i := len(m.runs) - 1; i >= 0; i-- {
		if filter.matches(m.runs[i]) {
			result = append(result, m.runs[i])
		}
	}
	slices.SortStableFunc(result, func(a, b Run) int {
		return b.StartedAt.Compare(a.StartedAt)
	})

	// Apply offset and limit
	if filter.Offset >= len(result) {
		return []Run{}, nil
	}
	result = result[filter.Offset:]

	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

// Positions returns the positions recorded for runID.
func (m *MemoryStore) Positions(ctx context.Context, runID string) ([]ledger.Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	positions, ok := m.positions[runID]
	if !ok {
		return nil, core.WrapError(core.ErrRunNotFound, fmt.Errorf("run %s", runID))
	}
	return slices.Clone(positions), nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
