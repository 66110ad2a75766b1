package norms

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mind-engage/mindengage-norms/internal/instrument"
)

// MemoryStore keeps tables in process memory. It backs tests and CLI dry runs.
type MemoryStore struct {
	mu      sync.RWMutex
	tables  map[int64]Table
	byName  map[string]int64
	rows    map[int64][]Row
	nextTab int64
	nextRow int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: map[int64]Table{},
		byName: map[string]int64{},
		rows:   map[int64][]Row{},
	}
}

func (m *MemoryStore) ListActiveTables(_ context.Context, t instrument.Type, f *Filter) ([]Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Table
	for _, tb := range m.tables {
		if tb.Active && tb.Instrument == t && f.matches(tb) {
			out = append(out, tb)
		}
	}
	sortTables(out)
	return out, nil
}

func (m *MemoryStore) ListRows(_ context.Context, tableID int64, sub instrument.Subscale) ([]Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Row
	for _, r := range m.rows[tableID] {
		if sub == "" || r.Subscale == "" || r.Subscale == sub {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Populate upserts the table by name and reconciles its rows: bands with an
// unchanged (subscale, criterion value, lower bound) keep their IDs, the rest
// are inserted or removed.
func (m *MemoryStore) Populate(_ context.Context, spec TableSpec) (Table, error) {
	if err := spec.Validate(); err != nil {
		return Table{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tb := spec.table()
	tb.UpdatedAt = time.Now().Unix()
	if id, ok := m.byName[tb.Name]; ok {
		tb.ID = id
	} else {
		m.nextTab++
		tb.ID = m.nextTab
		m.byName[tb.Name] = tb.ID
	}
	m.tables[tb.ID] = tb

	existing := map[rowKey]int64{}
	for _, r := range m.rows[tb.ID] {
		existing[keyOf(r)] = r.ID
	}
	next := make([]Row, 0, len(spec.Rows))
	for _, r := range spec.rows(tb.ID) {
		if id, ok := existing[keyOf(r)]; ok {
			r.ID = id
		} else {
			m.nextRow++
			r.ID = m.nextRow
		}
		next = append(next, r)
	}
	m.rows[tb.ID] = next
	return tb, nil
}

// Deactivate marks the named table inactive; its rows are kept.
func (m *MemoryStore) Deactivate(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byName[name]
	if !ok {
		return fmt.Errorf("deactivate %q: %w", name, ErrNotFound)
	}
	tb := m.tables[id]
	tb.Active = false
	m.tables[id] = tb
	return nil
}

// CountRows returns the number of rows stored for the named table.
func (m *MemoryStore) CountRows(_ context.Context, name string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byName[name]
	if !ok {
		return 0, nil
	}
	return len(m.rows[id]), nil
}
