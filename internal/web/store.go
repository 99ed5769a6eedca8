package web

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/tableloom/internal/analysis"
	"github.com/KaramelBytes/tableloom/internal/table"
)

// Dataset is one uploaded table plus its profile, held in memory for the
// lifetime of the process (or until evicted).
type Dataset struct {
	ID         string
	Name       string
	Table      *table.Table
	Profile    *analysis.Report
	UploadedAt time.Time
}

// Store is a bounded in-memory dataset registry keyed by id. When full, the
// oldest dataset is evicted.
type Store struct {
	mu    sync.RWMutex
	max   int
	items map[string]*Dataset
	order []string // insertion order, oldest first
}

// NewStore builds a store holding at most max datasets (min 1).
func NewStore(max int) *Store {
	if max < 1 {
		max = 1
	}
	return &Store{max: max, items: make(map[string]*Dataset)}
}

// Add registers a table and returns its new dataset.
func (s *Store) Add(tbl *table.Table, profile *analysis.Report) *Dataset {
	d := &Dataset{
		ID:         uuid.NewString(),
		Name:       tbl.Name,
		Table:      tbl,
		Profile:    profile,
		UploadedAt: time.Now(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.order) >= s.max {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.items, oldest)
	}
	s.items[d.ID] = d
	s.order = append(s.order, d.ID)
	return d
}

// Get looks up a dataset by id.
func (s *Store) Get(id string) (*Dataset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.items[id]
	return d, ok
}

// Len reports how many datasets are held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
