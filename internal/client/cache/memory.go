package cache

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/dmitrijs2005/usertheme/internal/client/models"
)

// MemoryBackend keeps records for the lifetime of the process.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string]models.Record
	current string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[string]models.Record)}
}

func (m *MemoryBackend) Get(_ context.Context, version string) (*models.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[version]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *MemoryBackend) Put(_ context.Context, rec *models.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[rec.Version] = *rec
	return nil
}

func (m *MemoryBackend) Versions(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Sorted(maps.Keys(m.records)), nil
}

func (m *MemoryBackend) Delete(_ context.Context, version string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, version)
	if m.current == version {
		m.current = ""
	}
	return nil
}

func (m *MemoryBackend) CurrentVersion(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, nil
}

func (m *MemoryBackend) SetCurrentVersion(_ context.Context, version string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = version
	return nil
}

func (m *MemoryBackend) History(_ context.Context) ([]*models.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := make([]*models.Record, 0, len(m.records))
	for _, rec := range m.records {
		history = append(history, &rec)
	}
	slices.SortFunc(history, func(a, b *models.Record) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Version, b.Version)
	})
	return history, nil
}
