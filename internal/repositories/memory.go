package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/component"
	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/pkg/errors"
)

// MemoryComponents keeps descriptors in memory. It backs the service when
// no database is configured and serves as the component source in tests.
type MemoryComponents struct {
	mu         sync.RWMutex
	components map[string]*component.Descriptor
}

func NewMemoryComponents() *MemoryComponents {
	return &MemoryComponents{components: make(map[string]*component.Descriptor)}
}

func (m *MemoryComponents) Create(_ context.Context, d *component.Descriptor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.components[d.ID]; ok {
		return errors.Validation("component id already exists").WithField("component_id", d.ID)
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	m.components[d.ID] = d
	return nil
}

func (m *MemoryComponents) List(context.Context) ([]ComponentSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ComponentSummary, 0, len(m.components))
	for _, d := range m.components {
		out = append(out, ComponentSummary{
			ID:          d.ID,
			Name:        d.Name,
			Description: d.Description,
			CreatedAt:   d.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryComponents) Get(_ context.Context, id string) (*component.Descriptor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.components[id]
	if !ok {
		return nil, errors.NotFound("component", id)
	}
	return d, nil
}

func (m *MemoryComponents) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.components[id]; !ok {
		return errors.NotFound("component", id)
	}
	delete(m.components, id)
	return nil
}
