package loader

import (
	"context"
	"maps"
)

// MemoryLoader serves a fixed snapshot. Mutations through Set last until
// the next Reload, which restores the construction-time data.
type MemoryLoader struct {
	*MapLoader
	initial map[string]string
}

// NewMemoryLoader creates a loader seeded with initial.
func NewMemoryLoader(initial map[string]string, opts ...Option) *MemoryLoader {
	l := &MemoryLoader{initial: maps.Clone(initial)}
	l.MapLoader = NewMapLoader("memory", l.loadData, opts...)
	l.InitData(l.initial)
	return l
}

func (l *MemoryLoader) loadData(context.Context) (bool, error) {
	l.InitData(l.initial)
	return true, nil
}
