package syncer

import (
	"sort"
	"sync"

	"github.com/albapepper/scoracle-sync/internal/store"
)

// Projection carries the records a dry run would have inserted from one
// step to the next, so later kinds can resolve them as parents. Projected
// rows get negative placeholder ids that never collide with stored ones.
// A nil *Projection projects nothing.
type Projection struct {
	mu  sync.Mutex
	seq int64
	ids map[store.Kind]map[string]int64
}

// NewProjection returns an empty projection for one dry-run pipeline.
func NewProjection() *Projection {
	return &Projection{ids: make(map[store.Kind]map[string]int64)}
}

func (p *Projection) add(kind store.Kind, externalID string) {
	if p == nil || externalID == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	byExt, ok := p.ids[kind]
	if !ok {
		byExt = make(map[string]int64)
		p.ids[kind] = byExt
	}
	if _, ok := byExt[externalID]; ok {
		return
	}
	p.seq--
	byExt[externalID] = p.seq
}

// overlay returns stored merged with the projected ids of kind. Stored ids
// win; stored is not modified.
func (p *Projection) overlay(kind store.Kind, stored map[string]int64) map[string]int64 {
	if p == nil {
		return stored
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.ids[kind]) == 0 {
		return stored
	}
	out := make(map[string]int64, len(stored)+len(p.ids[kind]))
	for ext, id := range p.ids[kind] {
		out[ext] = id
	}
	for ext, id := range stored {
		out[ext] = id
	}
	return out
}

// ExternalIDs lists the projected external ids of kind in ascending order.
func (p *Projection) ExternalIDs(kind store.Kind) []string {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.ids[kind]))
	for ext := range p.ids[kind] {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
