package schedule

import (
	"sync/atomic"
	"time"
)

// Provider holds the current Index. Reloading the schedule swaps in a new
// Index; queries already holding the old one finish against it.
type Provider struct {
	current  atomic.Pointer[Index]
	loadedAt atomic.Int64
}

// NewProvider returns a Provider serving idx
func NewProvider(idx *Index) *Provider {
	p := &Provider{}
	if idx != nil {
		p.Swap(idx)
	}
	return p
}

// Index returns the current index, or nil before the first load
func (p *Provider) Index() *Index {
	return p.current.Load()
}

// Swap replaces the current index and returns the previous one
func (p *Provider) Swap(idx *Index) *Index {
	p.loadedAt.Store(time.Now().Unix())
	return p.current.Swap(idx)
}

// LoadedAt returns when the current index was installed
func (p *Provider) LoadedAt() time.Time {
	ts := p.loadedAt.Load()
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0)
}
