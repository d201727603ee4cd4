package passage

import (
	"math/rand"
	"sync"
	"time"
)

// Picker selects passages from a pool. It is safe for concurrent use.
type Picker struct {
	mu     sync.Mutex
	rnd    *rand.Rand
	pinned string
	pool   []string
}

// NewPicker returns a Picker seeded with the current time. A non-empty pinned
// passage is always returned; otherwise passages are drawn uniformly from pool,
// falling back to Default when the pool is empty.
func NewPicker(pinned string, pool []string) *Picker {
	return newPicker(rand.NewSource(time.Now().UnixNano()), pinned, pool)
}

func newPicker(src rand.Source, pinned string, pool []string) *Picker {
	return &Picker{
		rnd:    rand.New(src),
		pinned: Normalize(pinned),
		pool:   append([]string(nil), pool...),
	}
}

// Pick returns the next passage.
func (p *Picker) Pick() string {
	if p.pinned != "" {
		return p.pinned
	}
	if len(p.pool) == 0 {
		return Default
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pool[p.rnd.Intn(len(p.pool))]
}

// Pool returns the passages the picker draws from.
func (p *Picker) Pool() []string {
	if p.pinned != "" {
		return []string{p.pinned}
	}
	if len(p.pool) == 0 {
		return []string{Default}
	}
	return append([]string(nil), p.pool...)
}
