// Package slots owns the process-wide pool of bookable appointment slots.
//
// The pool only shrinks: a committed booking never returns its slot, and
// nothing replenishes the catalog while the process runs.
package slots

import (
	"errors"
	"strings"
	"sync"
)

// DefaultCatalog is the clinic's fixed list of daily slots.
var DefaultCatalog = []string{"10:00 AM", "11:00 AM", "12:00 PM", "02:00 PM", "03:00 PM", "04:00 PM"}

var ErrInvalidCatalog = errors.New("slots: invalid catalog")

// Pool guards the available slots with a single mutex, so "is it free" and
// "take it" happen as one step.
type Pool struct {
	mu      sync.Mutex
	catalog []string
	index   map[string]struct{}
	taken   map[string]struct{}
}

// NewPool builds a pool from catalog labels in their canonical case.
// Duplicate labels keep their first position.
func NewPool(catalog []string) (*Pool, error) {
	p := &Pool{index: map[string]struct{}{}, taken: map[string]struct{}{}}
	for _, label := range catalog {
		if strings.TrimSpace(label) == "" {
			return nil, ErrInvalidCatalog
		}
		if _, dup := p.index[label]; dup {
			continue
		}
		p.index[label] = struct{}{}
		p.catalog = append(p.catalog, label)
	}
	if len(p.catalog) == 0 {
		return nil, ErrInvalidCatalog
	}
	return p, nil
}

// IsAvailable reports whether label is in the catalog and not yet taken.
func (p *Pool) IsAvailable(label string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.freeLocked(label)
}

// Available lists free slots in catalog order.
func (p *Pool) Available() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.catalog))
	for _, label := range p.catalog {
		if _, ok := p.taken[label]; !ok {
			out = append(out, label)
		}
	}
	return out
}

// Remaining is the number of free slots.
func (p *Pool) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.catalog) - len(p.taken)
}

// Book takes label permanently. Of any number of concurrent calls for the
// same label exactly one returns true.
func (p *Pool) Book(label string) bool {
	r, ok := p.Reserve(label)
	if !ok {
		return false
	}
	r.Commit()
	return true
}

// Reserve takes label out of the pool immediately. The caller must Commit
// once the booking is durable, or Cancel to put the slot back.
func (p *Pool) Reserve(label string) (*Reservation, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.freeLocked(label) {
		return nil, false
	}
	p.taken[label] = struct{}{}
	return &Reservation{pool: p, label: label}, true
}

func (p *Pool) freeLocked(label string) bool {
	if _, ok := p.index[label]; !ok {
		return false
	}
	_, taken := p.taken[label]
	return !taken
}

// Reservation is a slot held for a booking whose persistence is in flight.
type Reservation struct {
	pool  *Pool
	label string

	mu   sync.Mutex
	done bool
}

func (r *Reservation) Label() string { return r.label }

// Commit makes the booking permanent.
func (r *Reservation) Commit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = true
}

// Cancel returns the slot to the pool. It is a no-op after Commit.
// Only a booking that failed to persist should cancel.
func (r *Reservation) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return
	}
	r.done = true

	r.pool.mu.Lock()
	delete(r.pool.taken, r.label)
	r.pool.mu.Unlock()
}
