package desktop

import (
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Baseline is the state a consumer last learned from a source. Sources
// record what Desktops and Current returned, so the first poll after a
// consumer enumerated reports whatever changed in between.
type Baseline struct {
	mu      sync.Mutex
	primed  bool
	known   []Desktop
	current uuid.UUID
}

// SetDesktops records an enumeration handed to the consumer
func (b *Baseline) SetDesktops(desktops []Desktop) {
	b.mu.Lock()
	b.primed, b.known = true, slices.Clone(desktops)
	b.mu.Unlock()
}

// SetCurrent records the current desktop handed to the consumer, uuid.Nil
// when it was told there is none.
func (b *Baseline) SetCurrent(id uuid.UUID) {
	b.mu.Lock()
	b.current = id
	b.mu.Unlock()
}

// Update records next and current and returns the notifications leading to
// them. Until an enumeration has been recorded it only records. A uuid.Nil
// current emits no switch, so the recorded current is kept while it still
// exists and returning to it later stays silent.
func (b *Baseline) Update(next []Desktop, current uuid.UUID) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	var events []Event
	if b.primed {
		events = Changes(b.known, b.current, next, current)
	}
	if current == uuid.Nil && slices.ContainsFunc(next, func(d Desktop) bool { return d.ID == b.current }) {
		current = b.current
	}
	b.primed, b.known, b.current = true, next, current
	return events
}
