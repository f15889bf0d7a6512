// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package litm

import "sync"

// subscriptions is the bus-by-slot subscriber grid. Row 0 and column 0
// are unused; column order is delivery order.
type subscriptions struct {
	mu   sync.Mutex
	rows [][]connRef
}

func newSubscriptions(busses, width int) *subscriptions {
	rows := make([][]connRef, busses+1)
	for i := 1; i < len(rows); i++ {
		rows[i] = make([]connRef, width+1)
	}
	return &subscriptions{rows: rows}
}

func (t *subscriptions) validBus(bus Bus) bool {
	return bus >= 1 && int(bus) < len(t.rows)
}

// addLocked places ref in the first free column of bus.
// Adding an existing subscriber is a no-op.
func (t *subscriptions) addLocked(ref connRef, bus Bus) error {
	row := t.rows[bus]
	free := 0
	for i := 1; i < len(row); i++ {
		switch {
		case row[i] == ref:
			return nil
		case free == 0 && row[i].empty():
			free = i
		}
	}
	if free == 0 {
		return ErrBusFull
	}
	row[free] = ref
	return nil
}

func (t *subscriptions) removeLocked(ref connRef, bus Bus) error {
	row := t.rows[bus]
	for i := 1; i < len(row); i++ {
		if row[i] == ref {
			row[i] = connRef{}
			return nil
		}
	}
	return ErrSubscriptionNotFound
}

// dropLocked removes ref from every bus.
func (t *subscriptions) dropLocked(ref connRef) {
	for b := 1; b < len(t.rows); b++ {
		row := t.rows[b]
		for i := 1; i < len(row); i++ {
			if row[i] == ref {
				row[i] = connRef{}
			}
		}
	}
}

// next returns the first column after e.current on e's bus that holds a
// subscriber other than the sender and not yet visited.
func (t *subscriptions) next(e *Envelope) (int, connRef, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.validBus(e.bus) {
		return 0, connRef{}, ErrInvalidBus
	}
	row := t.rows[e.bus]
	for i := e.current + 1; i < len(row); i++ {
		ref := row[i]
		if ref.empty() || ref == e.sender || e.seen(i) {
			continue
		}
		return i, ref, nil
	}
	return 0, connRef{}, ErrNextNotFound
}

// subscribed reports the busses ref is subscribed to.
func (t *subscriptions) subscribed(ref connRef) []Bus {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Bus
	for b := 1; b < len(t.rows); b++ {
		for _, r := range t.rows[b][1:] {
			if r == ref {
				out = append(out, Bus(b))
				break
			}
		}
	}
	return out
}
