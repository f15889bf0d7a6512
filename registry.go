// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package litm

import (
	"sync"

	"code.hybscloud.com/litm/internal/queue"
)

// registry is the fixed-capacity connection table. Slot 0 is unused so
// that a zero connRef never resolves.
//
// Clients only try-acquire mu; the switch acquires it unconditionally.
// When both locks are needed, subscriptions.mu is taken first.
type registry struct {
	mu     sync.Mutex
	slots  []*Conn
	gens   []uint32
	doomed []*Conn
}

func newRegistry(capacity int) *registry {
	return &registry{
		slots: make([]*Conn, capacity+1),
		gens:  make([]uint32, capacity+1),
	}
}

// openLocked registers a connection in the first free slot. id 0
// selects the slot index. r.mu must be held.
func (r *registry) openLocked(sw *Switch, id ConnID, mailbox int) (*Conn, error) {
	free := 0
	for i := 1; i < len(r.slots); i++ {
		if r.slots[i] == nil {
			free = i
			break
		}
	}
	if free == 0 {
		return nil, ErrNoMoreConnections
	}
	if id == 0 {
		id = ConnID(free)
	}
	for _, c := range r.slots {
		if c != nil && c.id == id {
			return nil, ErrDuplicateID
		}
	}

	r.gens[free]++
	c := &Conn{
		sw:    sw,
		ref:   connRef{slot: free, gen: r.gens[free]},
		id:    id,
		inbox: queue.New[*Envelope](mailbox),
	}
	c.status.StoreRelease(uint32(StatusActive))
	r.slots[free] = c
	return c, nil
}

// registeredLocked reports whether c occupies its slot, active or not.
func (r *registry) registeredLocked(c *Conn) bool {
	if c == nil || c.ref.slot <= 0 || c.ref.slot >= len(r.slots) {
		return false
	}
	return r.slots[c.ref.slot] == c
}

// validLocked reports whether c is a live, active connection.
func (r *registry) validLocked(c *Conn) bool {
	return r.registeredLocked(c) && c.Status() == StatusActive
}

// resolveLocked maps a stored reference back to its connection.
func (r *registry) resolveLocked(ref connRef) (*Conn, error) {
	if ref.slot <= 0 || ref.slot >= len(r.slots) {
		return nil, ErrBadConnection
	}
	c := r.slots[ref.slot]
	if c == nil || c.ref.gen != ref.gen {
		return nil, ErrBadConnection
	}
	if c.Status() != StatusActive {
		return nil, ErrConnectionNotActive
	}
	return c, nil
}

// closeLocked quarantines c until the switch reaps it.
func (r *registry) closeLocked(c *Conn) {
	c.status.StoreRelease(uint32(StatusPendingDeletion))
	r.doomed = append(r.doomed, c)
}

func (r *registry) at(slot int) *Conn {
	if slot <= 0 || slot >= len(r.slots) {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slots[slot]
}

func (r *registry) list() []*Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Conn, 0, len(r.slots))
	for _, c := range r.slots {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// reap reclaims quarantined connections. Envelopes still queued in a
// doomed mailbox are routed onward; once the client holds none, the
// mailbox is destroyed and the slot freed. Runs on the switch only.
func (s *Switch) reap() {
	if s.closed.LoadAcquire() == s.reaped.LoadAcquire() {
		return
	}
	var forward []*Envelope

	s.reg.mu.Lock()
	kept := s.reg.doomed[:0]
	for _, c := range s.reg.doomed {
		for {
			e, err := c.inbox.Get()
			if err != nil {
				break
			}
			c.reclaimed.Add(1)
			e.delivery--
			e.target = connRef{}
			e.pending = false
			forward = append(forward, e)
		}
		if c.holding() > 0 {
			kept = append(kept, c)
			continue
		}
		c.inbox.Destroy()
		s.reg.slots[c.ref.slot] = nil
		c.status.StoreRelease(uint32(StatusInvalid))
		s.reaped.Add(1)
		s.metrics.connReaped()
		s.log.Debug("connection reaped", "conn", c.id, "slot", c.ref.slot)
	}
	clear(s.reg.doomed[len(kept):])
	s.reg.doomed = kept
	s.reg.mu.Unlock()

	for _, e := range forward {
		s.requeue(e)
	}
}
