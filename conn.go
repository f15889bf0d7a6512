// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package litm

import (
	"context"
	"errors"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/litm/internal/queue"
)

// Conn is one client endpoint of a switch.
//
// A Conn is meant to be driven by a single goroutine. Non-blocking
// calls return [ErrBusy] when a switch table is momentarily locked and
// [ErrNoMessage] when the mailbox is empty; both are retryable.
type Conn struct {
	sw    *Switch
	ref   connRef
	id    ConnID
	inbox *queue.Queue[*Envelope]

	status atomix.Uint32

	sent      atomix.Uint64
	delivered atomix.Uint64
	received  atomix.Uint64
	released  atomix.Uint64
	reclaimed atomix.Uint64
}

// ConnStats is a snapshot of one connection's counters.
type ConnStats struct {
	ID        ConnID
	Slot      int
	Status    Status
	Sent      uint64
	Delivered uint64
	Received  uint64
	Released  uint64
	Reclaimed uint64
	Queued    int
}

// ID returns the connection id.
func (c *Conn) ID() ConnID { return c.id }

// Slot returns the registry slot the connection occupies.
func (c *Conn) Slot() int { return c.ref.slot }

// Status returns the lifecycle state.
func (c *Conn) Status() Status { return Status(c.status.LoadAcquire()) }

// Switch returns the owning switch.
func (c *Conn) Switch() *Switch { return c.sw }

// holding is the number of delivered envelopes the client has neither
// released nor had reclaimed.
func (c *Conn) holding() uint64 {
	return c.delivered.LoadAcquire() - c.released.LoadAcquire() - c.reclaimed.LoadAcquire()
}

// Stats returns a snapshot of the connection's counters.
func (c *Conn) Stats() ConnStats {
	return ConnStats{
		ID:        c.id,
		Slot:      c.ref.slot,
		Status:    c.Status(),
		Sent:      c.sent.LoadAcquire(),
		Delivered: c.delivered.LoadAcquire(),
		Received:  c.received.LoadAcquire(),
		Released:  c.released.LoadAcquire(),
		Reclaimed: c.reclaimed.LoadAcquire(),
		Queued:    c.inbox.Len(),
	}
}

// Subscriptions returns the busses c is subscribed to.
func (c *Conn) Subscriptions() []Bus { return c.sw.subs.subscribed(c.ref) }

// Close unsubscribes c from every bus and schedules it for reaping.
// Envelopes still in its mailbox are passed to the remaining
// subscribers; envelopes c already polled must still be released.
func (c *Conn) Close() error {
	if c == nil {
		return ErrBadConnection
	}
	s := c.sw
	if !s.subs.mu.TryLock() {
		return ErrBusy
	}
	defer s.subs.mu.Unlock()
	if !s.reg.mu.TryLock() {
		return ErrBusy
	}
	defer s.reg.mu.Unlock()

	if !s.reg.validLocked(c) {
		return ErrBadConnection
	}
	s.subs.dropLocked(c.ref)
	s.reg.closeLocked(c)
	s.closed.Add(1)
	s.log.Debug("connection closed", "conn", c.id, "slot", c.ref.slot)
	return nil
}

// Subscribe adds c to bus. Subscribing twice is a no-op.
func (c *Conn) Subscribe(bus Bus) error {
	return c.editSubscription(bus, (*subscriptions).addLocked)
}

// Unsubscribe removes c from bus.
func (c *Conn) Unsubscribe(bus Bus) error {
	return c.editSubscription(bus, (*subscriptions).removeLocked)
}

func (c *Conn) editSubscription(bus Bus, edit func(*subscriptions, connRef, Bus) error) error {
	if c == nil {
		return ErrBadConnection
	}
	s := c.sw
	if !s.subs.validBus(bus) {
		return ErrInvalidBus
	}
	if !s.subs.mu.TryLock() {
		return ErrBusy
	}
	defer s.subs.mu.Unlock()
	if !s.reg.mu.TryLock() {
		return ErrBusy
	}
	defer s.reg.mu.Unlock()

	if !s.reg.validLocked(c) {
		return ErrBadConnection
	}
	return edit(s.subs, c.ref, bus)
}

// Submit hands payload to the switch for delivery to the subscribers
// of bus. disposer runs once routing is over; nil selects
// [DefaultDisposer]. Shutdown messages jump ahead of queued traffic.
//
// On error the switch has not taken ownership of payload.
func (c *Conn) Submit(bus Bus, payload any, disposer Disposer, typ MessageType) error {
	if c == nil {
		return ErrBadConnection
	}
	s := c.sw
	if !s.subs.validBus(bus) {
		return ErrInvalidBus
	}
	if !typ.valid() {
		return ErrInvalidMessageType
	}
	if s.state.LoadAcquire() == switchStopped {
		return ErrSwitchNotRunning
	}
	if !s.reg.mu.TryLock() {
		return ErrBusy
	}
	ok := s.reg.validLocked(c)
	s.reg.mu.Unlock()
	if !ok {
		return ErrBadConnection
	}

	e := s.pool.get()
	e.payload = payload
	e.disposer = disposer
	e.bus = bus
	e.typ = typ
	e.serial = s.serials.next()
	e.sender = c.ref
	e.senderID = c.id

	var err error
	if typ == TypeShutdown {
		err = s.input.PutHead(e)
	} else {
		err = s.input.Put(e)
	}
	if err != nil {
		s.pool.recycle(e.detach())
		return ErrSwitchNotRunning
	}
	c.sent.Add(1)
	s.submitted.Add(1)
	s.metrics.submit()
	return nil
}

// Send submits an ordinary user message with the default disposer.
func (c *Conn) Send(bus Bus, payload any) error {
	return c.Submit(bus, payload, nil, TypeUser)
}

// SendShutdown submits a shutdown message. The switch terminates once
// every subscriber of bus has received and released it.
func (c *Conn) SendShutdown(bus Bus, payload any, disposer Disposer) error {
	return c.Submit(bus, payload, disposer, TypeShutdown)
}

// Poll returns the next envelope in c's mailbox without blocking.
// The caller must [Conn.Release] it when done.
func (c *Conn) Poll() (*Envelope, error) {
	if c == nil || c.Status() == StatusInvalid {
		return nil, ErrBadConnection
	}
	return c.take(c.inbox.GetNB())
}

// PollWait blocks until an envelope arrives or ctx is done.
func (c *Conn) PollWait(ctx context.Context) (*Envelope, error) {
	if c == nil || c.Status() == StatusInvalid {
		return nil, ErrBadConnection
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.take(c.inbox.GetWait(ctx))
}

func (c *Conn) take(e *Envelope, err error) (*Envelope, error) {
	switch {
	case err == nil:
		c.received.Add(1)
		return e, nil
	case errors.Is(err, queue.ErrEmpty), errors.Is(err, queue.ErrWouldBlock):
		return nil, ErrNoMessage
	case errors.Is(err, queue.ErrClosed):
		if c.sw.state.LoadAcquire() == switchStopped {
			return nil, ErrSwitchNotRunning
		}
		return nil, ErrBadConnection
	}
	return nil, err
}

// Release hands e back to the switch, which passes it to the next
// subscriber. e must have been polled from c and not yet released.
// After the switch has stopped, Release finalizes e itself.
func (c *Conn) Release(e *Envelope) error {
	if c == nil || c.Status() == StatusInvalid {
		return ErrBadConnection
	}
	if e == nil || e.target != c.ref {
		return ErrInvalidEnvelope
	}
	e.target = connRef{}
	e.pending = false
	e.released++
	c.released.Add(1)

	if err := c.sw.input.Put(e); err != nil {
		c.sw.discard(e)
	}
	return nil
}
