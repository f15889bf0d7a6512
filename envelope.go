// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package litm

import "io"

// Disposer releases a payload once every subscriber is done with it.
// It runs on whichever goroutine finalizes the envelope, usually the
// switch.
type Disposer func(payload any)

// DefaultDisposer closes payloads that implement [io.Closer] and
// otherwise leaves them to the garbage collector.
func DefaultDisposer(payload any) {
	if c, ok := payload.(io.Closer); ok {
		_ = c.Close()
	}
}

// connRef is a stable registry slot plus the generation of the
// connection that occupied it. The zero value refers to nothing.
type connRef struct {
	slot int
	gen  uint32
}

func (r connRef) empty() bool { return r.slot == 0 }

// Envelope carries one submitted payload from subscriber to subscriber.
//
// A receiver may read the envelope and its payload until it calls
// [Conn.Release]; it must not modify the payload, which is shared with
// the other subscribers.
type Envelope struct {
	payload  any
	disposer Disposer

	bus      Bus
	typ      MessageType
	serial   Serial
	sender   connRef
	senderID ConnID

	// Routing state, written by the switch and, on release, by the
	// current holder.
	target   connRef
	current  int
	visited  uint64
	pending  bool
	delivery int
	released int
	requeued int
}

// Payload returns the submitted payload.
func (e *Envelope) Payload() any { return e.payload }

// Bus returns the bus the envelope was submitted to.
func (e *Envelope) Bus() Bus { return e.bus }

// Type returns the message type.
func (e *Envelope) Type() MessageType { return e.typ }

// Sender returns the id of the submitting connection.
func (e *Envelope) Sender() ConnID { return e.senderID }

// Serial returns the switch-assigned submission number.
func (e *Envelope) Serial() Serial { return e.serial }

// DeliveryCount returns how many subscribers the envelope has reached,
// including the current holder.
func (e *Envelope) DeliveryCount() int { return e.delivery }

// ReleasedCount returns how many subscribers have released it.
func (e *Envelope) ReleasedCount() int { return e.released }

// RequeuedCount returns how many times delivery was retried because a
// recipient's mailbox was busy.
func (e *Envelope) RequeuedCount() int { return e.requeued }

// spent is an envelope whose payload is gone. Only spent envelopes may
// re-enter the pool.
type spent struct {
	e *Envelope
}

// dispose hands the payload to its disposer.
func (e *Envelope) dispose() spent {
	p, d := e.payload, e.disposer
	e.payload, e.disposer = nil, nil
	if d == nil {
		d = DefaultDisposer
	}
	d(p)
	return spent{e: e}
}

// detach drops the payload without disposing it, for submissions that
// failed before the switch took ownership.
func (e *Envelope) detach() spent {
	e.payload, e.disposer = nil, nil
	return spent{e: e}
}

func (e *Envelope) visit(slot int) { e.visited |= 1 << uint(slot) }

func (e *Envelope) unvisit(slot int) { e.visited &^= 1 << uint(slot) }

func (e *Envelope) seen(slot int) bool { return e.visited&(1<<uint(slot)) != 0 }
