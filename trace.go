// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package litm

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
)

// RouteKind classifies a routing transition.
type RouteKind uint8

const (
	RouteDelivered RouteKind = iota + 1
	RouteRequeued
	RouteReset
	RouteFinalized
)

func (k RouteKind) String() string {
	switch k {
	case RouteDelivered:
		return "delivered"
	case RouteRequeued:
		return "requeued"
	case RouteReset:
		return "reset"
	case RouteFinalized:
		return "finalized"
	}
	return "unknown"
}

// RouteEvent records one transition of an envelope inside the switch.
// Slot and Conn are zero for finalized envelopes.
type RouteEvent struct {
	Serial     Serial
	Kind       RouteKind
	Type       MessageType
	Bus        Bus
	Slot       int
	Conn       ConnID
	Deliveries int
	Releases   int
	Requeues   int
}

// Tracer is the read side of a switch's route trace.
//
// The switch is the only producer. Exactly one goroutine may call Next.
// Events are dropped, not waited for, when the ring is full.
type Tracer struct {
	ring    lfq.SPSC[RouteEvent]
	dropped atomix.Uint64
}

func newTracer(capacity int) *Tracer {
	t := &Tracer{}
	t.ring.Init(capacity)
	return t
}

// Next returns the oldest unread event, or [iox.ErrWouldBlock] if none
// is available.
func (t *Tracer) Next() (RouteEvent, error) {
	ev, err := t.ring.Dequeue()
	if err != nil {
		return RouteEvent{}, iox.ErrWouldBlock
	}
	return ev, nil
}

// Drain returns every event currently available.
func (t *Tracer) Drain() []RouteEvent {
	var out []RouteEvent
	for {
		ev, err := t.Next()
		if err != nil {
			return out
		}
		out = append(out, ev)
	}
}

// Dropped returns how many events were discarded because the ring was
// full.
func (t *Tracer) Dropped() uint64 {
	return t.dropped.LoadAcquire()
}

// routeEvent snapshots e. The switch takes the snapshot before handing
// e to a mailbox, after which the envelope belongs to the recipient.
func routeEvent(kind RouteKind, e *Envelope, slot int, conn ConnID) RouteEvent {
	return RouteEvent{
		Serial:     e.serial,
		Kind:       kind,
		Type:       e.typ,
		Bus:        e.bus,
		Slot:       slot,
		Conn:       conn,
		Deliveries: e.delivery,
		Releases:   e.released,
		Requeues:   e.requeued,
	}
}

func (t *Tracer) record(ev RouteEvent) {
	if err := t.ring.Enqueue(&ev); err != nil {
		t.dropped.Add(1)
	}
}
