// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package litm

import "sync"

// PoolStats is a snapshot of envelope pool accounting.
// Created+Reused counts every get; Recycled+Destroyed counts every
// return. The two are equal once no envelope is in flight.
type PoolStats struct {
	Capacity  int
	Spare     int
	Created   uint64
	Reused    uint64
	Recycled  uint64
	Destroyed uint64
}

// envelopePool is a bounded LIFO free list of envelopes. Its lock is
// never held together with the registry or subscription locks.
type envelopePool struct {
	mu    sync.Mutex
	stack []*Envelope
	stats PoolStats
}

func newEnvelopePool(capacity int) *envelopePool {
	return &envelopePool{
		stack: make([]*Envelope, 0, capacity),
		stats: PoolStats{Capacity: capacity},
	}
}

// get pops the most recently recycled envelope, or allocates one.
// The result carries no routing state.
func (p *envelopePool) get() *Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.stack); n > 0 {
		e := p.stack[n-1]
		p.stack[n-1] = nil
		p.stack = p.stack[:n-1]
		p.stats.Reused++
		*e = Envelope{}
		return e
	}
	p.stats.Created++
	return new(Envelope)
}

// recycle returns a spent envelope, destroying it if the pool is full.
func (p *envelopePool) recycle(s spent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.stack) == cap(p.stack) {
		p.destroy(s)
		return
	}
	*s.e = Envelope{}
	p.stack = append(p.stack, s.e)
	p.stats.Recycled++
}

// destroy releases the structure to the garbage collector. The payload
// was already disposed or detached, as the spent token guarantees.
// p.mu must be held.
func (p *envelopePool) destroy(s spent) {
	*s.e = Envelope{}
	p.stats.Destroyed++
}

func (p *envelopePool) snapshot() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.stats
	st.Spare = len(p.stack)
	return st
}
