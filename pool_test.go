// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package litm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolLIFO(t *testing.T) {
	p := newEnvelopePool(2)
	a, b := p.get(), p.get()
	require.NotSame(t, a, b)

	p.recycle(a.detach())
	p.recycle(b.detach())
	assert.Same(t, b, p.get())
	assert.Same(t, a, p.get())

	st := p.snapshot()
	assert.Equal(t, uint64(2), st.Created)
	assert.Equal(t, uint64(2), st.Reused)
	assert.Equal(t, uint64(2), st.Recycled)
	assert.Zero(t, st.Spare)
}

func TestPoolCapacity(t *testing.T) {
	p := newEnvelopePool(1)
	es := []*Envelope{p.get(), p.get(), p.get()}
	for _, e := range es {
		p.recycle(e.detach())
	}
	st := p.snapshot()
	assert.Equal(t, 1, st.Spare)
	assert.Equal(t, uint64(1), st.Recycled)
	assert.Equal(t, uint64(2), st.Destroyed)
	assert.Equal(t, st.Created+st.Reused, st.Recycled+st.Destroyed)
}

func TestPoolClearsState(t *testing.T) {
	p := newEnvelopePool(1)
	e := p.get()
	e.payload = "x"
	e.bus = 3
	e.visit(5)
	e.delivery = 2
	var disposed any
	e.disposer = func(v any) { disposed = v }
	p.recycle(e.dispose())
	assert.Equal(t, "x", disposed)

	got := p.get()
	assert.Same(t, e, got)
	assert.Nil(t, got.Payload())
	assert.Zero(t, got.Bus())
	assert.Zero(t, got.DeliveryCount())
	assert.False(t, got.seen(5))
}
