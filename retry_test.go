// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package litm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIdleSwitch(t *testing.T) *Switch {
	t.Helper()
	sw, err := New(Options{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Timeout: 50 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(sw.Stop)
	return sw
}

func TestOpenWaitRetriesBusyRegistry(t *testing.T) {
	sw := newIdleSwitch(t)

	sw.reg.mu.Lock()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	_, err := sw.OpenWait(ctx, 0)
	cancel()
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrBusy)

	// No deadline: Options.Timeout applies.
	_, err = sw.OpenWait(context.Background(), 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	go func() {
		time.Sleep(5 * time.Millisecond)
		sw.reg.mu.Unlock()
	}()
	c, err := sw.OpenWait(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, c.Status())
}

func TestSubscribeWaitRetriesBusyTable(t *testing.T) {
	sw := newIdleSwitch(t)
	c, err := sw.Open(0)
	require.NoError(t, err)

	sw.subs.mu.Lock()
	assert.ErrorIs(t, c.Subscribe(1), ErrBusy)
	assert.ErrorIs(t, c.Close(), ErrBusy)
	go func() {
		time.Sleep(5 * time.Millisecond)
		sw.subs.mu.Unlock()
	}()
	require.NoError(t, c.SubscribeWait(context.Background(), 1))
	assert.Equal(t, []Bus{1}, c.Subscriptions())

	// Hard errors are returned at once.
	err = c.UnsubscribeWait(context.Background(), 2)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
	assert.False(t, errors.Is(err, context.DeadlineExceeded))
}

func TestSubmitBusyRegistry(t *testing.T) {
	sw := newIdleSwitch(t)
	c, err := sw.Open(0)
	require.NoError(t, err)

	sw.reg.mu.Lock()
	assert.ErrorIs(t, c.Send(1, "x"), ErrBusy)
	sw.reg.mu.Unlock()
	require.NoError(t, c.SendWait(context.Background(), 1, "x"))
	assert.Equal(t, 1, sw.input.Len())
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrBusy))
	assert.True(t, IsRetryable(ErrNoMessage))
	assert.True(t, IsRetryable(errors.Join(ErrOutputQueuing, ErrBusy)))
	assert.False(t, IsRetryable(ErrBadConnection))
	assert.False(t, IsRetryable(nil))
}
