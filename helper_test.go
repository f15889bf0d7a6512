// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package litm_test

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"code.hybscloud.com/kont"
	"code.hybscloud.com/litm"
	"github.com/stretchr/testify/require"
)

const testWait = 2 * time.Second

// bg is the context for blocking calls bounded by Options.Timeout.
var bg = context.Background()

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// newSwitch creates a running switch that is stopped when the test
// ends. mutate may adjust the options first.
func newSwitch(tb testing.TB, mutate func(*litm.Options)) *litm.Switch {
	tb.Helper()
	opts := litm.Options{Logger: quietLogger, PollInterval: time.Millisecond}
	if mutate != nil {
		mutate(&opts)
	}
	sw, err := litm.New(opts)
	require.NoError(tb, err)
	require.NoError(tb, sw.Start())
	tb.Cleanup(func() {
		sw.Stop()
		sw.AwaitShutdown()
	})
	return sw
}

// openN opens n connections with default ids.
func openN(tb testing.TB, sw *litm.Switch, n int) []*litm.Conn {
	tb.Helper()
	conns := make([]*litm.Conn, n)
	for i := range conns {
		c, err := sw.Open(0)
		require.NoError(tb, err)
		conns[i] = c
	}
	return conns
}

// recv waits for the next envelope on c.
func recv(tb testing.TB, c *litm.Conn) *litm.Envelope {
	tb.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testWait)
	defer cancel()
	e, err := c.PollWait(ctx)
	require.NoError(tb, err, "conn %d", c.ID())
	return e
}

// eventually polls cond until it holds.
func eventually(tb testing.TB, cond func() bool, msg string) {
	tb.Helper()
	require.Eventually(tb, cond, testWait, time.Millisecond, msg)
}

// quiet asserts that c's mailbox stays empty for a short while.
func quiet(tb testing.TB, c *litm.Conn) {
	tb.Helper()
	time.Sleep(20 * time.Millisecond)
	e, err := c.Poll()
	require.ErrorIs(tb, err, litm.ErrNoMessage, "conn %d unexpectedly got %v", c.ID(), e)
}

// disposals counts disposer invocations.
type disposals struct {
	n atomic.Int32
}

func (d *disposals) dispose(any) { d.n.Add(1) }

func (d *disposals) count() int { return int(d.n.Load()) }

// closer is a payload for the default disposer.
type closer struct {
	closed atomic.Bool
}

func (c *closer) Close() error {
	c.closed.Store(true)
	return nil
}

// execExpr drives a protocol to completion on c via Step+Advance loop,
// retrying on iox.ErrWouldBlock. Used by stepping tests to exercise
// the non-blocking path.
func execExpr[R any](tb testing.TB, c *litm.Conn, protocol kont.Expr[R]) R {
	tb.Helper()
	deadline := time.Now().Add(testWait)
	result, susp := litm.Step(protocol)
	for susp != nil {
		var err error
		result, susp, err = litm.Advance(c, susp)
		if err != nil && susp == nil {
			tb.Fatalf("advance: %v", err)
		}
		if time.Now().After(deadline) {
			tb.Fatal("protocol did not complete")
		}
	}
	return result
}
