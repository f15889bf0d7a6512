// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package litm_test

import (
	"testing"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
	"code.hybscloud.com/litm"
)

func TestExecSubscribeReceive(t *testing.T) {
	sw := newSwitch(t, nil)
	conns := openN(t, sw, 2)
	a, b := conns[0], conns[1]

	protocol := litm.SubscribeThen(1,
		litm.PollBind(func(e *litm.Envelope) kont.Eff[any] {
			return litm.ReleaseThen(e, kont.Pure(e.Payload()))
		}),
	)

	type result struct {
		v   any
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := litm.Exec(b, protocol)
		done <- result{v, err}
	}()

	eventually(t, func() bool { return len(b.Subscriptions()) == 1 }, "b subscribed")
	if err := a.SendWait(bg, 1, "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
	r := <-done
	if r.err != nil {
		t.Fatalf("exec: %v", r.err)
	}
	if r.v != "hello" {
		t.Fatalf("got %v, want hello", r.v)
	}
}

func TestExecReturnsHardError(t *testing.T) {
	sw := newSwitch(t, nil)
	c := openN(t, sw, 1)[0]

	reached := false
	_, err := litm.Exec(c, litm.SubscribeThen(99, kont.Perform(litm.Subscribe{Bus: 1})))
	if err != litm.ErrInvalidBus {
		t.Fatalf("got %v, want ErrInvalidBus", err)
	}
	if len(c.Subscriptions()) != 0 {
		t.Fatal("protocol continued past the failing operation")
	}

	n, err := litm.Exec(c, kont.Bind(kont.Perform(litm.Unsubscribe{Bus: 1}), func(struct{}) kont.Eff[int] {
		reached = true
		return kont.Pure(1)
	}))
	if err != litm.ErrSubscriptionNotFound || n != 0 || reached {
		t.Fatalf("got (%d, %v, reached=%v)", n, err, reached)
	}
}

func TestExecExprSendReceive(t *testing.T) {
	sw := newSwitch(t, nil)
	conns := openN(t, sw, 2)
	a, b := conns[0], conns[1]
	if err := b.SubscribeWait(bg, 4); err != nil {
		t.Fatal(err)
	}

	sent, err := litm.ExecExpr(a, litm.ExprSendThen(4, 42, kont.ExprReturn("sent")))
	if err != nil || sent != "sent" {
		t.Fatalf("sender got (%q, %v)", sent, err)
	}

	got, err := litm.ExecExpr(b, litm.ExprPollBind(func(e *litm.Envelope) kont.Expr[int] {
		return litm.ExprReleaseThen(e, kont.ExprReturn(e.Payload().(int)))
	}))
	if err != nil || got != 42 {
		t.Fatalf("receiver got (%d, %v)", got, err)
	}
}

func TestExecDisconnect(t *testing.T) {
	sw := newSwitch(t, nil)
	c := openN(t, sw, 1)[0]

	v, err := litm.Exec(c, litm.SubscribeThen(1, litm.DisconnectDone(7)))
	if err != nil || v != 7 {
		t.Fatalf("got (%d, %v)", v, err)
	}
	if c.Status() == litm.StatusActive {
		t.Fatal("connection still active")
	}
	if _, err := litm.ExecExpr(c, litm.ExprDisconnectDone(0)); err != litm.ErrBadConnection {
		t.Fatalf("second disconnect: %v", err)
	}
}

func TestStepAdvanceWouldBlock(t *testing.T) {
	sw := newSwitch(t, nil)
	conns := openN(t, sw, 2)
	a, b := conns[0], conns[1]

	protocol := litm.ExprSubscribeThen(2,
		litm.ExprPollBind(func(e *litm.Envelope) kont.Expr[any] {
			return litm.ExprReleaseThen(e, kont.ExprReturn(e.Payload()))
		}),
	)

	_, susp := litm.Step(protocol)
	if susp == nil {
		t.Fatal("expected suspension for Subscribe")
	}
	op, ok := susp.Op().(litm.Subscribe)
	if !ok || op.Bus != 2 {
		t.Fatalf("expected Subscribe{Bus: 2}, got %T %v", susp.Op(), susp.Op())
	}

	var err error
	for {
		var next *kont.Suspension[any]
		_, next, err = litm.Advance(b, susp)
		if !iox.IsWouldBlock(err) {
			susp = next
			break
		}
	}
	if err != nil || susp == nil {
		t.Fatalf("advance subscribe: (%v, %v)", susp, err)
	}
	if _, ok := susp.Op().(litm.Poll); !ok {
		t.Fatalf("expected Poll, got %T", susp.Op())
	}

	// Nothing sent yet: the suspension survives.
	_, same, err := litm.Advance(b, susp)
	if !iox.IsWouldBlock(err) {
		t.Fatalf("expected ErrWouldBlock, got %v", err)
	}
	if same != susp {
		t.Fatal("suspension consumed on ErrWouldBlock")
	}

	if err := a.SendWait(bg, 2, "stepped"); err != nil {
		t.Fatal(err)
	}
	got := execExprFrom(t, b, susp)
	if got != "stepped" {
		t.Fatalf("got %v, want stepped", got)
	}
}

func execExprFrom[R any](t *testing.T, c *litm.Conn, susp *kont.Suspension[R]) R {
	t.Helper()
	var result R
	for susp != nil {
		var err error
		result, susp, err = litm.Advance(c, susp)
		if err != nil && !iox.IsWouldBlock(err) {
			t.Fatalf("advance: %v", err)
		}
	}
	return result
}

func TestAdvanceDiscardsOnHardError(t *testing.T) {
	sw := newSwitch(t, nil)
	c := openN(t, sw, 1)[0]

	_, susp := litm.Step(litm.ExprSubscribeThen(0, kont.ExprReturn(1)))
	v, next, err := litm.Advance(c, susp)
	if err != litm.ErrInvalidBus {
		t.Fatalf("got %v, want ErrInvalidBus", err)
	}
	if next != nil || v != 0 {
		t.Fatalf("got (%d, %v)", v, next)
	}
}

func TestRunInterleavesConnections(t *testing.T) {
	sw := newSwitch(t, nil)
	conns := openN(t, sw, 3)
	a, b, c := conns[0], conns[1], conns[2]
	for _, x := range []*litm.Conn{b, c} {
		if err := x.SubscribeWait(bg, 1); err != nil {
			t.Fatal(err)
		}
	}

	leader := litm.SendThen(1, "one",
		litm.SendThen(1, "two",
			litm.ShutdownThen(1, nil, nil, kont.Pure(0))))
	results, err := litm.Run([]*litm.Conn{a, b, c},
		leader,
		litm.ConsumeUntilShutdown(nil),
		litm.ConsumeUntilShutdown(nil),
	)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	sw.AwaitShutdown()

	// The shutdown message may overtake ordinary traffic.
	if results[0] != 0 || results[1] > 2 || results[2] > 2 {
		t.Fatalf("unexpected results %v", results)
	}
}

func TestRunExprCollectsErrors(t *testing.T) {
	sw := newSwitch(t, nil)
	conns := openN(t, sw, 2)

	results, err := litm.RunExpr(conns,
		litm.ExprSubscribeThen(1, kont.ExprReturn(1)),
		litm.ExprSubscribeThen(0, kont.ExprReturn(2)),
	)
	if err == nil {
		t.Fatal("expected an error from the second protocol")
	}
	if results[0] != 1 || results[1] != 0 {
		t.Fatalf("unexpected results %v", results)
	}

	if _, err := litm.RunExpr(conns, kont.ExprReturn(1)); err == nil {
		t.Fatal("expected length mismatch error")
	}
}

func TestLoopSendsSequence(t *testing.T) {
	sw := newSwitch(t, nil)
	conns := openN(t, sw, 2)
	a, b := conns[0], conns[1]
	if err := b.SubscribeWait(bg, 1); err != nil {
		t.Fatal(err)
	}

	sender := litm.Loop(0, func(n int) kont.Eff[kont.Either[int, int]] {
		if n == 3 {
			return kont.Pure(kont.Right[int, int](n))
		}
		return litm.SendThen(1, n, kont.Pure(kont.Left[int, int](n+1)))
	})
	if n, err := litm.Exec(a, sender); err != nil || n != 3 {
		t.Fatalf("sender got (%d, %v)", n, err)
	}

	for want := range 3 {
		got, err := litm.Exec(b, litm.Consume(func(e *litm.Envelope) any { return e.Payload() }))
		if err != nil || got != want {
			t.Fatalf("got (%v, %v), want %d", got, err, want)
		}
	}
}

func TestExprConsumeUntilShutdown(t *testing.T) {
	sw := newSwitch(t, nil)
	conns := openN(t, sw, 2)
	a, b := conns[0], conns[1]
	if err := b.SubscribeWait(bg, 1); err != nil {
		t.Fatal(err)
	}
	for i := range 3 {
		if err := a.SendWait(bg, 1, i); err != nil {
			t.Fatal(err)
		}
	}
	// Let the backlog reach b's mailbox first.
	eventually(t, func() bool { return b.Stats().Queued == 3 }, "backlog queued")
	if err := a.SendShutdownWait(bg, 1, nil, nil); err != nil {
		t.Fatal(err)
	}

	var seen []litm.MessageType
	n := execExpr(t, b, litm.ExprConsumeUntilShutdown(func(e *litm.Envelope) {
		seen = append(seen, e.Type())
	}))
	// Shutdown jumps the mailbox queue.
	if n != 0 || len(seen) != 1 || seen[0] != litm.TypeShutdown {
		t.Fatalf("got n=%d seen=%v", n, seen)
	}
	sw.AwaitShutdown()
}
