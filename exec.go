// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package litm

import (
	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
)

// connHandler implements kont.Handler for connection effects.
// Waits on iox.ErrWouldBlock; any other error aborts the protocol with
// a Left result.
type connHandler[R any] struct {
	c *Conn
}

// Dispatch implements kont.Handler via structural interface assertion.
func (h connHandler[R]) Dispatch(op kont.Operation) (kont.Resumed, bool) {
	cop, ok := op.(connDispatcher)
	if !ok {
		panic("litm: unhandled effect in connHandler")
	}
	v, err := dispatchWait(h.c, cop)
	if err != nil {
		return kont.Left[error, R](err), false
	}
	return v, true
}

// dispatchWait retries DispatchConn with adaptive backoff until it
// succeeds or fails with an error other than iox.ErrWouldBlock.
func dispatchWait(c *Conn, cop connDispatcher) (kont.Resumed, error) {
	var bo iox.Backoff
	for {
		v, err := cop.DispatchConn(c)
		if err == nil {
			return v, nil
		}
		if !iox.IsWouldBlock(err) {
			return nil, err
		}
		bo.Wait()
	}
}

// Exec runs a Cont-world protocol on c and returns its result, or the
// first non-retryable error an operation reported. Blocks on
// iox.ErrWouldBlock via adaptive backoff, without spawning goroutines.
func Exec[R any](c *Conn, protocol kont.Eff[R]) (R, error) {
	wrapped := kont.Map[kont.Resumed, R, kont.Either[error, R]](protocol, func(r R) kont.Either[error, R] {
		return kont.Right[error, R](r)
	})
	return unwrap(kont.Handle(wrapped, connHandler[R]{c: c}))
}

// ExecExpr runs an Expr-world protocol on c. See [Exec].
func ExecExpr[R any](c *Conn, protocol kont.Expr[R]) (R, error) {
	wrapped := kont.ExprMap(protocol, func(r R) kont.Either[error, R] {
		return kont.Right[error, R](r)
	})
	return unwrap(kont.HandleExpr(wrapped, connHandler[R]{c: c}))
}

func unwrap[R any](e kont.Either[error, R]) (R, error) {
	if err, ok := e.GetLeft(); ok {
		var zero R
		return zero, err
	}
	r, _ := e.GetRight()
	return r, nil
}
