// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package litm

import (
	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
)

// Step evaluates a protocol until the first effect suspension.
// Returns (result, nil) on completion, or (zero, suspension) if pending.
func Step[R any](protocol kont.Expr[R]) (R, *kont.Suspension[R]) {
	return kont.StepExpr(protocol)
}

// Advance dispatches the suspended operation on c without blocking.
//
// On success the suspension is consumed and the protocol advances to
// the next effect or completion. On iox.ErrWouldBlock the suspension
// is returned unconsumed and may be retried later. On any other error
// the suspension is discarded and a nil suspension is returned along
// with the error.
func Advance[R any](c *Conn, susp *kont.Suspension[R]) (R, *kont.Suspension[R], error) {
	cop, ok := susp.Op().(connDispatcher)
	if !ok {
		panic("litm: unhandled effect in Advance")
	}
	var zero R
	v, err := cop.DispatchConn(c)
	if err != nil {
		if iox.IsWouldBlock(err) {
			return zero, susp, err
		}
		susp.Discard()
		return zero, nil, err
	}
	result, next := susp.Resume(v)
	return result, next, nil
}
