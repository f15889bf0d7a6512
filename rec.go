// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package litm

import (
	"code.hybscloud.com/kont"
)

// Loop runs a recursive protocol (Cont-world).
// step returns Left(nextState) to continue or Right(result) to finish.
func Loop[S, A any](initial S, step func(S) kont.Eff[kont.Either[S, A]]) kont.Eff[A] {
	return kont.Bind(step(initial), func(e kont.Either[S, A]) kont.Eff[A] {
		if left, ok := e.GetLeft(); ok {
			return Loop(left, step)
		}
		right, _ := e.GetRight()
		return kont.Pure(right)
	})
}

// ExprLoop runs a recursive protocol (Expr-world).
// step returns Left(nextState) to continue or Right(result) to finish.
func ExprLoop[S, A any](initial S, step func(S) kont.Expr[kont.Either[S, A]]) kont.Expr[A] {
	m := step(initial)
	if _, ok := m.Frame.(kont.ReturnFrame); ok {
		if left, ok := m.Value.GetLeft(); ok {
			return ExprLoop(left, step)
		}
		right, _ := m.Value.GetRight()
		return kont.ExprReturn(right)
	}
	bf := kont.AcquireBindFrame()
	bf.F = func(a kont.Erased) kont.Expr[kont.Erased] {
		e := a.(kont.Either[S, A])
		if left, ok := e.GetLeft(); ok {
			result := ExprLoop(left, step)
			return kont.Expr[kont.Erased]{Value: kont.Erased(result.Value), Frame: result.Frame}
		}
		right, _ := e.GetRight()
		return kont.Expr[kont.Erased]{Value: kont.Erased(right), Frame: kont.ReturnFrame{}}
	}
	bf.Next = kont.ReturnFrame{}
	var zero A
	return kont.Expr[A]{
		Value: zero,
		Frame: kont.ChainFrames(m.Frame, bf),
	}
}

// Consume receives one envelope, applies f, releases the envelope and
// returns f's result. f must not retain e.
func Consume[A any](f func(e *Envelope) A) kont.Eff[A] {
	return PollBind(func(e *Envelope) kont.Eff[A] {
		return ReleaseThen(e, kont.Pure(f(e)))
	})
}

// ConsumeUntilShutdown receives and releases envelopes until a
// shutdown message arrives, calling f on each one first if f is
// non-nil. It returns the number of ordinary messages consumed.
func ConsumeUntilShutdown(f func(e *Envelope)) kont.Eff[int] {
	return Loop(0, func(n int) kont.Eff[kont.Either[int, int]] {
		return PollBind(func(e *Envelope) kont.Eff[kont.Either[int, int]] {
			if f != nil {
				f(e)
			}
			if e.Type() == TypeShutdown {
				return ReleaseThen(e, kont.Pure(kont.Right[int, int](n)))
			}
			return ReleaseThen(e, kont.Pure(kont.Left[int, int](n+1)))
		})
	})
}

// ExprConsumeUntilShutdown is [ConsumeUntilShutdown] in Expr-world.
func ExprConsumeUntilShutdown(f func(e *Envelope)) kont.Expr[int] {
	return ExprLoop(0, func(n int) kont.Expr[kont.Either[int, int]] {
		return ExprPollBind(func(e *Envelope) kont.Expr[kont.Either[int, int]] {
			if f != nil {
				f(e)
			}
			if e.Type() == TypeShutdown {
				return ExprReleaseThen(e, kont.ExprReturn(kont.Right[int, int](n)))
			}
			return ExprReleaseThen(e, kont.ExprReturn(kont.Left[int, int](n+1)))
		})
	})
}
