// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package litm

import (
	"code.hybscloud.com/kont"
)

// Pre-allocated erased operations and frames.
var (
	exprReturnFrame kont.Frame  = kont.ReturnFrame{}
	exprPoll        kont.Erased = Poll{}
	exprDisconnect  kont.Erased = Disconnect{}
)

func identityResume(v kont.Erased) kont.Erased { return v }

// exprThen performs op and then continues with next.
func exprThen[B any](op kont.Erased, next kont.Expr[B]) kont.Expr[B] {
	tf := kont.AcquireThenFrame()
	tf.Second = kont.Expr[kont.Erased]{Value: kont.Erased(next.Value), Frame: next.Frame}
	tf.Next = exprReturnFrame
	ef := kont.AcquireEffectFrame()
	ef.Operation = op
	ef.Resume = identityResume
	ef.Next = tf
	return kont.ExprSuspend[B](ef)
}

// ExprSubscribeThen joins bus and then continues with next.
func ExprSubscribeThen[B any](bus Bus, next kont.Expr[B]) kont.Expr[B] {
	return exprThen(Subscribe{Bus: bus}, next)
}

// ExprUnsubscribeThen leaves bus and then continues with next.
func ExprUnsubscribeThen[B any](bus Bus, next kont.Expr[B]) kont.Expr[B] {
	return exprThen(Unsubscribe{Bus: bus}, next)
}

// ExprSendThen submits an ordinary message and then continues with
// next.
func ExprSendThen[B any](bus Bus, payload any, next kont.Expr[B]) kont.Expr[B] {
	return exprThen(Submit{Bus: bus, Payload: payload, Type: TypeUser}, next)
}

// ExprShutdownThen submits a shutdown message and then continues with
// next.
func ExprShutdownThen[B any](bus Bus, payload any, disposer Disposer, next kont.Expr[B]) kont.Expr[B] {
	return exprThen(Submit{Bus: bus, Payload: payload, Disposer: disposer, Type: TypeShutdown}, next)
}

// ExprReleaseThen releases e and then continues with next.
func ExprReleaseThen[B any](e *Envelope, next kont.Expr[B]) kont.Expr[B] {
	return exprThen(Release{Envelope: e}, next)
}

func pollBindUnwind[B any](data, _, _ kont.Erased, current kont.Erased) (kont.Erased, kont.Frame) {
	f := data.(func(*Envelope) kont.Expr[B])
	result := f(current.(*Envelope))
	return kont.Erased(result.Value), result.Frame
}

// ExprPollBind receives an envelope and passes it to f.
// Fuses ExprPerform(Poll{}) + ExprBind.
func ExprPollBind[B any](f func(*Envelope) kont.Expr[B]) kont.Expr[B] {
	bf := kont.AcquireUnwindFrame()
	bf.Data1 = f
	bf.Unwind = pollBindUnwind[B]
	ef := kont.AcquireEffectFrame()
	ef.Operation = exprPoll
	ef.Resume = identityResume
	ef.Next = bf
	return kont.ExprSuspend[B](ef)
}

// ExprDisconnectDone closes the connection and returns a.
func ExprDisconnectDone[A any](a A) kont.Expr[A] {
	tf := kont.AcquireThenFrame()
	tf.Second = kont.Expr[kont.Erased]{Value: kont.Erased(a), Frame: exprReturnFrame}
	tf.Next = exprReturnFrame
	ef := kont.AcquireEffectFrame()
	ef.Operation = exprDisconnect
	ef.Resume = identityResume
	ef.Next = tf
	return kont.ExprSuspend[A](ef)
}
