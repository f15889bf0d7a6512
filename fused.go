// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package litm

import (
	"code.hybscloud.com/kont"
)

// SubscribeThen joins bus and then continues with next.
// Fuses Perform(Subscribe{Bus: bus}) + Then.
func SubscribeThen[B any](bus Bus, next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(Subscribe{Bus: bus}), next)
}

// UnsubscribeThen leaves bus and then continues with next.
func UnsubscribeThen[B any](bus Bus, next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(Unsubscribe{Bus: bus}), next)
}

// SendThen submits an ordinary message and then continues with next.
// Fuses Perform(Submit{...}) + Then.
func SendThen[B any](bus Bus, payload any, next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(Submit{Bus: bus, Payload: payload, Type: TypeUser}), next)
}

// ShutdownThen submits a shutdown message and then continues with next.
func ShutdownThen[B any](bus Bus, payload any, disposer Disposer, next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(Submit{Bus: bus, Payload: payload, Disposer: disposer, Type: TypeShutdown}), next)
}

// PollBind receives an envelope and passes it to f.
// Fuses Perform(Poll{}) + Bind.
func PollBind[B any](f func(*Envelope) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(Poll{}), f)
}

// ReleaseThen releases e and then continues with next.
func ReleaseThen[B any](e *Envelope, next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(Release{Envelope: e}), next)
}

// DisconnectDone closes the connection and returns a.
// Fuses Perform(Disconnect{}) + Then + Pure.
func DisconnectDone[A any](a A) kont.Eff[A] {
	return kont.Then(kont.Perform(Disconnect{}), kont.Pure(a))
}
