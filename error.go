// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package litm

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrBusy reports retryable contention: a table lock was held, or a
// mailbox could not accept an envelope right now. It is
// [iox.ErrWouldBlock], so [iox.IsWouldBlock] recognizes it.
var ErrBusy = iox.ErrWouldBlock

var (
	ErrNoMessage            = errors.New("litm: no message")
	ErrBadConnection        = errors.New("litm: bad connection")
	ErrNoMoreConnections    = errors.New("litm: no more connections")
	ErrDuplicateID          = errors.New("litm: connection id in use")
	ErrInvalidBus           = errors.New("litm: invalid bus")
	ErrInvalidMessageType   = errors.New("litm: invalid message type")
	ErrBusFull              = errors.New("litm: bus full")
	ErrSubscriptionNotFound = errors.New("litm: subscription not found")
	ErrInvalidEnvelope      = errors.New("litm: invalid envelope")
	ErrConnectionNotActive  = errors.New("litm: connection not active")
	ErrSwitchNotRunning     = errors.New("litm: switch not running")
	ErrSwitchStarted        = errors.New("litm: switch already started")
)

// Routing anomalies. These never reach callers; the switch recovers
// from them by resetting the cursor or finalizing the envelope.
var (
	ErrSenderEqualCurrent = errors.New("litm: sender equals current recipient")
	ErrNextNotFound       = errors.New("litm: no next subscriber")
	ErrOutputQueuing      = errors.New("litm: recipient queue rejected envelope")
)

// IsRetryable reports whether err is transient and the operation may
// succeed if retried after a backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrBusy) || errors.Is(err, ErrNoMessage)
}
