// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package litm

import "time"

// Default table sizes and timings.
const (
	MaxConnections = 15
	MaxBusses      = 7
	PoolCapacity   = 16
	DefaultTimeout = 5 * time.Second
	DefaultBackoff = time.Second

	// DefaultPollInterval bounds how long an idle switch sleeps before
	// it re-checks its queue and reaps closed connections.
	DefaultPollInterval = 10 * time.Millisecond

	// maxSlots is the widest subscriber row a visited set can track.
	maxSlots = 63
)

// Bus identifies a logical channel. Valid busses are 1..MaxBusses.
type Bus int

// ConnID is the caller-visible identifier of a connection.
type ConnID int

// MessageType tags an envelope. Values 0 and 3..99 are reserved.
type MessageType int

const (
	TypeInvalid  MessageType = 0
	TypeShutdown MessageType = 1
	TypeTimer    MessageType = 2

	// TypeUser is the first user-defined type. [Conn.Send] uses it.
	TypeUser MessageType = 100
)

func (t MessageType) valid() bool {
	return t == TypeShutdown || t == TypeTimer || t >= TypeUser
}

func (t MessageType) String() string {
	switch {
	case t == TypeInvalid:
		return "invalid"
	case t == TypeShutdown:
		return "shutdown"
	case t == TypeTimer:
		return "timer"
	case t >= TypeUser:
		return "user"
	}
	return "reserved"
}

// Status is the lifecycle state of a connection.
type Status uint32

const (
	// StatusInvalid marks a connection that was never opened or has
	// been reaped.
	StatusInvalid Status = iota
	StatusActive
	StatusPendingDeletion
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusPendingDeletion:
		return "pending-deletion"
	}
	return "invalid"
}
