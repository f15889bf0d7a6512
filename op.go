// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package litm

import (
	"errors"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
)

// connDispatcher is the structural interface for connection effects.
// DispatchConn is non-blocking: it returns iox.ErrWouldBlock when the
// switch tables are busy or the mailbox is empty, and any other error
// as a failure of the operation.
type connDispatcher interface {
	DispatchConn(c *Conn) (kont.Resumed, error)
}

// Subscribe is the effect operation for joining a bus.
type Subscribe struct {
	kont.Phantom[struct{}]
	Bus Bus
}

// DispatchConn handles Subscribe on the connection.
func (op Subscribe) DispatchConn(c *Conn) (kont.Resumed, error) {
	if err := c.Subscribe(op.Bus); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

// Unsubscribe is the effect operation for leaving a bus.
type Unsubscribe struct {
	kont.Phantom[struct{}]
	Bus Bus
}

// DispatchConn handles Unsubscribe on the connection.
func (op Unsubscribe) DispatchConn(c *Conn) (kont.Resumed, error) {
	if err := c.Unsubscribe(op.Bus); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

// Submit is the effect operation for publishing a payload.
// A zero Type selects [TypeUser].
type Submit struct {
	kont.Phantom[struct{}]
	Bus      Bus
	Payload  any
	Disposer Disposer
	Type     MessageType
}

// DispatchConn handles Submit on the connection.
func (op Submit) DispatchConn(c *Conn) (kont.Resumed, error) {
	typ := op.Type
	if typ == TypeInvalid {
		typ = TypeUser
	}
	if err := c.Submit(op.Bus, op.Payload, op.Disposer, typ); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

// Poll is the effect operation for receiving the next envelope.
// The protocol must release what it receives.
type Poll struct {
	kont.Phantom[*Envelope]
}

// DispatchConn handles Poll on the connection.
// An empty mailbox is reported as iox.ErrWouldBlock.
func (Poll) DispatchConn(c *Conn) (kont.Resumed, error) {
	e, err := c.Poll()
	if err != nil {
		if errors.Is(err, ErrNoMessage) {
			return nil, iox.ErrWouldBlock
		}
		return nil, err
	}
	return e, nil
}

// Release is the effect operation for handing an envelope back to the
// switch.
type Release struct {
	kont.Phantom[struct{}]
	Envelope *Envelope
}

// DispatchConn handles Release on the connection. Never blocks.
func (op Release) DispatchConn(c *Conn) (kont.Resumed, error) {
	if err := c.Release(op.Envelope); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

// Disconnect is the effect operation for closing the connection.
type Disconnect struct {
	kont.Phantom[struct{}]
}

// DispatchConn handles Disconnect on the connection.
func (Disconnect) DispatchConn(c *Conn) (kont.Resumed, error) {
	if err := c.Close(); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}
