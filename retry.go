// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package litm

import (
	"context"
	"fmt"
	"time"

	"code.hybscloud.com/iox"
)

// Blocking wrappers. Each retries its non-blocking counterpart with
// adaptive backoff (iox.Backoff) while the error is retryable. A
// context without a deadline is bounded by Options.Timeout. On timeout
// the returned error matches both the context error and the last
// retryable error.

// OpenWait is [Switch.Open] retried while the registry is busy.
func (s *Switch) OpenWait(ctx context.Context, id ConnID) (*Conn, error) {
	var c *Conn
	err := retry(ctx, s.opts.Timeout, func() error {
		var err error
		c, err = s.Open(id)
		return err
	})
	return c, err
}

// CloseWait is [Conn.Close] retried while the tables are busy.
func (c *Conn) CloseWait(ctx context.Context) error {
	if c == nil {
		return ErrBadConnection
	}
	return retry(ctx, c.sw.opts.Timeout, c.Close)
}

// SubscribeWait is [Conn.Subscribe] retried while the tables are busy.
func (c *Conn) SubscribeWait(ctx context.Context, bus Bus) error {
	if c == nil {
		return ErrBadConnection
	}
	return retry(ctx, c.sw.opts.Timeout, func() error { return c.Subscribe(bus) })
}

// UnsubscribeWait is [Conn.Unsubscribe] retried while the tables are
// busy.
func (c *Conn) UnsubscribeWait(ctx context.Context, bus Bus) error {
	if c == nil {
		return ErrBadConnection
	}
	return retry(ctx, c.sw.opts.Timeout, func() error { return c.Unsubscribe(bus) })
}

// SubmitWait is [Conn.Submit] retried while the registry is busy.
func (c *Conn) SubmitWait(ctx context.Context, bus Bus, payload any, disposer Disposer, typ MessageType) error {
	if c == nil {
		return ErrBadConnection
	}
	return retry(ctx, c.sw.opts.Timeout, func() error { return c.Submit(bus, payload, disposer, typ) })
}

// SendWait is [Conn.Send] retried while the registry is busy.
func (c *Conn) SendWait(ctx context.Context, bus Bus, payload any) error {
	return c.SubmitWait(ctx, bus, payload, nil, TypeUser)
}

// SendShutdownWait is [Conn.SendShutdown] retried while the registry
// is busy.
func (c *Conn) SendShutdownWait(ctx context.Context, bus Bus, payload any, disposer Disposer) error {
	return c.SubmitWait(ctx, bus, payload, disposer, TypeShutdown)
}

// ReleaseWait is [Conn.Release] bounded by ctx.
func (c *Conn) ReleaseWait(ctx context.Context, e *Envelope) error {
	if c == nil {
		return ErrBadConnection
	}
	return retry(ctx, c.sw.opts.Timeout, func() error { return c.Release(e) })
}

func retry(ctx context.Context, timeout time.Duration, fn func() error) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	var bo iox.Backoff
	for {
		err := fn()
		if !IsRetryable(err) {
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return fmt.Errorf("litm: %w: %w", cerr, err)
		}
		bo.Wait()
	}
}
