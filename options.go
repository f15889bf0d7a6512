// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package litm

import (
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Options configures a [Switch]. Zero fields take their defaults in
// [New]; use [DefaultOptions] to start from explicit values.
type Options struct {
	// MaxConnections bounds simultaneously registered connections and
	// the width of every bus's subscriber row.
	MaxConnections int `yaml:"max_connections"`

	// MaxBusses is the highest valid bus id.
	MaxBusses int `yaml:"max_busses"`

	// PoolCapacity is the number of spare envelopes kept for reuse.
	PoolCapacity int `yaml:"pool_capacity"`

	// MailboxCapacity limits each connection's inbound queue. A full
	// mailbox is reported as busy to the switch, which retries later.
	// 0 means unbounded.
	MailboxCapacity int `yaml:"mailbox_capacity"`

	// PollInterval bounds how long the idle switch sleeps between
	// checks, and how often closed connections are reaped.
	PollInterval time.Duration `yaml:"poll_interval"`

	// Timeout is applied by the *Wait helpers when the context carries
	// no deadline.
	Timeout time.Duration `yaml:"timeout"`

	// Backoff is the pause between attempts of callers that retry at a
	// coarse grain, such as a leader re-sending a shutdown message.
	Backoff time.Duration `yaml:"backoff"`

	// TraceCapacity sizes the route tracer ring. 0 disables tracing;
	// otherwise it must be at least 2 and is rounded up to a power of 2.
	TraceCapacity int `yaml:"trace_capacity"`

	Logger        *slog.Logger         `yaml:"-"`
	MeterProvider metric.MeterProvider `yaml:"-"`
}

// DefaultOptions returns the built-in configuration.
func DefaultOptions() Options {
	return Options{
		MaxConnections: MaxConnections,
		MaxBusses:      MaxBusses,
		PoolCapacity:   PoolCapacity,
		PollInterval:   DefaultPollInterval,
		Timeout:        DefaultTimeout,
		Backoff:        DefaultBackoff,
	}
}

// withDefaults fills zero fields. MailboxCapacity and TraceCapacity
// stay 0, which is meaningful for both.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxConnections == 0 {
		o.MaxConnections = d.MaxConnections
	}
	if o.MaxBusses == 0 {
		o.MaxBusses = d.MaxBusses
	}
	if o.PoolCapacity == 0 {
		o.PoolCapacity = d.PoolCapacity
	}
	if o.PollInterval == 0 {
		o.PollInterval = d.PollInterval
	}
	if o.Timeout == 0 {
		o.Timeout = d.Timeout
	}
	if o.Backoff == 0 {
		o.Backoff = d.Backoff
	}
	return o
}

// Validate checks that o describes a usable switch.
func (o Options) Validate() error {
	if o.MaxConnections < 1 || o.MaxConnections > maxSlots {
		return fmt.Errorf("max_connections must be in [1, %d], got %d", maxSlots, o.MaxConnections)
	}
	if o.MaxBusses < 1 {
		return fmt.Errorf("max_busses must be positive, got %d", o.MaxBusses)
	}
	if o.PoolCapacity < 0 {
		return fmt.Errorf("pool_capacity cannot be negative")
	}
	if o.MailboxCapacity < 0 {
		return fmt.Errorf("mailbox_capacity cannot be negative")
	}
	if o.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if o.Backoff <= 0 {
		return fmt.Errorf("backoff must be positive")
	}
	if o.TraceCapacity != 0 && o.TraceCapacity < 2 {
		return fmt.Errorf("trace_capacity must be 0 or at least 2, got %d", o.TraceCapacity)
	}
	return nil
}
