// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package litm

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/litm/internal/queue"
	"code.hybscloud.com/spin"
	"github.com/google/uuid"
)

const (
	switchIdle uint32 = iota
	switchRunning
	switchStopped
)

// Switch routes envelopes from senders to the subscribers of a bus.
//
// One goroutine, started by [Switch.Start], owns all routing state. An
// envelope visits the subscribers of its bus one at a time in slot
// order, never the sender, and moves on only after the current holder
// releases it. Clients interact through [Conn] handles from
// [Switch.Open].
type Switch struct {
	id   uuid.UUID
	opts Options
	log  *slog.Logger

	pool    *envelopePool
	reg     *registry
	subs    *subscriptions
	input   *queue.Queue[*Envelope]
	serials serials
	metrics *switchMetrics
	tracer  *Tracer

	state    atomix.Uint32
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	// Switch goroutine only.
	draining bool
	lastReap time.Time

	closed    atomix.Uint64
	reaped    atomix.Uint64
	submitted atomix.Uint64
	delivered atomix.Uint64
	requeued  atomix.Uint64
	resets    atomix.Uint64
	finalized atomix.Uint64
}

// SwitchStats is a snapshot of switch activity.
type SwitchStats struct {
	Submitted   uint64
	Delivered   uint64
	Requeued    uint64
	Resets      uint64
	Finalized   uint64
	Closed      uint64
	Reaped      uint64
	Queued      int
	Connections int
	Pool        PoolStats
}

// New creates a stopped switch. Zero option fields take their defaults.
func New(opts Options) (*Switch, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	id := uuid.New()
	m, err := newSwitchMetrics(opts.MeterProvider, id.String())
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Switch{
		id:      id,
		opts:    opts,
		log:     logger.With("switch", id.String()),
		pool:    newEnvelopePool(opts.PoolCapacity),
		reg:     newRegistry(opts.MaxConnections),
		subs:    newSubscriptions(opts.MaxBusses, opts.MaxConnections),
		input:   queue.New[*Envelope](0),
		metrics: m,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if opts.TraceCapacity > 0 {
		s.tracer = newTracer(opts.TraceCapacity)
	}
	return s, nil
}

// ID returns the switch's instance id.
func (s *Switch) ID() uuid.UUID { return s.id }

// Options returns the effective options.
func (s *Switch) Options() Options { return s.opts }

// Trace returns the route tracer, or nil if tracing is disabled.
func (s *Switch) Trace() *Tracer { return s.tracer }

// Running reports whether the routing goroutine is active.
func (s *Switch) Running() bool { return s.state.LoadAcquire() == switchRunning }

// Start launches the routing goroutine. A switch runs at most once.
func (s *Switch) Start() error {
	if !s.state.CompareAndSwapAcqRel(switchIdle, switchRunning) {
		return ErrSwitchStarted
	}
	go s.run()
	return nil
}

// Stop makes the routing goroutine exit without waiting for a
// shutdown message. Envelopes still in flight are finalized.
// Stop does not wait; use [Switch.AwaitShutdown].
func (s *Switch) Stop() {
	if s.state.CompareAndSwapAcqRel(switchIdle, switchStopped) {
		s.teardown()
		return
	}
	s.stopOnce.Do(func() { close(s.stop) })
}

// AwaitShutdown blocks until the routing goroutine has terminated,
// normally after a shutdown message has visited every subscriber.
func (s *Switch) AwaitShutdown() { <-s.done }

// Done is closed when the routing goroutine has terminated.
func (s *Switch) Done() <-chan struct{} { return s.done }

// Open registers a connection. id 0 uses the connection's slot number.
// It returns [ErrBusy] if the registry is momentarily locked.
func (s *Switch) Open(id ConnID) (*Conn, error) {
	if id < 0 {
		return nil, ErrBadConnection
	}
	if !s.reg.mu.TryLock() {
		return nil, ErrBusy
	}
	c, err := s.reg.openLocked(s, id, s.opts.MailboxCapacity)
	s.reg.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s.log.Debug("connection opened", "conn", c.id, "slot", c.ref.slot)
	return c, nil
}

// Connection returns the connection in slot, or nil.
func (s *Switch) Connection(slot int) *Conn { return s.reg.at(slot) }

// Connections returns every registered connection, including those
// closed but not yet reaped.
func (s *Switch) Connections() []*Conn { return s.reg.list() }

// Stats returns a snapshot of switch counters.
func (s *Switch) Stats() SwitchStats {
	return SwitchStats{
		Submitted:   s.submitted.LoadAcquire(),
		Delivered:   s.delivered.LoadAcquire(),
		Requeued:    s.requeued.LoadAcquire(),
		Resets:      s.resets.LoadAcquire(),
		Finalized:   s.finalized.LoadAcquire(),
		Closed:      s.closed.LoadAcquire(),
		Reaped:      s.reaped.LoadAcquire(),
		Queued:      s.input.Len(),
		Connections: len(s.reg.list()),
		Pool:        s.pool.snapshot(),
	}
}

func (s *Switch) run() {
	defer s.teardown()
	s.log.Info("switch started",
		"max_connections", s.opts.MaxConnections,
		"max_busses", s.opts.MaxBusses)

	timer := time.NewTimer(s.opts.PollInterval)
	defer timer.Stop()
	sw := spin.Wait{}
	s.lastReap = time.Now()

	for {
		select {
		case <-s.stop:
			return
		default:
		}

		e, err := s.input.GetNB()
		switch {
		case err == nil:
			progressed := true
			if s.draining {
				s.finalize(e)
			} else {
				progressed = s.route(e)
			}
			if progressed {
				sw = spin.Wait{}
			} else {
				sw.Once()
			}
			if time.Since(s.lastReap) >= s.opts.PollInterval {
				s.housekeep()
			}
			continue
		case errors.Is(err, queue.ErrWouldBlock):
			sw.Once()
			continue
		}

		if s.draining {
			return
		}
		s.housekeep()
		timer.Reset(s.opts.PollInterval)
		select {
		case <-s.input.Ready():
		case <-timer.C:
		case <-s.stop:
			return
		}
	}
}

func (s *Switch) housekeep() {
	s.reap()
	s.lastReap = time.Now()
}

// route advances e by one step. It reports false when e only went back
// to the queue because its recipient was busy.
func (s *Switch) route(e *Envelope) bool {
	if e.pending {
		return s.deliver(e)
	}
	slot, ref, err := s.subs.next(e)
	if err != nil {
		if !errors.Is(err, ErrNextNotFound) {
			s.log.Debug("routing failed", "serial", e.serial, "bus", e.bus, "error", err)
		}
		s.finalize(e)
		return true
	}
	e.current = slot
	e.target = ref
	e.pending = true
	return s.deliver(e)
}

// deliver attempts a non-blocking push of e into its target's mailbox.
func (s *Switch) deliver(e *Envelope) bool {
	if e.target == e.sender {
		s.log.Debug("routing anomaly", "serial", e.serial, "error", ErrSenderEqualCurrent)
		s.finalize(e)
		return true
	}

	s.reg.mu.Lock()
	c, err := s.reg.resolveLocked(e.target)
	s.reg.mu.Unlock()
	if err != nil {
		s.restart(e, err)
		return true
	}

	// Once the put succeeds the envelope belongs to the recipient, so
	// every field the switch owns is settled beforehand.
	slot := e.current
	e.pending = false
	e.delivery++
	e.visit(slot)
	var ev RouteEvent
	if s.tracer != nil {
		ev = routeEvent(RouteDelivered, e, slot, c.id)
	}

	if e.typ == TypeShutdown {
		err = c.inbox.PutHeadNB(e)
	} else {
		err = c.inbox.PutNB(e)
	}
	switch {
	case err == nil:
		c.delivered.Add(1)
		s.delivered.Add(1)
		s.metrics.deliver()
		if s.tracer != nil {
			s.tracer.record(ev)
		}
		return true
	case errors.Is(err, queue.ErrWouldBlock):
		e.pending = true
		e.delivery--
		e.unvisit(slot)
		e.requeued++
		s.requeued.Add(1)
		s.metrics.requeue()
		if s.tracer != nil {
			s.tracer.record(routeEvent(RouteRequeued, e, slot, c.id))
		}
		s.requeue(e)
		return false
	case errors.Is(err, queue.ErrClosed):
		e.delivery--
		s.restart(e, ErrConnectionNotActive)
		return true
	}

	s.log.Warn("delivery failed", "serial", e.serial, "conn", c.id, "error", errors.Join(ErrOutputQueuing, err))
	s.finalize(e)
	return true
}

// restart sends e back to the start of its bus row after its recipient
// went away. The visited set keeps earlier recipients from seeing it
// again.
func (s *Switch) restart(e *Envelope, cause error) {
	s.log.Debug("recipient gone, restarting route",
		"serial", e.serial, "slot", e.current, "error", cause)
	if e.current > 0 {
		e.visit(e.current)
	}
	e.pending = false
	e.current = 0
	e.target = connRef{}
	s.resets.Add(1)
	s.metrics.reset()
	if s.tracer != nil {
		s.tracer.record(routeEvent(RouteReset, e, 0, 0))
	}
	s.requeue(e)
}

func (s *Switch) requeue(e *Envelope) {
	if err := s.input.Put(e); err != nil {
		s.finalize(e)
	}
}

// finalize ends routing for e. A finalized shutdown message puts the
// switch into draining: the rest of its queue is finalized unrouted
// and the goroutine exits once the queue is empty.
func (s *Switch) finalize(e *Envelope) {
	if s.tracer != nil {
		s.tracer.record(routeEvent(RouteFinalized, e, 0, 0))
	}
	if e.typ == TypeShutdown && !s.draining {
		s.draining = true
		s.log.Info("shutdown message finalized",
			"serial", e.serial, "deliveries", e.delivery, "releases", e.released)
	}
	s.discard(e)
}

// discard disposes e and returns it to the pool. Safe on any
// goroutine.
func (s *Switch) discard(e *Envelope) {
	typ := e.typ
	s.pool.recycle(e.dispose())
	s.finalized.Add(1)
	s.metrics.finalize(typ)
}

func (s *Switch) teardown() {
	s.state.StoreRelease(switchStopped)
	for _, e := range s.input.Destroy() {
		s.finalize(e)
	}
	for _, c := range s.reg.list() {
		for _, e := range c.inbox.Destroy() {
			s.finalize(e)
		}
	}
	st := s.pool.snapshot()
	s.log.Info("switch stopped",
		"submitted", s.submitted.LoadAcquire(),
		"delivered", s.delivered.LoadAcquire(),
		"finalized", s.finalized.LoadAcquire(),
		"pool_created", st.Created,
		"pool_reused", st.Reused)
	close(s.done)
}
