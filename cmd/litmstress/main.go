// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command litmstress exercises a switch with many concurrent workers.
//
// Every worker subscribes to one bus, sends its messages, then consumes
// and releases until it sees a shutdown message. A leader connection
// sends the shutdown after a delay and waits for the switch to exit.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"code.hybscloud.com/litm"
	"code.hybscloud.com/litm/config"
	"golang.org/x/sync/errgroup"
)

type message struct {
	from litm.ConnID
	text string
}

func main() {
	configFile := flag.String("config", "", "Path to configuration file")
	workers := flag.Int("workers", 0, "Number of worker connections (overrides config)")
	messages := flag.Int("messages", -1, "Messages sent per worker (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *workers > 0 {
		cfg.Stress.Workers = *workers
	}
	if *messages >= 0 {
		cfg.Stress.Messages = *messages
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Log.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	if err := run(context.Background(), cfg, logger); err != nil {
		slog.Error("Stress run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	opts := cfg.Switch
	opts.Logger = logger
	sw, err := litm.New(opts)
	if err != nil {
		return err
	}

	leader, err := sw.OpenWait(ctx, 100)
	if err != nil {
		return fmt.Errorf("open leader: %w", err)
	}
	conns := make([]*litm.Conn, cfg.Stress.Workers)
	for i := range conns {
		conns[i], err = sw.OpenWait(ctx, litm.ConnID(101+i))
		if err != nil {
			return fmt.Errorf("open worker %d: %w", i, err)
		}
	}
	if err := sw.Start(); err != nil {
		return err
	}
	slog.Info("Stress run started",
		"switch", sw.ID(),
		"workers", cfg.Stress.Workers,
		"messages", cfg.Stress.Messages,
		"bus", cfg.Stress.Bus)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	// A failed worker cancels gctx; stopping the switch unblocks the
	// others.
	go func() {
		<-gctx.Done()
		sw.Stop()
	}()
	for _, c := range conns {
		g.Go(func() error { return work(gctx, c, cfg.Stress) })
	}
	g.Go(func() error { return lead(gctx, sw, leader, cfg) })

	if err := g.Wait(); err != nil {
		sw.AwaitShutdown()
		return err
	}

	st := sw.Stats()
	slog.Info("Stress run finished",
		"elapsed", time.Since(start),
		"submitted", st.Submitted,
		"delivered", st.Delivered,
		"requeued", st.Requeued,
		"finalized", st.Finalized,
		"pool_created", st.Pool.Created,
		"pool_reused", st.Pool.Reused)
	return nil
}

func lead(ctx context.Context, sw *litm.Switch, c *litm.Conn, cfg *config.Config) error {
	select {
	case <-time.After(cfg.Stress.ShutdownDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	msg := &message{from: c.ID(), text: fmt.Sprintf("shutdown from [%d]", c.ID())}
	for {
		err := c.SendShutdown(cfg.Stress.Bus, msg, nil)
		if err == nil {
			break
		}
		if !litm.IsRetryable(err) {
			return fmt.Errorf("leader: %w", err)
		}
		slog.Debug("Leader retrying shutdown", "error", err)
		select {
		case <-time.After(cfg.Switch.Backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	slog.Info("Leader initiating shutdown", "conn", c.ID())
	select {
	case <-sw.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	slog.Info("Leader ending", "conn", c.ID())
	return nil
}

func work(ctx context.Context, c *litm.Conn, cfg config.StressConfig) error {
	if err := c.SubscribeWait(ctx, cfg.Bus); err != nil {
		return fmt.Errorf("worker %d subscribe: %w", c.ID(), err)
	}

	msg := &message{from: c.ID(), text: fmt.Sprintf("message from [%d]", c.ID())}
	for range cfg.Messages {
		if err := c.SendWait(ctx, cfg.Bus, msg); err != nil {
			return fmt.Errorf("worker %d send: %w", c.ID(), err)
		}
	}

	consumed, err := litm.Exec(c, litm.ConsumeUntilShutdown(nil))
	if err != nil && !errors.Is(err, litm.ErrSwitchNotRunning) {
		return fmt.Errorf("worker %d receive: %w", c.ID(), err)
	}

	if err := c.UnsubscribeWait(ctx, cfg.Bus); err != nil && !errors.Is(err, litm.ErrSubscriptionNotFound) {
		slog.Debug("Worker unsubscribe failed", "conn", c.ID(), "error", err)
	}
	st := c.Stats()
	slog.Info("Worker done",
		"conn", c.ID(),
		"sent", st.Sent,
		"received", st.Received,
		"released", st.Released,
		"consumed", consumed,
		"queued", st.Queued)
	return nil
}
