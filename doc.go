// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package litm is an in-process publish/subscribe bus for coordinating
// worker goroutines.
//
// A single routing goroutine, the [Switch], passes each submitted
// [Envelope] to the subscribers of its bus one at a time. The sender
// never receives its own message, and each subscriber receives it
// exactly once, in slot order, after the previous holder released it.
//
// # Architecture
//
//   - Tables: fixed-capacity connection registry and bus-by-slot subscription grid. Clients try-lock them and get [ErrBusy] instead of waiting.
//   - Mailboxes: each [Conn] has a FIFO queue filled only by the switch. A full or contended mailbox makes the switch retry the same recipient later.
//   - Envelopes: recycled through a bounded LIFO pool. A payload is disposed exactly once, when its envelope has no further subscriber.
//   - Shutdown: a [TypeShutdown] message jumps ahead of queued traffic. When it has visited every subscriber the switch drains and exits; [Switch.AwaitShutdown] joins it.
//
// # API Topologies
//
//   - Non-blocking: [Switch.Open], [Conn.Subscribe], [Conn.Submit], [Conn.Poll], [Conn.Release], [Conn.Close].
//   - Blocking: [Conn.PollWait] and the *Wait wrappers retry with [code.hybscloud.com/iox.Backoff] until a context deadline.
//   - Effects: [Subscribe], [Submit], [Poll], [Release], [Disconnect] as [code.hybscloud.com/kont] operations, with fused helpers such as [SendThen] and [PollBind]. [Exec], [Step]/[Advance] and [Run] evaluate protocols against connections.
//   - Observability: [Switch.Stats], OpenTelemetry counters, and the [Tracer] ring.
//
// # Example
//
//	sw, _ := litm.New(litm.Options{})
//	_ = sw.Start()
//	a, _ := sw.Open(0)
//	b, _ := sw.Open(0)
//	_ = b.Subscribe(1)
//	_ = a.Send(1, "hello")
//	e, _ := b.PollWait(ctx)
//	fmt.Println(e.Payload())
//	_ = b.Release(e)
package litm
