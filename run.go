// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package litm

import (
	"errors"
	"fmt"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
)

// Run executes one Cont-world protocol per connection, protocols[i] on
// conns[i], interleaving them on the calling goroutine. It waits with
// adaptive backoff (iox.Backoff) when no protocol can make progress.
//
// results[i] is the outcome of protocols[i]. A protocol that fails
// stops; the others run to completion, and the failures are joined in
// the returned error.
func Run[R any](conns []*Conn, protocols ...kont.Eff[R]) ([]R, error) {
	exprs := make([]kont.Expr[R], len(protocols))
	for i, p := range protocols {
		exprs[i] = kont.Reify(p)
	}
	return RunExpr(conns, exprs...)
}

// RunExpr is [Run] for Expr-world protocols.
func RunExpr[R any](conns []*Conn, protocols ...kont.Expr[R]) ([]R, error) {
	if len(conns) != len(protocols) {
		return nil, fmt.Errorf("litm: %d connections for %d protocols", len(conns), len(protocols))
	}
	results := make([]R, len(protocols))
	susps := make([]*kont.Suspension[R], len(protocols))
	live := 0
	for i, p := range protocols {
		results[i], susps[i] = Step(p)
		if susps[i] != nil {
			live++
		}
	}

	var errs []error
	var bo iox.Backoff
	for live > 0 {
		progress := false
		for i, susp := range susps {
			if susp == nil {
				continue
			}
			var err error
			results[i], susps[i], err = Advance(conns[i], susp)
			switch {
			case err == nil:
				progress = true
			case iox.IsWouldBlock(err):
				continue
			default:
				errs = append(errs, fmt.Errorf("litm: conn %d: %w", conns[i].ID(), err))
				progress = true
			}
			if susps[i] == nil {
				live--
			}
		}
		if !progress {
			bo.Wait()
		} else {
			bo.Reset()
		}
	}
	return results, errors.Join(errs...)
}
