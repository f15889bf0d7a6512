// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package litm

import "code.hybscloud.com/atomix"

// Serial is a monotonically increasing envelope number.
// Each switch numbers its submissions from 1.
type Serial = uint64

// serials is a switch's submission counter.
type serials struct {
	counter atomix.Uint64
}

// next returns the next serial. Safe for concurrent submitters.
func (s *serials) next() Serial {
	return s.counter.Add(1)
}
