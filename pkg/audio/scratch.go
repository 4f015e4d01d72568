/*
 * Copyright 2025 Rackhost Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package audio

import (
	"unsafe"

	"github.com/audiorack/rackhost/api"
	"github.com/audiorack/rackhost/internal/logging"
)

// Scratch is the fixed-size conversion region used by the
// copy-and-convert coupling strategy. It is sized once at initialize
// (frames*channels samples per side) and never grows, keeping the
// process path allocation-free. Backed by page-aligned mapped memory
// where the platform supports it.
type Scratch struct {
	raw     []byte
	in      []float32
	out     []float32
	samples int
}

// NewScratch allocates a scratch region holding samples float32 values
// for each direction.
func NewScratch(samples int) (*Scratch, error) {
	if samples <= 0 {
		return nil, api.ErrInvalidParam
	}
	byteLen := samples * 4 * 2
	raw, err := mapScratch(byteLen)
	if err != nil {
		return nil, err
	}
	all := unsafe.Slice((*float32)(unsafe.Pointer(&raw[0])), samples*2)
	return &Scratch{
		raw:     raw,
		in:      all[:samples:samples],
		out:     all[samples:],
		samples: samples,
	}, nil
}

// In returns the input-side conversion buffer.
func (s *Scratch) In() []float32 { return s.in }

// Out returns the output-side conversion buffer.
func (s *Scratch) Out() []float32 { return s.out }

// Samples returns the per-side capacity in float32 samples.
func (s *Scratch) Samples() int { return s.samples }

// Release unmaps the region. Safe to call on a nil receiver or twice.
func (s *Scratch) Release() {
	if s == nil || s.raw == nil {
		return
	}
	if err := unmapScratch(s.raw); err != nil {
		logging.Default.Warnf("scratch release failed: %v", err)
	}
	s.raw = nil
	s.in = nil
	s.out = nil
}
