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
	"fmt"

	"github.com/audiorack/rackhost/api"
)

// ValidateBlock checks the geometry of one process call before any
// memory is touched: frames must be in (0, maxBlock], the channel
// counts must equal the negotiated counts, and every channel slice must
// have at least frames capacity. Violations are input-validation
// errors, never a crash.
func ValidateBlock(inputs, outputs [][]float32, frames, maxBlock, inChannels, outChannels int) error {
	if frames <= 0 {
		return fmt.Errorf("%w: frames must be positive, got %d", api.ErrInvalidParam, frames)
	}
	if frames > maxBlock {
		return fmt.Errorf("%w: frames %d exceeds negotiated max block size %d",
			api.ErrInvalidParam, frames, maxBlock)
	}
	if len(inputs) != inChannels {
		return fmt.Errorf("%w: input channel count mismatch: negotiated %d, got %d",
			api.ErrInvalidParam, inChannels, len(inputs))
	}
	if len(outputs) != outChannels {
		return fmt.Errorf("%w: output channel count mismatch: negotiated %d, got %d",
			api.ErrInvalidParam, outChannels, len(outputs))
	}
	for ch, buf := range inputs {
		if len(buf) < frames {
			return fmt.Errorf("%w: input channel %d has %d samples, need %d",
				api.ErrInvalidParam, ch, len(buf), frames)
		}
	}
	for ch, buf := range outputs {
		if len(buf) < frames {
			return fmt.Errorf("%w: output channel %d has %d samples, need %d",
				api.ErrInvalidParam, ch, len(buf), frames)
		}
	}
	return nil
}

// Silence zeroes the first frames samples of every channel.
func Silence(bufs [][]float32, frames int) {
	for _, buf := range bufs {
		if frames > len(buf) {
			frames = len(buf)
		}
		for i := 0; i < frames; i++ {
			buf[i] = 0
		}
	}
}

// Planar allocates a planar buffer set: channels slices of frames
// samples each. Intended for callers and tests, not for the process
// path.
func Planar(channels, frames int) [][]float32 {
	bufs := make([][]float32, channels)
	for ch := range bufs {
		bufs[ch] = make([]float32, frames)
	}
	return bufs
}
