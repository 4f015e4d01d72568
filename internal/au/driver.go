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

// Package au adapts AudioUnit plugins to the backend contract. The
// architecture is callback-pull with interleaved native buffers: the
// unit's render call pulls input through a callback invoked
// synchronously inside Render, so the adapter captures the current
// block's interleaved input for exactly one call (no state survives
// across calls). Parameters use native ranges; the whole plugin state
// lives in one ClassInfo blob with no separate controller section.
package au

import "github.com/audiorack/rackhost/api"

// Unit is the narrow native-operations surface the adapter drives. The
// production implementation binds AudioToolbox on darwin (see
// driver_darwin.go); tests substitute a fake.
type Unit interface {
	// SetFormat applies the interleaved float32 stream format to the
	// unit's input and output scopes before initialization.
	SetFormat(sampleRate float64, maxBlockSize int32) error

	// ChannelCounts reports the negotiated element 0 channel counts.
	ChannelCounts() (in, out int32, err error)

	// Initialize and Uninitialize wrap AudioUnitInitialize and its
	// inverse.
	Initialize() error
	Uninitialize() error

	// Reset clears internal processing state. Units without reset
	// support return a native error; the adapter falls back to
	// Uninitialize+Initialize.
	Reset() error

	ParameterCount() int
	// ParameterInfo reports descriptors in native units.
	ParameterInfo(index int) (api.ParameterInfo, error)
	GetParam(index int) (float64, error)
	SetParam(index int, value float64) error

	// MIDIEvent delivers one MIDI message immediately, scheduled at
	// sampleOffset within the next render.
	MIDIEvent(status, data1, data2 uint8, sampleOffset uint32) error

	// Render runs one block over interleaved buffers. The unit pulls
	// input from the render callback, which serves it from the input
	// slice captured for this call only.
	Render(input, output []float32, frames int32, samplePosition int64) error

	// Factory presets.
	FactoryPresetCount() int
	FactoryPresetInfo(index int) (api.PresetInfo, error)
	LoadFactoryPreset(number int32) error

	// ClassInfo state, size-then-fill.
	ClassInfoSize() (int, error)
	FillClassInfo(dst []byte) error
	ApplyClassInfo(data []byte) error

	HasView() bool
	CreateView() (handle uintptr, err error)
	ViewSize() (api.GUISize, error)
	DestroyView() error

	// Dispose releases the component instance.
	Dispose() error
}
