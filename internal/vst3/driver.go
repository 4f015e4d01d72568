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

// Package vst3 adapts VST3 plugins to the backend contract. The
// architecture is call-push with planar native buffers, so processing
// is zero-copy: the native buffer list aliases the caller's channel
// slices for the duration of one process call. Parameters are natively
// normalized to [0,1]; the engine (component) and UI (edit controller)
// carry separate state.
package vst3

import (
	"github.com/audiorack/rackhost/api"
	"github.com/audiorack/rackhost/pkg/midi"
)

// Component is the narrow native-operations surface the adapter
// drives. The production implementation binds the C bridge over the
// VST3 module loader (see driver_cgo.go); tests substitute a fake.
//
// Descriptor queries report parameters in normalized form: Min 0,
// Max 1, Default already normalized. Values passed through
// GetParamNormalized/SetParamNormalized are likewise in [0,1].
type Component interface {
	// SetupProcessing passes the audio format to the processor before
	// activation.
	SetupProcessing(sampleRate float64, maxBlockSize int32) error

	// BusChannels reports the channel counts of the main input and
	// output buses.
	BusChannels() (in, out int32, err error)

	ActivateBuses(active bool) error
	SetActive(active bool) error
	SetProcessing(active bool) error

	ParameterCount() int
	ParameterInfo(index int) (api.ParameterInfo, error)
	GetParamNormalized(index int) (float64, error)
	SetParamNormalized(index int, value float64) error

	// ProgramCount and ProgramInfo enumerate the unit program lists.
	ProgramCount() int
	ProgramInfo(index int) (api.PresetInfo, error)
	LoadProgram(number int32) error
	SelectPresetUnit(number int32) error

	// Process runs one block against the caller's planar buffers.
	Process(inputs, outputs [][]float32, frames int32, samplePosition int64, events []midi.Event) error

	// Component and controller state move through the two-step
	// size-then-fill protocol.
	ComponentStateSize() (int, error)
	FillComponentState(dst []byte) error
	ApplyComponentState(data []byte) error

	HasController() bool
	ControllerStateSize() (int, error)
	FillControllerState(dst []byte) error
	ApplyControllerState(data []byte) error

	HasView() bool
	CreateView() (handle uintptr, err error)
	ViewSize() (api.GUISize, error)
	DestroyView() error

	// Teardown calls, in the order Close invokes them.
	DisconnectController() error
	TerminateController() error
	TerminateComponent() error
}
