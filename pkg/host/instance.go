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

package host

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/audiorack/rackhost/api"
	"github.com/audiorack/rackhost/internal/backend"
	"github.com/audiorack/rackhost/internal/lifecycle"
	"github.com/audiorack/rackhost/pkg/audio"
	"github.com/audiorack/rackhost/pkg/midi"
)

// Instance is the caller-facing plugin instance. It owns the lifecycle
// ordering, input validation, the per-block MIDI queue and the running
// sample-position counter; the architecture-specific work happens in
// the wrapped backend adapter.
//
// An Instance is owned by one thread at a time. Process belongs on the
// audio thread; everything that can block on native queries
// (Initialize, Reset, state, presets, Close) does not.
type Instance struct {
	host    *Host
	id      string
	desc    api.Descriptor
	adapter backend.Adapter
	machine *lifecycle.Machine
	queue   *midi.Queue

	cfg       backend.Config
	samplePos int64
	block     backend.Block

	blocks prometheus.Counter
	frames prometheus.Counter
	fails  prometheus.Counter
}

var _ api.Instance = (*Instance)(nil)

// Descriptor returns the identity this instance was created from.
func (in *Instance) Descriptor() api.Descriptor { return in.desc }

// ID returns the registry handle of this instance within its host.
func (in *Instance) ID() string { return in.id }

// Initialize negotiates the audio format and prepares the plugin for
// processing. Idempotent after success; on failure everything is rolled
// back and the instance stays retryable in its pre-initialize state.
func (in *Instance) Initialize(sampleRate float64, maxBlockSize int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %v", api.ErrInvalidParam, sampleRate)
	}
	if maxBlockSize <= 0 {
		return fmt.Errorf("%w: max block size %d", api.ErrInvalidParam, maxBlockSize)
	}

	proceed, err := in.machine.BeginInitialize()
	if err != nil {
		return err
	}
	if !proceed {
		// Already initialized: success without renegotiation, even with
		// different arguments.
		return nil
	}

	end := in.host.tel.initStarted(in.desc.Arch)
	cfg := backend.Config{SampleRate: sampleRate, MaxBlockSize: maxBlockSize}
	err = in.machine.FinishInitialize(in.adapter.Initialize(cfg, in.machine.OnRollback))
	end(err)
	if err != nil {
		in.host.metrics.initFailures.WithLabelValues(in.desc.Arch.String()).Inc()
		return err
	}

	in.cfg = cfg
	in.samplePos = 0
	in.host.log.Infof("initialized %s: %gHz, %d-frame blocks, %d in / %d out",
		in.desc, sampleRate, maxBlockSize, in.adapter.InputChannels(), in.adapter.OutputChannels())
	return nil
}

// IsInitialized reports whether Initialize has succeeded.
func (in *Instance) IsInitialized() bool { return in.machine.IsInitialized() }

// Reset clears internal buffers and tails without touching parameter
// values.
func (in *Instance) Reset() error {
	if err := in.machine.CheckProcessable(); err != nil {
		return err
	}
	return in.adapter.Reset()
}

// InputChannels reports the negotiated input channel count, 0 before
// initialization.
func (in *Instance) InputChannels() int {
	if !in.machine.IsInitialized() {
		return 0
	}
	return in.adapter.InputChannels()
}

// OutputChannels reports the negotiated output channel count, 0 before
// initialization.
func (in *Instance) OutputChannels() int {
	if !in.machine.IsInitialized() {
		return 0
	}
	return in.adapter.OutputChannels()
}

// Process runs one block. Validation happens before any native call or
// memory access; on success exactly frames samples per output channel
// are written, the sample-position counter advances, and the per-block
// MIDI queue is cleared. Real-time safe.
func (in *Instance) Process(inputs, outputs [][]float32, frames int) error {
	if err := in.machine.CheckProcessable(); err != nil {
		return err
	}
	if err := audio.ValidateBlock(inputs, outputs, frames, in.cfg.MaxBlockSize,
		in.adapter.InputChannels(), in.adapter.OutputChannels()); err != nil {
		return err
	}

	if err := in.machine.EnterProcessing(); err != nil {
		return err
	}
	defer in.machine.ExitProcessing()

	in.block = backend.Block{
		Inputs:         inputs,
		Outputs:        outputs,
		Frames:         frames,
		SamplePosition: in.samplePos,
		Events:         in.queue.Pending(),
	}
	err := in.adapter.Process(&in.block)
	in.queue.Clear()
	if err != nil {
		in.fails.Inc()
		return err
	}

	in.samplePos += int64(frames)
	in.blocks.Inc()
	in.frames.Add(float64(frames))
	return nil
}

// SamplePosition returns the running timeline position in samples,
// reset to zero by Initialize.
func (in *Instance) SamplePosition() int64 { return in.samplePos }

// ParameterCount returns the number of exposed parameters, 0 before
// initialization.
func (in *Instance) ParameterCount() int {
	params := in.adapter.Params()
	if params == nil {
		return 0
	}
	return params.Count()
}

// ParameterInfo describes the parameter at index in native units.
func (in *Instance) ParameterInfo(index int) (api.ParameterInfo, error) {
	params := in.adapter.Params()
	if params == nil {
		return api.ParameterInfo{}, api.ErrNotInitialized
	}
	return params.Describe(index)
}

// GetParameter returns the normalized [0,1] value of the parameter.
func (in *Instance) GetParameter(index int) (float32, error) {
	params := in.adapter.Params()
	if params == nil {
		return 0, api.ErrNotInitialized
	}
	return params.Get(index)
}

// SetParameter sets the normalized value; out-of-range values clamp to
// the nearest bound.
func (in *Instance) SetParameter(index int, value float32) error {
	params := in.adapter.Params()
	if params == nil {
		return api.ErrNotInitialized
	}
	return params.Set(index, value)
}

// SendMIDI validates and queues a batch for the next process call,
// all-or-nothing. An empty batch is a successful no-op regardless of
// instance state.
func (in *Instance) SendMIDI(events []api.MidiEvent) error {
	return in.queue.Push(events)
}

// PresetCount returns the number of factory presets enumerated at
// Initialize.
func (in *Instance) PresetCount() int {
	presets := in.adapter.Presets()
	if presets == nil {
		return 0
	}
	return presets.Count()
}

// PresetInfo describes the preset at index.
func (in *Instance) PresetInfo(index int) (api.PresetInfo, error) {
	presets := in.adapter.Presets()
	if presets == nil {
		return api.PresetInfo{}, api.ErrNotInitialized
	}
	return presets.Info(index)
}

// LoadPreset applies a preset through the fallback chain. A plugin
// without any programmatic preset path reports ErrPresetNotLoadable;
// that is a plugin limitation, not a transient failure, so don't retry.
func (in *Instance) LoadPreset(index int) error {
	presets := in.adapter.Presets()
	if presets == nil {
		return api.ErrNotInitialized
	}
	return presets.Load(index)
}

// GetState serializes the complete plugin state to an opaque blob.
func (in *Instance) GetState() ([]byte, error) {
	if !in.machine.IsInitialized() {
		return nil, api.ErrNotInitialized
	}
	return in.adapter.GetState()
}

// SetState restores state from a blob produced by GetState.
func (in *Instance) SetState(data []byte) error {
	if !in.machine.IsInitialized() {
		return api.ErrNotInitialized
	}
	return in.adapter.SetState(data)
}

// OpenView asynchronously creates the plugin's native view on the
// host's task runner and delivers the result via cb. The platform
// main-thread requirement is the caller's: invoke OpenView from the
// main thread or marshal the callback there.
func (in *Instance) OpenView(cb api.GUICallback) {
	if err := in.host.tasks.Submit(func() { in.adapter.OpenView(cb) }); err != nil {
		cb(nil, fmt.Errorf("%w: view task rejected: %v", api.ErrGeneric, err))
	}
}

// Close tears the instance down and removes it from the host registry.
// Idempotent; safe on a partially initialized instance.
func (in *Instance) Close() error {
	if !in.machine.Free() {
		return nil
	}
	err := in.adapter.Close()
	in.host.forget(in)
	if err != nil {
		return fmt.Errorf("close %s: %w", in.desc, err)
	}
	return nil
}
