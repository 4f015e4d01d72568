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

package au

import (
	"fmt"

	"github.com/audiorack/rackhost/api"
	"github.com/audiorack/rackhost/internal/backend"
	"github.com/audiorack/rackhost/internal/lifecycle"
	"github.com/audiorack/rackhost/internal/logging"
	"github.com/audiorack/rackhost/pkg/audio"
	"github.com/audiorack/rackhost/pkg/midi"
	"github.com/audiorack/rackhost/pkg/param"
	"github.com/audiorack/rackhost/pkg/state"
)

// Adapter implements backend.Adapter over an AudioUnit.
type Adapter struct {
	unit Unit
	desc api.Descriptor
	log  *logging.Logger

	inCh, outCh int
	scratch     *audio.Scratch
	initialized bool

	params  *param.Cache
	presets *state.Presets
}

// NewAdapter wraps an opened unit. Production code reaches this through
// the registered factory; tests construct fakes directly.
func NewAdapter(desc api.Descriptor, unit Unit) *Adapter {
	return &Adapter{unit: unit, desc: desc, log: logging.Default}
}

func (a *Adapter) Arch() api.Architecture { return api.AudioUnit }

// Initialize applies the stream format, initializes the unit, and
// sizes the interleave scratch region to the negotiated configuration.
func (a *Adapter) Initialize(cfg backend.Config, onRollback func(func())) error {
	if err := a.unit.SetFormat(cfg.SampleRate, int32(cfg.MaxBlockSize)); err != nil {
		return fmt.Errorf("set stream format: %w", err)
	}

	in, out, err := a.unit.ChannelCounts()
	if err != nil {
		return fmt.Errorf("query channels: %w", err)
	}
	a.inCh, a.outCh = int(in), int(out)

	err = lifecycle.WithNativeLock(a.unit.Initialize)
	if err != nil {
		return fmt.Errorf("initialize unit: %w", err)
	}
	a.initialized = true
	onRollback(func() {
		_ = lifecycle.WithNativeLock(a.unit.Uninitialize)
		a.initialized = false
	})

	channels := a.inCh
	if a.outCh > channels {
		channels = a.outCh
	}
	scratch, err := audio.NewScratch(cfg.MaxBlockSize * channels)
	if err != nil {
		return fmt.Errorf("allocate scratch: %w", err)
	}
	a.scratch = scratch
	onRollback(func() {
		a.scratch.Release()
		a.scratch = nil
	})

	a.params = param.Build(&paramSource{unit: a.unit})
	a.presets = state.NewPresets(a.enumeratePresets(), presetLoader{unit: a.unit}, nil, a.params)
	onRollback(func() {
		a.params = nil
		a.presets = nil
	})
	return nil
}

func (a *Adapter) enumeratePresets() []api.PresetInfo {
	count := a.unit.FactoryPresetCount()
	infos := make([]api.PresetInfo, 0, count)
	for i := 0; i < count; i++ {
		info, err := a.unit.FactoryPresetInfo(i)
		if err != nil {
			a.log.Warnf("factory preset %d enumeration failed, list truncated: %v", i, err)
			break
		}
		info.Index = len(infos)
		infos = append(infos, info)
	}
	return infos
}

func (a *Adapter) InputChannels() int  { return a.inCh }
func (a *Adapter) OutputChannels() int { return a.outCh }

// Reset prefers the native reset call and falls back to
// uninitialize+reinitialize when the unit rejects it.
func (a *Adapter) Reset() error {
	err := a.unit.Reset()
	if err == nil {
		return nil
	}
	a.log.Debugf("native reset rejected, recycling unit: %v", err)
	return lifecycle.WithNativeLock(func() error {
		if err := a.unit.Uninitialize(); err != nil {
			return fmt.Errorf("uninitialize: %w", err)
		}
		if err := a.unit.Initialize(); err != nil {
			return fmt.Errorf("reinitialize: %w", err)
		}
		return nil
	})
}

// Process delivers queued MIDI, deinterleave-free on neither side: the
// native engine mandates interleaved memory, so input is interleaved
// into the scratch region, rendered, and the output deinterleaved back
// into the caller's planar buffers. All conversion buffers are sized at
// initialize; nothing allocates here.
func (a *Adapter) Process(b *backend.Block) error {
	for i := range b.Events {
		if err := a.sendEvent(&b.Events[i]); err != nil {
			return err
		}
	}

	in := a.scratch.In()[:b.Frames*a.inCh]
	out := a.scratch.Out()[:b.Frames*a.outCh]
	audio.Interleave(in, b.Inputs, b.Frames)

	if err := a.unit.Render(in, out, int32(b.Frames), b.SamplePosition); err != nil {
		return err
	}

	audio.Deinterleave(b.Outputs, out, b.Frames)
	return nil
}

// sendEvent re-encodes a translated event onto the unit's immediate
// MIDI call.
func (a *Adapter) sendEvent(ev *midi.Event) error {
	switch ev.Kind {
	case midi.KindNoteOn:
		return a.unit.MIDIEvent(api.MidiNoteOn|ev.Channel, ev.Pitch, velocityByte(ev.Velocity), ev.SampleOffset)
	case midi.KindNoteOff:
		return a.unit.MIDIEvent(api.MidiNoteOff|ev.Channel, ev.Pitch, velocityByte(ev.Velocity), ev.SampleOffset)
	case midi.KindPolyPressure:
		return a.unit.MIDIEvent(api.MidiPolyAftertouch|ev.Channel, ev.Pitch, velocityByte(ev.Velocity), ev.SampleOffset)
	default:
		status := ev.Status
		if status < 0xF0 {
			status |= ev.Channel
		}
		return a.unit.MIDIEvent(status, ev.Data1, ev.Data2, ev.SampleOffset)
	}
}

// velocityByte maps a normalized velocity back onto the 7-bit wire
// value.
func velocityByte(v float32) uint8 {
	scaled := int32(v*127 + 0.5)
	if scaled < 0 {
		scaled = 0
	}
	if scaled > 127 {
		scaled = 127
	}
	return uint8(scaled)
}

func (a *Adapter) Params() *param.Cache    { return a.params }
func (a *Adapter) Presets() *state.Presets { return a.presets }

// GetState snapshots the ClassInfo blob. AudioUnits keep engine and UI
// state together, so the blob carries no controller section.
func (a *Adapter) GetState() ([]byte, error) {
	return state.Snapshot(&classInfo{unit: a.unit}, nil)
}

func (a *Adapter) SetState(data []byte) error {
	return state.Restore(data, &classInfo{unit: a.unit}, nil)
}

func (a *Adapter) OpenView(cb api.GUICallback) {
	if !a.unit.HasView() {
		cb(nil, api.ErrGUIUnsupported)
		return
	}
	handle, err := a.unit.CreateView()
	if err != nil {
		cb(nil, fmt.Errorf("create view: %w", err))
		return
	}
	cb(&view{unit: a.unit, handle: handle}, nil)
}

// Close uninitializes and disposes the unit in reverse acquisition
// order, releasing the scratch region last.
func (a *Adapter) Close() error {
	err := lifecycle.WithNativeLock(func() error {
		var first error
		if a.initialized {
			first = a.unit.Uninitialize()
			a.initialized = false
		}
		if err := a.unit.Dispose(); err != nil && first == nil {
			first = err
		}
		return first
	})
	a.scratch.Release()
	a.scratch = nil
	return err
}

// paramSource exposes the unit's native parameter ranges to the
// generic cache, which owns the normalization.
type paramSource struct {
	unit Unit
}

func (s *paramSource) ParameterCount() int { return s.unit.ParameterCount() }

func (s *paramSource) ParameterInfo(index int) (api.ParameterInfo, error) {
	return s.unit.ParameterInfo(index)
}

func (s *paramSource) GetParam(index int) (float64, error) {
	return s.unit.GetParam(index)
}

func (s *paramSource) SetParam(index int, value float64) error {
	return s.unit.SetParam(index, value)
}

// presetLoader adapts the factory preset call to the direct-API stage
// of the preset fallback chain.
type presetLoader struct {
	unit Unit
}

func (l presetLoader) LoadProgram(number int32) error {
	return l.unit.LoadFactoryPreset(number)
}

type classInfo struct {
	unit Unit
}

func (s *classInfo) StateSize() (int, error)      { return s.unit.ClassInfoSize() }
func (s *classInfo) FillState(dst []byte) error   { return s.unit.FillClassInfo(dst) }
func (s *classInfo) ApplyState(data []byte) error { return s.unit.ApplyClassInfo(data) }

type view struct {
	unit   Unit
	handle uintptr
}

func (v *view) Handle() uintptr { return v.handle }

func (v *view) PreferredSize() (api.GUISize, error) { return v.unit.ViewSize() }

func (v *view) Close() error { return v.unit.DestroyView() }
