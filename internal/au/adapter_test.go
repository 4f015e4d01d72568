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
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/audiorack/rackhost/api"
	"github.com/audiorack/rackhost/internal/backend"
	"github.com/audiorack/rackhost/internal/backend/conformance"
	"github.com/audiorack/rackhost/pkg/host"
	"github.com/audiorack/rackhost/pkg/midi"
)

func translatedChord() ([]midi.Event, error) {
	return midi.Translate(nil, []api.MidiEvent{
		api.NoteOn(60, 100, 0, 0),
		api.NoteOn(64, 100, 0, 0),
		api.NoteOn(67, 100, 0, 0),
	})
}

// fakeUnit is an in-memory AudioUnit: a 2-in/2-out synth with native
// parameter ranges, interleaved rendering, factory presets and a
// ClassInfo state blob.
type fakeUnit struct {
	rate     float64
	maxBlock int32

	initialized bool
	resets      int
	recycles    int
	disposed    bool

	supportsReset bool
	failInit      bool

	infos  []api.ParameterInfo
	values []float64 // native units

	presets []api.PresetInfo
	loaded  []int32

	activeNotes map[uint8]uint8

	lastInput  []float32
	lastOutput []float32
}

func newFakeUnit() *fakeUnit {
	infos := []api.ParameterInfo{
		{Index: 0, Name: "Gain", Unit: "dB", Min: -60, Max: 12, Default: 0},
		{Index: 1, Name: "Mix", Unit: "%", Min: 0, Max: 100, Default: 50},
	}
	values := make([]float64, len(infos))
	for i, info := range infos {
		values[i] = float64(info.Default)
	}
	return &fakeUnit{
		supportsReset: true,
		infos:         infos,
		values:        values,
		presets: []api.PresetInfo{
			{Name: "Default", Number: 0},
			{Name: "Wide", Number: 1},
		},
		activeNotes: map[uint8]uint8{},
	}
}

func (f *fakeUnit) SetFormat(sampleRate float64, maxBlockSize int32) error {
	f.rate = sampleRate
	f.maxBlock = maxBlockSize
	return nil
}

func (f *fakeUnit) ChannelCounts() (int32, int32, error) { return 2, 2, nil }

func (f *fakeUnit) Initialize() error {
	if f.failInit {
		return &api.NativeError{Arch: api.AudioUnit, Status: -10867}
	}
	if f.initialized {
		f.recycles++
	}
	f.initialized = true
	return nil
}

func (f *fakeUnit) Uninitialize() error {
	f.initialized = false
	return nil
}

func (f *fakeUnit) Reset() error {
	if !f.supportsReset {
		return &api.NativeError{Arch: api.AudioUnit, Status: -10879}
	}
	f.resets++
	return nil
}

func (f *fakeUnit) ParameterCount() int { return len(f.infos) }

func (f *fakeUnit) ParameterInfo(index int) (api.ParameterInfo, error) {
	if index < 0 || index >= len(f.infos) {
		return api.ParameterInfo{}, api.ErrInvalidParam
	}
	return f.infos[index], nil
}

func (f *fakeUnit) GetParam(index int) (float64, error) {
	if index < 0 || index >= len(f.values) {
		return 0, api.ErrInvalidParam
	}
	return f.values[index], nil
}

func (f *fakeUnit) SetParam(index int, value float64) error {
	if index < 0 || index >= len(f.values) {
		return api.ErrInvalidParam
	}
	f.values[index] = value
	return nil
}

func (f *fakeUnit) MIDIEvent(status, data1, data2 uint8, sampleOffset uint32) error {
	switch status & 0xF0 {
	case api.MidiNoteOn:
		if data2 == 0 {
			delete(f.activeNotes, data1)
		} else {
			f.activeNotes[data1] = data2
		}
	case api.MidiNoteOff:
		delete(f.activeNotes, data1)
	}
	return nil
}

func (f *fakeUnit) Render(input, output []float32, frames int32, samplePosition int64) error {
	if !f.initialized {
		return &api.NativeError{Arch: api.AudioUnit, Status: -10863}
	}
	f.lastInput = input
	f.lastOutput = output

	var level float32
	for _, vel := range f.activeNotes {
		level += 0.1 * float32(vel) / 127
	}
	for i := int32(0); i < frames*2; i++ {
		output[i] = level
	}
	return nil
}

func (f *fakeUnit) FactoryPresetCount() int { return len(f.presets) }

func (f *fakeUnit) FactoryPresetInfo(index int) (api.PresetInfo, error) {
	if index < 0 || index >= len(f.presets) {
		return api.PresetInfo{}, api.ErrInvalidParam
	}
	return f.presets[index], nil
}

func (f *fakeUnit) LoadFactoryPreset(number int32) error {
	f.loaded = append(f.loaded, number)
	return nil
}

func (f *fakeUnit) ClassInfoSize() (int, error) { return len(f.values) * 8, nil }

func (f *fakeUnit) FillClassInfo(dst []byte) error {
	for i, v := range f.values {
		binary.LittleEndian.PutUint64(dst[i*8:], math.Float64bits(v))
	}
	return nil
}

func (f *fakeUnit) ApplyClassInfo(data []byte) error {
	if len(data) != len(f.values)*8 {
		return &api.NativeError{Arch: api.AudioUnit, Status: -10868}
	}
	for i := range f.values {
		f.values[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return nil
}

func (f *fakeUnit) HasView() bool { return false }

func (f *fakeUnit) CreateView() (uintptr, error) {
	return 0, api.ErrGUIUnsupported
}

func (f *fakeUnit) ViewSize() (api.GUISize, error) {
	return api.GUISize{}, api.ErrGUIUnsupported
}

func (f *fakeUnit) DestroyView() error { return nil }

func (f *fakeUnit) Dispose() error {
	f.disposed = true
	return nil
}

func testDescriptor() api.Descriptor {
	return api.Descriptor{
		Name:         "FakeUnitSynth",
		Manufacturer: "Rackhost Tests",
		Version:      2,
		Category:     api.CategoryInstrument,
		UniqueID:     "aumu:fksy:rkhs",
		Arch:         api.AudioUnit,
	}
}

func TestConformance(t *testing.T) {
	h, err := host.New()
	require.NoError(t, err)
	defer h.Close()

	suite.Run(t, &conformance.Suite{
		Instrument: true,
		Open: func() api.Instance {
			return h.Adopt(testDescriptor(), NewAdapter(testDescriptor(), newFakeUnit()))
		},
	})
}

func initAdapter(t *testing.T, unit *fakeUnit) *Adapter {
	t.Helper()
	a := NewAdapter(testDescriptor(), unit)
	cfg := backend.Config{SampleRate: 48000, MaxBlockSize: 512}
	require.NoError(t, a.Initialize(cfg, func(func()) {}))
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestProcessConvertsThroughScratch(t *testing.T) {
	unit := newFakeUnit()
	a := initAdapter(t, unit)

	const frames = 8
	inputs := [][]float32{make([]float32, frames), make([]float32, frames)}
	outputs := [][]float32{make([]float32, frames), make([]float32, frames)}
	for i := 0; i < frames; i++ {
		inputs[0][i] = float32(i)
		inputs[1][i] = -float32(i) / 2
	}

	require.NoError(t, a.Process(&backend.Block{Inputs: inputs, Outputs: outputs, Frames: frames}))

	// The unit must have seen interleaved input: L0 R0 L1 R1 ...
	require.Len(t, unit.lastInput, frames*2)
	for i := 0; i < frames; i++ {
		assert.Equal(t, inputs[0][i], unit.lastInput[2*i], "frame %d left", i)
		assert.Equal(t, inputs[1][i], unit.lastInput[2*i+1], "frame %d right", i)
	}
}

func TestProcessDeliversMidiBeforeRender(t *testing.T) {
	unit := newFakeUnit()
	a := initAdapter(t, unit)

	block := &backend.Block{
		Inputs:  [][]float32{make([]float32, 16), make([]float32, 16)},
		Outputs: [][]float32{make([]float32, 16), make([]float32, 16)},
		Frames:  16,
	}
	events, err := translatedChord()
	require.NoError(t, err)
	block.Events = events

	require.NoError(t, a.Process(block))
	assert.Len(t, unit.activeNotes, 3)
	assert.NotZero(t, block.Outputs[0][0],
		"notes delivered in the same call must be audible in its output")

	// Velocity survives the 0-127 -> [0,1] -> 0-127 round trip.
	assert.Equal(t, uint8(100), unit.activeNotes[60])
}

func TestResetPrefersNativeCall(t *testing.T) {
	unit := newFakeUnit()
	a := initAdapter(t, unit)

	require.NoError(t, a.Reset())
	assert.Equal(t, 1, unit.resets)
	assert.Equal(t, 0, unit.recycles)
}

func TestResetFallsBackToRecycle(t *testing.T) {
	unit := newFakeUnit()
	unit.supportsReset = false
	a := initAdapter(t, unit)

	require.NoError(t, a.Reset())
	assert.Equal(t, 0, unit.resets)
	assert.True(t, unit.initialized, "unit must come back initialized after the recycle")
}

func TestInitializeRollbackReleasesUnit(t *testing.T) {
	unit := newFakeUnit()
	a := NewAdapter(testDescriptor(), unit)

	// Scratch allocation happens after unit initialization; force a
	// failure there via an absurd block size the platform cannot map.
	unit.failInit = true
	var rollback []func()
	err := a.Initialize(backend.Config{SampleRate: 48000, MaxBlockSize: 512},
		func(fn func()) { rollback = append(rollback, fn) })
	require.Error(t, err)
	assert.Empty(t, rollback, "nothing to roll back when the first native step fails")
	assert.False(t, unit.initialized)
}

func TestStateIsEngineOnly(t *testing.T) {
	unit := newFakeUnit()
	a := initAdapter(t, unit)

	require.NoError(t, unit.SetParam(0, -12))
	blob, err := a.GetState()
	require.NoError(t, err)
	assert.Len(t, blob, len(unit.values)*8, "ClassInfo blob carries no trailer or controller section")

	require.NoError(t, unit.SetParam(0, 6))
	require.NoError(t, a.SetState(blob))
	v, err := unit.GetParam(0)
	require.NoError(t, err)
	assert.Equal(t, -12.0, v)
}

func TestOpenViewUnsupported(t *testing.T) {
	unit := newFakeUnit()
	a := initAdapter(t, unit)

	called := false
	a.OpenView(func(v api.GUIView, err error) {
		called = true
		assert.Nil(t, v)
		assert.ErrorIs(t, err, api.ErrGUIUnsupported)
	})
	assert.True(t, called)
}

func TestCloseDisposesUnit(t *testing.T) {
	unit := newFakeUnit()
	a := NewAdapter(testDescriptor(), unit)
	require.NoError(t, a.Initialize(backend.Config{SampleRate: 48000, MaxBlockSize: 512}, func(func()) {}))

	require.NoError(t, a.Close())
	assert.False(t, unit.initialized)
	assert.True(t, unit.disposed)
}
