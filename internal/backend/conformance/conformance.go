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

// Package conformance is the behavioral test suite every backend must
// pass: both architectures present identical lifecycle, buffer,
// parameter, state and MIDI semantics through the instance contract.
// Backend test packages run it against their adapter over a fake
// driver.
package conformance

import (
	"github.com/stretchr/testify/suite"

	"github.com/audiorack/rackhost/api"
)

const (
	sampleRate = 48000.0
	maxBlock   = 512
)

// Suite exercises one backend through the public instance contract.
// Open must return a fresh, uninitialized instance backed by a fake
// plugin with at least two parameters (index 0 non-degenerate) and at
// least one preset.
type Suite struct {
	suite.Suite

	// Open returns a fresh instance. The suite closes it.
	Open func() api.Instance

	// Instrument marks backends whose fake renders audible output from
	// note events; enables the chord scenario.
	Instrument bool
}

func (s *Suite) open() api.Instance {
	in := s.Open()
	s.Require().NotNil(in)
	s.T().Cleanup(func() { _ = in.Close() })
	return in
}

func (s *Suite) openInitialized() api.Instance {
	in := s.open()
	s.Require().NoError(in.Initialize(sampleRate, maxBlock))
	return in
}

func (s *Suite) buffers(in api.Instance) (inputs, outputs [][]float32) {
	inputs = planar(in.InputChannels(), maxBlock)
	outputs = planar(in.OutputChannels(), maxBlock)
	return inputs, outputs
}

func planar(channels, frames int) [][]float32 {
	bufs := make([][]float32, channels)
	for ch := range bufs {
		bufs[ch] = make([]float32, frames)
	}
	return bufs
}

func (s *Suite) TestInitializeIdempotent() {
	in := s.open()
	s.False(in.IsInitialized())

	s.Require().NoError(in.Initialize(sampleRate, maxBlock))
	s.True(in.IsInitialized())
	inCh, outCh := in.InputChannels(), in.OutputChannels()

	// Same arguments: success without re-doing work.
	s.Require().NoError(in.Initialize(sampleRate, maxBlock))

	// Different arguments after success: still success, and no
	// observable renegotiation.
	s.Require().NoError(in.Initialize(96000, 64))
	s.Equal(inCh, in.InputChannels())
	s.Equal(outCh, in.OutputChannels())

	inputs, outputs := s.buffers(in)
	s.NoError(in.Process(inputs, outputs, maxBlock),
		"the original block size must still be accepted after a renegotiation attempt")
}

func (s *Suite) TestInitializeRejectsBadArguments() {
	in := s.open()
	s.ErrorIs(in.Initialize(0, maxBlock), api.ErrInvalidParam)
	s.ErrorIs(in.Initialize(sampleRate, 0), api.ErrInvalidParam)
	s.False(in.IsInitialized())
}

func (s *Suite) TestProcessBeforeInitialize() {
	in := s.open()
	err := in.Process(planar(2, maxBlock), planar(2, maxBlock), maxBlock)
	s.ErrorIs(err, api.ErrNotInitialized)
}

func (s *Suite) TestProcessValidation() {
	in := s.openInitialized()
	inputs, outputs := s.buffers(in)

	s.ErrorIs(in.Process(inputs, outputs, 0), api.ErrInvalidParam)
	s.ErrorIs(in.Process(inputs, outputs, maxBlock+1), api.ErrInvalidParam)

	if in.InputChannels() > 0 {
		wrong := planar(in.InputChannels()+1, maxBlock)
		s.ErrorIs(in.Process(wrong, outputs, maxBlock), api.ErrInvalidParam)
	}
	short := planar(in.OutputChannels(), maxBlock-1)
	s.ErrorIs(in.Process(inputs, short, maxBlock), api.ErrInvalidParam)
}

func (s *Suite) TestProcessWritesExactlyFrames() {
	in := s.openInitialized()
	inputs, outputs := s.buffers(in)

	const sentinel = float32(123.5)
	const frames = 100
	for _, buf := range outputs {
		for i := range buf {
			buf[i] = sentinel
		}
	}

	s.Require().NoError(in.Process(inputs, outputs, frames))
	for ch, buf := range outputs {
		for i := frames; i < maxBlock; i++ {
			s.Require().Equal(sentinel, buf[i],
				"channel %d sample %d written beyond frames", ch, i)
		}
	}
}

func (s *Suite) TestParameterClampLaw() {
	in := s.openInitialized()
	s.Require().Greater(in.ParameterCount(), 0)

	const tol = 1e-4
	for _, v := range []float32{0, 0.25, 0.5, 0.75, 1} {
		s.Require().NoError(in.SetParameter(0, v))
		got, err := in.GetParameter(0)
		s.Require().NoError(err)
		s.InDelta(v, got, tol)
	}

	// Out-of-range sets behave as the nearest bound.
	s.Require().NoError(in.SetParameter(0, 1.5))
	got, err := in.GetParameter(0)
	s.Require().NoError(err)
	s.InDelta(1.0, got, tol)

	s.Require().NoError(in.SetParameter(0, -0.5))
	got, err = in.GetParameter(0)
	s.Require().NoError(err)
	s.InDelta(0.0, got, tol)
}

func (s *Suite) TestParameterIndexValidation() {
	in := s.openInitialized()
	count := in.ParameterCount()

	_, err := in.GetParameter(count)
	s.ErrorIs(err, api.ErrInvalidParam)
	s.ErrorIs(in.SetParameter(count, 0.5), api.ErrInvalidParam)
	_, err = in.GetParameter(-1)
	s.ErrorIs(err, api.ErrInvalidParam)
	_, err = in.ParameterInfo(count)
	s.ErrorIs(err, api.ErrInvalidParam)
}

func (s *Suite) TestParameterInfoSanity() {
	in := s.openInitialized()
	s.Require().Greater(in.ParameterCount(), 0)

	info, err := in.ParameterInfo(0)
	s.Require().NoError(err)
	s.NotEmpty(info.Name)
	s.LessOrEqual(info.Min, info.Default)
	s.LessOrEqual(info.Default, info.Max)
}

func (s *Suite) TestParameterAccessBeforeInitialize() {
	in := s.open()
	s.Zero(in.ParameterCount())
	_, err := in.GetParameter(0)
	s.ErrorIs(err, api.ErrNotInitialized)
	s.ErrorIs(in.SetParameter(0, 0.5), api.ErrNotInitialized)
}

func (s *Suite) TestStateRoundTrip() {
	in := s.openInitialized()
	count := in.ParameterCount()
	s.Require().Greater(count, 0)

	// Pin every parameter to a distinct value and snapshot.
	want := make([]float32, count)
	for i := 0; i < count; i++ {
		want[i] = float32(i+1) / float32(count+1)
		s.Require().NoError(in.SetParameter(i, want[i]))
	}
	blob, err := in.GetState()
	s.Require().NoError(err)
	s.NotEmpty(blob)

	// Perturb, restore, verify.
	for i := 0; i < count; i++ {
		s.Require().NoError(in.SetParameter(i, 0))
	}
	s.Require().NoError(in.SetState(blob))
	for i := 0; i < count; i++ {
		got, err := in.GetParameter(i)
		s.Require().NoError(err)
		s.InDelta(want[i], got, 1e-4, "parameter %d after restore", i)
	}
}

func (s *Suite) TestStateBeforeInitialize() {
	in := s.open()
	_, err := in.GetState()
	s.ErrorIs(err, api.ErrNotInitialized)
	s.ErrorIs(in.SetState([]byte{1, 2, 3}), api.ErrNotInitialized)
}

func (s *Suite) TestMidiEmptyBatchIsNoOp() {
	in := s.open()
	s.NoError(in.SendMIDI(nil), "empty batch succeeds regardless of state")
	s.Require().NoError(in.Initialize(sampleRate, maxBlock))
	s.NoError(in.SendMIDI([]api.MidiEvent{}))
}

func (s *Suite) TestMidiAllOrNothing() {
	in := s.openInitialized()

	err := in.SendMIDI([]api.MidiEvent{
		api.NoteOn(60, 100, 0, 0),
		{Status: api.MidiNoteOn, Data1: 64, Data2: 100, Channel: 16},
	})
	s.ErrorIs(err, api.ErrInvalidParam)

	// Nothing from the rejected batch may reach the plugin: a process
	// call on an instrument stays silent.
	if s.Instrument {
		inputs, outputs := s.buffers(in)
		s.Require().NoError(in.Process(inputs, outputs, maxBlock))
		s.True(uniformlySilent(outputs, maxBlock),
			"rejected batch must leave the event queue unmodified")
	}
}

func (s *Suite) TestChordScenario() {
	if !s.Instrument {
		s.T().Skip("chord scenario needs an instrument backend")
	}
	in := s.openInitialized()

	chord := []api.MidiEvent{
		api.NoteOn(60, 100, 0, 0),
		api.NoteOn(64, 100, 0, 0),
		api.NoteOn(67, 100, 0, 0),
	}
	s.Require().NoError(in.SendMIDI(chord))

	inputs, outputs := s.buffers(in)
	s.Require().NoError(in.Process(inputs, outputs, maxBlock))
	s.False(uniformlySilent(outputs, maxBlock),
		"instrument output must not be uniformly silent after a chord")
}

func (s *Suite) TestPresetLoad() {
	in := s.openInitialized()
	s.Require().Greater(in.PresetCount(), 0)

	info, err := in.PresetInfo(0)
	s.Require().NoError(err)
	s.NotEmpty(info.Name)

	s.NoError(in.LoadPreset(0))
	s.ErrorIs(in.LoadPreset(in.PresetCount()), api.ErrInvalidParam)
}

func (s *Suite) TestResetKeepsParameters() {
	in := s.openInitialized()
	s.Require().NoError(in.SetParameter(0, 0.75))

	s.Require().NoError(in.Reset())
	got, err := in.GetParameter(0)
	s.Require().NoError(err)
	s.InDelta(0.75, got, 1e-4, "reset must not touch parameter values")
}

func (s *Suite) TestCloseIdempotent() {
	in := s.openInitialized()
	s.NoError(in.Close())
	s.NoError(in.Close(), "second close is a no-op")
}

func (s *Suite) TestCloseOnUninitializedInstance() {
	in := s.Open()
	s.NoError(in.Close(), "close must be safe on a partially constructed instance")
}

func uniformlySilent(bufs [][]float32, frames int) bool {
	for _, buf := range bufs {
		for _, v := range buf[:frames] {
			if v != 0 {
				return false
			}
		}
	}
	return true
}
