package api

import "fmt"

// MIDI status bytes (channel messages carry the channel in the low
// nibble at the wire level; here status holds only the high nibble and
// Channel is a separate field).
const (
	MidiNoteOff         uint8 = 0x80
	MidiNoteOn          uint8 = 0x90
	MidiPolyAftertouch  uint8 = 0xA0
	MidiControlChange   uint8 = 0xB0
	MidiProgramChange   uint8 = 0xC0
	MidiChannelPressure uint8 = 0xD0
	MidiPitchBend       uint8 = 0xE0

	// System real-time messages (status >= 0xF0, no channel).
	MidiTimingClock   uint8 = 0xF8
	MidiStart         uint8 = 0xFA
	MidiContinue      uint8 = 0xFB
	MidiStop          uint8 = 0xFC
	MidiActiveSensing uint8 = 0xFE
	MidiSystemReset   uint8 = 0xFF

	// PitchBendCenter is the 14-bit value meaning no bend.
	PitchBendCenter uint16 = 8192
)

// MidiEvent is a generic, byte-oriented MIDI event with sample-accurate
// timing. Transient: constructed per call and not retained beyond the
// SendMIDI call that consumes it.
type MidiEvent struct {
	// SampleOffset is the frame position within the current processing
	// block at which the event applies (0 = block start).
	SampleOffset uint32

	// Status is the message type (high nibble for channel messages).
	Status uint8

	Data1 uint8
	Data2 uint8

	// Channel is 0-15 for channel messages and ignored for system
	// messages.
	Channel uint8
}

// IsChannelMessage reports whether the event carries a channel.
func (e MidiEvent) IsChannelMessage() bool {
	return e.Status < 0xF0
}

// Validate checks the event against MIDI 1.0 ranges. Channel messages
// with Channel > 15 are invalid.
func (e MidiEvent) Validate() error {
	if e.IsChannelMessage() && e.Channel > 15 {
		return fmt.Errorf("%w: midi channel %d out of range", ErrInvalidParam, e.Channel)
	}
	return nil
}

func clamp7(v uint8) uint8 {
	if v > 127 {
		return 127
	}
	return v
}

func clampChannel(ch uint8) uint8 {
	if ch > 15 {
		return 15
	}
	return ch
}

// NoteOn builds a Note On event. Out-of-range values are clamped.
func NoteOn(note, velocity, channel uint8, sampleOffset uint32) MidiEvent {
	return MidiEvent{
		SampleOffset: sampleOffset,
		Status:       MidiNoteOn,
		Data1:        clamp7(note),
		Data2:        clamp7(velocity),
		Channel:      clampChannel(channel),
	}
}

// NoteOff builds a Note Off event with a release velocity.
func NoteOff(note, velocity, channel uint8, sampleOffset uint32) MidiEvent {
	return MidiEvent{
		SampleOffset: sampleOffset,
		Status:       MidiNoteOff,
		Data1:        clamp7(note),
		Data2:        clamp7(velocity),
		Channel:      clampChannel(channel),
	}
}

// ControlChange builds a CC event.
func ControlChange(controller, value, channel uint8, sampleOffset uint32) MidiEvent {
	return MidiEvent{
		SampleOffset: sampleOffset,
		Status:       MidiControlChange,
		Data1:        clamp7(controller),
		Data2:        clamp7(value),
		Channel:      clampChannel(channel),
	}
}

// ProgramChange builds a Program Change event. Program Change has a
// single data byte; Data2 is always zero.
func ProgramChange(program, channel uint8, sampleOffset uint32) MidiEvent {
	return MidiEvent{
		SampleOffset: sampleOffset,
		Status:       MidiProgramChange,
		Data1:        clamp7(program),
		Channel:      clampChannel(channel),
	}
}

// PolyAftertouch builds a polyphonic key pressure event.
func PolyAftertouch(note, pressure, channel uint8, sampleOffset uint32) MidiEvent {
	return MidiEvent{
		SampleOffset: sampleOffset,
		Status:       MidiPolyAftertouch,
		Data1:        clamp7(note),
		Data2:        clamp7(pressure),
		Channel:      clampChannel(channel),
	}
}

// ChannelPressure builds a channel aftertouch event.
func ChannelPressure(pressure, channel uint8, sampleOffset uint32) MidiEvent {
	return MidiEvent{
		SampleOffset: sampleOffset,
		Status:       MidiChannelPressure,
		Data1:        clamp7(pressure),
		Channel:      clampChannel(channel),
	}
}

// PitchBend builds a pitch bend event from a 14-bit value
// (0-16383, 8192 = center). The value is split across the two data
// bytes LSB first, as on the wire.
func PitchBend(value uint16, channel uint8, sampleOffset uint32) MidiEvent {
	if value > 16383 {
		value = 16383
	}
	return MidiEvent{
		SampleOffset: sampleOffset,
		Status:       MidiPitchBend,
		Data1:        uint8(value & 0x7F),
		Data2:        uint8(value >> 7),
		Channel:      clampChannel(channel),
	}
}

// PitchBendValue reassembles the 14-bit bend value of a pitch bend
// event.
func (e MidiEvent) PitchBendValue() uint16 {
	return uint16(e.Data1&0x7F) | uint16(e.Data2&0x7F)<<7
}

// SystemRealTime builds a system real-time event (clock, start, stop,
// continue, active sensing, reset). These carry no channel or data.
func SystemRealTime(status uint8, sampleOffset uint32) MidiEvent {
	return MidiEvent{SampleOffset: sampleOffset, Status: status}
}
