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

// Package midi translates generic byte-oriented MIDI events into the
// event shapes the backend architectures consume.
package midi

import (
	"fmt"

	"github.com/audiorack/rackhost/api"
)

// Kind classifies a translated event.
type Kind uint8

const (
	// KindNoteOn, KindNoteOff and KindPolyPressure map onto first-class
	// native note events with velocity/pressure rescaled to [0,1].
	KindNoteOn Kind = iota
	KindNoteOff
	KindPolyPressure

	// KindRaw is the generic passthrough for messages without a
	// first-class native representation (CC, program change, channel
	// pressure, pitch bend, system messages). The original status byte
	// distinguishes non-CC payloads.
	KindRaw
)

// Event is the backend-neutral translated event shape.
type Event struct {
	Kind         Kind
	SampleOffset uint32
	Channel      uint8

	// Note fields (KindNoteOn/KindNoteOff/KindPolyPressure).
	Pitch uint8
	// Velocity carries velocity or pressure rescaled from 0-127.
	Velocity float32

	// Raw passthrough bytes (KindRaw).
	Status uint8
	Data1  uint8
	Data2  uint8
}

// velocityScale rescales a 7-bit value into [0,1].
func velocityScale(v uint8) float32 {
	return float32(v) / 127.0
}

// Validate checks a whole batch up front. Any invalid event rejects the
// batch before translation so no event is forwarded (all-or-nothing).
func Validate(events []api.MidiEvent) error {
	for i, ev := range events {
		if err := ev.Validate(); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}
	return nil
}

// Translate validates events and appends their translated forms to dst,
// returning the extended slice. An empty batch is a successful no-op.
// dst is typically a preallocated per-block queue; Translate performs
// no allocation when capacity suffices.
func Translate(dst []Event, events []api.MidiEvent) ([]Event, error) {
	if err := Validate(events); err != nil {
		return dst, err
	}
	for _, ev := range events {
		dst = append(dst, translateOne(ev))
	}
	return dst, nil
}

func translateOne(ev api.MidiEvent) Event {
	switch ev.Status {
	case api.MidiNoteOn:
		// Note On with zero velocity is Note Off on the wire.
		kind := KindNoteOn
		if ev.Data2 == 0 {
			kind = KindNoteOff
		}
		return Event{
			Kind:         kind,
			SampleOffset: ev.SampleOffset,
			Channel:      ev.Channel,
			Pitch:        ev.Data1,
			Velocity:     velocityScale(ev.Data2),
		}
	case api.MidiNoteOff:
		return Event{
			Kind:         KindNoteOff,
			SampleOffset: ev.SampleOffset,
			Channel:      ev.Channel,
			Pitch:        ev.Data1,
			Velocity:     velocityScale(ev.Data2),
		}
	case api.MidiPolyAftertouch:
		return Event{
			Kind:         KindPolyPressure,
			SampleOffset: ev.SampleOffset,
			Channel:      ev.Channel,
			Pitch:        ev.Data1,
			Velocity:     velocityScale(ev.Data2),
		}
	default:
		return Event{
			Kind:         KindRaw,
			SampleOffset: ev.SampleOffset,
			Channel:      ev.Channel,
			Status:       ev.Status,
			Data1:        ev.Data1,
			Data2:        ev.Data2,
		}
	}
}
