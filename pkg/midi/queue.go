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

package midi

import (
	"fmt"

	"github.com/audiorack/rackhost/api"
)

// DefaultQueueCapacity bounds the per-block event queue. Generous for
// audio-rate blocks; a denser stream than this within one block is a
// caller bug.
const DefaultQueueCapacity = 1024

// Queue is the internal per-block event queue owning translated events
// between SendMIDI and the next process call. Fixed capacity, no
// allocation after construction; cleared after each block.
type Queue struct {
	events []Event
}

// NewQueue preallocates a queue with the given capacity
// (DefaultQueueCapacity when <= 0).
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{events: make([]Event, 0, capacity)}
}

// Push translates and enqueues a batch, all-or-nothing: on any invalid
// event, or if the batch would overflow the queue, nothing is enqueued.
func (q *Queue) Push(events []api.MidiEvent) error {
	if len(events) == 0 {
		return nil
	}
	if err := Validate(events); err != nil {
		return err
	}
	if len(q.events)+len(events) > cap(q.events) {
		return fmt.Errorf("%w: midi queue full (%d pending, %d incoming, capacity %d)",
			api.ErrInvalidParam, len(q.events), len(events), cap(q.events))
	}
	q.events, _ = Translate(q.events, events)
	return nil
}

// Pending returns the queued events for the current block. The slice is
// owned by the queue and only valid until Clear.
func (q *Queue) Pending() []Event { return q.events }

// Len returns the number of queued events.
func (q *Queue) Len() int { return len(q.events) }

// Clear empties the queue, retaining capacity. Called after every
// process call.
func (q *Queue) Clear() { q.events = q.events[:0] }
