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

	"github.com/Workiva/go-datastructures/queue"

	"github.com/audiorack/rackhost/api"
)

// CommandQueue serializes control-thread operations (parameter changes,
// MIDI submission, preset loads) onto an instance's owning thread. An
// instance must never be driven by two threads at once; producers put
// closures here and the owning thread drains them between process
// calls, which satisfies that discipline without a lock around the
// instance.
type CommandQueue struct {
	q *queue.Queue
}

// NewCommandQueue builds a queue with a capacity hint.
func NewCommandQueue(hint int) *CommandQueue {
	if hint <= 0 {
		hint = 64
	}
	return &CommandQueue{q: queue.New(int64(hint))}
}

// Submit enqueues a command from any thread.
func (c *CommandQueue) Submit(cmd func()) error {
	if cmd == nil {
		return fmt.Errorf("%w: nil command", api.ErrInvalidParam)
	}
	if err := c.q.Put(cmd); err != nil {
		return fmt.Errorf("%w: command queue disposed", api.ErrGeneric)
	}
	return nil
}

// Drain runs up to max pending commands on the calling thread and
// returns how many ran. Call it from the instance's owning thread
// between blocks; it never blocks waiting for new commands.
func (c *CommandQueue) Drain(max int) int {
	if max <= 0 || c.q.Empty() {
		return 0
	}
	items, err := c.q.Poll(int64(max), 0)
	if err != nil {
		return 0
	}
	for _, item := range items {
		item.(func())()
	}
	return len(items)
}

// Close disposes the queue; pending commands are dropped and further
// Submits fail.
func (c *CommandQueue) Close() {
	c.q.Dispose()
}
