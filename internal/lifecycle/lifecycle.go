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

// Package lifecycle implements the per-instance state machine
//
//	Created -> Initialized -> (Processing <-> Idle) -> Freed
//
// and the process-wide serialization of native lifecycle calls. The
// underlying plugin frameworks are not thread-safe for concurrent
// instance creation and teardown, so those specific native calls run
// under one global mutex, never held across a process call.
package lifecycle

import (
	"fmt"
	"sync"

	"github.com/audiorack/rackhost/api"
	"github.com/audiorack/rackhost/internal/logging"
)

// State is the instance lifecycle state.
type State uint8

const (
	Created State = iota
	Initialized
	Processing
	Idle
	Freed
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Initialized:
		return "initialized"
	case Processing:
		return "processing"
	case Idle:
		return "idle"
	case Freed:
		return "freed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// nativeMu serializes native create/activate/deactivate/dispose calls
// across all instances.
var nativeMu sync.Mutex

// WithNativeLock runs fn under the global native-lifecycle mutex. Keep
// fn short: only the native call itself, nothing that could re-enter
// the adapter or block on the audio thread.
func WithNativeLock(fn func() error) error {
	nativeMu.Lock()
	defer nativeMu.Unlock()
	return fn()
}

// Machine tracks one instance's lifecycle state and the rollback stack
// for a failed initialize. Not safe for concurrent use; the caller owns
// the instance from one thread at a time.
type Machine struct {
	state State
	log   *logging.Logger

	// rollback holds undo steps for the current initialize attempt,
	// pushed in acquisition order and run in reverse on failure.
	rollback []func()
}

// New returns a machine in Created.
func New() *Machine {
	return &Machine{state: Created, log: logging.Default}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// IsInitialized reports whether the instance has passed initialize.
func (m *Machine) IsInitialized() bool {
	return m.state == Initialized || m.state == Processing || m.state == Idle
}

// CheckProcessable returns nil when process calls are legal.
func (m *Machine) CheckProcessable() error {
	if !m.IsInitialized() {
		return fmt.Errorf("%w: instance is %s", api.ErrNotInitialized, m.state)
	}
	return nil
}

// BeginInitialize starts an initialize attempt. Returns (false, nil)
// when already initialized: initialize is idempotent and the caller
// must skip the work without renegotiating. Returns an error when the
// instance is freed.
func (m *Machine) BeginInitialize() (proceed bool, err error) {
	switch m.state {
	case Created:
		m.rollback = m.rollback[:0]
		return true, nil
	case Initialized, Processing, Idle:
		return false, nil
	default:
		return false, fmt.Errorf("%w: initialize on %s instance", api.ErrGeneric, m.state)
	}
}

// OnRollback pushes an undo step for the current initialize attempt.
func (m *Machine) OnRollback(fn func()) {
	m.rollback = append(m.rollback, fn)
}

// FinishInitialize completes the attempt. On success the rollback stack
// is discarded and the machine enters Initialized. On failure every
// recorded step runs in reverse acquisition order and the machine stays
// in Created, so retrying initialize is legal.
func (m *Machine) FinishInitialize(err error) error {
	if err == nil {
		m.rollback = m.rollback[:0]
		m.state = Initialized
		return nil
	}
	m.log.Warnf("initialize failed, rolling back %d steps: %v", len(m.rollback), err)
	for i := len(m.rollback) - 1; i >= 0; i-- {
		m.rollback[i]()
	}
	m.rollback = m.rollback[:0]
	m.state = Created
	return err
}

// EnterProcessing marks the start of a process call.
func (m *Machine) EnterProcessing() error {
	if err := m.CheckProcessable(); err != nil {
		return err
	}
	m.state = Processing
	return nil
}

// ExitProcessing marks the end of a process call.
func (m *Machine) ExitProcessing() {
	if m.state == Processing {
		m.state = Idle
	}
}

// Free transitions to Freed. Idempotent: freeing a freed machine is a
// no-op so teardown is safe on partially constructed instances.
func (m *Machine) Free() (proceed bool) {
	if m.state == Freed {
		return false
	}
	m.state = Freed
	return true
}
