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

// Package backend defines the capability contract both plugin
// architectures satisfy. The host facade drives an Adapter through
// this contract and never sees architecture-specific types; the two
// concrete implementations live in internal/vst3 and internal/au.
package backend

import (
	"fmt"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/audiorack/rackhost/api"
	"github.com/audiorack/rackhost/pkg/midi"
	"github.com/audiorack/rackhost/pkg/param"
	"github.com/audiorack/rackhost/pkg/state"
)

// Config is the audio format negotiated at initialize.
type Config struct {
	SampleRate   float64
	MaxBlockSize int
}

// Block carries one process call. Buffers are planar and already
// validated against the negotiated configuration; Events are the
// translated MIDI events queued since the previous block;
// SamplePosition is the running 64-bit timeline position of the
// block's first frame.
type Block struct {
	Inputs         [][]float32
	Outputs        [][]float32
	Frames         int
	SamplePosition int64
	Events         []midi.Event
}

// Adapter is one architecture's implementation of the instance
// capabilities: initialize, process, parameters, state, presets, MIDI
// and the GUI boundary. Lifecycle ordering, input validation and the
// per-block MIDI queue are owned by the host facade; adapters only
// touch their native framework.
type Adapter interface {
	Arch() api.Architecture

	// Initialize negotiates cfg with the native plugin and prepares it
	// for processing. Partial progress must be registered with
	// onRollback (in acquisition order); the caller unwinds it when any
	// later step fails.
	Initialize(cfg Config, onRollback func(func())) error

	// InputChannels and OutputChannels report the negotiated channel
	// counts, valid after Initialize.
	InputChannels() int
	OutputChannels() int

	// Reset clears internal buffers and tails, via a native reset call
	// or deactivate+reactivate when the architecture has none.
	Reset() error

	// Process runs one block. Real-time safe.
	Process(b *Block) error

	// Params returns the parameter cache built at Initialize, nil
	// before.
	Params() *param.Cache

	// Presets returns the preset manager built at Initialize, nil
	// before.
	Presets() *state.Presets

	// GetState and SetState move the opaque state blob.
	GetState() ([]byte, error)
	SetState(data []byte) error

	// OpenView asynchronously creates the native plugin view.
	OpenView(cb api.GUICallback)

	// Close releases all native resources in strict reverse order of
	// acquisition. Safe on a partially initialized adapter; idempotency
	// is owned by the facade.
	Close() error
}

// Factory instantiates an adapter for a descriptor. Construction is the
// only point surfacing ErrNotFound: an unresolvable identifier fails
// here and no adapter is returned.
type Factory func(desc api.Descriptor) (Adapter, error)

var registry = cmap.NewStringer[api.Architecture, Factory]()

// Register installs the factory for an architecture. Production cgo
// drivers register themselves from init on the platforms they build on.
func Register(arch api.Architecture, f Factory) {
	registry.Set(arch, f)
}

// Resolve returns the factory for an architecture, or ErrNotFound when
// no backend for it is compiled in.
func Resolve(arch api.Architecture) (Factory, error) {
	f, ok := registry.Get(arch)
	if !ok {
		return nil, fmt.Errorf("%w: no %s backend available on this platform", api.ErrNotFound, arch)
	}
	return f, nil
}
