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

package vst3

import (
	"fmt"

	"github.com/audiorack/rackhost/api"
	"github.com/audiorack/rackhost/internal/backend"
	"github.com/audiorack/rackhost/internal/lifecycle"
	"github.com/audiorack/rackhost/internal/logging"
	"github.com/audiorack/rackhost/pkg/param"
	"github.com/audiorack/rackhost/pkg/state"
)

// Adapter implements backend.Adapter over a VST3 component.
type Adapter struct {
	comp Component
	desc api.Descriptor
	log  *logging.Logger

	inCh, outCh int
	active      bool
	processing  bool

	params  *param.Cache
	presets *state.Presets
}

// NewAdapter wraps an instantiated component. Production code reaches
// this through the registered factory; tests construct fakes directly.
func NewAdapter(desc api.Descriptor, comp Component) *Adapter {
	return &Adapter{comp: comp, desc: desc, log: logging.Default}
}

func (a *Adapter) Arch() api.Architecture { return api.VST3 }

// Initialize negotiates the format and walks the activation sequence:
// setup processing, activate buses, activate the component, start
// processing, then populate the parameter and preset caches. Each
// native activation registers its undo with onRollback.
func (a *Adapter) Initialize(cfg backend.Config, onRollback func(func())) error {
	if err := a.comp.SetupProcessing(cfg.SampleRate, int32(cfg.MaxBlockSize)); err != nil {
		return fmt.Errorf("setup processing: %w", err)
	}

	in, out, err := a.comp.BusChannels()
	if err != nil {
		return fmt.Errorf("query buses: %w", err)
	}
	a.inCh, a.outCh = int(in), int(out)

	if err := a.comp.ActivateBuses(true); err != nil {
		return fmt.Errorf("activate buses: %w", err)
	}
	onRollback(func() {
		if err := a.comp.ActivateBuses(false); err != nil {
			a.log.Warnf("bus deactivation during rollback failed: %v", err)
		}
	})

	err = lifecycle.WithNativeLock(func() error { return a.comp.SetActive(true) })
	if err != nil {
		return fmt.Errorf("activate component: %w", err)
	}
	a.active = true
	onRollback(func() {
		_ = lifecycle.WithNativeLock(func() error { return a.comp.SetActive(false) })
		a.active = false
	})

	if err := a.comp.SetProcessing(true); err != nil {
		return fmt.Errorf("start processing: %w", err)
	}
	a.processing = true
	onRollback(func() {
		if err := a.comp.SetProcessing(false); err != nil {
			a.log.Warnf("processing stop during rollback failed: %v", err)
		}
		a.processing = false
	})

	a.params = param.Build(&paramSource{comp: a.comp})
	a.presets = state.NewPresets(a.enumeratePrograms(), a.comp, a.comp, a.params)
	onRollback(func() {
		a.params = nil
		a.presets = nil
	})
	return nil
}

func (a *Adapter) enumeratePrograms() []api.PresetInfo {
	count := a.comp.ProgramCount()
	infos := make([]api.PresetInfo, 0, count)
	for i := 0; i < count; i++ {
		info, err := a.comp.ProgramInfo(i)
		if err != nil {
			a.log.Warnf("program %d enumeration failed, list truncated: %v", i, err)
			break
		}
		info.Index = len(infos)
		infos = append(infos, info)
	}
	return infos
}

func (a *Adapter) InputChannels() int  { return a.inCh }
func (a *Adapter) OutputChannels() int { return a.outCh }

// Reset clears tails via deactivate+reactivate; VST3 has no dedicated
// reset call.
func (a *Adapter) Reset() error {
	return lifecycle.WithNativeLock(func() error {
		if err := a.comp.SetProcessing(false); err != nil {
			return fmt.Errorf("stop processing: %w", err)
		}
		if err := a.comp.SetActive(false); err != nil {
			return fmt.Errorf("deactivate: %w", err)
		}
		if err := a.comp.SetActive(true); err != nil {
			return fmt.Errorf("reactivate: %w", err)
		}
		if err := a.comp.SetProcessing(true); err != nil {
			return fmt.Errorf("restart processing: %w", err)
		}
		return nil
	})
}

// Process hands the caller's planar buffers straight to the native
// processor. Zero-copy: no conversion, no allocation.
func (a *Adapter) Process(b *backend.Block) error {
	return a.comp.Process(b.Inputs, b.Outputs, int32(b.Frames), b.SamplePosition, b.Events)
}

func (a *Adapter) Params() *param.Cache    { return a.params }
func (a *Adapter) Presets() *state.Presets { return a.presets }

// GetState snapshots the component state and, when a separate edit
// controller exists, appends its state as a trailered section.
func (a *Adapter) GetState() ([]byte, error) {
	var controller state.Source
	if a.comp.HasController() {
		controller = &controllerState{comp: a.comp}
	}
	return state.Snapshot(&componentState{comp: a.comp}, controller)
}

func (a *Adapter) SetState(data []byte) error {
	var controller state.Sink
	if a.comp.HasController() {
		controller = &controllerState{comp: a.comp}
	}
	return state.Restore(data, &componentState{comp: a.comp}, controller)
}

// OpenView creates the plugin editor view. Must run on the platform
// main thread; the host facade schedules it there.
func (a *Adapter) OpenView(cb api.GUICallback) {
	if !a.comp.HasView() {
		cb(nil, api.ErrGUIUnsupported)
		return
	}
	handle, err := a.comp.CreateView()
	if err != nil {
		cb(nil, fmt.Errorf("create view: %w", err))
		return
	}
	cb(&view{comp: a.comp, handle: handle}, nil)
}

// Close tears down in strict reverse order of acquisition: stop
// processing, deactivate, disconnect the controller connection points,
// terminate the controller, terminate the component. Each step runs
// even when a previous one failed so nothing leaks; the first error is
// reported.
func (a *Adapter) Close() error {
	return lifecycle.WithNativeLock(func() error {
		var first error
		keep := func(err error) {
			if err != nil && first == nil {
				first = err
			}
		}
		if a.processing {
			keep(a.comp.SetProcessing(false))
			a.processing = false
		}
		if a.active {
			keep(a.comp.SetActive(false))
			a.active = false
		}
		keep(a.comp.DisconnectController())
		keep(a.comp.TerminateController())
		keep(a.comp.TerminateComponent())
		return first
	})
}

// paramSource exposes the component's normalized parameter space to
// the generic cache. VST3 descriptors already report Min 0 / Max 1, so
// the linear mapping degenerates to a clamp.
type paramSource struct {
	comp Component
}

func (s *paramSource) ParameterCount() int { return s.comp.ParameterCount() }

func (s *paramSource) ParameterInfo(index int) (api.ParameterInfo, error) {
	return s.comp.ParameterInfo(index)
}

func (s *paramSource) GetParam(index int) (float64, error) {
	return s.comp.GetParamNormalized(index)
}

func (s *paramSource) SetParam(index int, value float64) error {
	return s.comp.SetParamNormalized(index, value)
}

type componentState struct {
	comp Component
}

func (s *componentState) StateSize() (int, error)      { return s.comp.ComponentStateSize() }
func (s *componentState) FillState(dst []byte) error   { return s.comp.FillComponentState(dst) }
func (s *componentState) ApplyState(data []byte) error { return s.comp.ApplyComponentState(data) }

type controllerState struct {
	comp Component
}

func (s *controllerState) StateSize() (int, error)      { return s.comp.ControllerStateSize() }
func (s *controllerState) FillState(dst []byte) error   { return s.comp.FillControllerState(dst) }
func (s *controllerState) ApplyState(data []byte) error { return s.comp.ApplyControllerState(data) }

// view is the read-only GUI accessor handed to the GUI collaborator.
type view struct {
	comp   Component
	handle uintptr
}

func (v *view) Handle() uintptr { return v.handle }

func (v *view) PreferredSize() (api.GUISize, error) { return v.comp.ViewSize() }

func (v *view) Close() error { return v.comp.DestroyView() }
