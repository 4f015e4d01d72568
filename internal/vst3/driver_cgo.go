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

//go:build vst3bridge && cgo

package vst3

/*
#cgo CFLAGS: -I${SRCDIR}/include
#cgo LDFLAGS: -lrackhost_vst3

#include <stdlib.h>
#include "rackhost_vst3.h"
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/audiorack/rackhost/api"
	"github.com/audiorack/rackhost/internal/backend"
	"github.com/audiorack/rackhost/internal/lifecycle"
	"github.com/audiorack/rackhost/pkg/midi"
)

func init() {
	backend.Register(api.VST3, func(desc api.Descriptor) (backend.Adapter, error) {
		comp, err := openComponent(desc)
		if err != nil {
			return nil, err
		}
		return NewAdapter(desc, comp), nil
	})
}

// maxEvents bounds the C event staging array, matching the per-block
// queue capacity.
const maxEvents = midi.DefaultQueueCapacity

// nativeComponent binds the C bridge. The channel pointer arrays and
// the event staging array are C-allocated once at open so the process
// path stays free of Go allocations and cgo pointer-to-pointer rules.
type nativeComponent struct {
	h      *C.rh_vst3_t
	inPtr  **C.float
	outPtr **C.float
	events *C.rh_vst3_event_t
	ptrCap int
}

// maxBusChannels bounds the preallocated channel pointer arrays.
const maxBusChannels = 64

func openComponent(desc api.Descriptor) (*nativeComponent, error) {
	cPath := C.CString(desc.Path)
	defer C.free(unsafe.Pointer(cPath))
	cID := C.CString(desc.UniqueID)
	defer C.free(unsafe.Pointer(cID))

	var h *C.rh_vst3_t
	err := lifecycle.WithNativeLock(func() error {
		return statusErr(C.rh_vst3_open(cPath, cID, &h))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open %q from %s: %w", api.ErrNotFound, desc.UniqueID, desc.Path, err)
	}

	ptrBytes := C.size_t(maxBusChannels) * C.size_t(unsafe.Sizeof(uintptr(0)))
	return &nativeComponent{
		h:      h,
		inPtr:  (**C.float)(C.malloc(ptrBytes)),
		outPtr: (**C.float)(C.malloc(ptrBytes)),
		events: (*C.rh_vst3_event_t)(C.malloc(C.size_t(maxEvents) * C.sizeof_rh_vst3_event_t)),
		ptrCap: maxBusChannels,
	}, nil
}

// statusErr maps a bridge tresult to the error taxonomy; nonzero
// statuses are forwarded verbatim.
func statusErr(status C.int32_t) error {
	if status == 0 {
		return nil
	}
	return &api.NativeError{Arch: api.VST3, Status: int32(status)}
}

func (c *nativeComponent) SetupProcessing(sampleRate float64, maxBlockSize int32) error {
	return statusErr(C.rh_vst3_setup_processing(c.h, C.double(sampleRate), C.int32_t(maxBlockSize)))
}

func (c *nativeComponent) BusChannels() (in, out int32, err error) {
	var cin, cout C.int32_t
	if err := statusErr(C.rh_vst3_bus_channels(c.h, &cin, &cout)); err != nil {
		return 0, 0, err
	}
	if cin > maxBusChannels || cout > maxBusChannels {
		return 0, 0, fmt.Errorf("%w: bus arrangement %dx%d exceeds supported channel count %d",
			api.ErrGeneric, cin, cout, maxBusChannels)
	}
	return int32(cin), int32(cout), nil
}

func (c *nativeComponent) ActivateBuses(active bool) error {
	return statusErr(C.rh_vst3_activate_buses(c.h, cbool(active)))
}

func (c *nativeComponent) SetActive(active bool) error {
	return statusErr(C.rh_vst3_set_active(c.h, cbool(active)))
}

func (c *nativeComponent) SetProcessing(active bool) error {
	return statusErr(C.rh_vst3_set_processing(c.h, cbool(active)))
}

func cbool(b bool) C.int32_t {
	if b {
		return 1
	}
	return 0
}

func (c *nativeComponent) ParameterCount() int {
	return int(C.rh_vst3_parameter_count(c.h))
}

func (c *nativeComponent) ParameterInfo(index int) (api.ParameterInfo, error) {
	var raw C.rh_vst3_param_info_t
	if err := statusErr(C.rh_vst3_parameter_info(c.h, C.int32_t(index), &raw)); err != nil {
		return api.ParameterInfo{}, err
	}
	return api.ParameterInfo{
		Index:       index,
		Name:        C.GoString(&raw.name[0]),
		Unit:        C.GoString(&raw.units[0]),
		Min:         0,
		Max:         1,
		Default:     float32(raw.default_normalized),
		StepCount:   int32(raw.step_count),
		ProgramList: raw.is_program_list != 0,
	}, nil
}

func (c *nativeComponent) GetParamNormalized(index int) (float64, error) {
	var v C.double
	if err := statusErr(C.rh_vst3_get_param(c.h, C.int32_t(index), &v)); err != nil {
		return 0, err
	}
	return float64(v), nil
}

func (c *nativeComponent) SetParamNormalized(index int, value float64) error {
	return statusErr(C.rh_vst3_set_param(c.h, C.int32_t(index), C.double(value)))
}

func (c *nativeComponent) ProgramCount() int {
	return int(C.rh_vst3_program_count(c.h))
}

func (c *nativeComponent) ProgramInfo(index int) (api.PresetInfo, error) {
	var raw C.rh_vst3_program_info_t
	if err := statusErr(C.rh_vst3_program_info(c.h, C.int32_t(index), &raw)); err != nil {
		return api.PresetInfo{}, err
	}
	return api.PresetInfo{
		Index:  index,
		Name:   C.GoString(&raw.name[0]),
		Number: int32(raw.number),
	}, nil
}

func (c *nativeComponent) LoadProgram(number int32) error {
	return statusErr(C.rh_vst3_load_program(c.h, C.int32_t(number)))
}

func (c *nativeComponent) SelectPresetUnit(number int32) error {
	return statusErr(C.rh_vst3_select_unit(c.h, C.int32_t(number)))
}

func (c *nativeComponent) Process(inputs, outputs [][]float32, frames int32, samplePosition int64, events []midi.Event) error {
	inPtrs := unsafe.Slice(c.inPtr, c.ptrCap)
	for ch := range inputs {
		inPtrs[ch] = (*C.float)(unsafe.Pointer(&inputs[ch][0]))
	}
	outPtrs := unsafe.Slice(c.outPtr, c.ptrCap)
	for ch := range outputs {
		outPtrs[ch] = (*C.float)(unsafe.Pointer(&outputs[ch][0]))
	}

	count := len(events)
	if count > maxEvents {
		count = maxEvents
	}
	staged := unsafe.Slice(c.events, maxEvents)
	for i := 0; i < count; i++ {
		ev := &events[i]
		staged[i] = C.rh_vst3_event_t{
			sample_offset: C.uint32_t(ev.SampleOffset),
			kind:          C.uint8_t(ev.Kind),
			channel:       C.uint8_t(ev.Channel),
			pitch:         C.uint8_t(ev.Pitch),
			status:        C.uint8_t(ev.Status),
			data1:         C.uint8_t(ev.Data1),
			data2:         C.uint8_t(ev.Data2),
			velocity:      C.float(ev.Velocity),
		}
	}

	return statusErr(C.rh_vst3_process(c.h,
		c.inPtr, C.int32_t(len(inputs)),
		c.outPtr, C.int32_t(len(outputs)),
		C.int32_t(frames), C.int64_t(samplePosition),
		c.events, C.int32_t(count)))
}

func (c *nativeComponent) ComponentStateSize() (int, error) {
	var size C.int32_t
	if err := statusErr(C.rh_vst3_component_state_size(c.h, &size)); err != nil {
		return 0, err
	}
	return int(size), nil
}

func (c *nativeComponent) FillComponentState(dst []byte) error {
	if len(dst) == 0 {
		return nil
	}
	return statusErr(C.rh_vst3_component_state_read(c.h,
		(*C.uint8_t)(unsafe.Pointer(&dst[0])), C.int32_t(len(dst))))
}

func (c *nativeComponent) ApplyComponentState(data []byte) error {
	var p *C.uint8_t
	if len(data) > 0 {
		p = (*C.uint8_t)(unsafe.Pointer(&data[0]))
	}
	return statusErr(C.rh_vst3_component_state_write(c.h, p, C.int32_t(len(data))))
}

func (c *nativeComponent) HasController() bool {
	return C.rh_vst3_has_controller(c.h) != 0
}

func (c *nativeComponent) ControllerStateSize() (int, error) {
	var size C.int32_t
	if err := statusErr(C.rh_vst3_controller_state_size(c.h, &size)); err != nil {
		return 0, err
	}
	return int(size), nil
}

func (c *nativeComponent) FillControllerState(dst []byte) error {
	if len(dst) == 0 {
		return nil
	}
	return statusErr(C.rh_vst3_controller_state_read(c.h,
		(*C.uint8_t)(unsafe.Pointer(&dst[0])), C.int32_t(len(dst))))
}

func (c *nativeComponent) ApplyControllerState(data []byte) error {
	var p *C.uint8_t
	if len(data) > 0 {
		p = (*C.uint8_t)(unsafe.Pointer(&data[0]))
	}
	return statusErr(C.rh_vst3_controller_state_write(c.h, p, C.int32_t(len(data))))
}

func (c *nativeComponent) HasView() bool {
	return C.rh_vst3_has_view(c.h) != 0
}

func (c *nativeComponent) CreateView() (uintptr, error) {
	var handle unsafe.Pointer
	if err := statusErr(C.rh_vst3_create_view(c.h, &handle)); err != nil {
		return 0, err
	}
	return uintptr(handle), nil
}

func (c *nativeComponent) ViewSize() (api.GUISize, error) {
	var w, h C.float
	if err := statusErr(C.rh_vst3_view_size(c.h, &w, &h)); err != nil {
		return api.GUISize{}, err
	}
	return api.GUISize{Width: float32(w), Height: float32(h)}, nil
}

func (c *nativeComponent) DestroyView() error {
	return statusErr(C.rh_vst3_destroy_view(c.h))
}

func (c *nativeComponent) DisconnectController() error {
	return statusErr(C.rh_vst3_disconnect(c.h))
}

func (c *nativeComponent) TerminateController() error {
	return statusErr(C.rh_vst3_terminate_controller(c.h))
}

func (c *nativeComponent) TerminateComponent() error {
	err := statusErr(C.rh_vst3_terminate_component(c.h))
	C.rh_vst3_release(c.h)
	c.h = nil
	C.free(unsafe.Pointer(c.inPtr))
	C.free(unsafe.Pointer(c.outPtr))
	C.free(unsafe.Pointer(c.events))
	c.inPtr, c.outPtr, c.events = nil, nil, nil
	return err
}
