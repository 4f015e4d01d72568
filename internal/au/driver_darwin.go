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

//go:build darwin && cgo

package au

/*
#cgo CFLAGS: -I${SRCDIR}/include
#cgo LDFLAGS: -framework AudioToolbox -framework CoreAudio -framework CoreFoundation -lrackhost_au

#include <stdlib.h>
#include "rackhost_au.h"
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/audiorack/rackhost/api"
	"github.com/audiorack/rackhost/internal/backend"
	"github.com/audiorack/rackhost/internal/lifecycle"
)

func init() {
	backend.Register(api.AudioUnit, func(desc api.Descriptor) (backend.Adapter, error) {
		unit, err := openUnit(desc)
		if err != nil {
			return nil, err
		}
		return NewAdapter(desc, unit), nil
	})
}

// nativeUnit binds the Objective-C bridge over AudioToolbox. The bridge
// owns the render callback that serves the input slice captured per
// Render call.
type nativeUnit struct {
	h *C.rh_au_t
}

func openUnit(desc api.Descriptor) (*nativeUnit, error) {
	cID := C.CString(desc.UniqueID)
	defer C.free(unsafe.Pointer(cID))

	var h *C.rh_au_t
	err := lifecycle.WithNativeLock(func() error {
		return statusErr(C.rh_au_open(cID, &h))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: component %q", api.ErrNotFound, desc.UniqueID)
	}
	return &nativeUnit{h: h}, nil
}

// statusErr maps an OSStatus to the error taxonomy; nonzero statuses
// are forwarded verbatim.
func statusErr(status C.int32_t) error {
	if status == 0 {
		return nil
	}
	return &api.NativeError{Arch: api.AudioUnit, Status: int32(status)}
}

func (u *nativeUnit) SetFormat(sampleRate float64, maxBlockSize int32) error {
	return statusErr(C.rh_au_set_format(u.h, C.double(sampleRate), C.int32_t(maxBlockSize)))
}

func (u *nativeUnit) ChannelCounts() (in, out int32, err error) {
	var cin, cout C.int32_t
	if err := statusErr(C.rh_au_channel_counts(u.h, &cin, &cout)); err != nil {
		return 0, 0, err
	}
	return int32(cin), int32(cout), nil
}

func (u *nativeUnit) Initialize() error   { return statusErr(C.rh_au_initialize(u.h)) }
func (u *nativeUnit) Uninitialize() error { return statusErr(C.rh_au_uninitialize(u.h)) }
func (u *nativeUnit) Reset() error        { return statusErr(C.rh_au_reset(u.h)) }

func (u *nativeUnit) ParameterCount() int {
	return int(C.rh_au_parameter_count(u.h))
}

func (u *nativeUnit) ParameterInfo(index int) (api.ParameterInfo, error) {
	var raw C.rh_au_param_info_t
	if err := statusErr(C.rh_au_parameter_info(u.h, C.int32_t(index), &raw)); err != nil {
		return api.ParameterInfo{}, err
	}
	return api.ParameterInfo{
		Index:     index,
		Name:      C.GoString(&raw.name[0]),
		Unit:      C.GoString(&raw.units[0]),
		Min:       float32(raw.min_value),
		Max:       float32(raw.max_value),
		Default:   float32(raw.default_value),
		StepCount: int32(raw.step_count),
	}, nil
}

func (u *nativeUnit) GetParam(index int) (float64, error) {
	var v C.double
	if err := statusErr(C.rh_au_get_param(u.h, C.int32_t(index), &v)); err != nil {
		return 0, err
	}
	return float64(v), nil
}

func (u *nativeUnit) SetParam(index int, value float64) error {
	return statusErr(C.rh_au_set_param(u.h, C.int32_t(index), C.double(value)))
}

func (u *nativeUnit) MIDIEvent(status, data1, data2 uint8, sampleOffset uint32) error {
	return statusErr(C.rh_au_midi_event(u.h,
		C.uint8_t(status), C.uint8_t(data1), C.uint8_t(data2), C.uint32_t(sampleOffset)))
}

func (u *nativeUnit) Render(input, output []float32, frames int32, samplePosition int64) error {
	var inPtr, outPtr *C.float
	if len(input) > 0 {
		inPtr = (*C.float)(unsafe.Pointer(&input[0]))
	}
	if len(output) > 0 {
		outPtr = (*C.float)(unsafe.Pointer(&output[0]))
	}
	return statusErr(C.rh_au_render(u.h, inPtr, outPtr, C.int32_t(frames), C.int64_t(samplePosition)))
}

func (u *nativeUnit) FactoryPresetCount() int {
	return int(C.rh_au_preset_count(u.h))
}

func (u *nativeUnit) FactoryPresetInfo(index int) (api.PresetInfo, error) {
	var raw C.rh_au_preset_info_t
	if err := statusErr(C.rh_au_preset_info(u.h, C.int32_t(index), &raw)); err != nil {
		return api.PresetInfo{}, err
	}
	return api.PresetInfo{
		Index:  index,
		Name:   C.GoString(&raw.name[0]),
		Number: int32(raw.number),
	}, nil
}

func (u *nativeUnit) LoadFactoryPreset(number int32) error {
	return statusErr(C.rh_au_load_preset(u.h, C.int32_t(number)))
}

func (u *nativeUnit) ClassInfoSize() (int, error) {
	var size C.int32_t
	if err := statusErr(C.rh_au_class_info_size(u.h, &size)); err != nil {
		return 0, err
	}
	return int(size), nil
}

func (u *nativeUnit) FillClassInfo(dst []byte) error {
	if len(dst) == 0 {
		return nil
	}
	return statusErr(C.rh_au_class_info_read(u.h,
		(*C.uint8_t)(unsafe.Pointer(&dst[0])), C.int32_t(len(dst))))
}

func (u *nativeUnit) ApplyClassInfo(data []byte) error {
	var p *C.uint8_t
	if len(data) > 0 {
		p = (*C.uint8_t)(unsafe.Pointer(&data[0]))
	}
	return statusErr(C.rh_au_class_info_write(u.h, p, C.int32_t(len(data))))
}

func (u *nativeUnit) HasView() bool {
	return C.rh_au_has_view(u.h) != 0
}

func (u *nativeUnit) CreateView() (uintptr, error) {
	var handle unsafe.Pointer
	if err := statusErr(C.rh_au_create_view(u.h, &handle)); err != nil {
		return 0, err
	}
	return uintptr(handle), nil
}

func (u *nativeUnit) ViewSize() (api.GUISize, error) {
	var w, h C.float
	if err := statusErr(C.rh_au_view_size(u.h, &w, &h)); err != nil {
		return api.GUISize{}, err
	}
	return api.GUISize{Width: float32(w), Height: float32(h)}, nil
}

func (u *nativeUnit) DestroyView() error {
	return statusErr(C.rh_au_destroy_view(u.h))
}

func (u *nativeUnit) Dispose() error {
	err := statusErr(C.rh_au_dispose(u.h))
	u.h = nil
	return err
}
