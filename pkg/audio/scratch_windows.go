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

//go:build windows

package audio

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

func mapScratch(byteLen int) ([]byte, error) {
	addr, err := windows.VirtualAlloc(0, uintptr(byteLen),
		windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, fmt.Errorf("VirtualAlloc scratch: %w", err)
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), byteLen), nil
}

func unmapScratch(mem []byte) error {
	addr := uintptr(unsafe.Pointer(&mem[0]))
	if err := windows.VirtualFree(addr, 0, windows.MEM_RELEASE); err != nil {
		return fmt.Errorf("VirtualFree scratch: %w", err)
	}
	return nil
}
