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

//go:build unix

package audio

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// mapScratch reserves an anonymous, page-aligned region. Mapped memory
// keeps the conversion buffers off the Go heap and page-aligned, which
// the 4-wide conversion loops benefit from.
func mapScratch(byteLen int) ([]byte, error) {
	mem, err := unix.Mmap(-1, 0, byteLen,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("mmap scratch: %w", err)
	}
	return mem, nil
}

func unmapScratch(mem []byte) error {
	if err := unix.Munmap(mem); err != nil {
		return fmt.Errorf("munmap scratch: %w", err)
	}
	return nil
}
