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
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

// Diagnostics is a point-in-time resource snapshot of the hosting
// process. Plugins run in-process, so a misbehaving plugin shows up
// directly in these numbers.
type Diagnostics struct {
	CPUPercent    float64
	RSSBytes      uint64
	NumThreads    int32
	OpenInstances int
}

func (d Diagnostics) String() string {
	return fmt.Sprintf("cpu=%.1f%% rss=%dMiB threads=%d instances=%d",
		d.CPUPercent, d.RSSBytes>>20, d.NumThreads, d.OpenInstances)
}

// Diagnostics samples the current process. Not for the audio thread.
func (h *Host) Diagnostics() (Diagnostics, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return Diagnostics{}, fmt.Errorf("process handle: %w", err)
	}

	d := Diagnostics{OpenInstances: h.instances.Count()}
	if cpu, err := proc.CPUPercent(); err == nil {
		d.CPUPercent = cpu
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		d.RSSBytes = mem.RSS
	}
	if threads, err := proc.NumThreads(); err == nil {
		d.NumThreads = threads
	}
	return d, nil
}
