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

// Package host is the caller-facing surface of rackhost: it constructs
// plugin instances from descriptors, tracks them in a process-wide
// registry, and carries the operational concerns (metrics, health,
// diagnostics, background tasks) that sit outside the adapter core.
package host

import (
	"fmt"
	"sync/atomic"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/audiorack/rackhost/api"
	"github.com/audiorack/rackhost/internal/backend"
	"github.com/audiorack/rackhost/internal/lifecycle"
	"github.com/audiorack/rackhost/internal/logging"
	"github.com/audiorack/rackhost/pkg/midi"
)

// Host owns the instance registry and shared services. One Host per
// process is the expected shape, but nothing prevents several.
type Host struct {
	log       *logging.Logger
	instances cmap.ConcurrentMap[string, *Instance]
	tasks     *taskRunner
	metrics   *hostMetrics
	tel       *telemetry
	seq       atomic.Uint64

	midiQueueCapacity int
	taskWorkers       int
}

// Option configures a Host.
type Option func(*Host)

// WithMIDIQueueCapacity overrides the per-instance MIDI queue capacity.
func WithMIDIQueueCapacity(capacity int) Option {
	return func(h *Host) { h.midiQueueCapacity = capacity }
}

// WithTaskWorkers overrides the background task pool size.
func WithTaskWorkers(n int) Option {
	return func(h *Host) { h.taskWorkers = n }
}

// New builds a Host.
func New(opts ...Option) (*Host, error) {
	h := &Host{
		log:               logging.Default,
		instances:         cmap.New[*Instance](),
		metrics:           newHostMetrics(),
		tel:               newTelemetry(),
		midiQueueCapacity: midi.DefaultQueueCapacity,
		taskWorkers:       defaultTaskWorkers,
	}
	for _, opt := range opts {
		opt(h)
	}
	tasks, err := newTaskRunner(h.taskWorkers)
	if err != nil {
		return nil, fmt.Errorf("task runner: %w", err)
	}
	h.tasks = tasks
	return h, nil
}

// Open instantiates the plugin a descriptor identifies and registers
// the instance. This is the only point where an unresolvable identifier
// surfaces ErrNotFound; on any construction failure no instance is
// returned.
func (h *Host) Open(desc api.Descriptor) (*Instance, error) {
	factory, err := backend.Resolve(desc.Arch)
	if err != nil {
		return nil, err
	}
	adapter, err := factory(desc)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", desc, err)
	}
	return h.Adopt(desc, adapter), nil
}

// Adopt wraps an already-constructed adapter into a registered
// Instance. Open is the normal entry point; the backend conformance
// suites use Adopt to drive fake adapters through the full facade.
func (h *Host) Adopt(desc api.Descriptor, adapter backend.Adapter) *Instance {
	arch := desc.Arch.String()
	in := &Instance{
		host:    h,
		id:      fmt.Sprintf("%s#%d", desc.UniqueID, h.seq.Add(1)),
		desc:    desc,
		adapter: adapter,
		machine: lifecycle.New(),
		queue:   midi.NewQueue(h.midiQueueCapacity),
		blocks:  h.metrics.processBlocks.WithLabelValues(arch),
		frames:  h.metrics.framesProcessed.WithLabelValues(arch),
		fails:   h.metrics.processFailures.WithLabelValues(arch),
	}
	h.instances.Set(in.id, in)
	h.metrics.openInstances.WithLabelValues(arch).Inc()
	h.log.Debugf("opened %s as %s", desc, in.id)
	return in
}

func (h *Host) forget(in *Instance) {
	if h.instances.Has(in.id) {
		h.instances.Remove(in.id)
		h.metrics.openInstances.WithLabelValues(in.desc.Arch.String()).Dec()
	}
}

// Instance looks up a registered instance by its handle.
func (h *Host) Instance(id string) (*Instance, bool) {
	return h.instances.Get(id)
}

// InstanceCount returns the number of open instances.
func (h *Host) InstanceCount() int { return h.instances.Count() }

// Close tears down every remaining instance and releases the host's
// shared services. Instance teardown errors are logged, not returned:
// shutdown always completes.
func (h *Host) Close() {
	for _, in := range h.instances.Items() {
		if err := in.Close(); err != nil {
			h.log.Warnf("teardown: %v", err)
		}
	}
	h.tasks.Release()
}
