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
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audiorack/rackhost/api"
	"github.com/audiorack/rackhost/internal/backend"
	"github.com/audiorack/rackhost/pkg/param"
	"github.com/audiorack/rackhost/pkg/state"
)

// stubAdapter is a minimal backend.Adapter: stereo passthrough with one
// parameter and byte-slice state.
type stubAdapter struct {
	mu        sync.Mutex
	initFails int // countdown of Initialize calls that fail
	initCalls int
	closed    bool

	value  float64
	stateB []byte

	params  *param.Cache
	presets *state.Presets
}

func (s *stubAdapter) Arch() api.Architecture { return api.VST3 }

func (s *stubAdapter) Initialize(cfg backend.Config, onRollback func(func())) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initCalls++
	if s.initFails > 0 {
		s.initFails--
		return &api.NativeError{Arch: api.VST3, Status: 42}
	}
	s.params = param.Build(stubParams{s})
	s.presets = state.NewPresets([]api.PresetInfo{{Name: "Init"}}, nil, nil, s.params)
	return nil
}

func (s *stubAdapter) InputChannels() int  { return 2 }
func (s *stubAdapter) OutputChannels() int { return 2 }
func (s *stubAdapter) Reset() error        { return nil }

func (s *stubAdapter) Process(b *backend.Block) error {
	for ch := range b.Outputs {
		copy(b.Outputs[ch][:b.Frames], b.Inputs[ch][:b.Frames])
	}
	return nil
}

func (s *stubAdapter) Params() *param.Cache    { return s.params }
func (s *stubAdapter) Presets() *state.Presets { return s.presets }

func (s *stubAdapter) GetState() ([]byte, error) { return append([]byte(nil), s.stateB...), nil }
func (s *stubAdapter) SetState(data []byte) error {
	s.stateB = append([]byte(nil), data...)
	return nil
}

func (s *stubAdapter) OpenView(cb api.GUICallback) { cb(nil, api.ErrGUIUnsupported) }

func (s *stubAdapter) Close() error {
	s.closed = true
	return nil
}

type stubParams struct{ s *stubAdapter }

func (p stubParams) ParameterCount() int { return 1 }

func (p stubParams) ParameterInfo(index int) (api.ParameterInfo, error) {
	if index != 0 {
		return api.ParameterInfo{}, api.ErrInvalidParam
	}
	return api.ParameterInfo{Name: "Level", Min: 0, Max: 1, Default: 1}, nil
}

func (p stubParams) GetParam(index int) (float64, error) {
	if index != 0 {
		return 0, api.ErrInvalidParam
	}
	return p.s.value, nil
}

func (p stubParams) SetParam(index int, value float64) error {
	if index != 0 {
		return api.ErrInvalidParam
	}
	p.s.value = value
	return nil
}

func stubDescriptor() api.Descriptor {
	return api.Descriptor{
		Name:         "Stub",
		Manufacturer: "Tests",
		Version:      1,
		UniqueID:     "stub-uid",
		Arch:         api.VST3,
	}
}

func newTestHost(t *testing.T) *Host {
	t.Helper()
	h, err := New()
	require.NoError(t, err)
	t.Cleanup(h.Close)
	return h
}

func TestOpenUnknownArchitecture(t *testing.T) {
	h := newTestHost(t)
	_, err := h.Open(api.Descriptor{UniqueID: "x", Arch: api.Architecture(99)})
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestRegistryTracksInstances(t *testing.T) {
	h := newTestHost(t)

	a := h.Adopt(stubDescriptor(), &stubAdapter{})
	b := h.Adopt(stubDescriptor(), &stubAdapter{})
	assert.Equal(t, 2, h.InstanceCount())
	assert.NotEqual(t, a.ID(), b.ID(), "each instance gets its own registry handle")

	got, ok := h.Instance(a.ID())
	require.True(t, ok)
	assert.Same(t, a, got)

	require.NoError(t, a.Close())
	assert.Equal(t, 1, h.InstanceCount())
	_, ok = h.Instance(a.ID())
	assert.False(t, ok)
}

func TestHostCloseTearsDownInstances(t *testing.T) {
	h, err := New()
	require.NoError(t, err)

	stub := &stubAdapter{}
	h.Adopt(stubDescriptor(), stub)
	h.Close()
	assert.True(t, stub.closed)
	assert.Zero(t, h.InstanceCount())
}

func TestSamplePositionAdvances(t *testing.T) {
	h := newTestHost(t)
	in := h.Adopt(stubDescriptor(), &stubAdapter{})
	require.NoError(t, in.Initialize(48000, 256))

	inputs := make([][]float32, 2)
	outputs := make([][]float32, 2)
	for ch := range inputs {
		inputs[ch] = make([]float32, 256)
		outputs[ch] = make([]float32, 256)
	}

	require.NoError(t, in.Process(inputs, outputs, 256))
	require.NoError(t, in.Process(inputs, outputs, 100))
	assert.Equal(t, int64(356), in.SamplePosition())

	// Failed calls must not advance the timeline.
	require.Error(t, in.Process(inputs, outputs, 300))
	assert.Equal(t, int64(356), in.SamplePosition())
}

func TestMetricsCountProcessCalls(t *testing.T) {
	h := newTestHost(t)
	in := h.Adopt(stubDescriptor(), &stubAdapter{})
	require.NoError(t, in.Initialize(48000, 128))

	inputs := [][]float32{make([]float32, 128), make([]float32, 128)}
	outputs := [][]float32{make([]float32, 128), make([]float32, 128)}
	require.NoError(t, in.Process(inputs, outputs, 128))
	require.NoError(t, in.Process(inputs, outputs, 64))

	families, err := h.MetricsGatherer().Gather()
	require.NoError(t, err)

	assert.Equal(t, 2.0, metricValue(t, families, "rackhost_process_blocks_total"))
	assert.Equal(t, 192.0, metricValue(t, families, "rackhost_frames_processed_total"))
	assert.Equal(t, 1.0, metricValue(t, families, "rackhost_open_instances"))
}

func TestMetricsCountInitFailures(t *testing.T) {
	h := newTestHost(t)
	in := h.Adopt(stubDescriptor(), &stubAdapter{initFails: 1})

	require.Error(t, in.Initialize(48000, 128))
	families, err := h.MetricsGatherer().Gather()
	require.NoError(t, err)
	assert.Equal(t, 1.0, metricValue(t, families, "rackhost_initialize_failures_total"))
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string) float64 {
	t.Helper()
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		var total float64
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				total += c.GetValue()
			}
			if g := m.GetGauge(); g != nil {
				total += g.GetValue()
			}
		}
		return total
	}
	t.Fatalf("metric family %q not found", name)
	return 0
}

func TestRetryInitializeEventuallySucceeds(t *testing.T) {
	h := newTestHost(t)
	stub := &stubAdapter{initFails: 2}
	in := h.Adopt(stubDescriptor(), stub)

	require.NoError(t, RetryInitialize(in, 48000, 256, 5*time.Second))
	assert.True(t, in.IsInitialized())
	assert.Equal(t, 3, stub.initCalls)
}

func TestRetryInitializeAbortsOnPermanentError(t *testing.T) {
	h := newTestHost(t)
	in := h.Adopt(stubDescriptor(), &stubAdapter{})

	err := RetryInitialize(in, -1, 256, time.Second)
	assert.ErrorIs(t, err, api.ErrInvalidParam)
	assert.False(t, in.IsInitialized())
}

func TestCommandQueueDrainsOnOwnerThread(t *testing.T) {
	q := NewCommandQueue(8)
	defer q.Close()

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		require.NoError(t, q.Submit(func() { order = append(order, i) }))
	}

	assert.Equal(t, 3, q.Drain(3))
	assert.Equal(t, []int{0, 1, 2}, order, "commands run in submission order")
	assert.Equal(t, 2, q.Drain(100))
	assert.Zero(t, q.Drain(10), "drain on an empty queue returns immediately")

	assert.Error(t, q.Submit(nil))
}

func TestHealthEndpointsServe(t *testing.T) {
	h := newTestHost(t)
	handler := h.Health()

	rec := httptest.NewRecorder()
	handler.LiveEndpoint(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Readiness degrades when no native backend is registered in the
	// test binary, which is expected; the endpoint must still serve.
	rec = httptest.NewRecorder()
	handler.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Contains(t, []int{http.StatusOK, http.StatusServiceUnavailable}, rec.Code)
}

func TestDiagnosticsSnapshot(t *testing.T) {
	h := newTestHost(t)
	h.Adopt(stubDescriptor(), &stubAdapter{})

	d, err := h.Diagnostics()
	require.NoError(t, err)
	assert.Equal(t, 1, d.OpenInstances)
	assert.NotEmpty(t, fmt.Sprint(d))
}

func TestOpenViewRunsOnTaskRunner(t *testing.T) {
	h := newTestHost(t)
	in := h.Adopt(stubDescriptor(), &stubAdapter{})

	done := make(chan error, 1)
	in.OpenView(func(v api.GUIView, err error) { done <- err })

	select {
	case err := <-done:
		assert.ErrorIs(t, err, api.ErrGUIUnsupported)
	case <-time.After(2 * time.Second):
		t.Fatal("view callback never delivered")
	}
}
