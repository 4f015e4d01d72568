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

package param

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audiorack/rackhost/api"
)

// fakeSource is an in-memory parameter table with native ranges.
type fakeSource struct {
	infos      []api.ParameterInfo
	values     []float64
	failInfoAt int // index whose descriptor query fails, -1 for none
	infoCalls  int
}

func newFakeSource(infos []api.ParameterInfo) *fakeSource {
	values := make([]float64, len(infos))
	for i, info := range infos {
		values[i] = float64(info.Default)
	}
	return &fakeSource{infos: infos, values: values, failInfoAt: -1}
}

func (f *fakeSource) ParameterCount() int { return len(f.infos) }

func (f *fakeSource) ParameterInfo(index int) (api.ParameterInfo, error) {
	f.infoCalls++
	if index == f.failInfoAt {
		return api.ParameterInfo{}, fmt.Errorf("native query failed")
	}
	if index < 0 || index >= len(f.infos) {
		return api.ParameterInfo{}, api.ErrInvalidParam
	}
	return f.infos[index], nil
}

func (f *fakeSource) GetParam(index int) (float64, error) {
	if index < 0 || index >= len(f.values) {
		return 0, api.ErrInvalidParam
	}
	return f.values[index], nil
}

func (f *fakeSource) SetParam(index int, value float64) error {
	if index < 0 || index >= len(f.values) {
		return api.ErrInvalidParam
	}
	f.values[index] = value
	return nil
}

func testInfos() []api.ParameterInfo {
	return []api.ParameterInfo{
		{Index: 0, Name: "Gain", Unit: "dB", Min: -60, Max: 12, Default: 0},
		{Index: 1, Name: "Mix", Unit: "%", Min: 0, Max: 100, Default: 50},
		{Index: 2, Name: "Bypass", Min: 0, Max: 1, Default: 0, StepCount: 1},
		{Index: 3, Name: "Stuck", Min: 5, Max: 5, Default: 5}, // degenerate range
	}
}

func TestNormalizeDenormalize(t *testing.T) {
	tests := []struct {
		native, min, max float64
		want             float32
	}{
		{-60, -60, 12, 0},
		{12, -60, 12, 1},
		{-24, -60, 12, 0.5},
		{50, 0, 100, 0.5},
		{200, 0, 100, 1},   // above range clamps
		{-10, 0, 100, 0},   // below range clamps
		{5, 5, 5, 0},       // degenerate span guard
		{1, 1, 1.0000001, 0}, // near-degenerate span guard
	}
	for _, tt := range tests {
		got := Normalize(tt.native, tt.min, tt.max)
		assert.InDelta(t, tt.want, got, 1e-6, "Normalize(%v, %v, %v)", tt.native, tt.min, tt.max)
	}

	assert.InDelta(t, -24.0, Denormalize(0.5, -60, 12), 1e-9)
	assert.InDelta(t, -60.0, Denormalize(-3, -60, 12), 1e-9) // clamped before transform
	assert.InDelta(t, 12.0, Denormalize(7, -60, 12), 1e-9)
}

func TestCacheSetGetRoundTrip(t *testing.T) {
	src := newFakeSource(testInfos())
	cache := Build(src)
	require.False(t, cache.Degraded())
	require.Equal(t, 4, cache.Count())

	for _, v := range []float32{0, 0.1, 0.25, 0.5, 0.75, 1} {
		require.NoError(t, cache.Set(0, v))
		got, err := cache.Get(0)
		require.NoError(t, err)
		assert.InDelta(t, v, got, 1e-6)
	}

	// Idempotent clamp law: out-of-range sets behave as the nearest bound.
	require.NoError(t, cache.Set(1, 1.5))
	got, err := cache.Get(1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-6)
	assert.InDelta(t, 100.0, src.values[1], 1e-6)

	require.NoError(t, cache.Set(1, -0.5))
	got, err = cache.Get(1)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, got, 1e-6)
}

func TestCacheDegenerateRange(t *testing.T) {
	src := newFakeSource(testInfos())
	cache := Build(src)

	got, err := cache.Get(3)
	require.NoError(t, err)
	assert.Equal(t, float32(0), got)
}

func TestCacheIndexValidation(t *testing.T) {
	src := newFakeSource(testInfos())
	cache := Build(src)

	_, err := cache.Get(4)
	assert.ErrorIs(t, err, api.ErrInvalidParam)
	_, err = cache.Get(-1)
	assert.ErrorIs(t, err, api.ErrInvalidParam)
	err = cache.Set(4, 0.5)
	assert.ErrorIs(t, err, api.ErrInvalidParam)
	_, err = cache.Describe(4)
	assert.ErrorIs(t, err, api.ErrInvalidParam)
}

func TestCacheInvalidatesWhollyOnBuildFailure(t *testing.T) {
	src := newFakeSource(testInfos())
	src.failInfoAt = 2
	cache := Build(src)
	require.True(t, cache.Degraded())

	// Parameters before the failure point still work, via live queries.
	// Gain sits at its native default 0 over [-60,12], normalized 60/72.
	src.failInfoAt = -1
	src.infoCalls = 0
	got, err := cache.Get(0)
	require.NoError(t, err)
	assert.InDelta(t, float32(60.0/72.0), got, 1e-6)
	assert.Greater(t, src.infoCalls, 0, "degraded cache must query live")

	info, err := cache.Describe(1)
	require.NoError(t, err)
	assert.Equal(t, "Mix", info.Name)
}

func TestDescribeSanity(t *testing.T) {
	src := newFakeSource(testInfos())
	cache := Build(src)

	info, err := cache.Describe(0)
	require.NoError(t, err)
	assert.NotEmpty(t, info.Name)
	assert.LessOrEqual(t, info.Min, info.Default)
	assert.LessOrEqual(t, info.Default, info.Max)
}

func TestCachePropagatesSourceErrors(t *testing.T) {
	src := newFakeSource(testInfos())
	cache := Build(src)
	src.values = src.values[:1] // simulate backend failure for higher indices

	_, err := cache.Get(2)
	assert.True(t, errors.Is(err, api.ErrInvalidParam))
}
