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

package state

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audiorack/rackhost/api"
	"github.com/audiorack/rackhost/pkg/param"
)

type fakeProgramLoader struct {
	loaded []int32
	err    error
}

func (f *fakeProgramLoader) LoadProgram(number int32) error {
	if f.err != nil {
		return f.err
	}
	f.loaded = append(f.loaded, number)
	return nil
}

type fakeUnitSelector struct {
	selected []int32
	err      error
}

func (f *fakeUnitSelector) SelectPresetUnit(number int32) error {
	if f.err != nil {
		return f.err
	}
	f.selected = append(f.selected, number)
	return nil
}

// paramSource is a minimal param.Source for the selector heuristic.
type paramSource struct {
	infos  []api.ParameterInfo
	values []float64
}

func (p *paramSource) ParameterCount() int { return len(p.infos) }

func (p *paramSource) ParameterInfo(index int) (api.ParameterInfo, error) {
	if index < 0 || index >= len(p.infos) {
		return api.ParameterInfo{}, api.ErrInvalidParam
	}
	return p.infos[index], nil
}

func (p *paramSource) GetParam(index int) (float64, error) {
	if index < 0 || index >= len(p.values) {
		return 0, api.ErrInvalidParam
	}
	return p.values[index], nil
}

func (p *paramSource) SetParam(index int, value float64) error {
	if index < 0 || index >= len(p.values) {
		return api.ErrInvalidParam
	}
	p.values[index] = value
	return nil
}

func testPresetInfos() []api.PresetInfo {
	return []api.PresetInfo{
		{Index: 0, Name: "Init", Number: 10},
		{Index: 1, Name: "Big Hall", Number: 11},
		{Index: 2, Name: "Small Room", Number: 12},
	}
}

func TestPresetsInfoAndCount(t *testing.T) {
	p := NewPresets(testPresetInfos(), nil, nil, nil)
	assert.Equal(t, 3, p.Count())

	info, err := p.Info(1)
	require.NoError(t, err)
	assert.Equal(t, "Big Hall", info.Name)

	_, err = p.Info(3)
	assert.ErrorIs(t, err, api.ErrInvalidParam)
	_, err = p.Info(-1)
	assert.ErrorIs(t, err, api.ErrInvalidParam)
}

func TestLoadDirectAPI(t *testing.T) {
	loader := &fakeProgramLoader{}
	p := NewPresets(testPresetInfos(), loader, nil, nil)

	require.NoError(t, p.Load(2))
	assert.Equal(t, []int32{12}, loader.loaded)
}

func TestLoadFallsBackToFlaggedParameter(t *testing.T) {
	src := &paramSource{
		infos: []api.ParameterInfo{
			{Index: 0, Name: "Gain", Min: 0, Max: 1},
			{Index: 1, Name: "Selector", Min: 0, Max: 2, StepCount: 2, ProgramList: true},
		},
		values: make([]float64, 2),
	}
	cache := param.Build(src)
	p := NewPresets(testPresetInfos(), &fakeProgramLoader{err: fmt.Errorf("no program api")}, nil, cache)

	require.NoError(t, p.Load(2))
	// Selector driven by normalized index over step count: 2/2 -> native 2.
	assert.InDelta(t, 2.0, src.values[1], 1e-6)
}

func TestLoadFallsBackToNamedParameter(t *testing.T) {
	src := &paramSource{
		infos: []api.ParameterInfo{
			{Index: 0, Name: "Programme Level", Min: 0, Max: 1, StepCount: 4}, // no whole-word match
			{Index: 1, Name: "Program Select", Min: 0, Max: 4, StepCount: 4},
		},
		values: make([]float64, 2),
	}
	cache := param.Build(src)
	p := NewPresets(testPresetInfos(), nil, nil, cache)

	require.NoError(t, p.Load(1))
	assert.Zero(t, src.values[0], "substring matches must not select a parameter")
	assert.InDelta(t, 1.0, src.values[1], 1e-6) // 1/4 normalized over [0,4]
}

func TestLoadFallsBackToUnitSelection(t *testing.T) {
	selector := &fakeUnitSelector{}
	p := NewPresets(testPresetInfos(), &fakeProgramLoader{err: fmt.Errorf("nope")}, selector, nil)

	require.NoError(t, p.Load(0))
	assert.Equal(t, []int32{10}, selector.selected)
}

func TestLoadNotLoadable(t *testing.T) {
	// No loader, no selector param, no unit selector.
	src := &paramSource{
		infos:  []api.ParameterInfo{{Index: 0, Name: "Gain", Min: 0, Max: 1}},
		values: make([]float64, 1),
	}
	p := NewPresets(testPresetInfos(), nil, &fakeUnitSelector{err: fmt.Errorf("no units")}, param.Build(src))

	err := p.Load(0)
	assert.ErrorIs(t, err, api.ErrPresetNotLoadable)
}

func TestHasSelectorName(t *testing.T) {
	assert.True(t, hasSelectorName("Program"))
	assert.True(t, hasSelectorName("preset select"))
	assert.True(t, hasSelectorName("Patch #"))
	assert.True(t, hasSelectorName("current-program"))
	assert.False(t, hasSelectorName("Programme"))
	assert.False(t, hasSelectorName("dispatch"))
	assert.False(t, hasSelectorName("Gain"))
}
