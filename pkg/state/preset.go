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
	"strings"
	"unicode"

	"github.com/audiorack/rackhost/api"
	"github.com/audiorack/rackhost/internal/logging"
	"github.com/audiorack/rackhost/pkg/param"
)

// ProgramLoader is the direct native program/bank API, where the
// architecture offers one.
type ProgramLoader interface {
	LoadProgram(number int32) error
}

// UnitSelector selects a native unit/group that owns a preset. Last
// resort in the fallback chain; best effort.
type UnitSelector interface {
	SelectPresetUnit(number int32) error
}

// Presets holds the preset list enumerated once at initialize and
// applies presets through a three-stage fallback chain:
//
//  1. the direct native program API,
//  2. driving a parameter flagged (or named) as a program selector by
//     normalized index over step count,
//  3. selecting the native unit owning the preset.
//
// When no stage works the plugin simply has no programmatic preset
// path; LoadPreset reports ErrPresetNotLoadable rather than retrying.
type Presets struct {
	infos    []api.PresetInfo
	loader   ProgramLoader // nil when the architecture has no direct API
	selector UnitSelector  // nil when the architecture has no units
	params   *param.Cache
	log      *logging.Logger
}

// NewPresets builds the preset manager. loader and selector may be nil.
func NewPresets(infos []api.PresetInfo, loader ProgramLoader, selector UnitSelector, params *param.Cache) *Presets {
	return &Presets{
		infos:    infos,
		loader:   loader,
		selector: selector,
		params:   params,
		log:      logging.Default,
	}
}

// Count returns the number of enumerated presets.
func (p *Presets) Count() int { return len(p.infos) }

// Info returns the preset descriptor at index.
func (p *Presets) Info(index int) (api.PresetInfo, error) {
	if index < 0 || index >= len(p.infos) {
		return api.PresetInfo{}, fmt.Errorf("%w: preset index %d out of range [0,%d)",
			api.ErrInvalidParam, index, len(p.infos))
	}
	return p.infos[index], nil
}

// Load applies the preset at index via the fallback chain.
func (p *Presets) Load(index int) error {
	info, err := p.Info(index)
	if err != nil {
		return err
	}

	if p.loader != nil {
		err := p.loader.LoadProgram(info.Number)
		if err == nil {
			return nil
		}
		p.log.Debugf("direct program load failed for preset %d (%s): %v", index, info.Name, err)
	}

	if err := p.loadViaSelectorParam(index); err == nil {
		return nil
	}

	if p.selector != nil {
		err := p.selector.SelectPresetUnit(info.Number)
		if err == nil {
			return nil
		}
		p.log.Debugf("unit selection failed for preset %d (%s): %v", index, info.Name, err)
	}

	return fmt.Errorf("preset %d (%s): %w", index, info.Name, api.ErrPresetNotLoadable)
}

// loadViaSelectorParam scans the parameter list for a program selector
// and drives it by normalized index over step count. Heuristic and
// best-effort: on unusual plugins the name match may pick the wrong
// parameter.
func (p *Presets) loadViaSelectorParam(presetIndex int) error {
	if p.params == nil {
		return api.ErrPresetNotLoadable
	}
	for i := 0; i < p.params.Count(); i++ {
		info, err := p.params.Describe(i)
		if err != nil {
			continue
		}
		if !info.ProgramList && !hasSelectorName(info.Name) {
			continue
		}
		if info.StepCount <= 0 {
			continue
		}
		normalized := float32(presetIndex) / float32(info.StepCount)
		return p.params.Set(i, normalized)
	}
	return api.ErrPresetNotLoadable
}

// hasSelectorName reports whether a display name contains a whole-word
// "program", "preset" or "patch" token.
func hasSelectorName(name string) bool {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, f := range fields {
		switch f {
		case "program", "preset", "patch":
			return true
		}
	}
	return false
}
