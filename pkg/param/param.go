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

// Package param maps native plugin parameter spaces onto the stable
// {index -> normalized [0,1]} space exposed to callers.
package param

import (
	"fmt"

	"github.com/audiorack/rackhost/api"
	"github.com/audiorack/rackhost/internal/logging"
)

// degenerateSpan guards the linear mapping against zero-or-near-zero
// native ranges; below it Normalize returns 0 instead of dividing by a
// degenerate span.
const degenerateSpan = 1e-6

// Source is the backend-side view of a plugin's native parameters.
// Values flow through Source in native units; normalization happens
// here.
type Source interface {
	ParameterCount() int
	ParameterInfo(index int) (api.ParameterInfo, error)
	GetParam(index int) (float64, error)
	SetParam(index int, value float64) error
}

// Clamp limits v to [0,1].
func Clamp(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Normalize maps a native value into [0,1] over [min,max], clamped.
func Normalize(native, min, max float64) float32 {
	span := max - min
	if span < degenerateSpan {
		return 0
	}
	return Clamp(float32((native - min) / span))
}

// Denormalize maps a normalized value (clamped to [0,1] first) back to
// native units.
func Denormalize(normalized float32, min, max float64) float64 {
	return min + float64(Clamp(normalized))*(max-min)
}

// Cache is the read-mostly parameter table built once at initialize.
// If caching fails for any parameter the cache is invalidated as a
// whole and every access falls back to a live per-call query:
// correctness over speed on the degraded path.
type Cache struct {
	src      Source
	count    int
	infos    []api.ParameterInfo
	degraded bool
	log      *logging.Logger
}

// Build queries every parameter descriptor from src and caches them.
// Never returns an error: a failed build yields a degraded cache.
func Build(src Source) *Cache {
	c := &Cache{src: src, log: logging.Default}
	c.count = src.ParameterCount()
	infos := make([]api.ParameterInfo, c.count)
	for i := 0; i < c.count; i++ {
		info, err := src.ParameterInfo(i)
		if err != nil {
			// Partially trusted caches are worse than no cache.
			c.degraded = true
			c.log.Warnf("parameter cache invalidated: descriptor %d: %v", i, err)
			return c
		}
		infos[i] = info
	}
	c.infos = infos
	return c
}

// Count returns the number of parameters.
func (c *Cache) Count() int { return c.count }

// Degraded reports whether the cache fell back to live queries.
func (c *Cache) Degraded() bool { return c.degraded }

// Describe returns the descriptor for index.
func (c *Cache) Describe(index int) (api.ParameterInfo, error) {
	if index < 0 || index >= c.count {
		return api.ParameterInfo{}, fmt.Errorf("%w: parameter index %d out of range [0,%d)",
			api.ErrInvalidParam, index, c.count)
	}
	if c.degraded {
		return c.src.ParameterInfo(index)
	}
	return c.infos[index], nil
}

// Get returns the normalized value of the parameter at index.
func (c *Cache) Get(index int) (float32, error) {
	info, err := c.Describe(index)
	if err != nil {
		return 0, err
	}
	native, err := c.src.GetParam(index)
	if err != nil {
		return 0, err
	}
	return Normalize(native, float64(info.Min), float64(info.Max)), nil
}

// Set writes a normalized value to the parameter at index. Out-of-range
// values clamp to the nearest bound. Permitted during active audio
// processing, though potentially audible since it bypasses the
// plugin's own smoothing of UI-driven changes.
func (c *Cache) Set(index int, normalized float32) error {
	info, err := c.Describe(index)
	if err != nil {
		return err
	}
	return c.src.SetParam(index, Denormalize(normalized, float64(info.Min), float64(info.Max)))
}
