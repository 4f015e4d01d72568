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

	"github.com/heptiolabs/healthcheck"

	"github.com/audiorack/rackhost/api"
	"github.com/audiorack/rackhost/internal/backend"
)

// Health builds an HTTP health handler for hosts embedded in long-lived
// services. Liveness guards against goroutine leaks from runaway view
// callbacks; readiness reports which plugin architectures this build
// can actually serve.
func (h *Host) Health() healthcheck.Handler {
	handler := healthcheck.NewHandler()
	handler.AddLivenessCheck("goroutine-count", healthcheck.GoroutineCountCheck(512))

	for _, arch := range []api.Architecture{api.VST3, api.AudioUnit} {
		arch := arch
		handler.AddReadinessCheck(arch.String()+"-backend", func() error {
			_, err := backend.Resolve(arch)
			return err
		})
	}

	handler.AddReadinessCheck("instance-registry", func() error {
		if n := h.instances.Count(); n > maxHealthyInstances {
			return fmt.Errorf("%d open instances exceeds the healthy bound %d", n, maxHealthyInstances)
		}
		return nil
	})
	return handler
}

// maxHealthyInstances is the registry size above which readiness
// reports degradation. Hitting it means instances are leaking, not
// that the host is at capacity.
const maxHealthyInstances = 256
