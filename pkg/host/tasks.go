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
	"github.com/panjf2000/ants/v2"

	"github.com/audiorack/rackhost/internal/logging"
)

const defaultTaskWorkers = 4

// taskRunner runs non-realtime background work: asynchronous view
// creation, off-thread state snapshots. Backed by a bounded goroutine
// pool so a burst of GUI opens cannot fork unbounded goroutines.
type taskRunner struct {
	pool *ants.Pool
}

func newTaskRunner(workers int) (*taskRunner, error) {
	if workers <= 0 {
		workers = defaultTaskWorkers
	}
	pool, err := ants.NewPool(workers,
		ants.WithPanicHandler(func(v interface{}) {
			logging.Default.Errorf("background task panicked: %v", v)
		}))
	if err != nil {
		return nil, err
	}
	return &taskRunner{pool: pool}, nil
}

func (r *taskRunner) Submit(fn func()) error {
	return r.pool.Submit(fn)
}

func (r *taskRunner) Release() {
	r.pool.Release()
}
