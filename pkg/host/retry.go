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
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/audiorack/rackhost/api"
)

// RetryInitialize retries a failed Initialize with exponential backoff.
// The adapter never retries on its own; a failed initialize rolls back
// and leaves the instance retryable, and this helper is the explicit
// caller-side policy for plugins that fail transiently on first load.
//
// Invalid-usage errors and plugin limitations are permanent and abort
// immediately.
func RetryInitialize(in api.Instance, sampleRate float64, maxBlockSize int, maxElapsed time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxElapsedTime = maxElapsed

	return backoff.Retry(func() error {
		err := in.Initialize(sampleRate, maxBlockSize)
		if err == nil {
			return nil
		}
		if errors.Is(err, api.ErrInvalidParam) || errors.Is(err, api.ErrNotFound) {
			return backoff.Permanent(err)
		}
		return err
	}, bo)
}
