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

// Package audio implements the buffer bridge between the caller's
// planar float32 buffers and whatever layout a native plugin engine
// requires. It validates buffer geometry before any native call,
// aliases planar buffers for zero-copy coupling, and converts to and
// from interleaved layouts with batched 4-wide loops when the engine
// mandates interleaved memory.
package audio
