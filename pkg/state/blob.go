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

// Package state serializes plugin state to opaque byte blobs and loads
// factory presets, including the fallback chain for plugins without a
// direct preset API.
//
// Architectures whose whole state lives in the engine produce bare
// blobs: the native bytes pass through untouched. Architectures that
// keep engine and controller state separate get a 12-byte trailer:
//
//	engine_bytes ‖ controller_bytes ‖ u32le(len(engine)) ‖ u32le(len(controller)) ‖ "RKS1"
//
// The trailer is validated on decode (magic match and the two lengths
// summing to the payload size), so native payloads are never
// misidentified as sectioned blobs.
package state

import (
	"encoding/binary"
	"fmt"

	"github.com/valyala/bytebufferpool"

	"github.com/audiorack/rackhost/api"
)

const (
	blobMagic   = "RKS1"
	trailerSize = 8 + len(blobMagic)
)

// Source produces one native sub-state using the two-step size-then-fill
// protocol: some architectures don't know the serialized size until
// asked, and only then fill a caller-sized buffer.
type Source interface {
	// StateSize returns the exact byte size of the serialized state.
	StateSize() (int, error)
	// FillState writes the state into dst, which has exactly the size
	// returned by the preceding StateSize call.
	FillState(dst []byte) error
}

// Sink restores one native sub-state from its serialized bytes.
type Sink interface {
	ApplyState(data []byte) error
}

// Encode concatenates engine and controller sections into one blob.
// A nil controller section produces a bare engine blob with no trailer.
func Encode(engine, controller []byte) []byte {
	if controller == nil {
		out := make([]byte, len(engine))
		copy(out, engine)
		return out
	}
	out := make([]byte, 0, len(engine)+len(controller)+trailerSize)
	out = append(out, engine...)
	out = append(out, controller...)
	return appendTrailer(out, len(engine), len(controller))
}

func appendTrailer(out []byte, engineLen, controllerLen int) []byte {
	out = binary.LittleEndian.AppendUint32(out, uint32(engineLen))
	out = binary.LittleEndian.AppendUint32(out, uint32(controllerLen))
	return append(out, blobMagic...)
}

// Decode splits a blob into its engine and controller sections. The
// returned slices alias blob. A nil controller means no valid trailer
// is present and the blob is engine-only. The trailer must carry the
// magic and two section lengths that exactly account for the payload;
// anything else is treated as opaque engine bytes.
func Decode(blob []byte) (engine, controller []byte) {
	t := len(blob) - trailerSize
	if t < 0 || string(blob[len(blob)-len(blobMagic):]) != blobMagic {
		return blob, nil
	}
	engineLen := binary.LittleEndian.Uint32(blob[t : t+4])
	controllerLen := binary.LittleEndian.Uint32(blob[t+4 : t+8])
	if uint64(engineLen)+uint64(controllerLen) != uint64(t) {
		return blob, nil
	}
	return blob[:engineLen], blob[engineLen:t]
}

// Snapshot captures full plugin state into one opaque blob. controller
// is nil for architectures whose whole state lives in the engine.
func Snapshot(engine, controller Source) ([]byte, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if err := fill(buf, engine); err != nil {
		return nil, fmt.Errorf("engine state: %w", err)
	}
	if controller == nil {
		out := make([]byte, len(buf.B))
		copy(out, buf.B)
		return out, nil
	}

	engineLen := len(buf.B)
	if err := fill(buf, controller); err != nil {
		return nil, fmt.Errorf("controller state: %w", err)
	}
	controllerLen := len(buf.B) - engineLen
	buf.B = appendTrailer(buf.B, engineLen, controllerLen)

	out := make([]byte, len(buf.B))
	copy(out, buf.B)
	return out, nil
}

// fill appends one source's state to buf using size-then-fill.
func fill(buf *bytebufferpool.ByteBuffer, src Source) error {
	size, err := src.StateSize()
	if err != nil {
		return err
	}
	if size < 0 {
		return fmt.Errorf("%w: negative state size %d", api.ErrGeneric, size)
	}
	off := len(buf.B)
	if need := off + size; cap(buf.B) < need {
		grown := make([]byte, need)
		copy(grown, buf.B)
		buf.B = grown
	} else {
		buf.B = buf.B[:need]
	}
	return src.FillState(buf.B[off:])
}

// Restore applies a blob captured by Snapshot. Instances without a
// separate controller never wrote a trailer, so their blobs go to the
// engine verbatim; sectioned blobs restored into such an instance are
// the plugin's problem to reject. When the instance has a controller
// but the blob is engine-only, controller restoration is skipped.
func Restore(blob []byte, engine, controller Sink) error {
	if len(blob) == 0 {
		return fmt.Errorf("%w: empty state blob", api.ErrInvalidParam)
	}
	if controller == nil {
		if err := engine.ApplyState(blob); err != nil {
			return fmt.Errorf("engine state: %w", err)
		}
		return nil
	}
	engineBytes, controllerBytes := Decode(blob)
	if err := engine.ApplyState(engineBytes); err != nil {
		return fmt.Errorf("engine state: %w", err)
	}
	if controllerBytes == nil {
		return nil
	}
	if err := controller.ApplyState(controllerBytes); err != nil {
		return fmt.Errorf("controller state: %w", err)
	}
	return nil
}
