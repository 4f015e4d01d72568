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

package audio

// Interleave packs planar channel buffers into dst as
// [ch0[0] ch1[0] ... chN[0] ch0[1] ...]. dst must hold at least
// frames*len(src) samples. The frame loop is unrolled 4-wide with a
// scalar tail; block sizes are typically multiples of 4 so the tail is
// rarely taken.
func Interleave(dst []float32, src [][]float32, frames int) {
	channels := len(src)
	switch channels {
	case 1:
		copy(dst[:frames], src[0][:frames])
		return
	case 2:
		interleaveStereo(dst, src[0], src[1], frames)
		return
	}

	for ch := 0; ch < channels; ch++ {
		in := src[ch][:frames]
		j := ch
		i := 0
		for ; i+4 <= frames; i += 4 {
			dst[j] = in[i]
			dst[j+channels] = in[i+1]
			dst[j+2*channels] = in[i+2]
			dst[j+3*channels] = in[i+3]
			j += 4 * channels
		}
		for ; i < frames; i++ {
			dst[j] = in[i]
			j += channels
		}
	}
}

// Deinterleave unpacks interleaved src into planar dst channel buffers.
// src must hold at least frames*len(dst) samples.
func Deinterleave(dst [][]float32, src []float32, frames int) {
	channels := len(dst)
	switch channels {
	case 1:
		copy(dst[0][:frames], src[:frames])
		return
	case 2:
		deinterleaveStereo(dst[0], dst[1], src, frames)
		return
	}

	for ch := 0; ch < channels; ch++ {
		out := dst[ch][:frames]
		j := ch
		i := 0
		for ; i+4 <= frames; i += 4 {
			out[i] = src[j]
			out[i+1] = src[j+channels]
			out[i+2] = src[j+2*channels]
			out[i+3] = src[j+3*channels]
			j += 4 * channels
		}
		for ; i < frames; i++ {
			out[i] = src[j]
			j += channels
		}
	}
}

// Stereo is the overwhelmingly common case; dedicated loops keep both
// channels in one pass over dst.
func interleaveStereo(dst, left, right []float32, frames int) {
	l := left[:frames]
	r := right[:frames]
	i := 0
	j := 0
	for ; i+4 <= frames; i += 4 {
		dst[j] = l[i]
		dst[j+1] = r[i]
		dst[j+2] = l[i+1]
		dst[j+3] = r[i+1]
		dst[j+4] = l[i+2]
		dst[j+5] = r[i+2]
		dst[j+6] = l[i+3]
		dst[j+7] = r[i+3]
		j += 8
	}
	for ; i < frames; i++ {
		dst[j] = l[i]
		dst[j+1] = r[i]
		j += 2
	}
}

func deinterleaveStereo(left, right, src []float32, frames int) {
	l := left[:frames]
	r := right[:frames]
	i := 0
	j := 0
	for ; i+4 <= frames; i += 4 {
		l[i] = src[j]
		r[i] = src[j+1]
		l[i+1] = src[j+2]
		r[i+1] = src[j+3]
		l[i+2] = src[j+4]
		r[i+2] = src[j+5]
		l[i+3] = src[j+6]
		r[i+3] = src[j+7]
		j += 8
	}
	for ; i < frames; i++ {
		l[i] = src[j]
		r[i] = src[j+1]
		j += 2
	}
}
