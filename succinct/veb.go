/*
 * Copyright 2017 Dgraph Labs, Inc. and Contributors
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

package succinct

import (
	"encoding/binary"
	"unsafe"

	"github.com/pkg/errors"
)

// Macroblock geometry for the cache-oblivious packing of wavelet levels.
// The first MacroTopLevels levels are serialized inline; every remaining
// level starts at its own page-aligned macroblock.
const (
	MacroblockSize = 4096
	MacroTopLevels = 2
)

// ErrLevelOutOfRange is returned for a level index outside the layout.
var ErrLevelOutOfRange = errors.New("veb: level out of range")

// VebLayout packs wavelet-tree levels into a page-aligned byte buffer. Each
// serialized level is [n_bits u64 LE][packed words][super ranks][sub ranks],
// every array at its natural alignment. The buffer is self-contained and
// can be written to disk and reopened as a zero-copy mmap view.
//
// The ordering among bottom levels is a degenerate two-half split of the
// recursive van Emde Boas partition, which for a path of levels is the
// identity order. It is stable given the inputs, and LevelOffset is always
// consistent with the placed data.
type VebLayout struct {
	data    []byte
	offsets []int
	topK    int
}

// NewVebLayout serializes levels into macroblock order. topK ≤ len(levels)
// levels are inlined up front; the rest are page-aligned.
func NewVebLayout(levels []*BitVector, topK int) *VebLayout {
	if topK > len(levels) {
		topK = len(levels)
	}
	v := &VebLayout{offsets: make([]int, len(levels)), topK: topK}

	for l := 0; l < topK; l++ {
		v.align(8)
		v.offsets[l] = len(v.data)
		v.appendBitVector(levels[l])
	}
	for l := topK; l < len(levels); l++ {
		v.align(MacroblockSize)
		v.offsets[l] = len(v.data)
		v.appendBitVector(levels[l])
	}
	v.align(MacroblockSize)
	return v
}

func (v *VebLayout) align(to int) {
	if rem := len(v.data) % to; rem != 0 {
		v.data = append(v.data, make([]byte, to-rem)...)
	}
}

func (v *VebLayout) appendBitVector(bv *BitVector) {
	var scratch [8]byte
	binary.LittleEndian.PutUint64(scratch[:], uint64(bv.Size()))
	v.data = append(v.data, scratch[:]...)
	for _, w := range bv.Words() {
		binary.LittleEndian.PutUint64(scratch[:], w)
		v.data = append(v.data, scratch[:]...)
	}
	for _, s := range bv.SuperBlocks() {
		binary.LittleEndian.PutUint32(scratch[:4], s)
		v.data = append(v.data, scratch[:4]...)
	}
	for _, s := range bv.SubBlocks() {
		binary.LittleEndian.PutUint16(scratch[:2], s)
		v.data = append(v.data, scratch[:2]...)
	}
}

// OpenVebLayout wraps an existing serialized buffer, typically a view into
// a memory-mapped file. numLevels and topK must match the build
// configuration; offsets are recomputed from the per-level bit counts.
func OpenVebLayout(data []byte, numLevels, topK int) (*VebLayout, error) {
	if topK > numLevels {
		topK = numLevels
	}
	v := &VebLayout{data: data, offsets: make([]int, numLevels), topK: topK}

	off := 0
	advance := func(l int, align int) error {
		if rem := off % align; rem != 0 {
			off += align - rem
		}
		if off+8 > len(data) {
			return errors.Errorf("veb: truncated buffer at level %d", l)
		}
		v.offsets[l] = off
		nbits := int(binary.LittleEndian.Uint64(data[off:]))
		off += serializedBitVectorSize(nbits)
		if off > len(data) {
			return errors.Errorf("veb: truncated level %d", l)
		}
		return nil
	}
	for l := 0; l < topK; l++ {
		if err := advance(l, 8); err != nil {
			return nil, err
		}
	}
	for l := topK; l < numLevels; l++ {
		if err := advance(l, MacroblockSize); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func serializedBitVectorSize(nbits int) int {
	return 8 + 8*NumWords(nbits) + 4*NumSuperBlocks(nbits) + 2*NumSubBlocks(nbits)
}

// Data returns the packed buffer.
func (v *VebLayout) Data() []byte { return v.data }

// Size returns the buffer size in bytes, always a multiple of the
// macroblock size for freshly built layouts.
func (v *VebLayout) Size() int { return len(v.data) }

// NumLevels returns the number of packed levels.
func (v *VebLayout) NumLevels() int { return len(v.offsets) }

// LevelOffset returns the byte offset of level l's serialized header
// within the buffer. Bottom-level offsets are multiples of MacroblockSize.
func (v *VebLayout) LevelOffset(l int) (int, error) {
	if l < 0 || l >= len(v.offsets) {
		return 0, ErrLevelOutOfRange
	}
	return v.offsets[l], nil
}

// LevelView reconstructs level l as a BitVector without copying: the words
// and rank directories alias the layout buffer. The buffer must be 8-byte
// aligned in memory, which mmap and the Go allocator both guarantee.
func (v *VebLayout) LevelView(l int) (*BitVector, error) {
	off, err := v.LevelOffset(l)
	if err != nil {
		return nil, err
	}
	buf := v.data[off:]
	if len(buf) < 8 {
		return nil, errors.Errorf("veb: truncated level %d", l)
	}
	nbits := int(binary.LittleEndian.Uint64(buf))
	if serializedBitVectorSize(nbits) > len(buf) {
		return nil, errors.Errorf("veb: truncated level %d", l)
	}

	words := buf[8:]
	super := words[8*NumWords(nbits):]
	sub := super[4*NumSuperBlocks(nbits):]
	return NewBitVectorFromParts(
		U64Slice(words, NumWords(nbits)),
		U32Slice(super, NumSuperBlocks(nbits)),
		U16Slice(sub, NumSubBlocks(nbits)),
		nbits,
	), nil
}

// U64Slice reinterprets the first 8*n bytes of b as a []uint64. b must be
// 8-byte aligned; index sections and macroblocks keep that alignment by
// construction.
func U64Slice(b []byte, n int) []uint64 {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*uint64)(unsafe.Pointer(&b[0])), n)
}

// U32Slice reinterprets the first 4*n bytes of b as a []uint32.
func U32Slice(b []byte, n int) []uint32 {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&b[0])), n)
}

// U16Slice reinterprets the first 2*n bytes of b as a []uint16.
func U16Slice(b []byte, n int) []uint16 {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*uint16)(unsafe.Pointer(&b[0])), n)
}
