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
	"golang.org/x/sync/errgroup"
)

// NumWaveletLevels is the depth of the balanced binary wavelet tree over
// the byte alphabet: one level per bit, MSB first.
const NumWaveletLevels = 8

// WaveletTree answers Rank(c, i) and Access(i) over a byte sequence using
// one BitVector per bit position, level 0 holding the MSB. Each level has
// the same length as the input; level l+1 sees the level-l symbols stably
// partitioned into zeros-first, ones-second order.
type WaveletTree struct {
	n       int
	levels  [NumWaveletLevels]*BitVector
	learned [NumWaveletLevels]*LearnedBitVector
}

// NewWaveletTree builds the tree over seq. The rank directories of the
// eight levels are built concurrently; the partition sweep itself is
// sequential because each level feeds the next.
func NewWaveletTree(seq []byte) *WaveletTree {
	wt := &WaveletTree{n: len(seq)}

	var levelWords [NumWaveletLevels][]uint64
	cur := append([]byte(nil), seq...)
	next := make([]byte, len(seq))
	for level := 0; level < NumWaveletLevels; level++ {
		shift := uint(NumWaveletLevels - 1 - level)
		words := make([]uint64, NumWords(len(cur)))

		lo, hi := 0, 0
		for _, sym := range cur {
			if (sym>>shift)&1 == 0 {
				lo++
			} else {
				hi++
			}
		}
		hiStart := lo
		lo, hi = 0, hiStart
		for i, sym := range cur {
			if (sym>>shift)&1 == 0 {
				next[lo] = sym
				lo++
			} else {
				words[i/wordBits] |= 1 << uint(i%wordBits)
				next[hi] = sym
				hi++
			}
		}
		levelWords[level] = words
		cur, next = next, cur
	}

	var g errgroup.Group
	for level := 0; level < NumWaveletLevels; level++ {
		level := level
		g.Go(func() error {
			wt.levels[level] = NewBitVectorFromWords(levelWords[level], wt.n)
			return nil
		})
	}
	_ = g.Wait() // level builds cannot fail

	return wt
}

// NewWaveletTreeFromLevels wraps pre-built level bit vectors, typically
// zero-copy views into a memory-mapped index. All levels must have length n.
func NewWaveletTreeFromLevels(levels [NumWaveletLevels]*BitVector, n int) *WaveletTree {
	return &WaveletTree{n: n, levels: levels}
}

// EnableLearnedRank fits a LearnedBitVector per level, switching rank
// queries to the predicted path. Access keeps reading the packed words.
func (wt *WaveletTree) EnableLearnedRank(coarseStride, microStride int) {
	var g errgroup.Group
	for level := 0; level < NumWaveletLevels; level++ {
		level := level
		g.Go(func() error {
			bv := wt.levels[level]
			wt.learned[level] = NewLearnedBitVectorFromWords(
				bv.Words(), bv.Size(), coarseStride, microStride)
			return nil
		})
	}
	_ = g.Wait()
}

// LearnedRankEnabled reports whether the learned rank path is active.
func (wt *WaveletTree) LearnedRankEnabled() bool { return wt.learned[0] != nil }

// TailOverruns sums the bounded-tail overrun counters across levels.
// Always zero when learned rank is disabled.
func (wt *WaveletTree) TailOverruns() uint64 {
	var total uint64
	for _, lv := range wt.learned {
		if lv != nil {
			total += lv.TailOverruns()
		}
	}
	return total
}

// Size returns the sequence length.
func (wt *WaveletTree) Size() int { return wt.n }

// Level exposes the bit vector of one level for serialization.
func (wt *WaveletTree) Level(l int) *BitVector { return wt.levels[l] }

func (wt *WaveletTree) rank1At(level, i int) int {
	if lv := wt.learned[level]; lv != nil {
		return lv.Rank1(i)
	}
	return wt.levels[level].Rank1(i)
}

// Rank returns the number of occurrences of symbol c in seq[0, i). i is
// clamped to the sequence length.
func (wt *WaveletTree) Rank(c byte, i int) int {
	if i > wt.n {
		i = wt.n
	}
	if i <= 0 || wt.n == 0 {
		return 0
	}

	lo, hi := 0, i
	for level := 0; level < NumWaveletLevels; level++ {
		shift := uint(NumWaveletLevels - 1 - level)
		zeros := wt.levels[level].Zeros()
		if (c>>shift)&1 == 0 {
			lo -= wt.rank1At(level, lo)
			hi -= wt.rank1At(level, hi)
		} else {
			lo = zeros + wt.rank1At(level, lo)
			hi = zeros + wt.rank1At(level, hi)
		}
		if lo >= hi {
			return 0
		}
	}
	return hi - lo
}

// Access returns seq[i]. i must be within range.
func (wt *WaveletTree) Access(i int) byte {
	var sym byte
	pos := i
	for level := 0; level < NumWaveletLevels; level++ {
		bv := wt.levels[level]
		if bv.Get(pos) == 0 {
			pos -= bv.Rank1(pos)
		} else {
			sym |= 1 << uint(NumWaveletLevels-1-level)
			pos = bv.Zeros() + bv.Rank1(pos)
		}
	}
	return sym
}
