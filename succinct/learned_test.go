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
	"testing"

	"github.com/stretchr/testify/require"
)

// requireAgreement checks the learned structure against the plain directory
// at every position, which is the contract: prediction plus residual plus
// tail must be exact, never approximate.
func requireAgreement(t *testing.T, bits []byte, lv *LearnedBitVector) {
	t.Helper()
	bv := NewBitVector(bits)
	require.Equal(t, bv.Size(), lv.Size())
	require.Equal(t, bv.CountOnes(), lv.CountOnes())
	for i := 0; i <= len(bits)+10; i++ {
		require.Equal(t, bv.Rank1(i), lv.Rank1(i), "rank1(%d)", i)
	}
	for i := 0; i < len(bits); i++ {
		require.Equal(t, bv.Get(i), lv.Get(i), "get(%d)", i)
	}
}

func TestLearnedRandom(t *testing.T) {
	for _, seed := range []int64{1, 999, 12345} {
		bits := randomBits(5000, seed)
		requireAgreement(t, bits, NewLearnedBitVector(bits))
	}
}

func TestLearnedSkewed(t *testing.T) {
	n := 3000

	sparse := make([]byte, n)
	for i := 0; i < n; i += 97 {
		sparse[i] = 1
	}
	requireAgreement(t, sparse, NewLearnedBitVector(sparse))

	dense := make([]byte, n)
	for i := range dense {
		if i%97 != 0 {
			dense[i] = 1
		}
	}
	requireAgreement(t, dense, NewLearnedBitVector(dense))

	// Degenerate fits: constant rank forces the flat-line fallback.
	requireAgreement(t, make([]byte, n), NewLearnedBitVector(make([]byte, n)))

	ones := make([]byte, n)
	for i := range ones {
		ones[i] = 1
	}
	requireAgreement(t, ones, NewLearnedBitVector(ones))
}

func TestLearnedStrideBoundaries(t *testing.T) {
	// Lengths around the coarse stride, where the sample set degenerates.
	for _, n := range []int{1, 31, 32, 33, 511, 512, 513, 1024, 1025} {
		bits := randomBits(n, int64(n))
		requireAgreement(t, bits, NewLearnedBitVector(bits))
	}
}

func TestLearnedEmpty(t *testing.T) {
	lv := NewLearnedBitVector(nil)
	require.Equal(t, 0, lv.Size())
	require.Equal(t, 0, lv.Rank1(0))
	require.Equal(t, 0, lv.Rank1(100))
	require.Equal(t, 0, lv.CountOnes())
}

func TestLearnedBoundedTail(t *testing.T) {
	bits := randomBits(8192, 11)
	lv := NewLearnedBitVector(bits)

	for i := 0; i <= len(bits); i++ {
		lv.Rank1(i)
	}
	// The default 32-bit micro stride spans at most two words.
	require.Equal(t, uint64(0), lv.TailOverruns())
}

func TestLearnedTailOverrunFallback(t *testing.T) {
	// A 512-bit micro stride forces tails wider than the bound; answers
	// must stay exact and the overrun must be observable.
	bits := randomBits(4096, 23)
	bv := NewBitVector(bits)
	words := make([]uint64, NumWords(len(bits)))
	copy(words, bv.Words())
	lv := NewLearnedBitVectorFromWords(words, len(bits), 1024, 512)

	for i := 0; i <= len(bits); i++ {
		require.Equal(t, bv.Rank1(i), lv.Rank1(i), "rank1(%d)", i)
	}
	require.True(t, lv.TailOverruns() > 0)
}
