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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func randomBytes(n int, seed int64) []byte {
	r := rand.New(rand.NewSource(seed))
	seq := make([]byte, n)
	for i := range seq {
		seq[i] = byte(r.Intn(256))
	}
	return seq
}

func naiveSymbolRank(seq []byte, c byte, i int) int {
	if i > len(seq) {
		i = len(seq)
	}
	rank := 0
	for k := 0; k < i; k++ {
		if seq[k] == c {
			rank++
		}
	}
	return rank
}

func TestWaveletRankAccess(t *testing.T) {
	seq := randomBytes(2000, 321)
	wt := NewWaveletTree(seq)

	require.Equal(t, len(seq), wt.Size())
	for i, want := range seq {
		require.Equal(t, want, wt.Access(i), "access(%d)", i)
	}
	for _, c := range []byte{0, 1, 'a', 0x7f, 0x80, 0xfe, 0xff, seq[0], seq[500]} {
		for i := 0; i <= len(seq); i += 37 {
			require.Equal(t, naiveSymbolRank(seq, c, i), wt.Rank(c, i), "rank(%d, %d)", c, i)
		}
		require.Equal(t, naiveSymbolRank(seq, c, len(seq)), wt.Rank(c, len(seq)))
	}
}

func TestWaveletEdgeCases(t *testing.T) {
	seq := []byte("abracadabra")
	wt := NewWaveletTree(seq)

	require.Equal(t, 0, wt.Rank('a', 0))
	// Past-the-end clamps to the sequence length.
	require.Equal(t, 5, wt.Rank('a', 1000))
	require.Equal(t, 0, wt.Rank('z', 1000))

	empty := NewWaveletTree(nil)
	require.Equal(t, 0, empty.Rank('a', 10))
	require.Equal(t, 0, empty.Size())
}

func TestWaveletPartitionInvariant(t *testing.T) {
	// The concatenation of left and right partitions at each level must
	// preserve the multiset, so every symbol's total rank survives.
	seq := randomBytes(1024, 5)
	wt := NewWaveletTree(seq)

	var counts [256]int
	for _, c := range seq {
		counts[c]++
	}
	for c := 0; c < 256; c++ {
		require.Equal(t, counts[c], wt.Rank(byte(c), len(seq)), "symbol %d", c)
	}
}

func TestWaveletLearnedRank(t *testing.T) {
	seq := randomBytes(3000, 17)
	wt := NewWaveletTree(seq)
	plain := NewWaveletTree(seq)
	wt.EnableLearnedRank(DefaultCoarseStride, DefaultMicroStride)
	require.True(t, wt.LearnedRankEnabled())

	for _, c := range []byte{0, 'q', 0xab, seq[42]} {
		for i := 0; i <= len(seq); i += 53 {
			require.Equal(t, plain.Rank(c, i), wt.Rank(c, i), "rank(%d, %d)", c, i)
		}
	}
	require.Equal(t, uint64(0), wt.TailOverruns())
}
