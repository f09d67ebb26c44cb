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

func waveletLevels(t *testing.T, seq []byte) []*BitVector {
	t.Helper()
	wt := NewWaveletTree(seq)
	levels := make([]*BitVector, NumWaveletLevels)
	for l := range levels {
		levels[l] = wt.Level(l)
	}
	return levels
}

func TestVebLayoutAlignment(t *testing.T) {
	levels := waveletLevels(t, randomBytes(10000, 77))
	v := NewVebLayout(levels, MacroTopLevels)

	require.Equal(t, 0, v.Size()%MacroblockSize)
	for l := MacroTopLevels; l < NumWaveletLevels; l++ {
		off, err := v.LevelOffset(l)
		require.NoError(t, err)
		require.Equal(t, 0, off%MacroblockSize, "level %d offset %d", l, off)
	}

	// Inline top levels are packed ahead of the first macroblock.
	off0, err := v.LevelOffset(0)
	require.NoError(t, err)
	require.Equal(t, 0, off0)

	_, err = v.LevelOffset(NumWaveletLevels)
	require.Equal(t, ErrLevelOutOfRange, err)
}

func TestVebLayoutLevelView(t *testing.T) {
	seq := randomBytes(5000, 99)
	levels := waveletLevels(t, seq)
	v := NewVebLayout(levels, MacroTopLevels)

	for l := 0; l < NumWaveletLevels; l++ {
		view, err := v.LevelView(l)
		require.NoError(t, err)
		require.Equal(t, levels[l].Size(), view.Size())
		require.Equal(t, levels[l].CountOnes(), view.CountOnes())
		for i := 0; i <= len(seq); i += 61 {
			require.Equal(t, levels[l].Rank1(i), view.Rank1(i), "level %d rank1(%d)", l, i)
		}
	}
}

func TestVebLayoutReopen(t *testing.T) {
	seq := randomBytes(4000, 13)
	levels := waveletLevels(t, seq)
	built := NewVebLayout(levels, MacroTopLevels)

	// Offsets recomputed from the buffer must match the build.
	reopened, err := OpenVebLayout(built.Data(), NumWaveletLevels, MacroTopLevels)
	require.NoError(t, err)
	for l := 0; l < NumWaveletLevels; l++ {
		wantOff, err := built.LevelOffset(l)
		require.NoError(t, err)
		gotOff, err := reopened.LevelOffset(l)
		require.NoError(t, err)
		require.Equal(t, wantOff, gotOff, "level %d", l)

		view, err := reopened.LevelView(l)
		require.NoError(t, err)
		require.Equal(t, levels[l].CountOnes(), view.CountOnes())
	}
}

func TestVebLayoutTruncated(t *testing.T) {
	levels := waveletLevels(t, randomBytes(3000, 1))
	v := NewVebLayout(levels, MacroTopLevels)

	_, err := OpenVebLayout(v.Data()[:100], NumWaveletLevels, MacroTopLevels)
	require.Error(t, err)
}
