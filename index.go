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

// Package csidx implements a static compressed full-text self-index: an
// FM-index over a byte text with a sampled suffix array for position
// recovery, backed by the rank structures in package succinct. An Index is
// immutable once built and safe for concurrent readers.
package csidx

import (
	"sync"

	"github.com/dgraph-io/csidx/succinct"
	"github.com/dgraph-io/csidx/suffix"
	"github.com/dgraph-io/csidx/y"
	"github.com/dgraph-io/ristretto"
	"golang.org/x/net/trace"
)

// Index is a read-only FM-index over a single text. Build one with
// BuildFromText or reopen a serialized one with Open. All query methods may
// be called concurrently.
type Index struct {
	opt Options

	n    int
	text []byte // nil when the text was not retained
	bwt  []byte
	c    [257]uint32

	wt        *succinct.WaveletTree
	ssaStride uint32
	ssa       []uint32
	veb       *succinct.VebLayout

	// Backing mapping for indexes reopened from disk. The Index holds a
	// read-only borrow; Close releases it.
	mmap []byte

	cache   *ristretto.Cache
	metrics *metrics

	reconstructOnce sync.Once
	reconstructed   []byte
	reconstructErr  error
}

// BuildFromText builds an Index over text. The text should end with a
// sentinel byte strictly smaller than every other byte; without one the
// build still succeeds (using a slower suffix sort) but logs a warning,
// since the rotation order is then ambiguous.
//
// The returned Index is in its final, immutable state. All construction
// intermediates (the full suffix array, the wavelet partitions) are
// released before it is handed back.
func BuildFromText(text []byte, opt Options) (*Index, error) {
	if err := opt.validate(); err != nil {
		return nil, err
	}
	if opt.Logger == nil {
		opt.Logger = y.NoopLogger
	}
	if len(text) == 0 {
		return nil, ErrEmptyText
	}
	if len(text) > suffix.MaxTextLen {
		return nil, y.Wrapf(ErrTextTooLarge, "%d bytes", len(text))
	}
	if !suffix.HasSentinel(text) {
		opt.Logger.Warningf("text does not end with a unique minimal sentinel; " +
			"falling back to comparison sort, BWT may be ambiguous")
	}

	idx := &Index{opt: opt, n: len(text)}

	sa := suffix.Sort(text)
	idx.bwt = suffix.BWT(text, sa)

	var freq [256]uint32
	for _, c := range idx.bwt {
		freq[c]++
	}
	var cum uint32
	for c := 0; c < 256; c++ {
		idx.c[c] = cum
		cum += freq[c]
	}
	idx.c[256] = cum

	idx.wt = succinct.NewWaveletTree(idx.bwt)
	if opt.LearnedOcc {
		idx.wt.EnableLearnedRank(opt.CoarseStride, opt.MicroStride)
	}
	if opt.VebLayout {
		var levels []*succinct.BitVector
		for l := 0; l < succinct.NumWaveletLevels; l++ {
			levels = append(levels, idx.wt.Level(l))
		}
		idx.veb = succinct.NewVebLayout(levels, opt.VebTopLevels)
	}

	idx.ssaStride = uint32(opt.SSAStride)
	idx.ssa = make([]uint32, (idx.n+opt.SSAStride-1)/opt.SSAStride)
	for i := 0; i < idx.n; i += opt.SSAStride {
		idx.ssa[i/opt.SSAStride] = uint32(sa[i])
	}

	if opt.RetainText {
		idx.text = append([]byte(nil), text...)
	}

	idx.finish("mem")
	return idx, nil
}

// finish wires metrics, event logging and the optional query cache. Called
// once at the end of both build and open paths.
func (idx *Index) finish(name string) {
	var elog trace.EventLog = nilEventLog{}
	if idx.opt.EventLogging {
		elog = trace.NewEventLog("csidx", name)
	}
	idx.metrics = newMetrics(elog, name, idx.opt.MetricsEnabled)
	if idx.opt.MetricsEnabled {
		idx.metrics.IndexSize.Set(int64(idx.sizeEstimate()))
	}
	if idx.opt.QueryCacheSize > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: 1e5,
			MaxCost:     idx.opt.QueryCacheSize,
			BufferItems: 64,
		})
		if err != nil {
			idx.opt.Logger.Errorf("cannot create query cache: %v", err)
		} else {
			idx.cache = cache
		}
	}
	idx.metrics.elog.Printf("index ready: n=%d learned=%v veb=%v",
		idx.n, idx.wt.LearnedRankEnabled(), idx.veb != nil)
}

func (idx *Index) sizeEstimate() int {
	size := len(idx.text) + len(idx.bwt) + 4*len(idx.ssa) + 4*257
	for l := 0; l < succinct.NumWaveletLevels; l++ {
		bv := idx.wt.Level(l)
		size += 8*len(bv.Words()) + 4*len(bv.SuperBlocks()) + 2*len(bv.SubBlocks())
	}
	if idx.veb != nil {
		size += idx.veb.Size()
	}
	return size
}

// Len returns the indexed text length, including the sentinel.
func (idx *Index) Len() int { return idx.n }

// Options returns the options the index was built or opened with.
func (idx *Index) Options() Options { return idx.opt }

// TailOverruns reports learned-rank popcount tail overruns; zero when the
// learned path is disabled or the default strides are used.
func (idx *Index) TailOverruns() uint64 { return idx.wt.TailOverruns() }

// Close releases the backing mapping (if any) and auxiliary resources.
// The Index must not be used afterwards.
func (idx *Index) Close() error {
	if idx.cache != nil {
		idx.cache.Close()
	}
	if idx.metrics != nil {
		idx.metrics.elog.Finish()
	}
	if idx.mmap != nil {
		m := idx.mmap
		idx.mmap = nil
		return y.Munmap(m)
	}
	return nil
}

// lf is the last-to-first mapping: the BWT row holding the suffix one
// position earlier in the text.
func (idx *Index) lf(i int) int {
	c := idx.bwt[i]
	return int(idx.c[c]) + idx.wt.Rank(c, i)
}

// backwardSearch narrows [sp, ep) over the BWT rows prefixed by pattern,
// consuming the pattern right to left. Returns an empty interval when the
// pattern does not occur.
func (idx *Index) backwardSearch(pattern []byte) (sp, ep int) {
	sp, ep = 0, idx.n
	for k := len(pattern) - 1; k >= 0; k-- {
		c := pattern[k]
		sp = int(idx.c[c]) + idx.wt.Rank(c, sp)
		ep = int(idx.c[c]) + idx.wt.Rank(c, ep)
		if sp >= ep {
			return 0, 0
		}
	}
	return sp, ep
}

// Count returns the number of occurrences of pattern in the text. An empty
// pattern returns the text length by convention (the match interval is the
// whole BWT), not an occurrence count in the usual sense.
func (idx *Index) Count(pattern []byte) uint64 {
	idx.metrics.add(idx.metrics.NumCounts, 1)
	if len(pattern) == 0 {
		return uint64(idx.n)
	}
	if idx.n == 0 {
		return 0
	}

	var key string
	if idx.cache != nil {
		key = "c/" + string(pattern)
		if val, ok := idx.cache.Get(key); ok {
			idx.metrics.add(idx.metrics.NumCacheHits, 1)
			return val.(uint64)
		}
	}

	sp, ep := idx.backwardSearch(pattern)
	count := uint64(ep - sp)

	if idx.cache != nil {
		idx.cache.Set(key, count, int64(len(key)+8))
	}
	return count
}

// Locate returns the starting positions of pattern in the text, up to
// limit (limit <= 0 means no limit). Positions are recovered by walking LF
// to the nearest sampled suffix-array entry; order follows the BWT
// interval, not text order. A non-occurring pattern yields an empty, nil
// error result. ErrCorrupt is returned only for a damaged index.
func (idx *Index) Locate(pattern []byte, limit int) ([]uint64, error) {
	idx.metrics.add(idx.metrics.NumLocates, 1)
	if len(pattern) == 0 || idx.n == 0 {
		return nil, nil
	}
	sp, ep := idx.backwardSearch(pattern)
	if sp >= ep {
		return nil, nil
	}

	want := ep - sp
	if limit > 0 && want > limit {
		want = limit
	}
	positions := make([]uint64, 0, want)

	stride := int(idx.ssaStride)
	for i := sp; i < ep && len(positions) < want; i++ {
		row := i
		steps := 0
		for row%stride != 0 {
			row = idx.lf(row)
			steps++
			if steps > idx.n {
				return nil, y.Wrapf(ErrCorrupt, "LF walk from row %d exceeded text length %d", i, idx.n)
			}
		}
		sample := row / stride
		if sample >= len(idx.ssa) {
			return nil, y.Wrapf(ErrCorrupt, "SSA index %d out of range %d", sample, len(idx.ssa))
		}
		positions = append(positions, uint64(int(idx.ssa[sample])+steps)%uint64(idx.n))
	}
	return positions, nil
}

// Extract returns text[pos : min(pos+length, n)), empty when pos >= n.
// With a retained text this is a copy; otherwise the text is rebuilt once
// from the BWT and cached for the life of the Index.
func (idx *Index) Extract(pos, length uint64) ([]byte, error) {
	idx.metrics.add(idx.metrics.NumExtracts, 1)
	if pos >= uint64(idx.n) || length == 0 {
		return nil, nil
	}
	end := pos + length
	if end > uint64(idx.n) {
		end = uint64(idx.n)
	}

	src := idx.text
	if src == nil {
		var err error
		src, err = idx.reconstructText()
		if err != nil {
			return nil, err
		}
	}
	return append([]byte(nil), src[pos:end]...), nil
}

// reconstructText inverts the BWT. Row 0 is always sampled, so its text
// position is known; each LF step moves one position left in the text.
func (idx *Index) reconstructText() ([]byte, error) {
	idx.reconstructOnce.Do(func() {
		idx.metrics.elog.Printf("reconstructing text from BWT, n=%d", idx.n)
		if len(idx.ssa) == 0 {
			idx.reconstructErr = y.Wrapf(ErrCorrupt, "no SSA samples for BWT inversion")
			return
		}
		out := make([]byte, idx.n)
		row := 0
		pos := int(idx.ssa[0])
		for k := 0; k < idx.n; k++ {
			out[(pos-1-k+2*idx.n)%idx.n] = idx.bwt[row]
			row = idx.lf(row)
			if row < 0 || row >= idx.n {
				idx.reconstructErr = y.Wrapf(ErrCorrupt, "BWT inversion left range at step %d", k)
				return
			}
		}
		idx.reconstructed = out
	})
	return idx.reconstructed, idx.reconstructErr
}
