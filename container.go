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

package csidx

import (
	"bufio"
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/dgraph-io/csidx/succinct"
	"github.com/dgraph-io/csidx/suffix"
	"github.com/dgraph-io/csidx/y"
)

// Container format. Little-endian throughout. The 88-byte header is
// followed by 8-byte-aligned sections at the offsets recorded in it; the
// header fields are decoded explicitly rather than cast from memory, so the
// layout does not depend on Go struct layout.
const (
	indexMagic    = "CSIDX\x00\x00\x00"
	formatVersion = uint16(1)
	headerSize    = 88

	// "CSEND" packed into the low bytes, little-endian.
	footerSentinel = uint64(0x0000435345444E44)
)

// Feature flag bits in the header, mirroring the build configuration.
const (
	FlagLearnedOcc uint32 = 1 << iota
	FlagVebLayout
	FlagHuffmanWavelet // reserved
	FlagCompressedSSA  // reserved
)

// Section indexes into the header offset table.
const (
	sectionHeader = iota
	sectionText
	sectionBWT
	sectionCArray
	sectionSSA
	sectionWavelet
	sectionVebLayout
	sectionFooter
	numSections
)

func (idx *Index) flags() uint32 {
	var f uint32
	if idx.wt.LearnedRankEnabled() {
		f |= FlagLearnedOcc
	}
	if idx.veb != nil {
		f |= FlagVebLayout
	}
	return f
}

type sectionWriter struct {
	w   *bufio.Writer
	off uint64
	err error
}

func (sw *sectionWriter) raw(p []byte) {
	if sw.err != nil {
		return
	}
	_, sw.err = sw.w.Write(p)
	sw.off += uint64(len(p))
}

func (sw *sectionWriter) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	sw.raw(b[:])
}

func (sw *sectionWriter) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	sw.raw(b[:])
}

func (sw *sectionWriter) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	sw.raw(b[:])
}

var zeroPage [succinct.MacroblockSize]byte

func (sw *sectionWriter) align(to uint64) {
	if rem := sw.off % to; rem != 0 {
		sw.raw(zeroPage[:to-rem])
	}
}

// WriteFile serializes the index into the container format at path. The
// resulting file can be reopened zero-copy with Open.
func (idx *Index) WriteFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
	if err != nil {
		return y.Wrapf(err, "cannot create index file %s", path)
	}
	defer f.Close()

	sw := &sectionWriter{w: bufio.NewWriter(f)}
	var offsets [numSections]uint64

	// Header placeholder; rewritten once the offsets are known.
	sw.raw(make([]byte, headerSize))

	sw.align(8)
	offsets[sectionText] = sw.off
	sw.u64(uint64(len(idx.text)))
	sw.raw(idx.text)

	sw.align(8)
	offsets[sectionBWT] = sw.off
	sw.u64(uint64(len(idx.bwt)))
	sw.raw(idx.bwt)

	sw.align(8)
	offsets[sectionCArray] = sw.off
	sw.u64(uint64(len(idx.c)))
	for _, v := range idx.c {
		sw.u32(v)
	}

	sw.align(8)
	offsets[sectionSSA] = sw.off
	sw.u32(idx.ssaStride)
	sw.align(8)
	sw.u64(uint64(len(idx.ssa)))
	for _, v := range idx.ssa {
		sw.u32(v)
	}

	sw.align(8)
	offsets[sectionWavelet] = sw.off
	idx.writeWaveletSection(sw)

	if idx.veb != nil {
		sw.align(succinct.MacroblockSize)
		offsets[sectionVebLayout] = sw.off
		sw.u64(uint64(idx.veb.Size()))
		sw.raw(idx.veb.Data())
	}

	sw.align(8)
	offsets[sectionFooter] = sw.off
	sw.u64(footerSentinel)

	if sw.err != nil {
		return y.Wrapf(sw.err, "while writing index sections")
	}
	if err := sw.w.Flush(); err != nil {
		return y.Wrapf(err, "while flushing index file")
	}

	// Backpatch the header.
	hdr := make([]byte, headerSize)
	copy(hdr, indexMagic)
	binary.LittleEndian.PutUint16(hdr[8:], formatVersion)
	// hdr[10:12] reserved
	binary.LittleEndian.PutUint32(hdr[12:], idx.flags())
	binary.LittleEndian.PutUint64(hdr[16:], uint64(idx.n))
	for s, off := range offsets {
		binary.LittleEndian.PutUint64(hdr[24+8*s:], off)
	}
	if _, err := f.WriteAt(hdr, 0); err != nil {
		return y.Wrapf(err, "while writing index header")
	}
	return f.Sync()
}

// writeWaveletSection emits the plain (non-macroblock) wavelet framing:
// level count, then the packed words, super ranks and sub ranks of all
// levels concatenated. Every level spans the full BWT, so the per-level
// array lengths are recovered from the text length alone.
func (idx *Index) writeWaveletSection(sw *sectionWriter) {
	sw.u64(succinct.NumWaveletLevels)

	var bitsCount, superCount, subCount uint64
	for l := 0; l < succinct.NumWaveletLevels; l++ {
		bv := idx.wt.Level(l)
		bitsCount += uint64(len(bv.Words()))
		superCount += uint64(len(bv.SuperBlocks()))
		subCount += uint64(len(bv.SubBlocks()))
	}

	sw.u64(bitsCount)
	for l := 0; l < succinct.NumWaveletLevels; l++ {
		for _, w := range idx.wt.Level(l).Words() {
			sw.u64(w)
		}
	}
	sw.u64(superCount)
	for l := 0; l < succinct.NumWaveletLevels; l++ {
		for _, s := range idx.wt.Level(l).SuperBlocks() {
			sw.u32(s)
		}
	}
	sw.u64(subCount)
	for l := 0; l < succinct.NumWaveletLevels; l++ {
		for _, s := range idx.wt.Level(l).SubBlocks() {
			sw.u16(s)
		}
	}
}

// Open memory-maps a serialized index read-only and reconstructs the query
// structures as zero-copy views into the mapping. The learned rank model is
// derived data and is re-fit from the mapped wavelet words when the header
// carries FlagLearnedOcc.
func Open(path string, opt Options) (*Index, error) {
	if err := opt.validate(); err != nil {
		return nil, err
	}
	if opt.Logger == nil {
		opt.Logger = y.NoopLogger
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, y.Wrapf(err, "cannot open index file %s", path)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, y.Wrapf(err, "cannot stat index file %s", path)
	}
	if fi.Size() < headerSize+8 {
		f.Close()
		return nil, y.Wrapf(ErrTruncated, "file size %d", fi.Size())
	}
	data, err := y.Mmap(f, false, fi.Size())
	f.Close()
	if err != nil {
		return nil, y.Wrapf(err, "cannot mmap index file %s", path)
	}
	// Backward search touches the wavelet words in rank order, not file
	// order.
	_ = y.Madvise(data, false)

	idx, err := openMapped(data, opt)
	if err != nil {
		_ = y.Munmap(data)
		return nil, err
	}
	idx.finish(filepath.Base(path))
	return idx, nil
}

func openMapped(data []byte, opt Options) (*Index, error) {
	if string(data[:8]) != indexMagic {
		return nil, ErrBadMagic
	}
	if v := binary.LittleEndian.Uint16(data[8:]); v != formatVersion {
		return nil, y.Wrapf(ErrBadVersion, "version %d", v)
	}
	flags := binary.LittleEndian.Uint32(data[12:])
	textLen := binary.LittleEndian.Uint64(data[16:])

	var offsets [numSections]uint64
	for s := 0; s < numSections; s++ {
		offsets[s] = binary.LittleEndian.Uint64(data[24+8*s:])
		if offsets[s] > uint64(len(data)) {
			return nil, y.Wrapf(ErrTruncated, "section %d offset %d beyond file size %d",
				s, offsets[s], len(data))
		}
	}
	foot := offsets[sectionFooter]
	if foot == 0 || foot+8 > uint64(len(data)) {
		return nil, y.Wrapf(ErrTruncated, "footer offset %d", foot)
	}
	if got := binary.LittleEndian.Uint64(data[foot:]); got != footerSentinel {
		return nil, y.Wrapf(ErrBadFooter, "got %#x", got)
	}
	if textLen > uint64(suffix.MaxTextLen) {
		return nil, y.Wrapf(ErrTextTooLarge, "%d bytes", textLen)
	}
	n := int(textLen)

	opt.LearnedOcc = flags&FlagLearnedOcc != 0
	opt.VebLayout = flags&FlagVebLayout != 0
	idx := &Index{opt: opt, n: n, mmap: data}

	// TEXT: zero stored length means the text was not retained.
	off := offsets[sectionText]
	storedText, err := sectionBytes(data, off, "text")
	if err != nil {
		return nil, err
	}
	if len(storedText) > 0 {
		idx.text = storedText
	}

	off = offsets[sectionBWT]
	idx.bwt, err = sectionBytes(data, off, "bwt")
	if err != nil {
		return nil, err
	}
	if len(idx.bwt) != n {
		return nil, y.Wrapf(ErrTruncated, "bwt length %d != text length %d", len(idx.bwt), n)
	}

	off = offsets[sectionCArray]
	if off+8+4*257 > uint64(len(data)) {
		return nil, y.Wrapf(ErrTruncated, "c-array at offset %d", off)
	}
	if count := binary.LittleEndian.Uint64(data[off:]); count != 257 {
		return nil, y.Wrapf(ErrTruncated, "c-array count %d != 257", count)
	}
	for i := 0; i < 257; i++ {
		idx.c[i] = binary.LittleEndian.Uint32(data[off+8+4*uint64(i):])
	}

	off = offsets[sectionSSA]
	if off+16 > uint64(len(data)) {
		return nil, y.Wrapf(ErrTruncated, "ssa at offset %d", off)
	}
	idx.ssaStride = binary.LittleEndian.Uint32(data[off:])
	if idx.ssaStride == 0 {
		return nil, y.Wrapf(ErrTruncated, "ssa stride is zero")
	}
	ssaCount := binary.LittleEndian.Uint64(data[off+8:])
	if off+16+4*ssaCount > uint64(len(data)) {
		return nil, y.Wrapf(ErrTruncated, "ssa samples at offset %d count %d", off, ssaCount)
	}
	idx.ssa = succinct.U32Slice(data[off+16:], int(ssaCount))

	if opt.VebLayout && offsets[sectionVebLayout] != 0 {
		if err := idx.openWaveletFromVeb(data, offsets[sectionVebLayout]); err != nil {
			return nil, err
		}
	} else if err := idx.openWaveletSection(data, offsets[sectionWavelet]); err != nil {
		return nil, err
	}

	if opt.LearnedOcc {
		idx.wt.EnableLearnedRank(opt.CoarseStride, opt.MicroStride)
	}
	return idx, nil
}

func sectionBytes(data []byte, off uint64, what string) ([]byte, error) {
	if off+8 > uint64(len(data)) {
		return nil, y.Wrapf(ErrTruncated, "%s section at offset %d", what, off)
	}
	count := binary.LittleEndian.Uint64(data[off:])
	if off+8+count > uint64(len(data)) {
		return nil, y.Wrapf(ErrTruncated, "%s section at offset %d length %d", what, off, count)
	}
	return data[off+8 : off+8+count : off+8+count], nil
}

func (idx *Index) openWaveletSection(data []byte, off uint64) error {
	if off+24 > uint64(len(data)) {
		return y.Wrapf(ErrTruncated, "wavelet section at offset %d", off)
	}
	numLevels := binary.LittleEndian.Uint64(data[off:])
	if numLevels != succinct.NumWaveletLevels {
		return y.Wrapf(ErrTruncated, "wavelet level count %d != %d", numLevels, succinct.NumWaveletLevels)
	}

	perWords := succinct.NumWords(idx.n)
	perSuper := succinct.NumSuperBlocks(idx.n)
	perSub := succinct.NumSubBlocks(idx.n)

	pos := off + 8
	bitsCount := binary.LittleEndian.Uint64(data[pos:])
	pos += 8
	if bitsCount != numLevels*uint64(perWords) || pos+8*bitsCount+8 > uint64(len(data)) {
		return y.Wrapf(ErrTruncated, "wavelet words count %d", bitsCount)
	}
	words := succinct.U64Slice(data[pos:], int(bitsCount))
	pos += 8 * bitsCount

	superCount := binary.LittleEndian.Uint64(data[pos:])
	pos += 8
	if superCount != numLevels*uint64(perSuper) || pos+4*superCount+8 > uint64(len(data)) {
		return y.Wrapf(ErrTruncated, "wavelet super count %d", superCount)
	}
	supers := succinct.U32Slice(data[pos:], int(superCount))
	pos += 4 * superCount

	subCount := binary.LittleEndian.Uint64(data[pos:])
	pos += 8
	if subCount != numLevels*uint64(perSub) || pos+2*subCount > uint64(len(data)) {
		return y.Wrapf(ErrTruncated, "wavelet sub count %d", subCount)
	}
	subs := succinct.U16Slice(data[pos:], int(subCount))

	var levels [succinct.NumWaveletLevels]*succinct.BitVector
	for l := 0; l < succinct.NumWaveletLevels; l++ {
		levels[l] = succinct.NewBitVectorFromParts(
			words[l*perWords:(l+1)*perWords],
			supers[l*perSuper:(l+1)*perSuper],
			subs[l*perSub:(l+1)*perSub],
			idx.n,
		)
	}
	idx.wt = succinct.NewWaveletTreeFromLevels(levels, idx.n)
	return nil
}

func (idx *Index) openWaveletFromVeb(data []byte, off uint64) error {
	if off+8 > uint64(len(data)) {
		return y.Wrapf(ErrTruncated, "veb section at offset %d", off)
	}
	size := binary.LittleEndian.Uint64(data[off:])
	if off+8+size > uint64(len(data)) {
		return y.Wrapf(ErrTruncated, "veb section at offset %d size %d", off, size)
	}
	layout, err := succinct.OpenVebLayout(data[off+8:off+8+size], succinct.NumWaveletLevels,
		succinct.MacroTopLevels)
	if err != nil {
		return y.Wrapf(err, "while opening veb layout")
	}
	idx.veb = layout

	var levels [succinct.NumWaveletLevels]*succinct.BitVector
	for l := 0; l < succinct.NumWaveletLevels; l++ {
		bv, err := layout.LevelView(l)
		if err != nil {
			return y.Wrapf(err, "while reconstructing wavelet level %d", l)
		}
		if bv.Size() != idx.n {
			return y.Wrapf(ErrTruncated, "veb level %d has %d bits, want %d", l, bv.Size(), idx.n)
		}
		levels[l] = bv
	}
	idx.wt = succinct.NewWaveletTreeFromLevels(levels, idx.n)
	return nil
}

// SectionSizes reports the serialized size of each section, keyed by name.
// Used by the CLI --stats output.
func (idx *Index) SectionSizes() map[string]int {
	sizes := map[string]int{
		"text":    8 + len(idx.text),
		"bwt":     8 + len(idx.bwt),
		"c_array": 8 + 4*257,
		"ssa":     16 + 4*len(idx.ssa),
	}
	wavelet := 8 + 24
	for l := 0; l < succinct.NumWaveletLevels; l++ {
		bv := idx.wt.Level(l)
		wavelet += 8*len(bv.Words()) + 4*len(bv.SuperBlocks()) + 2*len(bv.SubBlocks())
	}
	sizes["wavelet"] = wavelet
	if idx.veb != nil {
		sizes["veb_layout"] = 8 + idx.veb.Size()
	}
	return sizes
}

// Fingerprint returns an xxhash64 over the BWT, a stable identity for the
// indexed content regardless of build configuration.
func (idx *Index) Fingerprint() uint64 {
	return y.Fingerprint(idx.bwt)
}
