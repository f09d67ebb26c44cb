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
	"github.com/dgraph-io/csidx/succinct"
	"github.com/dgraph-io/csidx/y"
)

// Options are params for creating an Index.
//
// This package provides DefaultOptions which contains options that should
// work for most applications. Consider using that as a starting point before
// customizing it for your own needs.
type Options struct {
	// LearnedOcc switches occurrence counting to the learned rank path:
	// a linear model plus residuals instead of the two-level directory.
	LearnedOcc bool

	// VebLayout packs the wavelet levels into page-aligned macroblocks
	// and serializes that packing alongside the plain wavelet section.
	VebLayout bool

	// HuffmanWavelet is reserved; builds reject it.
	HuffmanWavelet bool

	// SSAStride is the suffix-array sampling stride d: one sample per d
	// BWT positions. Each located hit walks LF until it reaches a sampled
	// row, about d steps on average; the walk length is not bounded by d.
	SSAStride int

	// CoarseStride (S) and MicroStride (s) parameterize the learned rank
	// model. S must be a multiple of s.
	CoarseStride int
	MicroStride  int

	// VebTopLevels is the number of wavelet levels serialized inline
	// ahead of the page-aligned macroblocks.
	VebTopLevels int

	// RetainText keeps the original text in the index (and its
	// serialized form) so Extract is a copy. When false, Extract inverts
	// the BWT on first use.
	RetainText bool

	// QueryCacheSize is the size of the count-result cache in bytes.
	// A value of zero disables caching.
	QueryCacheSize int64

	MetricsEnabled bool

	// EventLogging enables a per-index golang.org/x/net/trace event log,
	// viewable on /debug/events.
	EventLogging bool

	Logger y.Logger
}

// DefaultOptions sets a list of recommended options for good performance.
// Feel free to modify these to suit your needs.
func DefaultOptions() Options {
	return Options{
		LearnedOcc:     false,
		VebLayout:      false,
		SSAStride:      32,
		CoarseStride:   succinct.DefaultCoarseStride,
		MicroStride:    succinct.DefaultMicroStride,
		VebTopLevels:   succinct.MacroTopLevels,
		RetainText:     true,
		QueryCacheSize: 0,
		MetricsEnabled: true,
		EventLogging:   false,
		Logger:         y.DefaultLogger(),
	}
}

// WithLearnedOcc returns a new Options value with LearnedOcc set to the
// given value.
func (opt Options) WithLearnedOcc(val bool) Options {
	opt.LearnedOcc = val
	return opt
}

// WithVebLayout returns a new Options value with VebLayout set to the given
// value.
func (opt Options) WithVebLayout(val bool) Options {
	opt.VebLayout = val
	return opt
}

// WithSSAStride returns a new Options value with SSAStride set to the given
// value.
func (opt Options) WithSSAStride(stride int) Options {
	opt.SSAStride = stride
	return opt
}

// WithStrides returns a new Options value with the learned model strides
// set to the given values.
func (opt Options) WithStrides(coarse, micro int) Options {
	opt.CoarseStride = coarse
	opt.MicroStride = micro
	return opt
}

// WithRetainText returns a new Options value with RetainText set to the
// given value.
func (opt Options) WithRetainText(val bool) Options {
	opt.RetainText = val
	return opt
}

// WithQueryCacheSize returns a new Options value with QueryCacheSize set to
// the given value.
func (opt Options) WithQueryCacheSize(size int64) Options {
	opt.QueryCacheSize = size
	return opt
}

// WithMetricsEnabled returns a new Options value with MetricsEnabled set to
// the given value.
func (opt Options) WithMetricsEnabled(val bool) Options {
	opt.MetricsEnabled = val
	return opt
}

// WithEventLogging returns a new Options value with EventLogging set to the
// given value.
func (opt Options) WithEventLogging(val bool) Options {
	opt.EventLogging = val
	return opt
}

// WithLogger returns a new Options value with Logger set to the given
// value.
func (opt Options) WithLogger(val y.Logger) Options {
	opt.Logger = val
	return opt
}

func (opt Options) validate() error {
	if opt.HuffmanWavelet {
		return ErrHuffmanReserved
	}
	if opt.SSAStride <= 0 {
		return y.Wrapf(ErrInvalidRequest, "SSAStride must be positive, got %d", opt.SSAStride)
	}
	if opt.CoarseStride <= 0 || opt.MicroStride <= 0 || opt.CoarseStride%opt.MicroStride != 0 {
		return y.Wrapf(ErrInvalidRequest, "CoarseStride %d must be a positive multiple of MicroStride %d",
			opt.CoarseStride, opt.MicroStride)
	}
	if opt.VebTopLevels < 0 || opt.VebTopLevels > succinct.NumWaveletLevels {
		return y.Wrapf(ErrInvalidRequest, "VebTopLevels must be in [0, %d], got %d",
			succinct.NumWaveletLevels, opt.VebTopLevels)
	}
	return nil
}
