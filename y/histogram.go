/*
 * Copyright 2019 Dgraph Labs, Inc. and Contributors
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

package y

import (
	"fmt"
	"math"
)

// HistogramBounds returns bounds for histogram bins as powers of two in the
// range [2^minExponent, 2^maxExponent].
func HistogramBounds(minExponent, maxExponent uint32) []float64 {
	var bounds []float64
	for i := minExponent; i <= maxExponent; i++ {
		bounds = append(bounds, float64(int64(1)<<i))
	}
	return bounds
}

// HistogramData stores the information needed to represent a distribution
// of values, such as query latencies, as a histogram.
type HistogramData struct {
	Bounds      []float64
	Count       int64
	CountPerBin []int64
	Min         int64
	Max         int64
	Sum         int64
}

// NewHistogramData returns a new instance of HistogramData with properly
// initialized fields.
func NewHistogramData(bounds []float64) *HistogramData {
	return &HistogramData{
		Bounds:      bounds,
		CountPerBin: make([]int64, len(bounds)+1),
		Max:         0,
		Min:         math.MaxInt64,
	}
}

// Update changes the Min and Max fields if value is less than or greater than
// the current values.
func (histogram *HistogramData) Update(value int64) {
	if histogram == nil {
		return
	}
	if value > histogram.Max {
		histogram.Max = value
	}
	if value < histogram.Min {
		histogram.Min = value
	}

	histogram.Sum += value
	histogram.Count++

	for index := 0; index <= len(histogram.Bounds); index++ {
		// Allocate value in the last buckets if we reached the end of the Bounds array.
		if index == len(histogram.Bounds) {
			histogram.CountPerBin[index]++
			break
		}
		if value < int64(histogram.Bounds[index]) {
			histogram.CountPerBin[index]++
			break
		}
	}
}

// Mean returns the mean of all updated values.
func (histogram *HistogramData) Mean() float64 {
	if histogram.Count == 0 {
		return 0
	}
	return float64(histogram.Sum) / float64(histogram.Count)
}

// Percentile returns the approximate value at percentile p (in [0, 1]),
// interpolated from the bin the p-th observation falls into.
func (histogram *HistogramData) Percentile(p float64) float64 {
	if histogram.Count == 0 {
		return 0
	}
	target := int64(math.Ceil(p * float64(histogram.Count)))
	if target < 1 {
		target = 1
	}
	var seen int64
	for index, count := range histogram.CountPerBin {
		seen += count
		if seen < target {
			continue
		}
		if index == len(histogram.Bounds) {
			return float64(histogram.Max)
		}
		lo := float64(histogram.Min)
		if index > 0 {
			lo = histogram.Bounds[index-1]
		}
		hi := histogram.Bounds[index]
		if lo > hi {
			lo = hi
		}
		// Linear interpolation inside the bin.
		if count == 0 {
			return hi
		}
		within := float64(target - (seen - count))
		return lo + (hi-lo)*(within/float64(count))
	}
	return float64(histogram.Max)
}

// String converts the histogram data into human-readable string.
func (histogram *HistogramData) String() string {
	if histogram == nil {
		return ""
	}
	s := fmt.Sprintf("Total count: %d\n", histogram.Count)
	s += fmt.Sprintf("Min value: %d\n", histogram.Min)
	s += fmt.Sprintf("Max value: %d\n", histogram.Max)
	s += fmt.Sprintf("Mean: %.2f\n", histogram.Mean())

	numBounds := len(histogram.Bounds)
	for index, count := range histogram.CountPerBin {
		if count == 0 {
			continue
		}
		lowerBound := 0.0
		if index > 0 {
			lowerBound = histogram.Bounds[index-1]
		}
		var rangeTxt string
		if index == numBounds {
			rangeTxt = fmt.Sprintf("[%.0f, inf)", lowerBound)
		} else {
			rangeTxt = fmt.Sprintf("[%.0f, %.0f)", lowerBound, histogram.Bounds[index])
		}
		pct := float64(count) * 100.0 / float64(histogram.Count)
		s += fmt.Sprintf("Range %s: count %d (%.2f%%)\n", rangeTxt, count, pct)
	}
	return s
}
