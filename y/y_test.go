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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	data := []byte("the quick brown fox")
	fp := Fingerprint(data)
	require.NotZero(t, fp)
	require.Equal(t, fp, Fingerprint(data))
	require.NotEqual(t, fp, Fingerprint([]byte("the quick brown fux")))

	require.NoError(t, VerifyFingerprint(data, fp))
	err := VerifyFingerprint(data, fp+1)
	require.Error(t, err)
}

func TestHistogramBounds(t *testing.T) {
	bounds := HistogramBounds(4, 8)
	require.Equal(t, []float64{16, 32, 64, 128, 256}, bounds)
}

func TestHistogramUpdate(t *testing.T) {
	h := NewHistogramData(HistogramBounds(4, 8))
	for v := int64(1); v <= 100; v++ {
		h.Update(v)
	}
	require.Equal(t, int64(100), h.Count)
	require.Equal(t, int64(1), h.Min)
	require.Equal(t, int64(100), h.Max)
	require.Equal(t, int64(5050), h.Sum)
	require.InDelta(t, 50.5, h.Mean(), 0.01)

	// Percentiles land in the right bins.
	p50 := h.Percentile(0.50)
	require.True(t, p50 >= 32 && p50 <= 64, "p50=%f", p50)
	require.True(t, h.Percentile(0.99) >= 64.0)
	require.True(t, h.Percentile(0.01) <= 16.0)
}

func TestHistogramEmpty(t *testing.T) {
	h := NewHistogramData(HistogramBounds(4, 8))
	require.Equal(t, float64(0), h.Mean())
	require.Equal(t, float64(0), h.Percentile(0.5))
}
