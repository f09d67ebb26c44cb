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

package cmd

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash"
	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dgraph-io/csidx"
	"github.com/dgraph-io/csidx/y"
)

var benchCmd = &cobra.Command{
	Use:   "bench <input>",
	Short: "Bench measures query throughput and latency on an index.",
	Long: `
This command loads or builds an index over the input, samples substrings of
the indexed text as query patterns, and reports aggregate QPS and latency
percentiles for count, or for locate when --locate is given.
`,
	Args: cobra.ExactArgs(1),
	RunE: runBench,
}

var (
	benchDuration   string
	benchGoroutines int
	benchPatterns   int
	benchPatternLen int
	benchLocate     bool
)

func init() {
	RootCmd.AddCommand(benchCmd)
	benchCmd.Flags().StringVarP(&benchDuration, "duration", "d", "3s",
		"How long to run the benchmark.")
	benchCmd.Flags().IntVarP(&benchGoroutines, "goroutines", "g", 4,
		"Number of goroutines issuing queries.")
	benchCmd.Flags().IntVar(&benchPatterns, "patterns", 1000,
		"Number of sampled patterns.")
	benchCmd.Flags().IntVar(&benchPatternLen, "pattern-len", 8,
		"Length of sampled patterns.")
	benchCmd.Flags().BoolVar(&benchLocate, "locate", false,
		"Benchmark locate instead of count.")
}

// samplePatterns draws deterministic pattern start offsets by hashing a
// counter, so repeated runs benchmark the same workload.
func samplePatterns(idx *csidx.Index, num, plen int) ([][]byte, error) {
	n := idx.Len()
	if n < 2 {
		return nil, y.Wrapf(csidx.ErrInvalidRequest, "text too short to sample patterns")
	}
	if plen >= n {
		plen = n - 1
	}
	if plen < 1 {
		plen = 1
	}
	patterns := make([][]byte, 0, num)
	var seed [8]byte
	for i := 0; len(patterns) < num; i++ {
		binary.LittleEndian.PutUint64(seed[:], uint64(i))
		pos := xxhash.Sum64(seed[:]) % uint64(n-plen)
		p, err := idx.Extract(pos, uint64(plen))
		if err != nil {
			return nil, err
		}
		if len(p) == 0 {
			continue
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

func runBench(cmd *cobra.Command, args []string) error {
	dur, err := time.ParseDuration(benchDuration)
	if err != nil {
		return y.Wrapf(err, "unable to parse duration")
	}
	y.AssertTrue(benchGoroutines > 0)

	start := time.Now()
	idx, err := loadIndex(args[0], csidx.DefaultOptions())
	if err != nil {
		return y.Wrapf(err, "while loading %s", args[0])
	}
	defer idx.Close()
	fmt.Printf("Index ready in %s, text length %s\n",
		time.Since(start).Round(time.Millisecond), humanize.Comma(int64(idx.Len())))

	patterns, err := samplePatterns(idx, benchPatterns, benchPatternLen)
	if err != nil {
		return y.Wrapf(err, "while sampling patterns")
	}

	op := "count"
	if benchLocate {
		op = "locate"
	}
	fmt.Printf("Benchmarking %s: %d goroutines, %d patterns, %s\n",
		op, benchGoroutines, len(patterns), dur)

	deadline := time.Now().Add(dur)
	histograms := make([]*y.HistogramData, benchGoroutines)
	var wg sync.WaitGroup
	for g := 0; g < benchGoroutines; g++ {
		g := g
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Latency bins from 128ns up, powers of two.
			hist := y.NewHistogramData(y.HistogramBounds(7, 31))
			histograms[g] = hist
			for i := g; time.Now().Before(deadline); i++ {
				p := patterns[i%len(patterns)]
				t0 := time.Now()
				if benchLocate {
					if _, err := idx.Locate(p, 1000); err != nil {
						return
					}
				} else {
					idx.Count(p)
				}
				hist.Update(time.Since(t0).Nanoseconds())
			}
		}()
	}
	wg.Wait()

	total := mergeHistograms(histograms)
	if total.Count == 0 {
		fmt.Println("No queries completed")
		return nil
	}
	elapsed := dur.Seconds()
	fmt.Printf("Total queries: %s, QPS: %s\n",
		humanize.Comma(total.Count), humanize.Comma(int64(float64(total.Count)/elapsed)))
	fmt.Printf("Latency mean: %s  p50: %s  p90: %s  p99: %s\n",
		time.Duration(total.Mean()),
		time.Duration(total.Percentile(0.50)),
		time.Duration(total.Percentile(0.90)),
		time.Duration(total.Percentile(0.99)))
	return nil
}

func mergeHistograms(hs []*y.HistogramData) *y.HistogramData {
	out := y.NewHistogramData(y.HistogramBounds(7, 31))
	for _, h := range hs {
		if h == nil {
			continue
		}
		out.Count += h.Count
		out.Sum += h.Sum
		if h.Count > 0 && h.Min < out.Min {
			out.Min = h.Min
		}
		if h.Max > out.Max {
			out.Max = h.Max
		}
		for i := range h.CountPerBin {
			out.CountPerBin[i] += h.CountPerBin[i]
		}
	}
	return out
}
