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
	"fmt"
	"os"
	"sort"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dgraph-io/csidx"
	"github.com/dgraph-io/csidx/y"
)

var buildCmd = &cobra.Command{
	Use:   "build <input>",
	Short: "Build builds a csidx index over the given text file.",
	Long: `
This command reads the input file, appends a sentinel terminator unless
--no-terminator is given, builds the FM-index and writes it in the csidx
container format next to the input (or to --out).
`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

var (
	buildNoTerminator bool
	buildStats        bool
	buildOut          string
	buildLearned      bool
	buildVeb          bool
	buildNoText       bool
	buildSSAStride    int
	buildCoarseStride int
	buildMicroStride  int
)

func init() {
	RootCmd.AddCommand(buildCmd)
	buildCmd.Flags().BoolVar(&buildNoTerminator, "no-terminator", false,
		"Do not append a sentinel byte to the input.")
	buildCmd.Flags().BoolVar(&buildStats, "stats", false,
		"Print size and timing statistics after the build.")
	buildCmd.Flags().StringVarP(&buildOut, "out", "o", "",
		"Output file. Defaults to <input>.csidx.")
	buildCmd.Flags().BoolVar(&buildLearned, "learned", false,
		"Use the learned rank model for occurrence counting.")
	buildCmd.Flags().BoolVar(&buildVeb, "veb", false,
		"Pack wavelet levels into page-aligned macroblocks.")
	buildCmd.Flags().BoolVar(&buildNoText, "no-text", false,
		"Do not retain the original text; extract will invert the BWT.")
	buildCmd.Flags().IntVar(&buildSSAStride, "ssa-stride", 32,
		"Suffix array sampling stride.")
	buildCmd.Flags().IntVar(&buildCoarseStride, "coarse-stride", 512,
		"Learned model coarse stride S, in bits.")
	buildCmd.Flags().IntVar(&buildMicroStride, "micro-stride", 32,
		"Learned model micro stride s, in bits.")
}

func runBuild(cmd *cobra.Command, args []string) error {
	input := args[0]
	text, err := os.ReadFile(input)
	if err != nil {
		return y.Wrapf(err, "cannot read input %s", input)
	}
	if !buildNoTerminator {
		terminated, ok := terminate(text)
		if !ok {
			fmt.Fprintln(os.Stderr,
				"warning: input contains byte 0x00; no sentinel appended, rotation order may be ambiguous")
		} else {
			text = terminated
		}
	}

	opt := csidx.DefaultOptions().
		WithLearnedOcc(buildLearned).
		WithVebLayout(buildVeb).
		WithSSAStride(buildSSAStride).
		WithStrides(buildCoarseStride, buildMicroStride).
		WithRetainText(!buildNoText)

	start := time.Now()
	idx, err := csidx.BuildFromText(text, opt)
	if err != nil {
		return y.Wrapf(err, "while building index")
	}
	defer idx.Close()
	buildDur := time.Since(start)

	out := buildOut
	if out == "" {
		out = input + ".csidx"
	}
	if err := idx.WriteFile(out); err != nil {
		return y.Wrapf(err, "while writing %s", out)
	}

	fmt.Printf("Built %s: %s of text in %s\n", out,
		humanize.Bytes(uint64(len(text))), buildDur.Round(time.Millisecond))

	if buildStats {
		printBuildStats(idx, out)
	}
	return nil
}

func printBuildStats(idx *csidx.Index, out string) {
	fi, err := os.Stat(out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot stat %s: %v\n", out, err)
		return
	}

	fmt.Printf("Index file size: %s\n", humanize.Bytes(uint64(fi.Size())))
	fmt.Printf("Bits per symbol: %.2f\n", float64(fi.Size()*8)/float64(idx.Len()))
	fmt.Printf("Content fingerprint: %016x\n", idx.Fingerprint())

	sizes := idx.SectionSizes()
	names := make([]string, 0, len(sizes))
	for name := range sizes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-10s %s\n", name, humanize.Bytes(uint64(sizes[name])))
	}
}
