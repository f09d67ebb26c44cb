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
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgraph-io/csidx"
	"github.com/dgraph-io/csidx/y"
)

var queryCmd = &cobra.Command{
	Use:   "query <index|text> <pattern>",
	Short: "Query counts and locates a pattern in an index or raw text.",
	Long: `
The first argument is either a serialized index (opened with mmap) or a raw
text file (indexed in memory). Prints the occurrence count and positions.
`,
	Args: cobra.ExactArgs(2),
	RunE: runQuery,
}

var queryLimit int

func init() {
	RootCmd.AddCommand(queryCmd)
	queryCmd.Flags().IntVar(&queryLimit, "limit", 100000,
		"Maximum number of positions to report.")
}

func runQuery(cmd *cobra.Command, args []string) error {
	idx, err := loadIndex(args[0], csidx.DefaultOptions())
	if err != nil {
		return y.Wrapf(err, "while loading %s", args[0])
	}
	defer idx.Close()

	pattern := []byte(args[1])
	fmt.Printf("count=%d\n", idx.Count(pattern))

	positions, err := idx.Locate(pattern, queryLimit)
	if err != nil {
		return y.Wrapf(err, "while locating pattern")
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })

	parts := make([]string, len(positions))
	for i, p := range positions {
		parts[i] = fmt.Sprintf("%d", p)
	}
	fmt.Printf("positions: %s\n", strings.Join(parts, " "))
	return nil
}
