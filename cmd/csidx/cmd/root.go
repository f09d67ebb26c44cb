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

	"github.com/spf13/cobra"

	"github.com/dgraph-io/csidx"
	"github.com/dgraph-io/csidx/suffix"
)

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "csidx",
	Short: "Tools to build and query csidx full-text indexes.",
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// isIndexFile reports whether path starts with the container magic, i.e.
// is a serialized index rather than a raw text.
func isIndexFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	var head [8]byte
	if _, err := f.Read(head[:]); err != nil {
		return false
	}
	return string(head[:5]) == "CSIDX" && head[5] == 0 && head[6] == 0 && head[7] == 0
}

// terminate appends a sentinel byte smaller than every byte of text, so
// the rotation order is unambiguous. Texts that already end in a valid
// sentinel pass through. Returns false when no byte value qualifies.
func terminate(text []byte) ([]byte, bool) {
	if len(text) == 0 {
		return text, false
	}
	if suffix.HasSentinel(text) {
		return text, true
	}
	var min byte = 0xff
	for _, c := range text {
		if c < min {
			min = c
		}
	}
	switch {
	case min > '$':
		return append(text, '$'), true
	case min > 0:
		return append(text, 0), true
	default:
		return text, false
	}
}

// loadIndex opens path as a serialized index when it carries the container
// magic, and otherwise builds an in-memory index over its contents.
func loadIndex(path string, opt csidx.Options) (*csidx.Index, error) {
	if isIndexFile(path) {
		return csidx.Open(path, opt)
	}
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if terminated, ok := terminate(text); ok {
		text = terminated
	}
	return csidx.BuildFromText(text, opt)
}
