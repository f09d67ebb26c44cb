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

// Package suffix builds suffix arrays and the Burrows-Wheeler transform.
// Texts terminated by a unique minimal sentinel byte take the linear
// induced-sorting path; anything else falls back to a comparison sort.
package suffix

import (
	"bytes"
	"sort"
)

// Sort returns the suffix array of text: the permutation sa of [0, n) such
// that text[sa[i]:] < text[sa[i+1]:] lexicographically. Texts longer than
// MaxTextLen are not supported.
func Sort(text []byte) []int32 {
	n := len(text)
	if n == 0 {
		return nil
	}
	if !HasSentinel(text) {
		return sortNaive(text)
	}
	s := make([]int32, n)
	for i, c := range text {
		s[i] = int32(c)
	}
	sa := make([]int32, n)
	sais(s, 256, sa)
	return sa
}

// MaxTextLen bounds the indexable text size; suffix array entries and the
// sampled suffix array are 32-bit.
const MaxTextLen = 1<<31 - 1

// HasSentinel reports whether the final byte of text is strictly smaller
// than every other byte, making the suffix order (and the BWT) unambiguous.
func HasSentinel(text []byte) bool {
	n := len(text)
	if n == 0 {
		return false
	}
	last := text[n-1]
	for _, c := range text[:n-1] {
		if c <= last {
			return false
		}
	}
	return true
}

// sortNaive is the comparison-sort fallback for texts without a sentinel.
// O(n^2 log n) worst case; fine for small or test inputs.
func sortNaive(text []byte) []int32 {
	sa := make([]int32, len(text))
	for i := range sa {
		sa[i] = int32(i)
	}
	sort.Slice(sa, func(i, j int) bool {
		return bytes.Compare(text[sa[i]:], text[sa[j]:]) < 0
	})
	return sa
}

// sais fills sa with the suffix array of s. Symbols are in [0, sigma) and
// s must end with a unique minimal sentinel. Runs in O(n + sigma) per
// recursion level; the reduced problem halves, so O(n) total.
func sais(s []int32, sigma int, sa []int32) {
	n := len(s)
	for i := range sa {
		sa[i] = -1
	}
	if n == 0 {
		return
	}
	if n == 1 {
		sa[0] = 0
		return
	}

	// Suffix types: S when text[i:] < text[i+1:], L otherwise. The
	// sentinel suffix is S by definition.
	stype := make([]bool, n)
	stype[n-1] = true
	for i := n - 2; i >= 0; i-- {
		switch {
		case s[i] < s[i+1]:
			stype[i] = true
		case s[i] > s[i+1]:
			stype[i] = false
		default:
			stype[i] = stype[i+1]
		}
	}

	// LMS positions: S-type preceded by L-type, in text order.
	var lms []int32
	for i := 1; i < n; i++ {
		if stype[i] && !stype[i-1] {
			lms = append(lms, int32(i))
		}
	}

	freq := make([]int32, sigma)
	for _, c := range s {
		freq[c]++
	}

	// First induction pass sorts the LMS substrings.
	induce(s, sa, stype, freq, lms)

	// Name LMS substrings by their sorted order, collapsing equals.
	names := make([]int32, n)
	for i := range names {
		names[i] = -1
	}
	name := int32(0)
	prev := int32(-1)
	for _, j := range sa {
		if j <= 0 || !stype[j] || stype[j-1] {
			continue
		}
		if prev >= 0 && !lmsEqual(s, stype, int(prev), int(j)) {
			name++
		}
		names[j] = name
		prev = j
	}
	numNames := int(name) + 1

	reduced := make([]int32, len(lms))
	for i, p := range lms {
		reduced[i] = names[p]
	}

	// Order the LMS suffixes: recurse when names collide, otherwise the
	// naming is already a permutation and inverts directly.
	redSA := make([]int32, len(reduced))
	if numNames < len(reduced) {
		sais(reduced, numNames, redSA)
	} else {
		for i, nm := range reduced {
			redSA[nm] = int32(i)
		}
	}
	ordered := make([]int32, len(redSA))
	for i, ri := range redSA {
		ordered[i] = lms[ri]
	}

	// Final induction from the fully sorted LMS suffixes.
	for i := range sa {
		sa[i] = -1
	}
	induce(s, sa, stype, freq, ordered)
}

// induce seeds sa with the given LMS positions at their bucket tails, then
// induces L-type suffixes left-to-right and S-type suffixes right-to-left.
func induce(s, sa []int32, stype []bool, freq []int32, lms []int32) {
	tails := bucketTails(freq)
	for i := len(lms) - 1; i >= 0; i-- {
		c := s[lms[i]]
		sa[tails[c]] = lms[i]
		tails[c]--
	}

	heads := bucketHeads(freq)
	for i := 0; i < len(sa); i++ {
		j := sa[i]
		if j > 0 && !stype[j-1] {
			c := s[j-1]
			sa[heads[c]] = j - 1
			heads[c]++
		}
	}

	tails = bucketTails(freq)
	for i := len(sa) - 1; i >= 0; i-- {
		j := sa[i]
		if j > 0 && stype[j-1] {
			c := s[j-1]
			sa[tails[c]] = j - 1
			tails[c]--
		}
	}
}

func bucketHeads(freq []int32) []int32 {
	heads := make([]int32, len(freq))
	sum := int32(0)
	for c, f := range freq {
		heads[c] = sum
		sum += f
	}
	return heads
}

func bucketTails(freq []int32) []int32 {
	tails := make([]int32, len(freq))
	sum := int32(0)
	for c, f := range freq {
		sum += f
		tails[c] = sum - 1
	}
	return tails
}

// lmsEqual compares the LMS substrings starting at i and j, including the
// closing LMS position.
func lmsEqual(s []int32, stype []bool, i, j int) bool {
	n := len(s)
	for k := 0; ; k++ {
		if i+k >= n || j+k >= n {
			return false
		}
		if s[i+k] != s[j+k] {
			return false
		}
		if k > 0 {
			iLMS := stype[i+k] && !stype[i+k-1]
			jLMS := stype[j+k] && !stype[j+k-1]
			if iLMS && jLMS {
				return true
			}
			if iLMS != jLMS {
				return false
			}
		}
	}
}
