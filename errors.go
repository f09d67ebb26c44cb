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
	"github.com/pkg/errors"
)

// ErrEmptyText is returned when building an index over an empty text.
var ErrEmptyText = errors.New("Text cannot be empty")

// ErrTextTooLarge is returned when the text exceeds the 32-bit suffix
// array range.
var ErrTextTooLarge = errors.New("Text exceeds maximum indexable length")

// ErrBadMagic is returned when opening a file that does not start with the
// index magic bytes.
var ErrBadMagic = errors.New("Invalid index file: bad magic")

// ErrBadVersion is returned when the index file version is unsupported.
var ErrBadVersion = errors.New("Invalid index file: unsupported version")

// ErrTruncated is returned when a section offset or length points outside
// the mapped file.
var ErrTruncated = errors.New("Invalid index file: truncated section")

// ErrBadFooter is returned when the footer sentinel does not match.
var ErrBadFooter = errors.New("Invalid index file: bad footer sentinel")

// ErrCorrupt indicates an internal consistency failure while answering a
// query, such as an LF walk that fails to terminate. It is unreachable for
// a correctly built index and should be treated as fatal.
var ErrCorrupt = errors.New("Index corruption detected")

// ErrHuffmanReserved is returned when the reserved Huffman-shaped wavelet
// configuration is requested.
var ErrHuffmanReserved = errors.New("Huffman-shaped wavelet is reserved and not implemented")

// ErrInvalidRequest is returned if the user request is invalid.
var ErrInvalidRequest = errors.New("Invalid request")
