// Copyright 2022 The OpenZipkin Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package properties regroups the free-form key:value byte runs recorded
// against spans so that every span's runs can be written as one tag list.
package properties

import (
	"bytes"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

var (
	// ErrLengthMismatch is the panic value of Regroup when the span id and
	// length slices differ in length.
	ErrLengthMismatch = errors.New("properties: span id and length slices differ in length")

	// ErrShortBuffer is the panic value of Regroup when the lengths add up to
	// more than the buffer holds.
	ErrShortBuffer = errors.New("properties: lengths overrun the property buffer")
)

// Property is one key:value run owned by a span.
type Property struct {
	SpanID int64
	Data   []byte
}

// Split splits the run on its first colon. A run without a colon is all key.
func (p Property) Split() (key, value []byte) {
	i := bytes.IndexByte(p.Data, ':')
	if i < 0 {
		return p.Data, nil
	}
	return p.Data[:i], p.Data[i+1:]
}

// Range addresses a span's group within Grouped.Pairs.
type Range struct {
	Start int
	Count int
}

// Grouped holds the runs ordered by span id and the per span index into them.
type Grouped struct {
	Pairs []Property
	Index map[int64]Range
}

// Of returns the runs owned by spanID, or nil.
func (g Grouped) Of(spanID int64) []Property {
	r, ok := g.Index[spanID]
	if !ok {
		return nil
	}
	return g.Pairs[r.Start : r.Start+r.Count]
}

// Validate reports the precondition violation Regroup would panic with.
func Validate(buf []byte, spanIDs []int64, lens []int) error {
	if len(spanIDs) != len(lens) {
		return ErrLengthMismatch
	}
	total := 0
	for _, l := range lens {
		if l < 0 {
			return ErrShortBuffer
		}
		total += l
	}
	if total > len(buf) {
		return ErrShortBuffer
	}
	return nil
}

// Regroup cuts buf into consecutive runs, the i-th being lens[i] bytes owned
// by spanIDs[i], and groups them by span id. Runs of the same span keep their
// recorded order. The returned slices alias buf.
//
// Mismatched spanIDs and lens, or lens overrunning buf, are programming
// errors and panic.
func Regroup(buf []byte, spanIDs []int64, lens []int) Grouped {
	if err := Validate(buf, spanIDs, lens); err != nil {
		panic(err)
	}

	pairs := make([]Property, len(lens))
	cursor := 0
	for i, l := range lens {
		pairs[i] = Property{SpanID: spanIDs[i], Data: buf[cursor : cursor+l : cursor+l]}
		cursor += l
	}

	slices.SortStableFunc(pairs, func(a, b Property) int {
		switch {
		case a.SpanID < b.SpanID:
			return -1
		case a.SpanID > b.SpanID:
			return 1
		}
		return 0
	})

	index := make(map[int64]Range)
	start := 0
	for i := 1; i <= len(pairs); i++ {
		if i == len(pairs) || pairs[i].SpanID != pairs[start].SpanID {
			index[pairs[start].SpanID] = Range{Start: start, Count: i - start}
			start = i
		}
	}

	return Grouped{Pairs: pairs, Index: index}
}
