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

package jaegertracer

import "github.com/minitrace-contrib/jaeger-go-opentracing/properties"

// TraceID is the 128 bit Jaeger trace id split in two signed halves.
type TraceID struct {
	Low  int64
	High int64
}

// Role describes how a span relates to the span it references.
type Role int

// Available Role values.
const (
	RoleRoot Role = iota
	RoleLocal
	RoleSpawning
	RoleScheduling
	RoleSettle
)

// String implements fmt.Stringer.
func (r Role) String() string {
	switch r {
	case RoleRoot:
		return "root"
	case RoleLocal:
		return "local"
	case RoleSpawning:
		return "spawning"
	case RoleScheduling:
		return "scheduling"
	case RoleSettle:
		return "settle"
	}
	return "unknown"
}

// SpanRefKind is the Jaeger span reference type.
type SpanRefKind int32

// Available SpanRefKind values.
const (
	ChildOf     SpanRefKind = 0
	FollowsFrom SpanRefKind = 1
)

// RefKind returns the reference kind a span of role r is written with. Root
// spans carry no reference.
func (r Role) RefKind() SpanRefKind {
	if r == RoleLocal {
		return ChildOf
	}
	return FollowsFrom
}

// Span is one finished span of a batch. Begin and Elapsed are cycle counts
// scaled by Batch.CyclesPerSecond.
type Span struct {
	ID        int64
	RelatedID int64
	Role      Role
	Begin     uint64
	Elapsed   uint64
	Event     uint32
}

// Properties are the key:value runs of a batch in one flat buffer. The i-th
// run is Lens[i] bytes long and owned by SpanIDs[i].
type Properties struct {
	Buf     []byte
	SpanIDs []int64
	Lens    []int
}

// Add appends a key:value run owned by spanID.
func (p *Properties) Add(spanID int64, key, value string) {
	n := len(p.Buf)
	p.Buf = append(p.Buf, key...)
	p.Buf = append(p.Buf, ':')
	p.Buf = append(p.Buf, value...)
	p.SpanIDs = append(p.SpanIDs, spanID)
	p.Lens = append(p.Lens, len(p.Buf)-n)
}

// Len returns the number of runs.
func (p *Properties) Len() int {
	return len(p.Lens)
}

// Reset empties p, keeping its storage.
func (p *Properties) Reset() {
	p.Buf = p.Buf[:0]
	p.SpanIDs = p.SpanIDs[:0]
	p.Lens = p.Lens[:0]
}

func (p *Properties) regroup() properties.Grouped {
	return properties.Regroup(p.Buf, p.SpanIDs, p.Lens)
}

// Batch is everything one emitBatch message is built from.
type Batch struct {
	ServiceName string
	Spans       []Span
	Properties  Properties

	// StartTimeNs is the wall clock time, in unix nanoseconds, of the root
	// span's Begin.
	StartTimeNs     uint64
	CyclesPerSecond float64

	// EventName resolves Span.Event to an operation name.
	EventName func(event uint32) string
}
