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

import (
	"github.com/pkg/errors"

	"github.com/minitrace-contrib/jaeger-go-opentracing/properties"
	"github.com/minitrace-contrib/jaeger-go-opentracing/thrift/compact"
)

// ErrNoRootSpan is the panic value of Encode for a batch without a root span.
var ErrNoRootSpan = errors.New("jaegertracer: batch has no root span")

// flagSampled is the Jaeger SAMPLED span flag. DEBUG (2) is never set.
const flagSampled = 1

// Operation name suffixes by role.
const (
	suffixRoot       = " (Root spawning)"
	suffixSpawning   = " (Spawning)"
	suffixScheduling = " (Scheduling)"
)

// Validate reports the contract violation Encode would panic with, if any.
func (b *Batch) Validate() error {
	if _, ok := b.anchor(); !ok {
		return ErrNoRootSpan
	}
	return properties.Validate(b.Properties.Buf, b.Properties.SpanIDs, b.Properties.Lens)
}

func (b *Batch) anchor() (uint64, bool) {
	for i := range b.Spans {
		if b.Spans[i].Role == RoleRoot {
			return b.Spans[i].Begin, true
		}
	}
	return 0, false
}

// Encode appends to dst the emitBatch message for b, stamped with id, and
// returns the extended buffer.
//
// A batch without a root span, or with inconsistent Properties, is a
// programming error: Encode panics with ErrNoRootSpan or the properties
// package error before anything is appended to dst.
func Encode(dst []byte, b *Batch, id TraceID) []byte {
	anchor, ok := b.anchor()
	if !ok {
		panic(ErrNoRootSpan)
	}
	grouped := b.Properties.regroup()

	dst = append(dst, compact.Preamble[:]...)
	dst = compact.AppendString(dst, b.ServiceName)
	// process tags are never written
	dst = compact.AppendStop(dst)

	dst = append(dst, compact.FieldList)
	dst = compact.AppendListHeader(dst, len(b.Spans), compact.TypeStruct)

	for i := range b.Spans {
		dst = appendSpan(dst, b, &b.Spans[i], id, anchor, grouped)
	}

	// spans list, then batch struct
	dst = compact.AppendStop(dst)
	return compact.AppendStop(dst)
}

// EncodeNext is Encode stamped with the next trace id of ic, which it also
// returns. The id is drawn only after b is known to be valid, so a panicking
// call leaves the counter untouched.
func EncodeNext(dst []byte, b *Batch, ic *IdentityContext) ([]byte, TraceID) {
	if err := b.Validate(); err != nil {
		panic(err)
	}
	id := ic.Next()
	return Encode(dst, b, id), id
}

func appendSpan(dst []byte, b *Batch, s *Span, id TraceID, anchor uint64, grouped properties.Grouped) []byte {
	dst = compact.AppendI64Field(dst, id.Low)
	dst = compact.AppendI64Field(dst, id.High)
	dst = compact.AppendI64Field(dst, s.ID)
	dst = compact.AppendI64Field(dst, s.RelatedID)

	dst = append(dst, compact.FieldBinary)
	dst = appendOperationName(dst, b.EventName, s)

	flagsHeader := byte(compact.FieldI32Skipped)
	if s.Role != RoleRoot {
		dst = append(dst, compact.FieldList, compact.SingleStructList)
		dst = append(dst, compact.FieldI32)
		dst = compact.AppendI32(dst, int32(s.Role.RefKind()))
		dst = compact.AppendI64Field(dst, id.Low)
		dst = compact.AppendI64Field(dst, id.High)
		dst = compact.AppendI64Field(dst, s.RelatedID)
		dst = compact.AppendStop(dst)
		flagsHeader = compact.FieldI32
	}

	dst = append(dst, flagsHeader)
	dst = compact.AppendI32(dst, flagSampled)

	dst = compact.AppendI64Field(dst, startTimeMicros(b, s.Begin, anchor))
	dst = compact.AppendI64Field(dst, cyclesToMicros(s.Elapsed, b.CyclesPerSecond))

	if tags := grouped.Of(s.ID); len(tags) > 0 {
		dst = append(dst, compact.FieldList)
		dst = compact.AppendListHeader(dst, len(tags), compact.TypeStruct)
		for _, tag := range tags {
			key, value := tag.Split()
			dst = compact.AppendBinaryField(dst, key)
			// tag type: string
			dst = append(dst, compact.FieldI32, 0x00)
			dst = compact.AppendBinaryField(dst, value)
			dst = compact.AppendStop(dst)
		}
	}

	return compact.AppendStop(dst)
}

func appendOperationName(dst []byte, eventName func(uint32) string, s *Span) []byte {
	var name string
	if eventName != nil {
		name = eventName(s.Event)
	}
	var suffix string
	switch s.Role {
	case RoleRoot:
		suffix = suffixRoot
	case RoleSpawning:
		suffix = suffixSpawning
	case RoleScheduling:
		suffix = suffixScheduling
	}
	dst = compact.AppendVarint(dst, uint64(len(name)+len(suffix)))
	dst = append(dst, name...)
	return append(dst, suffix...)
}

func startTimeMicros(b *Batch, begin, anchor uint64) int64 {
	delta := int64(begin - anchor)
	return int64(b.StartTimeNs/1000) + int64(float64(delta)/b.CyclesPerSecond*1e6)
}

func cyclesToMicros(cycles uint64, cyclesPerSecond float64) int64 {
	return int64(float64(cycles) / cyclesPerSecond * 1e6)
}

// Encoder encodes batches into a reusable buffer. It is not safe for
// concurrent use.
type Encoder struct {
	buf []byte
}

// Encode encodes b stamped with id. The returned slice is only valid until
// the next call.
func (e *Encoder) Encode(b *Batch, id TraceID) []byte {
	e.buf = Encode(e.buf[:0], b, id)
	return e.buf
}
