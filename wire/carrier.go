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

// Package wire holds carriers for propagating span contexts outside of
// OpenTracing's text formats.
package wire

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/minitrace-contrib/jaeger-go-opentracing/thrift/compact"
)

// ErrMalformedState is returned by Carrier.UnmarshalBinary for input that
// does not hold a complete tracer state.
var ErrMalformedState = errors.New("wire: malformed tracer state")

// Carrier is a DelegatingCarrier holding the tracer state in plain fields. It
// marshals to a compact binary form: four zigzag varints (trace id high, trace
// id low, span id, parent span id) followed by one flags byte.
type Carrier struct {
	TraceIDHigh  int64
	TraceIDLow   int64
	SpanID       int64
	ParentSpanID int64
	Sampled      bool
}

// SetState sets the tracer state.
func (c *Carrier) SetState(traceIDHigh, traceIDLow, spanID, parentSpanID int64, sampled bool) {
	c.TraceIDHigh = traceIDHigh
	c.TraceIDLow = traceIDLow
	c.SpanID = spanID
	c.ParentSpanID = parentSpanID
	c.Sampled = sampled
}

// State returns the tracer state.
func (c *Carrier) State() (traceIDHigh, traceIDLow, spanID, parentSpanID int64, sampled bool) {
	return c.TraceIDHigh, c.TraceIDLow, c.SpanID, c.ParentSpanID, c.Sampled
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (c *Carrier) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, 4*binary.MaxVarintLen64+1)
	buf = compact.AppendI64(buf, c.TraceIDHigh)
	buf = compact.AppendI64(buf, c.TraceIDLow)
	buf = compact.AppendI64(buf, c.SpanID)
	buf = compact.AppendI64(buf, c.ParentSpanID)
	var flags byte
	if c.Sampled {
		flags = 1
	}
	return append(buf, flags), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (c *Carrier) UnmarshalBinary(data []byte) error {
	var ids [4]int64
	for i := range ids {
		// binary.Varint reads the same zigzag form compact.AppendI64 writes.
		v, n := binary.Varint(data)
		if n <= 0 {
			return errors.Wrapf(ErrMalformedState, "field %d", i)
		}
		ids[i] = v
		data = data[n:]
	}
	if len(data) != 1 {
		return errors.Wrap(ErrMalformedState, "flags")
	}
	c.SetState(ids[0], ids[1], ids[2], ids[3], data[0]&1 != 0)
	return nil
}
