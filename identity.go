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
	"github.com/openzipkin/zipkin-go/idgenerator"
	"github.com/openzipkin/zipkin-go/model"
	"go.uber.org/atomic"
)

// IdentityContext hands out the trace ids of the batches emitted by one
// owner. High is drawn once at construction; Low counts encoded batches.
// It is safe for concurrent use.
type IdentityContext struct {
	high int64
	low  atomic.Int64
}

// NewIdentityContext returns an IdentityContext whose high half comes from
// gen. A nil gen uses a random 128 bit generator.
func NewIdentityContext(gen idgenerator.IDGenerator) *IdentityContext {
	if gen == nil {
		gen = idgenerator.NewRandom128()
	}
	tid := gen.TraceID()
	high := tid.High
	if high == 0 {
		high = uint64(gen.SpanID(tid))
	}
	return NewIdentityContextWith(int64(high), 0)
}

// NewIdentityContextWith returns an IdentityContext with a fixed high half
// and a counter whose next value is low+1.
func NewIdentityContextWith(high, low int64) *IdentityContext {
	ic := &IdentityContext{high: high}
	ic.low.Store(low)
	return ic
}

// High returns the fixed high half.
func (ic *IdentityContext) High() int64 {
	return ic.high
}

// Next advances the low counter and returns the trace id for one batch.
func (ic *IdentityContext) Next() TraceID {
	return TraceID{Low: ic.low.Inc(), High: ic.high}
}

// zipkinTraceID converts to the zipkin-go model, used by B3 propagation.
func (t TraceID) zipkinTraceID() model.TraceID {
	return model.TraceID{High: uint64(t.High), Low: uint64(t.Low)}
}

func traceIDFromZipkin(t model.TraceID) TraceID {
	return TraceID{Low: int64(t.Low), High: int64(t.High)}
}
