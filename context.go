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

// SpanContext holds the basic Span metadata.
type SpanContext struct {
	TraceID  TraceID
	SpanID   int64
	ParentID int64
	Sampled  bool

	// trace is the local trace the span belongs to; nil for contexts
	// extracted from a carrier.
	trace *localTrace
}

// ForeachBaggageItem belongs to the opentracing.SpanContext interface.
// Baggage is not supported.
func (c SpanContext) ForeachBaggageItem(handler func(k, v string) bool) {}

// IsRemote reports whether c was extracted from a carrier rather than taken
// from a span of this process.
func (c SpanContext) IsRemote() bool {
	return c.trace == nil
}
