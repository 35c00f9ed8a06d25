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
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// A SpanRecorder handles the finished local traces of a Tracer.
type SpanRecorder interface {
	// RecordTrace is called once per local trace, when its root finishes.
	RecordTrace(trace FinishedTrace)
}

// RawSpan is a finished span as captured by the tracer. Begin and Elapsed are
// nanoseconds on the tracer's clock; Begin wraps for times before the tracer
// was created, so only differences of Begin values are meaningful.
type RawSpan struct {
	SpanID    int64
	RelatedID int64
	Role      Role
	Operation string
	Begin     uint64
	Elapsed   uint64

	// Properties are key:value pairs from tags and log fields, in the order
	// they were set.
	Properties [][2]string
}

// FinishedTrace is the unit handed to a SpanRecorder: every span of one local
// trace that finished no later than its root.
type FinishedTrace struct {
	TraceID     TraceID
	StartTimeNs uint64
	Spans       []RawSpan
}

// EventTable interns operation names so spans can carry them as small keys.
type EventTable struct {
	ids   map[string]uint32
	names []string
}

// Intern returns the key of name, adding it if needed.
func (e *EventTable) Intern(name string) uint32 {
	if id, ok := e.ids[name]; ok {
		return id
	}
	if e.ids == nil {
		e.ids = make(map[string]uint32)
	}
	id := uint32(len(e.names))
	e.ids[name] = id
	e.names = append(e.names, name)
	return id
}

// Name resolves a key returned by Intern. Unknown keys resolve to "".
func (e *EventTable) Name(id uint32) string {
	if int(id) >= len(e.names) {
		return ""
	}
	return e.names[id]
}

// Len returns the number of interned names.
func (e *EventTable) Len() int {
	return len(e.names)
}

// Reset forgets every name.
func (e *EventTable) Reset() {
	for k := range e.ids {
		delete(e.ids, k)
	}
	e.names = e.names[:0]
}

// BatchRecorder implements SpanRecorder by encoding every finished trace as
// one emitBatch message and handing it to a Collector.
type BatchRecorder struct {
	collector   Collector
	serviceName string
	logger      log.Logger
	metrics     *Metrics

	mu      sync.Mutex
	encoder Encoder
	events  EventTable
	batch   Batch
}

// RecorderOption allows for functional options.
type RecorderOption func(r *BatchRecorder)

// RecorderLogger sets the logger used to report dropped traces.
func RecorderLogger(logger log.Logger) RecorderOption {
	return func(r *BatchRecorder) { r.logger = logger }
}

// RecorderMetrics sets the metrics the recorder reports to.
func RecorderMetrics(m *Metrics) RecorderOption {
	return func(r *BatchRecorder) { r.metrics = m }
}

// NewBatchRecorder creates a BatchRecorder writing serviceName batches to c.
func NewBatchRecorder(c Collector, serviceName string, options ...RecorderOption) *BatchRecorder {
	r := &BatchRecorder{
		collector:   c,
		serviceName: serviceName,
		logger:      log.NewNopLogger(),
	}
	for _, option := range options {
		option(r)
	}
	if r.metrics == nil {
		r.metrics = newUnregisteredMetrics()
	}
	r.batch.EventName = r.events.Name
	return r
}

// RecordTrace implements SpanRecorder.
func (r *BatchRecorder) RecordTrace(trace FinishedTrace) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fill(trace)
	if err := r.batch.Validate(); err != nil {
		level.Error(r.logger).Log("msg", "dropping trace", "trace_id_low", trace.TraceID.Low, "err", err)
		return
	}

	msg := r.encoder.Encode(&r.batch, trace.TraceID)
	r.metrics.BatchesEncoded.Inc()
	r.metrics.SpansEncoded.Add(float64(len(r.batch.Spans)))
	r.metrics.BytesEncoded.Add(float64(len(msg)))

	if err := r.collector.Collect(msg); err != nil {
		level.Error(r.logger).Log("msg", "collect batch", "err", err)
	}
}

// fill rebuilds r.batch from trace, reusing its storage.
func (r *BatchRecorder) fill(trace FinishedTrace) {
	r.events.Reset()
	r.batch.ServiceName = r.serviceName
	r.batch.StartTimeNs = trace.StartTimeNs
	r.batch.CyclesPerSecond = nanosPerSecond
	r.batch.Spans = r.batch.Spans[:0]
	r.batch.Properties.Reset()

	for i := range trace.Spans {
		sp := &trace.Spans[i]
		r.batch.Spans = append(r.batch.Spans, Span{
			ID:        sp.SpanID,
			RelatedID: sp.RelatedID,
			Role:      sp.Role,
			Begin:     sp.Begin,
			Elapsed:   sp.Elapsed,
			Event:     r.events.Intern(sp.Operation),
		})
		for _, kv := range sp.Properties {
			r.batch.Properties.Add(sp.SpanID, kv[0], kv[1])
		}
	}
}
