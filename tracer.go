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

// Package jaegertracer is an OpenTracing tracer that reports every local
// trace to a Jaeger agent as one Thrift Compact emitBatch datagram.
package jaegertracer

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-kit/log"
	otobserver "github.com/opentracing-contrib/go-observer"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/openzipkin/zipkin-go/idgenerator"
	"github.com/openzipkin/zipkin-go/model"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// nanosPerSecond is the cycle rate of the tracer's clock.
const nanosPerSecond = 1e9

// TagRole is a start tag selecting the role of a FollowsFrom span. Its value
// is "spawning" or "scheduling"; anything else records a settle span.
const TagRole = "span.role"

// ErrNilCollector is returned by NewTracer without a collector or recorder.
var ErrNilCollector = errors.New("jaegertracer: nil collector")

// Tracer implements opentracing.Tracer. Every local trace, the spans sharing
// a root started by this tracer, is encoded as one emitBatch message when its
// root finishes.
type Tracer struct {
	opts               TracerOptions
	recorder           SpanRecorder
	identity           *IdentityContext
	idGenerator        idgenerator.IDGenerator
	observer           otobserver.Observer
	logger             log.Logger
	epoch              time.Time
	textPropagator     *textMapPropagator
	b3Propagator       *b3Propagator
	accessorPropagator *accessorPropagator
}

// NewTracer creates a Tracer whose batches are delivered to c.
func NewTracer(c Collector, opts ...TracerOption) (*Tracer, error) {
	t := &Tracer{
		opts: TracerOptions{
			sampler: AlwaysSample,
			logger:  log.NewNopLogger(),
		},
		epoch: time.Now(),
	}
	for _, o := range opts {
		o(&t.opts)
	}

	t.recorder = t.opts.recorder
	if t.recorder == nil {
		if c == nil {
			return nil, ErrNilCollector
		}
		t.recorder = NewBatchRecorder(
			c,
			t.opts.serviceName,
			RecorderLogger(t.opts.logger),
			RecorderMetrics(t.opts.metrics),
		)
	}

	t.idGenerator = t.opts.idGenerator
	if t.idGenerator == nil {
		t.idGenerator = idgenerator.NewRandom64()
	}
	t.identity = t.opts.identity
	if t.identity == nil {
		t.identity = NewIdentityContext(t.opts.idGenerator)
	}
	t.observer = newObserver(t.opts.observers)
	t.logger = t.opts.logger
	t.textPropagator = &textMapPropagator{}
	t.b3Propagator = &b3Propagator{t}
	t.accessorPropagator = &accessorPropagator{}
	return t, nil
}

// StartSpan belongs to the opentracing.Tracer interface.
func (t *Tracer) StartSpan(operationName string, opts ...opentracing.StartSpanOption) opentracing.Span {
	var startSpanOptions opentracing.StartSpanOptions
	for _, opt := range opts {
		opt.Apply(&startSpanOptions)
	}

	startTime := startSpanOptions.StartTime
	if startTime.IsZero() {
		startTime = time.Now()
	}

	sp := &spanImpl{
		tracer:    t,
		startTime: startTime,
		raw: RawSpan{
			SpanID:    t.newSpanID(),
			Operation: operationName,
			Begin:     t.cycles(startTime),
		},
	}

	parent, refType, hasParent := parentContext(startSpanOptions.References)
	if hasParent && !parent.IsRemote() {
		sp.trace = parent.trace
		sp.raw.RelatedID = parent.SpanID
		sp.raw.Role = childRole(refType, startSpanOptions.Tags[TagRole])
		sp.context = SpanContext{
			TraceID:  parent.TraceID,
			SpanID:   sp.raw.SpanID,
			ParentID: parent.SpanID,
			Sampled:  parent.Sampled,
			trace:    parent.trace,
		}
	} else {
		sp.raw.Role = RoleRoot
		var (
			traceID TraceID
			sampled bool
		)
		switch {
		case hasParent && parent.TraceID != (TraceID{}):
			traceID, sampled = parent.TraceID, parent.Sampled
			sp.raw.RelatedID = parent.SpanID
		case hasParent:
			// sampling decision without a trace, as sent by unsampled callers
			sampled = parent.Sampled
		default:
			sampled = t.opts.sampler(uint64(sp.raw.SpanID))
		}
		if sampled && traceID == (TraceID{}) {
			traceID = t.identity.Next()
		}
		sp.trace = &localTrace{
			traceID:     traceID,
			startTimeNs: uint64(startTime.UnixNano()),
			sampled:     sampled,
		}
		sp.context = SpanContext{
			TraceID:  traceID,
			SpanID:   sp.raw.SpanID,
			ParentID: sp.raw.RelatedID,
			Sampled:  sampled,
			trace:    sp.trace,
		}
	}

	keys := maps.Keys(startSpanOptions.Tags)
	slices.Sort(keys)
	for _, k := range keys {
		if k == TagRole {
			continue
		}
		sp.raw.Properties = append(sp.raw.Properties, [2]string{k, fmt.Sprint(startSpanOptions.Tags[k])})
	}

	if t.observer != nil {
		if spObs, ok := t.observer.OnStartSpan(sp, operationName, startSpanOptions); ok {
			sp.observer = spObs
		}
	}
	return sp
}

// cycles returns the position of tm on the tracer's clock: nanoseconds since
// the epoch, in two's complement for times before it. Only differences of
// cycles are meaningful.
func (t *Tracer) cycles(tm time.Time) uint64 {
	return uint64(tm.Sub(t.epoch))
}

func (t *Tracer) newSpanID() int64 {
	return int64(t.idGenerator.SpanID(model.TraceID{}))
}

// parentContext returns the first reference of this tracer's span contexts.
func parentContext(refs []opentracing.SpanReference) (SpanContext, opentracing.SpanReferenceType, bool) {
	for _, ref := range refs {
		switch sc := ref.ReferencedContext.(type) {
		case SpanContext:
			return sc, ref.Type, true
		case *SpanContext:
			if sc != nil {
				return *sc, ref.Type, true
			}
		}
	}
	return SpanContext{}, 0, false
}

func childRole(refType opentracing.SpanReferenceType, roleTag interface{}) Role {
	if refType == opentracing.ChildOfRef {
		return RoleLocal
	}
	switch roleTag {
	case "spawning":
		return RoleSpawning
	case "scheduling":
		return RoleScheduling
	}
	return RoleSettle
}

type delegatorType struct{}

// Delegator is the format to use for DelegatingCarrier.
var Delegator delegatorType

// Inject belongs to the opentracing.Tracer interface. TextMap carriers get
// the uber-trace-id header, HTTPHeaders carriers get B3 headers.
func (t *Tracer) Inject(sc opentracing.SpanContext, format interface{}, carrier interface{}) error {
	switch format {
	case opentracing.TextMap:
		return t.textPropagator.Inject(sc, carrier)
	case opentracing.HTTPHeaders:
		return t.b3Propagator.Inject(sc, carrier)
	}
	if _, ok := format.(delegatorType); ok {
		return t.accessorPropagator.Inject(sc, carrier)
	}
	return opentracing.ErrUnsupportedFormat
}

// Extract belongs to the opentracing.Tracer interface. HTTPHeaders carriers
// are read as B3 first and as uber-trace-id when no B3 header is present.
func (t *Tracer) Extract(format interface{}, carrier interface{}) (opentracing.SpanContext, error) {
	switch format {
	case opentracing.TextMap:
		return t.textPropagator.Extract(carrier)
	case opentracing.HTTPHeaders:
		sc, err := t.b3Propagator.Extract(carrier)
		if err == opentracing.ErrSpanContextNotFound {
			return t.textPropagator.Extract(carrier)
		}
		return sc, err
	}
	if _, ok := format.(delegatorType); ok {
		return t.accessorPropagator.Extract(carrier)
	}
	return nil, opentracing.ErrUnsupportedFormat
}

// localTrace collects the finished spans of one local trace until its root
// finishes.
type localTrace struct {
	traceID     TraceID
	startTimeNs uint64
	sampled     bool

	mu    sync.Mutex
	spans []RawSpan
	done  bool
}

// add records a finished non root span. It reports false once the root has
// finished.
func (lt *localTrace) add(sp RawSpan) bool {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	if lt.done {
		return false
	}
	lt.spans = append(lt.spans, sp)
	return true
}

// finish records the root and closes the trace.
func (lt *localTrace) finish(root RawSpan) (FinishedTrace, bool) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	if lt.done {
		return FinishedTrace{}, false
	}
	lt.done = true
	spans := append(lt.spans, root)
	lt.spans = nil
	return FinishedTrace{
		TraceID:     lt.traceID,
		StartTimeNs: lt.startTimeNs,
		Spans:       spans,
	}, true
}
