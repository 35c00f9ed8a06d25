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
	"strconv"
	"strings"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/openzipkin/zipkin-go/model"
	zb3 "github.com/openzipkin/zipkin-go/propagation/b3"

	"github.com/minitrace-contrib/jaeger-go-opentracing/propagation/b3"
)

// TraceContextHeader is the carrier key of the uber-trace-id format:
// {trace-id}:{span-id}:{parent-span-id}:{flags}, all in lower case hex.
const TraceContextHeader = "uber-trace-id"

// DelegatingCarrier is a flexible carrier interface which can be implemented
// by types which have a means of storing the trace metadata and already know
// how to serialize themselves (for example, protocol buffers).
type DelegatingCarrier interface {
	SetState(traceIDHigh, traceIDLow, spanID, parentSpanID int64, sampled bool)
	State() (traceIDHigh, traceIDLow, spanID, parentSpanID int64, sampled bool)
}

type accessorPropagator struct{}

func (p *accessorPropagator) Inject(
	spanContext opentracing.SpanContext,
	carrier interface{},
) error {
	ac, ok := carrier.(DelegatingCarrier)
	if !ok || ac == nil {
		return opentracing.ErrInvalidCarrier
	}
	sc, ok := spanContext.(SpanContext)
	if !ok {
		return opentracing.ErrInvalidSpanContext
	}
	ac.SetState(sc.TraceID.High, sc.TraceID.Low, sc.SpanID, sc.ParentID, sc.Sampled)
	return nil
}

func (p *accessorPropagator) Extract(
	carrier interface{},
) (opentracing.SpanContext, error) {
	ac, ok := carrier.(DelegatingCarrier)
	if !ok || ac == nil {
		return nil, opentracing.ErrInvalidCarrier
	}

	high, low, spanID, parentID, sampled := ac.State()
	if high == 0 && low == 0 && spanID == 0 {
		return nil, opentracing.ErrSpanContextNotFound
	}
	return SpanContext{
		TraceID:  TraceID{High: high, Low: low},
		SpanID:   spanID,
		ParentID: parentID,
		Sampled:  sampled,
	}, nil
}

type textMapPropagator struct{}

func (p *textMapPropagator) Inject(
	spanContext opentracing.SpanContext,
	opaqueCarrier interface{},
) error {
	sc, ok := spanContext.(SpanContext)
	if !ok {
		return opentracing.ErrInvalidSpanContext
	}
	carrier, ok := opaqueCarrier.(opentracing.TextMapWriter)
	if !ok {
		return opentracing.ErrInvalidCarrier
	}
	carrier.Set(TraceContextHeader, formatTraceContext(sc))
	return nil
}

func (p *textMapPropagator) Extract(
	opaqueCarrier interface{},
) (opentracing.SpanContext, error) {
	carrier, ok := opaqueCarrier.(opentracing.TextMapReader)
	if !ok {
		return nil, opentracing.ErrInvalidCarrier
	}
	var (
		sc    SpanContext
		found bool
	)
	err := carrier.ForeachKey(func(k, v string) error {
		if !strings.EqualFold(k, TraceContextHeader) {
			return nil
		}
		var err error
		if sc, err = parseTraceContext(v); err != nil {
			return opentracing.ErrSpanContextCorrupted
		}
		found = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, opentracing.ErrSpanContextNotFound
	}
	return sc, nil
}

func formatTraceContext(sc SpanContext) string {
	var flags byte
	if sc.Sampled {
		flags = flagSampled
	}
	return strings.Join([]string{
		sc.TraceID.zipkinTraceID().String(),
		strconv.FormatUint(uint64(sc.SpanID), 16),
		strconv.FormatUint(uint64(sc.ParentID), 16),
		strconv.FormatUint(uint64(flags), 16),
	}, ":")
}

func parseTraceContext(v string) (SpanContext, error) {
	parts := strings.Split(v, ":")
	if len(parts) != 4 {
		return SpanContext{}, opentracing.ErrSpanContextCorrupted
	}
	traceID, err := model.TraceIDFromHex(parts[0])
	if err != nil {
		return SpanContext{}, err
	}
	spanID, err := strconv.ParseUint(parts[1], 16, 64)
	if err != nil {
		return SpanContext{}, err
	}
	parentID, err := strconv.ParseUint(parts[2], 16, 64)
	if err != nil {
		return SpanContext{}, err
	}
	flags, err := strconv.ParseUint(parts[3], 16, 8)
	if err != nil {
		return SpanContext{}, err
	}
	return SpanContext{
		TraceID:  traceIDFromZipkin(traceID),
		SpanID:   int64(spanID),
		ParentID: int64(parentID),
		Sampled:  flags&flagSampled != 0,
	}, nil
}

type b3Propagator struct {
	tracer *Tracer
}

func (p *b3Propagator) Inject(
	spanContext opentracing.SpanContext,
	opaqueCarrier interface{},
) error {
	sc, ok := spanContext.(SpanContext)
	if !ok {
		return opentracing.ErrInvalidSpanContext
	}
	carrier, ok := opaqueCarrier.(opentracing.TextMapWriter)
	if !ok {
		return opentracing.ErrInvalidCarrier
	}

	zsc := model.SpanContext{
		TraceID: sc.TraceID.zipkinTraceID(),
		ID:      model.ID(sc.SpanID),
		Sampled: &sc.Sampled,
	}
	if sc.ParentID != 0 {
		parentID := model.ID(sc.ParentID)
		zsc.ParentID = &parentID
	}

	switch p.tracer.opts.b3InjectOpt {
	case B3InjectSingle:
		return b3.InjectSingleHTTP(zsc, carrier)
	case B3InjectBoth:
		if err := b3.InjectSingleHTTP(zsc, carrier); err != nil {
			return err
		}
	}
	return b3.InjectHTTP(zsc, carrier)
}

func (p *b3Propagator) Extract(
	opaqueCarrier interface{},
) (opentracing.SpanContext, error) {
	zsc, err := b3.ExtractHTTP(opaqueCarrier)
	switch err {
	case nil:
	case opentracing.ErrInvalidCarrier:
		return nil, err
	case zb3.ErrEmptyContext:
		return nil, opentracing.ErrSpanContextNotFound
	default:
		return nil, opentracing.ErrSpanContextCorrupted
	}

	sc := SpanContext{
		TraceID: traceIDFromZipkin(zsc.TraceID),
		SpanID:  int64(zsc.ID),
		Sampled: zsc.Debug || (zsc.Sampled != nil && *zsc.Sampled),
	}
	if zsc.ParentID != nil {
		sc.ParentID = int64(*zsc.ParentID)
	}
	return sc, nil
}
