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

// Package events mirrors spans into golang.org/x/net/trace so they show up
// on the /debug/requests page.
package events

import (
	otobserver "github.com/opentracing-contrib/go-observer"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/net/trace"

	jaegertracer "github.com/minitrace-contrib/jaeger-go-opentracing"
)

// DefaultFamily is the net/trace family spans are registered under.
const DefaultFamily = "tracing"

// NetTraceObserver is an otobserver.Observer that opens a net/trace trace for
// every started span. Register it with jaegertracer.WithObserver.
type NetTraceObserver struct {
	family   string
	newTrace func(family, title string) trace.Trace
}

// NewNetTraceObserver returns an observer registering spans under family,
// or DefaultFamily when family is empty.
func NewNetTraceObserver(family string) *NetTraceObserver {
	if family == "" {
		family = DefaultFamily
	}
	return &NetTraceObserver{family: family, newTrace: trace.New}
}

// OnStartSpan implements otobserver.Observer.
func (o *NetTraceObserver) OnStartSpan(sp opentracing.Span, operationName string, options opentracing.StartSpanOptions) (otobserver.SpanObserver, bool) {
	tr := o.newTrace(o.family, operationName)
	if sc, ok := sp.Context().(jaegertracer.SpanContext); ok {
		tr.SetTraceInfo(uint64(sc.TraceID.Low), uint64(sc.SpanID))
	}
	keys := maps.Keys(options.Tags)
	slices.Sort(keys)
	for _, k := range keys {
		tr.LazyPrintf("%s=%v", k, options.Tags[k])
	}
	return &netTraceSpan{tr: tr}, true
}

type netTraceSpan struct {
	tr trace.Trace
}

func (s *netTraceSpan) OnSetOperationName(operationName string) {
	s.tr.LazyPrintf("operation %s", operationName)
}

func (s *netTraceSpan) OnSetTag(key string, value interface{}) {
	if key == string(ext.Error) && value == true {
		s.tr.SetError()
	}
	s.tr.LazyPrintf("%s=%v", key, value)
}

func (s *netTraceSpan) OnFinish(options opentracing.FinishOptions) {
	for _, lr := range options.LogRecords {
		for _, f := range lr.Fields {
			s.tr.LazyLog(stringer(f.String()), false)
		}
	}
	s.tr.Finish()
}

type stringer string

func (s stringer) String() string { return string(s) }
