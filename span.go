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
	"fmt"
	"sync"
	"time"

	"github.com/go-kit/log/level"
	otobserver "github.com/opentracing-contrib/go-observer"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/log"
)

type spanImpl struct {
	tracer    *Tracer
	trace     *localTrace
	context   SpanContext
	observer  otobserver.SpanObserver
	startTime time.Time

	mu       sync.Mutex
	raw      RawSpan
	finished bool
}

func (s *spanImpl) SetOperationName(operationName string) opentracing.Span {
	if s.observer != nil {
		s.observer.OnSetOperationName(operationName)
	}

	s.mu.Lock()
	s.raw.Operation = operationName
	s.mu.Unlock()
	return s
}

func (s *spanImpl) SetTag(key string, value interface{}) opentracing.Span {
	if s.observer != nil {
		s.observer.OnSetTag(key, value)
	}

	s.addProperty(key, fmt.Sprint(value))
	return s
}

func (s *spanImpl) LogKV(keyValues ...interface{}) {
	fields, err := log.InterleavedKVToFields(keyValues...)
	if err != nil {
		s.addProperty("error", err.Error())
		return
	}
	s.LogFields(fields...)
}

func (s *spanImpl) LogFields(fields ...log.Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	for _, field := range fields {
		s.raw.Properties = append(s.raw.Properties, [2]string{field.Key(), fmt.Sprint(field.Value())})
	}
}

func (s *spanImpl) LogEvent(event string) {
	s.Log(opentracing.LogData{
		Event: event,
	})
}

func (s *spanImpl) LogEventWithPayload(event string, payload interface{}) {
	s.Log(opentracing.LogData{
		Event:   event,
		Payload: payload,
	})
}

func (s *spanImpl) Log(ld opentracing.LogData) {
	s.LogFields(ld.ToLogRecord().Fields...)
}

func (s *spanImpl) addProperty(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	s.raw.Properties = append(s.raw.Properties, [2]string{key, value})
}

func (s *spanImpl) Finish() {
	s.FinishWithOptions(opentracing.FinishOptions{})
}

// FinishWithOptions records the span into its local trace. Finishing the
// root hands the whole trace to the tracer's recorder; spans finishing after
// their root are dropped.
func (s *spanImpl) FinishWithOptions(opts opentracing.FinishOptions) {
	finishTime := opts.FinishTime
	if finishTime.IsZero() {
		finishTime = time.Now()
	}
	for _, lr := range opts.LogRecords {
		s.LogFields(lr.Fields...)
	}
	for _, ld := range opts.BulkLogData {
		s.Log(ld)
	}

	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	s.finished = true
	if elapsed := int64(s.tracer.cycles(finishTime) - s.raw.Begin); elapsed > 0 {
		s.raw.Elapsed = uint64(elapsed)
	}
	raw := s.raw
	s.mu.Unlock()

	if s.observer != nil {
		s.observer.OnFinish(opts)
	}

	if !s.trace.sampled {
		return
	}
	if raw.Role == RoleRoot {
		if trace, ok := s.trace.finish(raw); ok {
			s.tracer.recorder.RecordTrace(trace)
		}
		return
	}
	if !s.trace.add(raw) {
		level.Debug(s.tracer.logger).Log("msg", "span finished after its root", "span_id", raw.SpanID, "operation", raw.Operation)
	}
}

func (s *spanImpl) Tracer() opentracing.Tracer {
	return s.tracer
}

func (s *spanImpl) Context() opentracing.SpanContext {
	return s.context
}

func (s *spanImpl) SetBaggageItem(key, val string) opentracing.Span {
	return s
}

func (s *spanImpl) BaggageItem(key string) string {
	return ""
}
