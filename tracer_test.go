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
	"bytes"
	"testing"
	"time"

	"github.com/go-kit/log"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/openzipkin/zipkin-go/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

// sequentialIDGenerator hands out span ids 1, 2, 3...
type sequentialIDGenerator struct {
	n atomic.Uint64
}

func (g *sequentialIDGenerator) TraceID() model.TraceID { return model.TraceID{High: 77} }
func (g *sequentialIDGenerator) SpanID(model.TraceID) model.ID {
	return model.ID(g.n.Inc())
}

func newTestTracer(t *testing.T, opts ...TracerOption) (*Tracer, *traceRecorder) {
	rec := &traceRecorder{}
	opts = append([]TracerOption{
		WithRecorder(rec),
		WithIDGenerator(&sequentialIDGenerator{}),
		WithIdentityContext(NewIdentityContextWith(77, 0)),
	}, opts...)
	tracer, err := NewTracer(nil, opts...)
	require.NoError(t, err)
	return tracer, rec
}

func spanByOperation(t *testing.T, trace FinishedTrace, operation string) RawSpan {
	for _, sp := range trace.Spans {
		if sp.Operation == operation {
			return sp
		}
	}
	t.Fatalf("no span %q in trace", operation)
	return RawSpan{}
}

func TestNewTracerNeedsCollector(t *testing.T) {
	_, err := NewTracer(nil)
	assert.Equal(t, ErrNilCollector, err)

	_, err = NewTracer(NopCollector{})
	assert.NoError(t, err)

	_, err = NewTracer(nil, WithRecorder(&traceRecorder{}))
	assert.NoError(t, err)
}

func TestTracerRecordsLocalTrace(t *testing.T) {
	tracer, rec := newTestTracer(t)

	root := tracer.StartSpan("root")
	child := tracer.StartSpan("child", opentracing.ChildOf(root.Context()))
	spawned := tracer.StartSpan("spawn", opentracing.FollowsFrom(child.Context()), opentracing.Tag{Key: TagRole, Value: "spawning"})
	scheduled := tracer.StartSpan("schedule", opentracing.FollowsFrom(child.Context()), opentracing.Tag{Key: TagRole, Value: "scheduling"})
	settled := tracer.StartSpan("settle", opentracing.FollowsFrom(scheduled.Context()))

	for _, sp := range []opentracing.Span{settled, scheduled, spawned, child} {
		sp.Finish()
	}
	assert.Empty(t, rec.flush(), "nothing is recorded before the root finishes")
	root.Finish()

	traces := rec.flush()
	require.Len(t, traces, 1)
	trace := traces[0]
	assert.Equal(t, TraceID{Low: 1, High: 77}, trace.TraceID)
	require.Len(t, trace.Spans, 5)

	rootSpan := spanByOperation(t, trace, "root")
	childSpan := spanByOperation(t, trace, "child")
	scheduleSpan := spanByOperation(t, trace, "schedule")

	tests := []struct {
		operation string
		role      Role
		relatedID int64
	}{
		{"root", RoleRoot, 0},
		{"child", RoleLocal, rootSpan.SpanID},
		{"spawn", RoleSpawning, childSpan.SpanID},
		{"schedule", RoleScheduling, childSpan.SpanID},
		{"settle", RoleSettle, scheduleSpan.SpanID},
	}
	for _, tt := range tests {
		sp := spanByOperation(t, trace, tt.operation)
		assert.Equal(t, tt.role, sp.Role, tt.operation)
		assert.Equal(t, tt.relatedID, sp.RelatedID, tt.operation)
		assert.NotContains(t, sp.Properties, [2]string{TagRole, "spawning"}, tt.operation)
	}

	sc := child.Context().(SpanContext)
	assert.Equal(t, trace.TraceID, sc.TraceID)
	assert.Equal(t, rootSpan.SpanID, sc.ParentID)
	assert.True(t, sc.Sampled)
	assert.False(t, sc.IsRemote())
}

func TestTracerTraceIDPerRoot(t *testing.T) {
	tracer, rec := newTestTracer(t)

	for i := 0; i < 3; i++ {
		tracer.StartSpan("root").Finish()
	}

	traces := rec.flush()
	require.Len(t, traces, 3)
	for i, trace := range traces {
		assert.Equal(t, TraceID{Low: int64(i + 1), High: 77}, trace.TraceID)
	}
}

func TestTracerStartTagsSorted(t *testing.T) {
	tracer, rec := newTestTracer(t)

	sp := tracer.StartSpan("root", opentracing.Tags{"b": 2, "a": "x", "c": true})
	sp.SetTag("d", 1.5)
	sp.Finish()

	traces := rec.flush()
	require.Len(t, traces, 1)
	assert.Equal(t, [][2]string{{"a", "x"}, {"b", "2"}, {"c", "true"}, {"d", "1.5"}}, traces[0].Spans[0].Properties)
}

func TestTracerTiming(t *testing.T) {
	tracer, rec := newTestTracer(t)

	start := tracer.epoch.Add(time.Second)
	root := tracer.StartSpan("root", opentracing.StartTime(start))
	child := tracer.StartSpan("child", opentracing.ChildOf(root.Context()), opentracing.StartTime(start.Add(2*time.Millisecond)))
	child.FinishWithOptions(opentracing.FinishOptions{FinishTime: start.Add(5 * time.Millisecond)})
	root.FinishWithOptions(opentracing.FinishOptions{FinishTime: start.Add(10 * time.Millisecond)})

	traces := rec.flush()
	require.Len(t, traces, 1)
	trace := traces[0]
	assert.Equal(t, uint64(start.UnixNano()), trace.StartTimeNs)

	rootSpan := spanByOperation(t, trace, "root")
	childSpan := spanByOperation(t, trace, "child")
	assert.Equal(t, uint64(time.Second), rootSpan.Begin)
	assert.Equal(t, uint64(10*time.Millisecond), rootSpan.Elapsed)
	assert.Equal(t, uint64(2*time.Millisecond), childSpan.Begin-rootSpan.Begin)
	assert.Equal(t, uint64(3*time.Millisecond), childSpan.Elapsed)
}

func TestTracerTimesBeforeEpoch(t *testing.T) {
	c := &captureCollector{}
	tracer, err := NewTracer(c,
		WithIDGenerator(&sequentialIDGenerator{}),
		WithIdentityContext(NewIdentityContextWith(77, 0)),
	)
	require.NoError(t, err)

	start := tracer.epoch.Add(-time.Hour)
	root := tracer.StartSpan("root", opentracing.StartTime(start))
	child := tracer.StartSpan("child", opentracing.ChildOf(root.Context()), opentracing.StartTime(tracer.epoch.Add(time.Second)))
	child.FinishWithOptions(opentracing.FinishOptions{FinishTime: tracer.epoch.Add(2 * time.Second)})
	root.FinishWithOptions(opentracing.FinishOptions{FinishTime: tracer.epoch.Add(3 * time.Second)})

	msgs := c.messages()
	require.Len(t, msgs, 1)
	batch := decodeEmitBatch(t, msgs[0])
	require.Len(t, batch.Spans, 2)
	childSpan, rootSpan := batch.Spans[0], batch.Spans[1]

	if want, have := start.UnixNano()/1000, rootSpan.StartTime; want != have {
		t.Errorf("root start want %d, have %d", want, have)
	}
	if want, have := (time.Hour + 3*time.Second).Microseconds(), rootSpan.Duration; want != have {
		t.Errorf("root duration want %d, have %d", want, have)
	}
	if want, have := (time.Hour + time.Second).Microseconds(), childSpan.StartTime-rootSpan.StartTime; want != have {
		t.Errorf("child offset want %d, have %d", want, have)
	}
	if want, have := time.Second.Microseconds(), childSpan.Duration; want != have {
		t.Errorf("child duration want %d, have %d", want, have)
	}
}

func TestTracerFinishBeforeStart(t *testing.T) {
	tracer, rec := newTestTracer(t)

	start := tracer.epoch.Add(time.Second)
	root := tracer.StartSpan("root", opentracing.StartTime(start))
	root.FinishWithOptions(opentracing.FinishOptions{FinishTime: start.Add(-time.Hour)})

	traces := rec.flush()
	require.Len(t, traces, 1)
	assert.Equal(t, uint64(0), traces[0].Spans[0].Elapsed)
}

func TestTracerNeverSample(t *testing.T) {
	ic := NewIdentityContextWith(77, 0)
	tracer, rec := newTestTracer(t, WithSampler(NeverSample), WithIdentityContext(ic))

	root := tracer.StartSpan("root")
	tracer.StartSpan("child", opentracing.ChildOf(root.Context())).Finish()
	root.Finish()

	assert.Empty(t, rec.flush())
	assert.False(t, root.Context().(SpanContext).Sampled)
	assert.Equal(t, TraceID{Low: 1, High: 77}, ic.Next(), "unsampled roots take no trace id")
}

func TestTracerDropsSpansFinishedAfterRoot(t *testing.T) {
	var buf bytes.Buffer
	tracer, rec := newTestTracer(t, WithLogger(log.NewLogfmtLogger(&buf)))

	root := tracer.StartSpan("root")
	late := tracer.StartSpan("late", opentracing.ChildOf(root.Context()))
	root.Finish()
	late.Finish()

	traces := rec.flush()
	require.Len(t, traces, 1)
	require.Len(t, traces[0].Spans, 1)
	assert.Equal(t, "root", traces[0].Spans[0].Operation)
	assert.Contains(t, buf.String(), `msg="span finished after its root"`)
}

func TestTracerFinishTwice(t *testing.T) {
	tracer, rec := newTestTracer(t)

	root := tracer.StartSpan("root")
	root.Finish()
	root.Finish()
	root.SetTag("after", "finish")

	traces := rec.flush()
	require.Len(t, traces, 1)
	assert.Empty(t, traces[0].Spans[0].Properties)
}

func TestTracerRemoteParent(t *testing.T) {
	tracer, rec := newTestTracer(t)

	remote := SpanContext{TraceID: TraceID{Low: 500, High: 600}, SpanID: 42, Sampled: true}
	root := tracer.StartSpan("server", opentracing.ChildOf(remote))
	tracer.StartSpan("work", opentracing.ChildOf(root.Context())).Finish()
	root.Finish()

	traces := rec.flush()
	require.Len(t, traces, 1)
	trace := traces[0]
	assert.Equal(t, remote.TraceID, trace.TraceID)
	rootSpan := spanByOperation(t, trace, "server")
	assert.Equal(t, RoleRoot, rootSpan.Role)
	assert.Equal(t, int64(42), rootSpan.RelatedID)
	assert.Equal(t, RoleLocal, spanByOperation(t, trace, "work").Role)
}

func TestTracerRemoteParentSamplingDecision(t *testing.T) {
	tracer, rec := newTestTracer(t)

	remote := SpanContext{TraceID: TraceID{Low: 500}, SpanID: 42, Sampled: false}
	tracer.StartSpan("server", opentracing.ChildOf(remote)).Finish()

	assert.Empty(t, rec.flush())
}

func TestTracerRemoteSamplingOnly(t *testing.T) {
	tracer, rec := newTestTracer(t, WithSampler(NeverSample))

	tracer.StartSpan("server", opentracing.ChildOf(SpanContext{Sampled: true})).Finish()

	traces := rec.flush()
	require.Len(t, traces, 1)
	assert.Equal(t, TraceID{Low: 1, High: 77}, traces[0].TraceID)
}

func TestTracerEmitsBatch(t *testing.T) {
	c := &captureCollector{}
	tracer, err := NewTracer(c,
		WithServiceName("frontend"),
		WithIDGenerator(&sequentialIDGenerator{}),
		WithIdentityContext(NewIdentityContextWith(77, 0)),
	)
	require.NoError(t, err)

	root := tracer.StartSpan("GET /")
	sp := tracer.StartSpan("spawn", opentracing.FollowsFrom(root.Context()), opentracing.Tag{Key: TagRole, Value: "spawning"})
	sp.LogKV("event", "ready")
	sp.Finish()
	root.Finish()

	msgs := c.messages()
	require.Len(t, msgs, 1)
	batch := decodeEmitBatch(t, msgs[0])
	assert.Equal(t, "frontend", batch.ServiceName)
	require.Len(t, batch.Spans, 2)

	spawn, rootSpan := batch.Spans[0], batch.Spans[1]
	assert.Equal(t, "spawn (Spawning)", spawn.Operation)
	assert.Equal(t, [][2]string{{"event", "ready"}}, spawn.Tags)
	assert.Equal(t, []decodedRef{{Kind: 1, TraceLow: 1, TraceHigh: 77, SpanID: rootSpan.ID}}, spawn.Refs)
	assert.Equal(t, "GET / (Root spawning)", rootSpan.Operation)
	assert.Equal(t, int64(1), rootSpan.TraceLow)
	assert.Equal(t, int64(77), rootSpan.TraceHigh)
}
