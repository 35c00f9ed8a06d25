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
	"github.com/go-kit/log"
	otobserver "github.com/opentracing-contrib/go-observer"
	"github.com/openzipkin/zipkin-go/idgenerator"
)

// B3InjectOption type holds information on B3 injection style when using
// native OpenTracing HTTPHeadersCarrier.
type B3InjectOption int

// Available B3InjectOption values
const (
	B3InjectStandard B3InjectOption = iota
	B3InjectSingle
	B3InjectBoth
)

// TracerOptions allows creating a customized Tracer.
type TracerOptions struct {
	serviceName string
	observers   []otobserver.Observer
	b3InjectOpt B3InjectOption
	sampler     Sampler
	identity    *IdentityContext
	idGenerator idgenerator.IDGenerator
	recorder    SpanRecorder
	logger      log.Logger
	metrics     *Metrics
}

// TracerOption allows for functional options.
// See: http://dave.cheney.net/2014/10/17/functional-options-for-friendly-apis
type TracerOption func(opts *TracerOptions)

// WithServiceName sets the service name written into every batch.
func WithServiceName(name string) TracerOption {
	return func(opts *TracerOptions) {
		opts.serviceName = name
	}
}

// WithObserver registers an observer. May be given more than once.
func WithObserver(observer otobserver.Observer) TracerOption {
	return func(opts *TracerOptions) {
		opts.observers = append(opts.observers, observer)
	}
}

// WithB3InjectOption sets the B3 injection style if using the native OpenTracing HTTPHeadersCarrier
func WithB3InjectOption(b3InjectOption B3InjectOption) TracerOption {
	return func(opts *TracerOptions) {
		opts.b3InjectOpt = b3InjectOption
	}
}

// WithSampler sets the sampler deciding which local traces are recorded.
func WithSampler(sampler Sampler) TracerOption {
	return func(opts *TracerOptions) {
		opts.sampler = sampler
	}
}

// WithIdentityContext shares an IdentityContext between tracers. By default
// every tracer owns one.
func WithIdentityContext(ic *IdentityContext) TracerOption {
	return func(opts *TracerOptions) {
		opts.identity = ic
	}
}

// WithIDGenerator sets the source of span ids and, unless
// WithIdentityContext is given, of the trace id high half.
func WithIDGenerator(gen idgenerator.IDGenerator) TracerOption {
	return func(opts *TracerOptions) {
		opts.idGenerator = gen
	}
}

// WithRecorder replaces the BatchRecorder the tracer builds around its
// collector.
func WithRecorder(r SpanRecorder) TracerOption {
	return func(opts *TracerOptions) {
		opts.recorder = r
	}
}

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(logger log.Logger) TracerOption {
	return func(opts *TracerOptions) {
		opts.logger = logger
	}
}

// WithMetrics sets the metrics of the tracer's recorder.
func WithMetrics(m *Metrics) TracerOption {
	return func(opts *TracerOptions) {
		opts.metrics = m
	}
}
