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
	"github.com/prometheus/client_golang/prometheus"
)

// Reasons a datagram is dropped, used as the "reason" label.
const (
	dropQueueFull = "queue_full"
	dropTooLarge  = "too_large"
	dropClosed    = "closed"
	dropSendError = "send_error"
)

// Metrics holds the Prometheus metrics of the recorder and collectors.
type Metrics struct {
	BatchesEncoded   prometheus.Counter
	SpansEncoded     prometheus.Counter
	BytesEncoded     prometheus.Counter
	DatagramsSent    prometheus.Counter
	BytesSent        prometheus.Counter
	DatagramsDropped *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BatchesEncoded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jaeger_tracer_batches_encoded_total",
			Help: "Total emitBatch messages encoded",
		}),
		SpansEncoded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jaeger_tracer_spans_encoded_total",
			Help: "Total spans written into emitBatch messages",
		}),
		BytesEncoded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jaeger_tracer_bytes_encoded_total",
			Help: "Total bytes of encoded emitBatch messages",
		}),
		DatagramsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jaeger_tracer_datagrams_sent_total",
			Help: "Total datagrams written to the agent",
		}),
		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jaeger_tracer_bytes_sent_total",
			Help: "Total bytes written to the agent",
		}),
		DatagramsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jaeger_tracer_datagrams_dropped_total",
			Help: "Total datagrams dropped before or while sending",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		m.BatchesEncoded,
		m.SpansEncoded,
		m.BytesEncoded,
		m.DatagramsSent,
		m.BytesSent,
		m.DatagramsDropped,
	)
	return m
}

// newUnregisteredMetrics backs components built without WithMetrics.
func newUnregisteredMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
