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
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type udpAgent struct {
	t    *testing.T
	conn net.PacketConn
}

func newUDPAgent(t *testing.T) *udpAgent {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &udpAgent{t: t, conn: conn}
}

func (a *udpAgent) addr() string {
	return a.conn.LocalAddr().String()
}

func (a *udpAgent) read() []byte {
	buf := make([]byte, DefaultUDPMaxPacketSize)
	require.NoError(a.t, a.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, _, err := a.conn.ReadFrom(buf)
	require.NoError(a.t, err)
	return buf[:n]
}

func TestUDPCollector(t *testing.T) {
	agent := newUDPAgent(t)
	metrics := NewMetrics(prometheus.NewRegistry())
	c, err := NewUDPCollector(agent.addr(), UDPMetrics(metrics))
	require.NoError(t, err)

	b := &Batch{ServiceName: "service", Spans: []Span{{ID: 1, Role: RoleRoot}}, CyclesPerSecond: 1e9}
	msg := Encode(nil, b, TraceID{Low: 1, High: 2})
	require.NoError(t, c.Collect(msg))

	// the collector owns a copy
	want := append([]byte(nil), msg...)
	msg[0] = 0xff

	assert.Equal(t, want, agent.read())
	require.NoError(t, c.Close())

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.DatagramsSent))
	assert.Equal(t, float64(len(want)), testutil.ToFloat64(metrics.BytesSent))
}

func TestUDPCollectorFlushesOnClose(t *testing.T) {
	agent := newUDPAgent(t)
	c, err := NewUDPCollector(agent.addr())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, c.Collect([]byte{byte(i)}))
	}
	require.NoError(t, c.Close())

	for i := 0; i < 5; i++ {
		assert.Equal(t, []byte{byte(i)}, agent.read())
	}
}

func TestUDPCollectorDropsOversizedBatches(t *testing.T) {
	agent := newUDPAgent(t)
	metrics := NewMetrics(prometheus.NewRegistry())
	c, err := NewUDPCollector(agent.addr(), UDPMaxPacketSize(8), UDPMetrics(metrics))
	require.NoError(t, err)

	require.NoError(t, c.Collect(make([]byte, 9)))
	require.NoError(t, c.Collect(make([]byte, 8)))
	require.NoError(t, c.Close())

	assert.Len(t, agent.read(), 8)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.DatagramsDropped.WithLabelValues(dropTooLarge)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.DatagramsSent))
}

func TestUDPCollectorDropsAfterClose(t *testing.T) {
	agent := newUDPAgent(t)
	metrics := NewMetrics(prometheus.NewRegistry())
	c, err := NewUDPCollector(agent.addr(), UDPMetrics(metrics))
	require.NoError(t, err)
	require.NoError(t, c.Close())

	require.NoError(t, c.Collect([]byte{1}))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.DatagramsDropped.WithLabelValues(dropClosed)))
}

func TestUDPCollectorCloseTwice(t *testing.T) {
	agent := newUDPAgent(t)
	c, err := NewUDPCollector(agent.addr())
	require.NoError(t, err)

	require.NoError(t, c.Close())
	assert.NotPanics(t, func() {
		assert.NoError(t, c.Close())
	})
}

func TestUDPCollectorBadAddress(t *testing.T) {
	_, err := NewUDPCollector("no-port-here")
	assert.Error(t, err)
}

func TestNopCollector(t *testing.T) {
	var c Collector = NopCollector{}
	assert.NoError(t, c.Collect([]byte{1}))
	assert.NoError(t, c.Close())
}
