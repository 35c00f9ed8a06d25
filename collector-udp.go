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
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

const (
	// DefaultUDPHostPort is the compact thrift port of a local Jaeger agent.
	DefaultUDPHostPort = "localhost:6831"

	// DefaultUDPMaxPacketSize is the largest datagram the Jaeger agent reads.
	DefaultUDPMaxPacketSize = 65000

	defaultUDPMaxBacklog       = 1000
	defaultUDPLogErrorInterval = time.Minute
)

// UDPCollector implements Collector by writing every message as one datagram
// to the agent. Delivery is fire and forget: nothing is retried and full
// queues drop messages.
type UDPCollector struct {
	logger        log.Logger
	errLogger     *StateLogger
	metrics       *Metrics
	conn          net.Conn
	maxPacketSize int
	maxBacklog    int
	msgc          chan []byte
	quit          chan struct{}
	shutdown      chan error
	closeOnce     sync.Once
	closeErr      error
}

// UDPOption sets a parameter for the UDPCollector.
type UDPOption func(c *UDPCollector)

// UDPLogger sets the logger used to report drops and send failures. By
// default nothing is logged.
func UDPLogger(logger log.Logger) UDPOption {
	return func(c *UDPCollector) { c.logger = logger }
}

// UDPMaxBacklog sets how many messages may wait for the socket before new
// ones are dropped.
func UDPMaxBacklog(n int) UDPOption {
	return func(c *UDPCollector) { c.maxBacklog = n }
}

// UDPMaxPacketSize sets the size above which messages are dropped instead of
// sent.
func UDPMaxPacketSize(n int) UDPOption {
	return func(c *UDPCollector) { c.maxPacketSize = n }
}

// UDPMetrics sets the metrics the collector reports to.
func UDPMetrics(m *Metrics) UDPOption {
	return func(c *UDPCollector) { c.metrics = m }
}

// NewUDPCollector returns a Collector sending to the agent at hostPort, or
// DefaultUDPHostPort when hostPort is empty.
func NewUDPCollector(hostPort string, options ...UDPOption) (*UDPCollector, error) {
	if hostPort == "" {
		hostPort = DefaultUDPHostPort
	}
	c := &UDPCollector{
		logger:        log.NewNopLogger(),
		maxPacketSize: DefaultUDPMaxPacketSize,
		maxBacklog:    defaultUDPMaxBacklog,
		quit:          make(chan struct{}),
		shutdown:      make(chan error, 1),
	}
	for _, option := range options {
		option(c)
	}
	if c.metrics == nil {
		c.metrics = newUnregisteredMetrics()
	}
	c.errLogger = NewStateLogger(level.Error(c.logger), defaultUDPLogErrorInterval)

	addr, err := net.ResolveUDPAddr("udp", hostPort)
	if err != nil {
		return nil, errors.Wrap(err, "resolve agent address")
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial agent %s", addr)
	}
	c.conn = conn

	c.msgc = make(chan []byte, c.maxBacklog)

	go c.loop()
	return c, nil
}

// Collect implements Collector. msg is copied, so callers may reuse it. The
// send is non blocking: when the backlog is full msg is dropped.
func (c *UDPCollector) Collect(msg []byte) error {
	if len(msg) > c.maxPacketSize {
		c.metrics.DatagramsDropped.WithLabelValues(dropTooLarge).Inc()
		level.Warn(c.logger).Log("msg", "batch exceeds max packet size, dropping", "size", len(msg), "max", c.maxPacketSize)
		return nil
	}
	dgram := append([]byte(nil), msg...)
	select {
	case <-c.quit:
		c.metrics.DatagramsDropped.WithLabelValues(dropClosed).Inc()
		return nil
	default:
	}
	select {
	case c.msgc <- dgram:
	case <-c.quit:
		c.metrics.DatagramsDropped.WithLabelValues(dropClosed).Inc()
	default:
		c.metrics.DatagramsDropped.WithLabelValues(dropQueueFull).Inc()
		level.Warn(c.logger).Log("msg", "queue full, dropping batch", "size", len(c.msgc))
	}
	return nil
}

// Close implements Collector. Queued messages are flushed before the socket
// is closed.
func (c *UDPCollector) Close() error {
	c.closeOnce.Do(func() {
		close(c.quit)
		c.closeErr = <-c.shutdown
	})
	return c.closeErr
}

func (c *UDPCollector) loop() {
	for {
		select {
		case msg := <-c.msgc:
			c.send(msg)
		case <-c.quit:
			for {
				select {
				case msg := <-c.msgc:
					c.send(msg)
				default:
					c.shutdown <- c.conn.Close()
					return
				}
			}
		}
	}
}

func (c *UDPCollector) send(msg []byte) {
	if _, err := c.conn.Write(msg); err != nil {
		c.metrics.DatagramsDropped.WithLabelValues(dropSendError).Inc()
		c.errLogger.LogError(err)
		return
	}
	c.errLogger.Fixed("msg", "agent reachable again")
	c.metrics.DatagramsSent.Inc()
	c.metrics.BytesSent.Add(float64(len(msg)))
}
