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

// Package b3 reads and writes B3 headers on OpenTracing HTTP carriers.
package b3

import (
	"strings"

	"github.com/opentracing/opentracing-go"
	"github.com/openzipkin/zipkin-go/model"
	zb3 "github.com/openzipkin/zipkin-go/propagation/b3"
)

// InjectHTTP writes sc as multiple X-B3-* headers.
func InjectHTTP(sc model.SpanContext, carrier interface{}) error {
	c, ok := carrier.(opentracing.TextMapWriter)
	if !ok {
		return opentracing.ErrInvalidCarrier
	}

	if (model.SpanContext{}) == sc {
		return zb3.ErrEmptyContext
	}

	if !sc.TraceID.Empty() && sc.ID > 0 {
		c.Set(zb3.TraceID, sc.TraceID.String())
		c.Set(zb3.SpanID, sc.ID.String())
		if sc.ParentID != nil {
			c.Set(zb3.ParentSpanID, sc.ParentID.String())
		}
	}

	if sc.Debug {
		c.Set(zb3.Flags, "1")
	} else if sc.Sampled != nil {
		if *sc.Sampled {
			c.Set(zb3.Sampled, "1")
		} else {
			c.Set(zb3.Sampled, "0")
		}
	}

	return nil
}

// InjectSingleHTTP writes sc as the single b3 header.
func InjectSingleHTTP(sc model.SpanContext, carrier interface{}) error {
	c, ok := carrier.(opentracing.TextMapWriter)
	if !ok {
		return opentracing.ErrInvalidCarrier
	}

	if (model.SpanContext{}) == sc {
		return zb3.ErrEmptyContext
	}

	c.Set(zb3.Context, zb3.BuildSingleHeader(sc))
	return nil
}

// ExtractHTTP reads a span context from the single b3 header or, when it is
// absent, from the X-B3-* headers. Header names are matched case
// insensitively. It returns zb3.ErrEmptyContext when no B3 header is set.
func ExtractHTTP(carrier interface{}) (*model.SpanContext, error) {
	c, ok := carrier.(opentracing.TextMapReader)
	if !ok {
		return nil, opentracing.ErrInvalidCarrier
	}

	var (
		single       string
		traceID      string
		spanID       string
		parentSpanID string
		sampled      string
		flags        string
	)

	err := c.ForeachKey(func(key, val string) error {
		switch strings.ToLower(key) {
		case zb3.Context:
			single = val
		case zb3.TraceID:
			traceID = val
		case zb3.SpanID:
			spanID = val
		case zb3.ParentSpanID:
			parentSpanID = val
		case zb3.Sampled:
			sampled = val
		case zb3.Flags:
			flags = val
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if single != "" {
		return zb3.ParseSingleHeader(single)
	}
	if traceID == "" && spanID == "" && parentSpanID == "" && sampled == "" && flags == "" {
		return nil, zb3.ErrEmptyContext
	}
	return zb3.ParseHeaders(traceID, spanID, parentSpanID, sampled, flags)
}
