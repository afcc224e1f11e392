/*
 * ReactiveQ
 *
 * Copyright 2026 The ReactiveQ Authors. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package tracing

import (
	"context"

	opentracing "github.com/opentracing/opentracing-go"
)

/*
OpenTracingTracer wraps a github.com/opentracing/opentracing-go.Tracer
so it satisfies Tracer.
*/
type OpenTracingTracer struct {
	Tracer opentracing.Tracer
}

/*
NewOpenTracingTracer wraps an opentracing.Tracer.
*/
func NewOpenTracingTracer(t opentracing.Tracer) *OpenTracingTracer {
	return &OpenTracingTracer{Tracer: t}
}

/*
StartSpanFromContext returns a new child span and context.
*/
func (t *OpenTracingTracer) StartSpanFromContext(ctx context.Context, operationName string) (Span, context.Context) {
	var opts []opentracing.StartSpanOption
	if parent := opentracing.SpanFromContext(ctx); parent != nil {
		opts = append(opts, opentracing.ChildOf(parent.Context()))
	}

	span := t.Tracer.StartSpan(operationName, opts...)
	return openTracingSpan{span}, opentracing.ContextWithSpan(ctx, span)
}

type openTracingSpan struct {
	span opentracing.Span
}

func (s openTracingSpan) Finish() {
	s.span.Finish()
}

func (s openTracingSpan) LogKV(alternatingKeyValues ...interface{}) {
	s.span.LogKV(alternatingKeyValues...)
}
