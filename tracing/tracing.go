/*
 * ReactiveQ
 *
 * Copyright 2026 The ReactiveQ Authors. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package tracing provides a thin, swappable tracing facade so every
store entry point can open a named span without forcing a tracing
backend on callers who don't configure one.

GlobalTracer defaults to a no-op implementation. Configure a real
backend with SetGlobalTracer, e.g. one built over
github.com/opentracing/opentracing-go.
*/
package tracing

import "context"

/*
GlobalTracer is the tracer used by StartSpanFromContext.
*/
var GlobalTracer Tracer = NoopTracer{}

/*
SetGlobalTracer installs a new global tracer.
*/
func SetGlobalTracer(t Tracer) {
	GlobalTracer = t
}

/*
Tracer starts spans from a context.
*/
type Tracer interface {
	StartSpanFromContext(ctx context.Context, operationName string) (Span, context.Context)
}

/*
Span represents a single span in a distributed trace.
*/
type Span interface {

	/*
	   Finish closes the span.
	*/
	Finish()

	/*
	   LogKV attaches key/value pairs to the span.
	*/
	LogKV(alternatingKeyValues ...interface{})
}

/*
StartSpanFromContext returns a new child span and context using the
global tracer.
*/
func StartSpanFromContext(ctx context.Context, operationName string) (Span, context.Context) {
	return GlobalTracer.StartSpanFromContext(ctx, operationName)
}

/*
NoopTracer discards every span. It is the default so the store never
requires a tracing backend to function.
*/
type NoopTracer struct{}

func (NoopTracer) StartSpanFromContext(ctx context.Context, operationName string) (Span, context.Context) {
	return noopSpan{}, ctx
}

type noopSpan struct{}

func (noopSpan) Finish()                          {}
func (noopSpan) LogKV(kv ...interface{})          {}
