/*
Package tracing provides lightweight request tracing.

# Overview

Spans are created per HTTP request and per reasoning or validation run, and
are logged by a single collector goroutine once finished. IDs are ULIDs from
the shared id package.

# Usage

	tracer := tracing.New("reasoner", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "reason")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()
	span.SetInt("paths", len(paths))

# Trace Format

Traces use HTTP headers for propagation:
  - X-Trace-ID: identifier for the entire request flow
  - X-Span-ID: identifier for the current operation
*/
package tracing
