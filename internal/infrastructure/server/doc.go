// Package server is the composition root of the reasoning service.
//
// NewServer builds, in order: the logger, metrics and tracer; the breaker
// registry, observed by metrics; the generation backend wrapped in
// rate limiting, retries and the "llm" breaker; the reasoner and validator;
// and finally the gin router with its middleware stack.
//
// Example Usage:
//
//	cfg, err := config.Load()
//	srv, err := server.NewServer(cfg)
//	defer srv.Close()
//	err = srv.Run(ctx)
package server
