// Package metrics declares the Prometheus collectors for passes, sources,
// retrieval strategies, store queries and the read API. Everything registers
// on the default registry through promauto and is served at /metrics.
//
//	start := time.Now()
//	stats, err := svc.RunPass(ctx, sources, true)
//	metrics.RecordPassDuration(time.Since(start))
package metrics
