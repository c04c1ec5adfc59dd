// Package health runs dependency checks for the mcpgate probe endpoints.
//
// A Checker reports the status of one dependency (the Redis counter store,
// for instance). An Aggregator runs every registered checker in parallel
// under a shared timeout. The HTTP handlers expose the results:
//
//	agg := health.NewAggregator()
//	agg.Register("redis", store.NewHealthChecker("redis", counter))
//
//	r.Get("/healthz", health.HealthzHandler(agg, health.HandlerConfig{}))
//	r.Get("/livez", health.LivezHandler())
//
// /healthz always answers 200 and reports each check as a boolean, so an
// unreachable store is visible without taking the process out of rotation.
package health
