// Package resilience bounds calls to the two remote dependencies of the
// gateway: the identity provider's key endpoint and the shared counter store.
//
// Nothing here retries. A failed or timed-out call fails the current
// operation and the next request tries again.
//
//	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    Name:         "jwks",
//	    MaxFailures:  5,
//	    ResetTimeout: 30 * time.Second,
//	})
//	err := breaker.Execute(ctx, fetchKeys)
//
//	bound := resilience.NewTimeout(resilience.TimeoutConfig{Name: "redis", Timeout: 2 * time.Second})
//	n, err := resilience.Call(ctx, bound, func(ctx context.Context) (int64, error) {
//	    return client.IncrBy(ctx, key, 1).Result()
//	})
package resilience
