package store

import "github.com/jonwraymond/mcpgate/health"

// NewHealthChecker reports p as a health check named name.
func NewHealthChecker(name string, p Pinger) health.Checker {
	return health.PingFunc(name, p.Ping)
}
