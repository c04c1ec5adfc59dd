package health

import (
	"encoding/json"
	"net/http"

	"github.com/jonwraymond/mcpgate/observe"
)

// RedisCheck is the check name mirrored into HealthzResponse.Redis.
const RedisCheck = "redis"

// HealthzResponse is the body of GET /healthz.
type HealthzResponse struct {
	Status string `json:"status"`
	// Redis repeats the "redis" check at the top level. Omitted when no
	// Redis store is configured.
	Redis  *bool           `json:"redis,omitempty"`
	Checks map[string]bool `json:"checks"`
}

// HandlerConfig configures HealthzHandler.
type HandlerConfig struct {
	// Logger receives one warning per failing check. Optional.
	Logger observe.Logger
}

// HealthzHandler reports every check in agg as a boolean. It always answers
// 200 with status "ok"; the process is up even when a dependency is not.
func HealthzHandler(agg *Aggregator, cfg HandlerConfig) http.HandlerFunc {
	logger := cfg.Logger
	if logger == nil {
		logger = observe.NopLogger()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		results := agg.CheckAll(r.Context())

		resp := HealthzResponse{Status: "ok", Checks: make(map[string]bool, len(results))}
		for name, result := range results {
			ok := result.OK()
			resp.Checks[name] = ok
			if name == RedisCheck {
				resp.Redis = &ok
			}
			if !ok {
				fields := []observe.Field{
					{Key: "check", Value: name},
					{Key: "message", Value: result.Message},
				}
				if result.Error != nil {
					fields = append(fields, observe.Field{Key: "error", Value: result.Error.Error()})
				}
				logger.Warn(r.Context(), "health check failed", fields...)
			}
		}

		writeJSON(w, resp)
	}
}

// LivezHandler answers {"status":"ok"} without running any check.
func LivezHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
