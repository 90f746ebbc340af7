package metrics

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StartServer starts the fan-out metrics/health endpoint in a background
// goroutine and returns the *http.Server so the caller can Shutdown it on
// exit. Mirrors cmd/ai-service/main.go's startHealthServer, but serves the
// real client_golang registry (promhttp.Handler) instead of hand-written
// counter text, since FanoutFailuresTotal/FanoutTaskDuration in
// fanout_metrics.go already register against the default registerer via
// promauto. Extra routes (e.g. the bridge's diagnostics WebSocket) can be
// mounted via extraRoutes without this package needing to import them.
func StartServer(addr string, extraRoutes map[string]http.Handler) *http.Server {
	if addr == "" {
		addr = ":9100"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"status": "ok"})
	})
	mux.Handle("/metrics", promhttp.Handler())
	for path, h := range extraRoutes {
		mux.Handle(path, h)
	}

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		log.Printf("surveillance-core: metrics server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[ERROR] surveillance-core: metrics server failed: %v", err)
		}
	}()
	return srv
}
