package indicator

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/TheCacophonyProject/x728-battery/internal/display"
	"github.com/TheCacophonyProject/x728-battery/monitor"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type statusResponse struct {
	OnExternalPower  bool    `json:"on_external_power"`
	Voltage          float64 `json:"voltage"`
	ChargePercent    float64 `json:"charge_percent"`
	MinutesRemaining float64 `json:"minutes_remaining"`
	Category         string  `json:"category"`
	Level            int     `json:"level"`
	Summary          string  `json:"summary"`
}

func newStatusResponse(s monitor.StatusSnapshot) statusResponse {
	return statusResponse{
		OnExternalPower:  s.OnExternalPower,
		Voltage:          s.Voltage,
		ChargePercent:    s.ChargePercent,
		MinutesRemaining: s.MinutesRemaining,
		Category:         s.Category.Kind.String(),
		Level:            s.Category.Level,
		Summary:          display.Tooltip(s),
	}
}

func statusHandler(status *latestStatus) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/status", func(w http.ResponseWriter, r *http.Request) {
		snapshot, ok := status.get()
		if !ok {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": errNoStatus.Error()})
			return
		}
		writeJSON(w, http.StatusOK, newStatusResponse(snapshot))
	})

	r.Handle("/metrics", promhttp.Handler())
	return r
}

func startHTTPServer(address string, status *latestStatus) {
	server := &http.Server{
		Addr:              address,
		Handler:           statusHandler(status),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Infof("Serving battery status on %s", address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("HTTP server stopped: %v", err)
		}
	}()
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
