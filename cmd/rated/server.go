package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/altrates/internal/connection"
	"github.com/rickgao/altrates/internal/engine"
	"github.com/rickgao/altrates/internal/metrics"
	"github.com/rickgao/altrates/internal/model"
	"github.com/rickgao/altrates/internal/rates"
)

// Pinger checks a dependency, such as the history database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// feedStatus is the health view of one feed session.
type feedStatus struct {
	State     string     `json:"state"`
	LastError string     `json:"last_error,omitempty"`
	NextRetry *time.Time `json:"next_retry,omitempty"`
}

type health struct {
	Status     string         `json:"status"`
	Components map[string]any `json:"components"`
}

// createHandler creates the HTTP handler for health, debug and metrics endpoints.
// sessions is called per request since provider sessions start after setup.
// history may be nil when persistence is disabled.
func createHandler(eng *engine.Engine, sessions func() []*connection.Session, history Pinger, m *metrics.Collector, metricsPath string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		h := health{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		store := eng.Snapshot()
		tickers, loaded := eng.Tickers()
		h.Components["engine"] = map[string]any{
			"static":     eng.Static(),
			"currencies": store.Len(),
			"tickers":    tickers.Len(),
		}
		if !eng.Static() && (!loaded || store.Len() == 0) {
			h.Status = "degraded"
		}

		feeds := make(map[string]feedStatus)
		for _, s := range sessions() {
			fs := feedStatus{State: s.State().String()}
			if err := s.LastError(); err != nil {
				fs.LastError = err.Error()
			}
			if next := s.NextRetryAt(); !next.IsZero() {
				fs.NextRetry = &next
			}
			if s.State() != connection.StateConnected {
				h.Status = "degraded"
			}
			feeds[s.Name()] = fs
		}
		h.Components["feeds"] = feeds

		if history != nil {
			if err := history.Ping(ctx); err != nil {
				h.Status = "unhealthy"
				h.Components["history"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				h.Components["history"] = "connected"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if h.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(h)
	})

	mux.HandleFunc("/debug/rates", func(w http.ResponseWriter, r *http.Request) {
		store := eng.Snapshot()
		if alt := r.URL.Query().Get("alt"); alt != "" {
			code := model.ParseCode(alt)
			store = rates.Table{code: store.Row(code)}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(store)
	})

	mux.HandleFunc("/debug/convert", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		alt := model.ParseCode(q.Get("alt"))
		fiat := model.ParseCode(q.Get("fiat"))

		resp := map[string]any{"alt": alt, "fiat": fiat}
		if probi := q.Get("probi"); probi != "" {
			v, err := decimal.NewFromString(probi)
			if err != nil {
				http.Error(w, "bad probi: "+err.Error(), http.StatusBadRequest)
				return
			}
			amount, ok := eng.AltToFiat(alt, v, fiat)
			if !ok {
				http.Error(w, "rate unavailable", http.StatusNotFound)
				return
			}
			resp["probi"] = v.String()
			resp["amount"] = amount.StringFixed(int32(engine.Digits(fiat)))
		} else {
			v, err := decimal.NewFromString(q.Get("amount"))
			if err != nil {
				http.Error(w, "bad amount: "+err.Error(), http.StatusBadRequest)
				return
			}
			probi, ok := eng.FiatToAlt(fiat, v, alt)
			if !ok {
				http.Error(w, "rate unavailable", http.StatusNotFound)
				return
			}
			resp["amount"] = v.String()
			resp["probi"] = probi.String()
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	if m != nil {
		mux.Handle(metricsPath, m.Handler())
	}

	return mux
}
