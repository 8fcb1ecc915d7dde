package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/adlens/adlens/internal/models"
	"github.com/adlens/adlens/internal/report"
	"github.com/adlens/adlens/internal/utils"
)

func NewRouter(log *slog.Logger, svc *report.Service, metricsHandler http.Handler) http.Handler {
	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(log))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ready")) })

	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}

	mux.Get("/monitoring/snapshot", func(w http.ResponseWriter, r *http.Request) {
		snap, err := svc.MonitoringSnapshot()
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		writeJSON(w, snap)
	})

	mux.Post("/refresh/run", func(w http.ResponseWriter, r *http.Request) {
		keys, err := refreshKeys(r, svc)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		summary, err := svc.RefreshAll(r.Context(), keys)
		if errors.Is(err, report.ErrRefreshInFlight) {
			http.Error(w, err.Error(), 409)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		writeJSON(w, summary)
	})

	mux.Get("/reports/{platform}/{client}/{period}", func(w http.ResponseWriter, r *http.Request) {
		key, err := keyFromURL(r)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		res, err := svc.Report(key)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		if res.Source == models.SourceUnavailable {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(404)
			json.NewEncoder(w).Encode(res)
			return
		}
		writeJSON(w, res)
	})

	mux.Get("/reports/{platform}/{client}/{period}/yoy", func(w http.ResponseWriter, r *http.Request) {
		key, err := keyFromURL(r)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		deltas, err := svc.CompareYoY(key)
		if err != nil {
			status := 404
			if errors.Is(err, models.ErrBadPeriod) {
				status = 400
			}
			http.Error(w, err.Error(), status)
			return
		}
		writeJSON(w, deltas)
	})

	return mux
}

// refreshKeys builds the target key set for a bulk run. No parameters means
// every known key; stale=true restricts to entries past the staleness
// threshold; clients+period+platform build an explicit cross product.
func refreshKeys(r *http.Request, svc *report.Service) ([]models.CacheKey, error) {
	q := r.URL.Query()
	if q.Get("stale") == "true" {
		return svc.StaleKeys()
	}
	clients := splitCSV(q.Get("clients"))
	periodID := q.Get("period")
	if len(clients) == 0 && periodID == "" {
		return nil, nil
	}
	if len(clients) == 0 || periodID == "" {
		return nil, errors.New("clients and period must be given together")
	}
	if _, err := models.ParsePeriod(periodID); err != nil {
		return nil, err
	}
	platforms := models.Platforms
	if p := q.Get("platform"); p != "" {
		platforms = []models.Platform{models.Platform(p)}
	}
	var keys []models.CacheKey
	for _, c := range clients {
		for _, p := range platforms {
			keys = append(keys, models.CacheKey{ClientID: c, PeriodID: periodID, Platform: p})
		}
	}
	return keys, nil
}

func keyFromURL(r *http.Request) (models.CacheKey, error) {
	periodID := chi.URLParam(r, "period")
	if _, err := models.ParsePeriod(periodID); err != nil {
		return models.CacheKey{}, err
	}
	return models.CacheKey{
		ClientID: chi.URLParam(r, "client"),
		PeriodID: periodID,
		Platform: models.Platform(chi.URLParam(r, "platform")),
	}, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}
