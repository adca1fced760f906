// Energy API serves the derived consumption series and statistics over HTTP.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/NotCoffee418/home_energy_monitor/pkg/analytics"
	"github.com/NotCoffee418/home_energy_monitor/pkg/config"
	"github.com/NotCoffee418/home_energy_monitor/pkg/meterdb"
)

var (
	engine *analytics.Engine
	store  *meterdb.Store
)

func main() {
	// Load config
	if err := config.LoadEnergyAPIConfig(); err != nil {
		log.Fatalf("Failed to load energy API config: %v", err)
	}
	cfg := config.ActiveEnergyAPIConfig

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("Failed to resolve timezone: %v", err)
	}

	// Initialize database and engine
	meterdb.InitializeDatabase()
	store = meterdb.NewStore(meterdb.GetDB())
	engine, err = analytics.NewEngine(store, loc, cfg.SeriesCacheSize)
	if err != nil {
		log.Fatalf("Failed to create analytics engine: %v", err)
	}

	r := mux.NewRouter()
	r.HandleFunc("/", handleRoot).Methods(http.MethodGet)
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/series", handleSeries).Methods(http.MethodGet)
	api.HandleFunc("/daily", handleDaily).Methods(http.MethodGet)
	api.HandleFunc("/daily/moving-average", handleMovingAverage).Methods(http.MethodGet)
	api.HandleFunc("/downsample", handleDownsample).Methods(http.MethodGet)
	api.HandleFunc("/stats", handleStats).Methods(http.MethodGet)
	api.HandleFunc("/average-daily", handleAverageDaily).Methods(http.MethodGet)
	api.HandleFunc("/latest", handleLatest).Methods(http.MethodGet)

	listener := fmt.Sprintf("%s:%d", cfg.ListenAddress, cfg.ListenPort)
	log.Printf("Starting Home Energy Monitor API on %s", listener)
	log.Fatal(http.ListenAndServe(listener, r))
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Home Energy Monitor API",
		"status":  "running",
	})
}

func handleSeries(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	series, err := engine.FetchSeries(start, end)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func handleDaily(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	daily, err := engine.DailyUsage(start, end)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, daily)
}

func handleMovingAverage(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	window := 0
	if raw := r.URL.Query().Get("window"); raw != "" {
		window, err = strconv.Atoi(raw)
		if err != nil || window < 1 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("window must be a positive integer"))
			return
		}
	}

	daily, err := engine.DailyUsage(start, end)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.MovingAverage(daily, window))
}

func handleDownsample(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseRequiredRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	series, err := engine.Downsample(start, end, r.URL.Query().Get("interval"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func handleStats(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseRequiredRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	stats, err := engine.Stats(start, end)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func handleAverageDaily(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	avg, err := engine.AverageDailyUsage(start, end)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"avg_daily_kwh": avg})
}

func handleLatest(w http.ResponseWriter, r *http.Request) {
	reading, err := store.LatestReading()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if reading == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("no readings available yet"))
		return
	}
	writeJSON(w, http.StatusOK, reading)
}

// parseRange reads optional start/end query params. Missing params stay
// zero; the engine fills its default trailing window.
func parseRange(r *http.Request) (time.Time, time.Time, error) {
	start, err := parseTimeParam(r.URL.Query().Get("start"))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start: %w", err)
	}
	end, err := parseTimeParam(r.URL.Query().Get("end"))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end: %w", err)
	}
	return start, end, nil
}

func parseRequiredRange(r *http.Request) (time.Time, time.Time, error) {
	start, end, err := parseRange(r)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if start.IsZero() || end.IsZero() {
		return time.Time{}, time.Time{}, fmt.Errorf("start and end are required")
	}
	return start, end, nil
}

// parseTimeParam accepts RFC3339 or unix milliseconds. Empty means unset.
func parseTimeParam(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	return time.Parse(time.RFC3339, value)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeEngineError maps the analytics error taxonomy onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	var invalidArgument *analytics.InvalidArgumentError
	var negativeDelta *analytics.NegativeEnergyDeltaError
	var insufficient *analytics.InsufficientDataError

	switch {
	case errors.As(err, &invalidArgument):
		writeError(w, http.StatusBadRequest, err)
	case errors.As(err, &negativeDelta):
		writeError(w, http.StatusConflict, err)
	case errors.As(err, &insufficient):
		writeError(w, http.StatusUnprocessableEntity, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
