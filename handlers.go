package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/kwv/beaconmesh/logger"
	"github.com/kwv/beaconmesh/mesh"
)

// newHTTPServer creates an HTTP server with all endpoints
func newHTTPServer(stateTracker *mesh.StateTracker, config *mesh.Config) http.Handler {
	if config == nil {
		config = mesh.DefaultConfig()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		logger.Debugf("[HTTP] /health request from %s", r.RemoteAddr)
		status := struct {
			Status    string      `json:"status"`
			Timestamp time.Time   `json:"timestamp"`
			State     mesh.Status `json:"state"`
		}{
			Status:    "ok",
			Timestamp: time.Now(),
			State:     stateTracker.Status(),
		}
		writeJSON(w, "application/json", status)
	})

	mux.HandleFunc("GET /result", func(w http.ResponseWriter, r *http.Request) {
		result := stateTracker.Result()
		if result == nil {
			http.Error(w, "No result available", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, "application/json", result)
	})

	mux.HandleFunc("GET /scanners/{id}", func(w http.ResponseWriter, r *http.Request) {
		result := stateTracker.Result()
		if result == nil {
			http.Error(w, "No result available", http.StatusServiceUnavailable)
			return
		}
		id, err := strconv.Atoi(r.PathValue("id"))
		if err != nil {
			http.Error(w, "Invalid scanner id", http.StatusBadRequest)
			return
		}
		for _, s := range result.Scanners {
			if s.ID == id {
				writeJSON(w, "application/json", s)
				return
			}
		}
		http.Error(w, "Scanner not found", http.StatusNotFound)
	})

	mux.HandleFunc("GET /beacons.geojson", func(w http.ResponseWriter, r *http.Request) {
		result := stateTracker.Result()
		if result == nil {
			http.Error(w, "No result available", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, "application/geo+json", mesh.ResultToGeoJSON(result))
	})

	mux.HandleFunc("GET /map.png", func(w http.ResponseWriter, r *http.Request) {
		result := stateTracker.Result()
		if result == nil {
			http.Error(w, "No result available", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")

		var err error
		if r.URL.Query().Get("format") == "vector" {
			err = mesh.NewVectorRenderer(result, config.Render, config.Scanners).RenderToPNG(w)
		} else {
			err = mesh.NewRasterRenderer(result, config.Render, config.Scanners).WritePNG(w)
		}
		if err != nil {
			logger.Errorf("[HTTP] error encoding /map.png: %v", err)
		}
	})

	mux.HandleFunc("GET /map.svg", func(w http.ResponseWriter, r *http.Request) {
		result := stateTracker.Result()
		if result == nil {
			http.Error(w, "No result available", http.StatusServiceUnavailable)
			return
		}

		renderer := mesh.NewVectorRenderer(result, config.Render, config.Scanners)
		if gs := r.URL.Query().Get("grid"); gs != "" {
			spacing, err := strconv.ParseFloat(gs, 64)
			if err != nil || spacing < 0 {
				http.Error(w, "Invalid grid spacing", http.StatusBadRequest)
				return
			}
			renderer.GridSpacing = spacing
		}

		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "no-cache")
		if err := renderer.RenderToSVG(w); err != nil {
			logger.Errorf("[HTTP] error encoding /map.svg: %v", err)
		}
	})

	return mux
}

func writeJSON(w http.ResponseWriter, contentType string, v any) {
	w.Header().Set("Content-Type", contentType)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("[HTTP] error encoding response: %v", err)
	}
}
