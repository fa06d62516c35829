// Package api exposes the latest pipeline snapshot over a thin read-only
// HTTP layer. The snapshot is loaded once at startup and injected into the
// handlers; requests never mutate it.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/neighborhood-insights/insights-cli/internal/model"
)

// Server serves an immutable pipeline snapshot.
type Server struct {
	snap *model.Snapshot
	log  *zap.Logger
}

// NewServer creates a Server over the given snapshot.
func NewServer(snap *model.Snapshot) *Server {
	return &Server{
		snap: snap,
		log:  zap.L().With(zap.String("component", "api")),
	}
}

// Router builds the chi router with CORS configured for the given origins.
func (s *Server) Router(corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleRoot)
	r.Get("/pois", s.handlePOIs)
	r.Get("/neighborhoods", s.handleNeighborhoods)
	r.Get("/neighborhoods/{id}", s.handleNeighborhood)
	r.Get("/geojson/pois", s.handlePOIsGeoJSON)
	r.Get("/geojson/neighborhoods", s.handleNeighborhoodsGeoJSON)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"message":       "Neighborhood Insights API",
		"run_id":        s.snap.RunID,
		"total_pois":    len(s.snap.POIs),
		"neighborhoods": len(s.snap.Neighborhoods),
	})
}

// handlePOIs lists POIs, optionally filtered by ?category= and capped by
// ?limit=.
func (s *Server) handlePOIs(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	pois := s.snap.POIs
	if category != "" {
		filtered := make([]model.POI, 0, len(pois))
		for _, p := range pois {
			if string(p.Category) == category {
				filtered = append(filtered, p)
			}
		}
		pois = filtered
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if limit < len(pois) {
			pois = pois[:limit]
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"pois":  pois,
		"total": len(pois),
	})
}

func (s *Server) handleNeighborhoods(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.snap.Neighborhoods)
}

func (s *Server) handleNeighborhood(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid neighborhood id")
		return
	}

	for _, n := range s.snap.Neighborhoods {
		if n.ID == id {
			s.writeJSON(w, http.StatusOK, n)
			return
		}
	}
	s.writeError(w, http.StatusNotFound, "neighborhood not found")
}

func (s *Server) handlePOIsGeoJSON(w http.ResponseWriter, _ *http.Request) {
	fc := geojson.NewFeatureCollection()
	for _, p := range s.snap.POIs {
		f := geojson.NewFeature(orb.Point{p.Longitude, p.Latitude})
		f.Properties = geojson.Properties{
			"id":      p.ID,
			"name_he": p.Name,
			"type":    string(p.Category),
		}
		fc.Append(f)
	}
	s.writeJSON(w, http.StatusOK, fc)
}

func (s *Server) handleNeighborhoodsGeoJSON(w http.ResponseWriter, _ *http.Request) {
	fc := geojson.NewFeatureCollection()
	for _, n := range s.snap.Neighborhoods {
		f := geojson.NewFeature(orb.Point{n.Longitude, n.Latitude})
		f.Properties = geojson.Properties{
			"id":              n.ID,
			"name_he":         n.NameHe,
			"name_en":         n.NameEn,
			"city":            n.City,
			"composite_score": n.CompositeScore,
		}
		fc.Append(f)
	}
	s.writeJSON(w, http.StatusOK, fc)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
