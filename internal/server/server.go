// Package server exposes the core over a small JSON API. It is the thin
// collaborator surface the UI talks to; all real work happens in the
// steam client, the gateway, and the crossref engine.
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/steamlens/steamlens/internal/apperror"
	"github.com/steamlens/steamlens/internal/crossref"
	"github.com/steamlens/steamlens/internal/gateway"
	"github.com/steamlens/steamlens/internal/steam"
)

type Server struct {
	client   *steam.Client
	gateway  *gateway.Gateway
	engine   *crossref.Engine
	maxPages int
	mux      *http.ServeMux
}

// New creates a Server. maxPages is the default per-reviewer page ceiling
// for cross-reference runs.
func New(client *steam.Client, gw *gateway.Gateway, engine *crossref.Engine, maxPages int) *Server {
	if maxPages < 1 {
		maxPages = 3
	}
	s := &Server{
		client:   client,
		gateway:  gw,
		engine:   engine,
		maxPages: maxPages,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/reviews/", s.handleReviews)
	s.mux.HandleFunc("/api/proxy", s.handleProxy)
	s.mux.HandleFunc("/api/crossref/", s.handleCrossref)
	s.mux.HandleFunc("/healthz", s.handleHealth)
}

func (s *Server) handleReviews(w http.ResponseWriter, r *http.Request) {
	appID := strings.TrimPrefix(r.URL.Path, "/api/reviews/")
	if appID == "" || strings.Contains(appID, "/") {
		s.writeError(w, apperror.Validation("app id is required"))
		return
	}

	page, err := s.client.GetEnrichedReviewPage(r.Context(), appID, optionsFromQuery(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		s.writeError(w, apperror.Validation("url query parameter is required"))
		return
	}

	content, fromCache, err := s.gateway.Fetch(r.Context(), target)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if fromCache {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, content)
}

func (s *Server) handleCrossref(w http.ResponseWriter, r *http.Request) {
	appID := strings.TrimPrefix(r.URL.Path, "/api/crossref/")
	if appID == "" || strings.Contains(appID, "/") {
		s.writeError(w, apperror.Validation("app id is required"))
		return
	}

	maxPages := s.maxPages
	if v := r.URL.Query().Get("pages"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, apperror.Validation("pages must be a positive integer"))
			return
		}
		maxPages = n
	}

	page, err := s.client.GetEnrichedReviewPage(r.Context(), appID, optionsFromQuery(r))
	if err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.engine.Aggregate(r.Context(), page.Reviews, maxPages, nil, appID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func optionsFromQuery(r *http.Request) steam.Options {
	q := r.URL.Query()
	opts := steam.Options{
		Filter:       q.Get("filter"),
		Language:     q.Get("language"),
		ReviewType:   q.Get("review_type"),
		PurchaseType: q.Get("purchase_type"),
		Cursor:       q.Get("cursor"),
	}
	if n, err := strconv.Atoi(q.Get("day_range")); err == nil {
		opts.DayRange = n
	}
	if n, err := strconv.Atoi(q.Get("num_per_page")); err == nil {
		opts.NumPerPage = n
	}
	return opts
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, apperror.HTTPStatus(err), map[string]string{"error": err.Error()})
}

// Serve starts the HTTP server on the given port.
func (s *Server) Serve(port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, s.Handler())
}
