/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server exposes the player's control and diagnostic surface: health,
// metrics, state, manual skip, and a websocket event feed for the rendering
// layer.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/friendsincode/grimnir_signage/internal/config"
	"github.com/friendsincode/grimnir_signage/internal/events"
	"github.com/friendsincode/grimnir_signage/internal/player"
	"github.com/friendsincode/grimnir_signage/internal/version"
)

// Server bundles the HTTP surface around the player service.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	player     *player.Service
	bus        *events.Bus
}

// New builds the HTTP server and its routes.
func New(cfg *config.Config, playerSvc *player.Service, bus *events.Bus, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		logger: logger.With().Str("component", "server").Logger(),
		player: playerSvc,
		bus:    bus,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/queue", s.handleQueue)
		r.Post("/skip", s.handleSkip)
		r.Post("/visibility", s.handleVisibility)
	})

	r.Get("/ws/events", s.handleEventsWS)

	s.router = r
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort),
		Handler:           otelhttp.NewHandler(r, "http"),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// HTTPServer returns the configured http.Server for the caller to run.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.player.State())
}

func (s *Server) handleQueue(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.player.Queue())
}

func (s *Server) handleSkip(w http.ResponseWriter, _ *http.Request) {
	s.player.Skip()
	writeJSON(w, http.StatusOK, map[string]string{"status": "skipped"})
}

// handleVisibility lets the rendering host report hide/show transitions so
// the controller can resynchronize after a suspend.
func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Visible bool `json:"visible"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	s.player.HandleVisibility(body.Visible)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
