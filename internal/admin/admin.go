// Package admin exposes a small HTTP surface — health and cache
// statistics — entirely separate from the raw-socket proxy listener.
// It never touches client traffic.
package admin

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"

	"github.com/gocacheproxy/proxy/internal/cache"
)

// Server is the admin HTTP handler.
type Server struct {
	store   *cache.Store
	ready   atomic.Bool
	handler http.Handler
}

// New builds an admin Server backed by store.
func New(store *cache.Store) *Server {
	s := &Server{store: store}

	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealthz)
	r.Get("/stats", s.handleStats)
	s.handler = r

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// SetReady marks the proxy listener as accepting connections; /healthz
// returns 200 only after this has been called.
func (s *Server) SetReady() {
	s.ready.Store(true)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type statsResponse struct {
	ResidentObjects int    `json:"residentObjects"`
	TotalSize       int    `json:"totalSize"`
	MaxCacheSize    int    `json:"maxCacheSize"`
	MaxObjectSize   int    `json:"maxObjectSize"`
	Hits            uint64 `json:"hits"`
	Misses          uint64 `json:"misses"`
	Admits          uint64 `json:"admits"`
	Evicts          uint64 `json:"evicts"`
	Dropped         uint64 `json:"dropped"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.store.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statsResponse{
		ResidentObjects: stats.ResidentObjects,
		TotalSize:       stats.TotalSize,
		MaxCacheSize:    stats.MaxCacheSize,
		MaxObjectSize:   stats.MaxObjectSize,
		Hits:            stats.Hits,
		Misses:          stats.Misses,
		Admits:          stats.Admits,
		Evicts:          stats.Evicts,
		Dropped:         stats.Dropped,
	})
}
