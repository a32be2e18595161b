// Package api serves the read-only analytics endpoints.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/muesliswap/batcher-monitor/store"
)

// Server exposes batcher analytics over HTTP. All endpoints are
// read-only and backed directly by the store.
type Server struct {
	store *store.Store
	log   *zap.SugaredLogger
}

// NewServer wires the handlers to a store.
func NewServer(st *store.Store, log *zap.SugaredLogger) *Server {
	return &Server{store: st, log: log}
}

// RegisterRoutes mounts all endpoints on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /batchers", s.handleBatchers)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /all-stats", s.handleAllStats)
	mux.HandleFunc("GET /transactions", s.handleTransactions)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warnw("response encoding failed", "err", err)
	}
}

func (s *Server) handleBatchers(w http.ResponseWriter, r *http.Request) {
	batchers, err := s.store.Batchers(r.Context())
	if err != nil {
		s.log.Errorw("batchers query failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if batchers == nil {
		batchers = []store.BatcherInfo{}
	}
	s.writeJSON(w, batchers)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		http.Error(w, "missing address parameter", http.StatusBadRequest)
		return
	}
	stats, err := s.store.StatsByAddress(r.Context(), address)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "unknown address", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Errorw("stats query failed", "address", address, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, stats)
}

func (s *Server) handleAllStats(w http.ResponseWriter, r *http.Request) {
	all, err := s.store.AllStats(r.Context())
	if err != nil {
		s.log.Errorw("all-stats query failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if all == nil {
		all = []store.ExpandedStats{}
	}
	s.writeJSON(w, all)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		http.Error(w, "missing address parameter", http.StatusBadRequest)
		return
	}
	txs, err := s.store.TransactionsByAddress(r.Context(), address)
	if err != nil {
		s.log.Errorw("transactions query failed", "address", address, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if txs == nil {
		txs = []store.TransactionInfo{}
	}
	s.writeJSON(w, txs)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}
