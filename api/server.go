// Package api is the thin read-side surface over ingested data. It has no
// ingestion logic: every handler is a store query behind an optional
// response cache.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cryptodash/market-ingestor-go/models"
	"github.com/cryptodash/market-ingestor-go/store"
)

const defaultListLimit = 100

type readStore interface {
	ListAssets(ctx context.Context, limit int) ([]models.Asset, error)
	GetAsset(ctx context.Context, assetID string) (*models.Asset, error)
	GetHistory(ctx context.Context, assetID string, from, to time.Time) ([]models.HistoricalPoint, error)
}

type Server struct {
	store  readStore
	cache  *Cache
	log    *slog.Logger
	router chi.Router
}

// NewServer wires the read routes. cache may be nil, in which case every
// request hits the store.
func NewServer(st readStore, cache *Cache, log *slog.Logger) *Server {
	s := &Server{store: st, cache: cache, log: log}

	r := chi.NewRouter()
	r.Get("/health", s.handleHealth)
	r.Get("/assets", s.cached(s.handleListAssets))
	r.Get("/assets/{assetID}", s.cached(s.handleGetAsset))
	r.Get("/assets/{assetID}/history", s.cached(s.handleGetHistory))
	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// cached serves the response body from redis when present, keyed by the
// full request URI, and stores successful responses on miss.
func (s *Server) cached(next func(r *http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := "read:" + r.URL.RequestURI()
		if s.cache != nil {
			if body, ok := s.cache.Get(r.Context(), key); ok {
				w.Header().Set("Content-Type", "application/json")
				w.Write(body)
				return
			}
		}

		payload, err := next(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		body, err := json.Marshal(payload)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if s.cache != nil {
			s.cache.Set(r.Context(), key, body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrAssetNotFound):
		http.Error(w, "asset not found", http.StatusNotFound)
	case errors.Is(err, errBadRequest):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.log.Error("read request failed", "path", r.URL.Path, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

var errBadRequest = errors.New("bad request")

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleListAssets(r *http.Request) (any, error) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, errBadRequest
		}
		limit = n
	}
	return s.store.ListAssets(r.Context(), limit)
}

func (s *Server) handleGetAsset(r *http.Request) (any, error) {
	return s.store.GetAsset(r.Context(), chi.URLParam(r, "assetID"))
}

func (s *Server) handleGetHistory(r *http.Request) (any, error) {
	assetID := chi.URLParam(r, "assetID")

	from := time.Time{}
	to := time.Now().UTC()
	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, errBadRequest
		}
		from = t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, errBadRequest
		}
		to = t
	}
	return s.store.GetHistory(r.Context(), assetID, from, to)
}
