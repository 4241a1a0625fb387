package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/notemind/internal/models"
	"github.com/hyperjump/notemind/internal/search"
	"github.com/hyperjump/notemind/internal/storage"
)

const (
	msgCorruptStore      = "vector store is corrupt; rebuild it with `notemind index --rebuild`"
	msgDimensionMismatch = "vector store was built with a different embedding dimension; rebuild it with `notemind index --rebuild`"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}
	start := time.Now()
	results, err := s.search.Search(r.Context(), query.Query)
	if err != nil {
		s.respondStoreError(w, "search failed", err)
		return
	}
	respondJSON(w, http.StatusOK, &models.SearchResponse{
		Results:   results,
		Total:     len(results),
		QueryTime: time.Since(start).Milliseconds(),
		Query:     query.Query,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	query, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}
	start := time.Now()
	answer, err := s.composer.Answer(r.Context(), query.Query)
	if err != nil {
		s.respondStoreError(w, "chat failed", err)
		return
	}
	respondJSON(w, http.StatusOK, &models.ChatResponse{
		Answer:    answer,
		QueryTime: time.Since(start).Milliseconds(),
		Query:     query.Query,
	})
}

func (s *Server) handleKeyword(w http.ResponseWriter, r *http.Request) {
	query := models.Query{Query: r.URL.Query().Get("q")}
	if err := query.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit := s.config.Search.KeywordLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	start := time.Now()
	results, err := s.search.Keyword(r.Context(), query.Query, limit)
	if errors.Is(err, search.ErrKeywordDisabled) {
		respondError(w, http.StatusNotImplemented, err.Error())
		return
	}
	if err != nil {
		s.respondStoreError(w, "keyword search failed", err)
		return
	}
	respondJSON(w, http.StatusOK, &models.SearchResponse{
		Results:   results,
		Total:     len(results),
		QueryTime: time.Since(start).Milliseconds(),
		Query:     query.Query,
	})
}

func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.search.Notes(r.Context())
	if err != nil {
		s.respondStoreError(w, "list notes failed", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"notes": notes, "total": len(notes)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"notes_dir":  s.config.Watch.Directory,
		"backend":    s.config.Storage.Backend,
		"location":   s.repo.Backend().Location(),
		"dimensions": s.repo.Dimensions(),
		"provider":   s.config.Embedding.Provider,
		"ocr_engine": s.config.OCR.Engine,
	}
	snap, err := s.repo.Load(r.Context())
	switch {
	case err == nil:
		resp["notes"] = snap.Len()
		resp["store"] = "ok"
	case errors.Is(err, storage.ErrCorrupt):
		resp["store"] = "corrupt"
	case errors.Is(err, storage.ErrDimensionMismatch):
		resp["store"] = "dimension_mismatch"
	default:
		s.logger.Error("status: load store failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if diskBytes, err := storage.DiskUsageBytes(storage.FootprintPaths(s.repo.Backend())...); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	if s.coordinator != nil {
		resp["indexer"] = map[string]interface{}{
			"state": s.coordinator.State().String(),
			"stats": s.coordinator.Stats(),
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) decodeQuery(w http.ResponseWriter, r *http.Request) (models.Query, bool) {
	var query models.Query
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return query, false
	}
	if err := query.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return query, false
	}
	s.logger.Debug("query request", zap.String("path", r.URL.Path), zap.String("query", query.Query))
	return query, true
}

// respondStoreError maps store failures to a 500 whose message says what went wrong,
// so an unusable store is never mistaken for an empty one.
func (s *Server) respondStoreError(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, zap.Error(err))
	switch {
	case errors.Is(err, storage.ErrCorrupt):
		respondError(w, http.StatusInternalServerError, msgCorruptStore)
	case errors.Is(err, storage.ErrDimensionMismatch):
		respondError(w, http.StatusInternalServerError, msgDimensionMismatch)
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
