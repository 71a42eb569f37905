package handlers

import (
	"net/http"

	"github.com/Harshitk-cp/prospector/internal/service"
)

// CacheHandler exposes hypothesis cache observability.
type CacheHandler struct {
	cache *service.HypothesisCache
}

func NewCacheHandler(cache *service.HypothesisCache) *CacheHandler {
	return &CacheHandler{cache: cache}
}

func (h *CacheHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cache.Stats())
}

func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.cache.Clear()
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}
