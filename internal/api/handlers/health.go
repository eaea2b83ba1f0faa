package handlers

import (
	"net/http"

	"github.com/cloo-solutions/mpedge/internal/api"
)

// CorpusStats reports the size of the loaded corpus.
type CorpusStats interface {
	Stats() (chapters, paragraphs int)
}

type HealthHandler struct {
	stats CorpusStats
}

func NewHealthHandler(stats CorpusStats) *HealthHandler {
	return &HealthHandler{stats: stats}
}

type HealthResponse struct {
	Status     string `json:"status"`
	Chapters   int    `json:"chapters"`
	Paragraphs int    `json:"paragraphs"`
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	chapters, paragraphs := h.stats.Stats()
	api.Success(w, http.StatusOK, HealthResponse{Status: "ok", Chapters: chapters, Paragraphs: paragraphs})
}
