package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/mpedge/internal/api"
	"github.com/cloo-solutions/mpedge/internal/domain"
)

// ChapterCatalog is the read side of the document store.
type ChapterCatalog interface {
	Chapters() []domain.Chapter
	Chapter(id string) (*domain.Chapter, error)
}

type ChapterHandler struct {
	catalog ChapterCatalog
}

func NewChapterHandler(catalog ChapterCatalog) *ChapterHandler {
	return &ChapterHandler{catalog: catalog}
}

type ChapterResponse struct {
	ID         string   `json:"id"`
	Number     int      `json:"number"`
	Title      string   `json:"title"`
	Label      string   `json:"label"`
	Keywords   []string `json:"keywords,omitempty"`
	Summary    string   `json:"summary,omitempty"`
	Paragraphs int      `json:"paragraphs"`
}

type ParagraphResponse struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type ChapterDetailResponse struct {
	ChapterResponse
	Content []ParagraphResponse `json:"content"`
}

type ChapterListResponse struct {
	Chapters []ChapterResponse `json:"chapters"`
}

func toChapterResponse(c domain.Chapter) ChapterResponse {
	return ChapterResponse{
		ID:         c.ID,
		Number:     c.Number,
		Title:      c.Title,
		Label:      c.DisplayName(),
		Keywords:   c.Keywords,
		Summary:    c.Summary,
		Paragraphs: len(c.Paragraphs),
	}
}

// List handles GET /chapters.
func (h *ChapterHandler) List(w http.ResponseWriter, r *http.Request) {
	chapters := h.catalog.Chapters()
	resp := ChapterListResponse{Chapters: make([]ChapterResponse, len(chapters))}
	for i, c := range chapters {
		resp.Chapters[i] = toChapterResponse(c)
	}
	api.Success(w, http.StatusOK, resp)
}

// Get handles GET /chapters/{id}.
func (h *ChapterHandler) Get(w http.ResponseWriter, r *http.Request) {
	chapter, err := h.catalog.Chapter(chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := ChapterDetailResponse{
		ChapterResponse: toChapterResponse(*chapter),
		Content:         make([]ParagraphResponse, len(chapter.Paragraphs)),
	}
	for i, p := range chapter.Paragraphs {
		resp.Content[i] = ParagraphResponse{ID: p.ID, Text: p.Text}
	}
	api.Success(w, http.StatusOK, resp)
}
