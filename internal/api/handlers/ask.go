package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/mpedge/internal/api"
	"github.com/cloo-solutions/mpedge/internal/api/middleware"
	"github.com/cloo-solutions/mpedge/internal/domain"
	"github.com/cloo-solutions/mpedge/internal/service"
)

type AskService interface {
	Ask(ctx context.Context, input service.AskInput) (*domain.AnswerResult, error)
}

type AskHandler struct {
	svc AskService
}

func NewAskHandler(svc AskService) *AskHandler {
	return &AskHandler{svc: svc}
}

type AskRequest struct {
	Query    string   `json:"query"`
	Chapters []string `json:"chapters,omitempty"`
}

type CitationResponse struct {
	ParagraphID    string  `json:"paragraph_id"`
	ChapterID      string  `json:"chapter_id"`
	Text           string  `json:"text"`
	Score          float64 `json:"score"`
	Method         string  `json:"method"`
	EmbeddingScore float64 `json:"embedding_score,omitempty"`
	LexicalScore   float64 `json:"lexical_score,omitempty"`
	Truncated      bool    `json:"truncated,omitempty"`
}

type AskResponse struct {
	Answer       string                   `json:"answer"`
	Provider     string                   `json:"provider"`
	Model        string                   `json:"model"`
	Chapters     []string                 `json:"chapters"`
	ScopeWidened bool                     `json:"scope_widened,omitempty"`
	Citations    []CitationResponse       `json:"citations"`
	Failures     []domain.ProviderFailure `json:"failures,omitempty"`
}

// Ask handles POST /ask.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.JSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "invalid request body", Code: domain.ErrCodeValidation})
		return
	}

	result, err := h.svc.Ask(r.Context(), service.AskInput{
		Query:     req.Query,
		Chapters:  req.Chapters,
		RequestID: middleware.GetRequestID(r.Context()),
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, NewAskResponse(result))
}

// NewAskResponse flattens an answer into its wire form.
func NewAskResponse(result *domain.AnswerResult) AskResponse {
	citations := make([]CitationResponse, len(result.Citations))
	for i, c := range result.Citations {
		citations[i] = CitationResponse{
			ParagraphID:    c.Paragraph.ID,
			ChapterID:      c.Paragraph.ChapterID,
			Text:           c.Paragraph.Text,
			Score:          c.Score,
			Method:         string(c.Method),
			EmbeddingScore: c.EmbeddingScore,
			LexicalScore:   c.LexicalScore,
			Truncated:      c.Truncated,
		}
	}
	return AskResponse{
		Answer:       result.Answer,
		Provider:     result.Provider,
		Model:        result.Model,
		Chapters:     result.Chapters,
		ScopeWidened: result.ScopeWidened,
		Citations:    citations,
		Failures:     result.Failures,
	}
}
