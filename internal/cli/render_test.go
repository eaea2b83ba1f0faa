package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/mpedge/internal/api/handlers"
	"github.com/cloo-solutions/mpedge/internal/domain"
)

func sampleAnswer() handlers.AskResponse {
	return handlers.AskResponse{
		Answer:   "A restriction requirement asks the applicant to elect one invention [1].",
		Provider: "huggingface",
		Model:    "mistralai/Mistral-7B-Instruct-v0.2",
		Chapters: []string{"800"},
		Citations: []handlers.CitationResponse{
			{ParagraphID: "800-0", ChapterID: "800", Text: strings.Repeat("restriction ", 40), Score: 0.8123},
		},
		Failures: []domain.ProviderFailure{{Provider: "openai", Model: "gpt-4o-mini", Kind: domain.FailureRateLimited, Message: "429"}},
	}
}

func TestPrintAnswer_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintAnswer(&buf, sampleAnswer(), false))

	out := buf.String()
	assert.Contains(t, out, "Chapters: 800\n")
	assert.Contains(t, out, "[1] 800-0 (chapter 800, 0.81)")
	assert.Contains(t, out, "...")
	assert.Contains(t, out, "note: openai/gpt-4o-mini: rate_limited (429)")
}

func TestPrintAnswer_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintAnswer(&buf, sampleAnswer(), true))

	var decoded handlers.AskResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, sampleAnswer(), decoded)
}

func TestPrintChapters(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintChapters(&buf, nil, false))
	assert.Equal(t, "No chapters loaded.\n", buf.String())

	buf.Reset()
	require.NoError(t, PrintChapters(&buf, []handlers.ChapterResponse{{ID: "2100", Title: "Patentability", Paragraphs: 12}}, false))
	assert.Contains(t, buf.String(), "2100")
	assert.Contains(t, buf.String(), "12 paragraphs")

	buf.Reset()
	require.NoError(t, PrintChapters(&buf, []handlers.ChapterResponse{{ID: "800", Label: "Chapter 800 – Restriction", Paragraphs: 3}}, false))
	assert.Contains(t, buf.String(), "Chapter 800 – Restriction")
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", excerpt("short"))
	long := strings.Repeat("é", 200)
	assert.Len(t, []rune(excerpt(long)), excerptChars)
}
