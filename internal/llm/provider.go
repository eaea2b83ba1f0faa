// Package llm defines the uniform contract every answer provider implements
// and the classification of provider failures.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Provider generates an answer for a question grounded in a context block.
type Provider interface {
	Name() string
	Model() string
	Generate(ctx context.Context, req Request) (string, error)
}

// Params are per-request generation settings.
type Params struct {
	MaxTokens   int
	Temperature float32
}

// Request is one generation call.
type Request struct {
	Query   string
	Context string
	Params  Params
}

// SystemPrompt instructs chat models to stay within the supplied passages.
const SystemPrompt = "You are a patent law assistant answering questions about the Manual of Patent Examining Procedure. " +
	"Answer only from the numbered context passages and cite them as [n]. " +
	"If the context does not contain the answer, say so."

const answerMarker = "Answer:"

// BuildPrompt renders the single-turn prompt used by text-generation models.
func BuildPrompt(req Request) string {
	return fmt.Sprintf(
		"Answer the following patent law question using the context.\n\nQuestion: %s\n\nContext:\n%s\n\n%s",
		strings.TrimSpace(req.Query), req.Context, answerMarker,
	)
}

// ExtractAnswer strips an echoed prompt by keeping only the text after the
// last "Answer:" marker.
func ExtractAnswer(generated string) string {
	if i := strings.LastIndex(generated, answerMarker); i >= 0 {
		generated = generated[i+len(answerMarker):]
	}
	return strings.TrimSpace(generated)
}
