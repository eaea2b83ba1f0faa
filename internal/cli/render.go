package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cloo-solutions/mpedge/internal/api/handlers"
)

const excerptChars = 160

// PrintAnswer writes an answer with numbered citations, or indented JSON.
func PrintAnswer(w io.Writer, resp handlers.AskResponse, asJSON bool) error {
	if asJSON {
		return printJSON(w, resp)
	}

	fmt.Fprintln(w, resp.Answer)
	fmt.Fprintln(w)
	scope := strings.Join(resp.Chapters, ", ")
	if resp.ScopeWidened {
		scope += " (widened)"
	}
	fmt.Fprintf(w, "Chapters: %s\n", scope)
	fmt.Fprintf(w, "Provider: %s (%s)\n", resp.Provider, resp.Model)

	if len(resp.Citations) > 0 {
		fmt.Fprintln(w, "\nCitations:")
		for i, c := range resp.Citations {
			fmt.Fprintf(w, "[%d] %s (chapter %s, %.2f)\n", i+1, c.ParagraphID, c.ChapterID, c.Score)
			fmt.Fprintf(w, "    %s\n", excerpt(c.Text))
		}
	}

	for _, f := range resp.Failures {
		fmt.Fprintf(w, "note: %s\n", f.String())
	}
	return nil
}

// PrintChapters writes the chapter list as a table, or indented JSON.
func PrintChapters(w io.Writer, chapters []handlers.ChapterResponse, asJSON bool) error {
	if asJSON {
		return printJSON(w, chapters)
	}
	if len(chapters) == 0 {
		fmt.Fprintln(w, "No chapters loaded.")
		return nil
	}
	for _, c := range chapters {
		label := c.Label
		if label == "" {
			label = strings.TrimSpace(c.ID + " " + c.Title)
		}
		fmt.Fprintf(w, "%-60s %4d paragraphs\n", label, c.Paragraphs)
	}
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= excerptChars {
		return text
	}
	return string(runes[:excerptChars-3]) + "..."
}
