package service

import (
	"regexp"
	"strings"
	"unicode"
)

// ChunkConfig controls how over-long paragraphs are cut into windows.
type ChunkConfig struct {
	MaxChars  int
	MinChars  int
	Overlap   int
	MaxChunks int // 0 means unlimited
}

// DefaultChunkConfig keeps paragraphs whole up to 1500 characters.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChars:  1500,
		MinChars:  400,
		Overlap:   150,
		MaxChunks: 0,
	}
}

var blankLines = regexp.MustCompile(`\n\s*\n`)

// splitParagraphs splits chapter text on blank lines, collapses whitespace and
// merges fragments shorter than minChars into the following paragraph. A short
// trailing fragment is merged into the previous one.
func splitParagraphs(text string, minChars int) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := blankLines.Split(text, -1)

	out := make([]string, 0, len(parts))
	pending := ""
	for _, part := range parts {
		clean := strings.Join(strings.Fields(part), " ")
		if clean == "" {
			continue
		}
		if pending != "" {
			clean = pending + " " + clean
			pending = ""
		}
		if len([]rune(clean)) < minChars {
			pending = clean
			continue
		}
		out = append(out, clean)
	}
	if pending != "" {
		if len(out) > 0 {
			out[len(out)-1] = out[len(out)-1] + " " + pending
		} else {
			out = append(out, pending)
		}
	}
	return out
}

func chunkText(text string, cfg ChunkConfig) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}
	if cfg.MaxChars <= 0 {
		cfg = DefaultChunkConfig()
	}
	runes := []rune(clean)
	if len(runes) <= cfg.MaxChars {
		return []string{clean}
	}

	chunks := make([]string, 0, 8)
	start := 0
	for start < len(runes) {
		if cfg.MaxChunks > 0 && len(chunks) >= cfg.MaxChunks {
			break
		}

		end := min(start+cfg.MaxChars, len(runes))

		// prefer to cut on whitespace, but not before MinChars
		if end < len(runes) {
			cut := end
			minCut := start + cfg.MinChars
			if minCut > end {
				minCut = start
			}
			for i := end; i > minCut; i-- {
				if unicode.IsSpace(runes[i-1]) {
					cut = i
					break
				}
			}
			end = cut
		}

		if end <= start {
			break
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(runes) {
			break
		}

		nextStart := end
		if cfg.Overlap > 0 && end-start > cfg.Overlap {
			nextStart = end - cfg.Overlap
		}
		if nextStart <= start {
			nextStart = end
		}
		start = nextStart
	}

	return chunks
}
