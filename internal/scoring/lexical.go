package scoring

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/cloo-solutions/mpedge/internal/domain"
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "of": {}, "to": {}, "for": {}, "with": {}, "by": {},
	"in": {}, "on": {}, "at": {}, "from": {}, "as": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {},
	"been": {}, "it": {}, "this": {}, "that": {}, "these": {}, "those": {}, "we": {}, "our": {}, "you": {},
	"your": {}, "i": {}, "me": {}, "my": {}, "us": {}, "them": {}, "they": {}, "their": {}, "do": {},
	"does": {}, "did": {}, "what": {}, "how": {}, "why": {}, "when": {}, "where": {}, "which": {}, "can": {},
	"could": {}, "should": {}, "would": {}, "may": {}, "might": {}, "will": {}, "shall": {},
}

// LexicalScorer is a fuzzy token-set ratio. Texts sharing no token score 0.
type LexicalScorer struct {
	stopwords map[string]struct{}
}

func NewLexicalScorer() *LexicalScorer {
	return &LexicalScorer{stopwords: stopwords}
}

func (s *LexicalScorer) Method() domain.ScoringMethod {
	return domain.ScoringMethodLexical
}

func (s *LexicalScorer) Score(q, c Input) float64 {
	return TokenSetRatio(s.Tokens(q.Text), s.Tokens(c.Text))
}

// Tokens lower-cases the text and splits it into a sorted, de-duplicated set
// of letter/digit runs. Dots and apostrophes inside a run are dropped so that
// "U.S.C." and "USC" produce the same token.
func (s *LexicalScorer) Tokens(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	var b strings.Builder

	flush := func() {
		if b.Len() == 0 {
			return
		}
		tok := b.String()
		b.Reset()
		if _, stop := s.stopwords[tok]; stop {
			return
		}
		if _, dup := seen[tok]; dup {
			return
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}

	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case r == '.' || r == '\'' || r == '’':
		default:
			flush()
		}
	}
	flush()

	sort.Strings(out)
	return out
}

// TokenSetRatio compares two sorted token sets: the shared tokens are matched
// against each side's full set and the best normalized similarity wins.
func TokenSetRatio(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	inter, onlyA, onlyB := partition(a, b)
	if len(inter) == 0 {
		return 0
	}

	t0 := strings.Join(inter, " ")
	t1 := strings.TrimSpace(t0 + " " + strings.Join(onlyA, " "))
	t2 := strings.TrimSpace(t0 + " " + strings.Join(onlyB, " "))

	best := 0.0
	for _, pair := range [][2]string{{t0, t1}, {t0, t2}, {t1, t2}} {
		if best == 1 {
			break
		}
		best = ratioAbove(pair[0], pair[1], best)
	}
	return best
}

// Ratio is 1 - levenshtein(a,b)/max(len(a),len(b)) measured in runes.
func Ratio(a, b string) float64 {
	return ratioAbove(a, b, -1)
}

// ratioAbove skips the distance computation when the length difference alone
// keeps the ratio at or below floor.
func ratioAbove(a, b string, floor float64) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return max(floor, 0)
	}
	upper := float64(min(la, lb)) / float64(longest)
	if upper <= floor {
		return floor
	}
	r := 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
	return max(r, floor)
}

func partition(a, b []string) (inter, onlyA, onlyB []string) {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			inter = append(inter, a[i])
			i++
			j++
		case a[i] < b[j]:
			onlyA = append(onlyA, a[i])
			i++
		default:
			onlyB = append(onlyB, b[j])
			j++
		}
	}
	onlyA = append(onlyA, a[i:]...)
	onlyB = append(onlyB, b[j:]...)
	return inter, onlyA, onlyB
}
