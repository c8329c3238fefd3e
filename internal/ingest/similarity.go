package ingest

import (
	"regexp"
	"sort"
	"strings"
)

// Match is an indexed document ranked against a query.
type Match struct {
	ID    string
	Score float64
}

// LexicalIndex ranks documents by Jaccard similarity of their word sets:
// score = |Q ∩ D| / |Q ∪ D|. It is not safe for concurrent Add calls.
type LexicalIndex struct {
	stop map[string]struct{}
	docs []lexDoc
}

type lexDoc struct {
	id     string
	tokens map[string]struct{}
}

// NewLexicalIndex returns an empty index. Stopwords are case-insensitive
// and excluded from both documents and queries.
func NewLexicalIndex(stopwords ...string) *LexicalIndex {
	var stop map[string]struct{}
	for _, w := range stopwords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if stop == nil {
			stop = make(map[string]struct{}, len(stopwords))
		}
		stop[w] = struct{}{}
	}
	return &LexicalIndex{stop: stop}
}

// Add indexes text under id. Text without any word is ignored.
func (x *LexicalIndex) Add(id, text string) {
	toks := tokenize(text, x.stop)
	if len(toks) == 0 {
		return
	}
	x.docs = append(x.docs, lexDoc{id: id, tokens: toks})
}

// Len reports the number of indexed documents.
func (x *LexicalIndex) Len() int { return len(x.docs) }

// TopK returns up to k documents with a positive score, best first. Ties
// keep insertion order.
func (x *LexicalIndex) TopK(query string, k int) []Match {
	if len(x.docs) == 0 || strings.TrimSpace(query) == "" {
		return nil
	}
	if k <= 0 {
		k = 3
	}
	q := tokenize(query, x.stop)
	if len(q) == 0 {
		return nil
	}

	out := make([]Match, 0, min(k*4, len(x.docs)))
	for _, d := range x.docs {
		over := overlap(q, d.tokens)
		if over == 0 {
			continue
		}
		union := len(q) + len(d.tokens) - over
		out = append(out, Match{ID: d.id, Score: float64(over) / float64(union)})
	}
	if len(out) == 0 {
		return nil
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	if k < len(out) {
		out = out[:k]
	}
	return out
}

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*`)

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	words := wordRE.FindAllString(strings.ToLower(s), -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if _, skip := stop[w]; skip {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}
