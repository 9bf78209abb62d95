package scoring

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// TextSimilarity compares two free-text fields and returns a score in [0,1].
// Implementations must not fail: degenerate input yields 0.
type TextSimilarity interface {
	Similarity(a, b string) float64
}

const defaultMaxFeatures = 100

// TFIDF is a cosine similarity over TF-IDF vectors. The vocabulary and the
// document frequencies come only from the two texts being compared, so a
// score never depends on any other pair.
type TFIDF struct {
	MaxFeatures int
}

func NewTFIDF() *TFIDF {
	return &TFIDF{MaxFeatures: defaultMaxFeatures}
}

func (t *TFIDF) Similarity(a, b string) float64 {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return 0
	}

	docs := [2][]string{tokenize(a), tokenize(b)}
	vocab := t.vocabulary(docs)
	if len(vocab) == 0 {
		return 0
	}

	var vecs [2][]float64
	for i, doc := range docs {
		vecs[i] = weigh(doc, vocab, docs)
	}

	var dot float64
	for i := range vocab {
		dot += vecs[0][i] * vecs[1][i]
	}
	if math.IsNaN(dot) {
		return 0
	}
	return clamp01(dot)
}

// vocabulary keeps the most frequent terms across both documents, ordered by
// total count and then alphabetically.
func (t *TFIDF) vocabulary(docs [2][]string) []string {
	counts := make(map[string]int)
	for _, doc := range docs {
		for _, term := range doc {
			counts[term]++
		}
	}

	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})

	limit := t.MaxFeatures
	if limit <= 0 {
		limit = defaultMaxFeatures
	}
	if len(terms) > limit {
		terms = terms[:limit]
	}
	sort.Strings(terms)
	return terms
}

// weigh returns the L2-normalised tf-idf vector of doc over vocab, using the
// smoothed idf ln((1+n)/(1+df)) + 1.
func weigh(doc []string, vocab []string, corpus [2][]string) []float64 {
	tf := make(map[string]int, len(doc))
	for _, term := range doc {
		tf[term]++
	}

	n := float64(len(corpus))
	vec := make([]float64, len(vocab))
	var norm float64
	for i, term := range vocab {
		if tf[term] == 0 {
			continue
		}
		df := 0
		for _, d := range corpus {
			if containsTerm(d, term) {
				df++
			}
		}
		idf := math.Log((1+n)/(1+float64(df))) + 1
		vec[i] = float64(tf[term]) * idf
		norm += vec[i] * vec[i]
	}

	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

func containsTerm(doc []string, term string) bool {
	for _, t := range doc {
		if t == term {
			return true
		}
	}
	return false
}

// tokenize lowercases text and splits it into runs of letters, digits and
// underscores at least two runes long, dropping English stop words.
func tokenize(text string) []string {
	var (
		tokens []string
		cur    []rune
	)
	flush := func() {
		if len(cur) >= 2 {
			tok := string(cur)
			if !englishStopWords.has(tok) {
				tokens = append(tokens, tok)
			}
		}
		cur = cur[:0]
	}

	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			cur = append(cur, r)
			continue
		}
		flush()
	}
	flush()
	return tokens
}

// clamp01 maps NaN and infinities to 0.
func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), math.IsInf(v, 0), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
