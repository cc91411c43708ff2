package local

import (
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const bigramWeight = 0.5

// Model is a hashed bag-of-words embedding: unigrams and bigrams are hashed into a fixed number
// of signed buckets and the result is L2-normalized.
type Model struct {
	dims      int
	stopwords map[string]struct{}
	weights   map[string]float64
}

// NewModel builds a model from a vocabulary.
func NewModel(dims int, v *Vocabulary) *Model {
	m := &Model{
		dims:      dims,
		stopwords: make(map[string]struct{}, len(v.Stopwords)),
		weights:   make(map[string]float64, len(v.Weights)),
	}
	for _, s := range v.Stopwords {
		m.stopwords[s] = struct{}{}
	}
	for k, w := range v.Weights {
		m.weights[strings.ToLower(k)] = w
	}
	return m
}

// Dimensions returns the vector length.
func (m *Model) Dimensions() int { return m.dims }

// Vector embeds text. Text without any content token yields a zero vector.
func (m *Model) Vector(text string) []float32 {
	acc := make([]float64, m.dims)
	tokens := m.tokenize(text)

	for i, tok := range tokens {
		m.add(acc, tok, m.weight(tok))
		if i > 0 {
			m.add(acc, tokens[i-1]+" "+tok, bigramWeight)
		}
	}

	var norm float64
	for _, x := range acc {
		norm += x * x
	}
	out := make([]float32, m.dims)
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, x := range acc {
		out[i] = float32(x / norm)
	}
	return out
}

func (m *Model) add(acc []float64, feature string, w float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()

	idx := int(sum % uint64(m.dims))
	if sum&(1<<63) != 0 {
		w = -w
	}
	acc[idx] += w
}

func (m *Model) weight(tok string) float64 {
	if w, ok := m.weights[tok]; ok {
		return w
	}
	return 1
}

func (m *Model) tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := words[:0]
	for _, w := range words {
		if len([]rune(w)) < 2 {
			continue
		}
		if _, stop := m.stopwords[w]; stop {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}
