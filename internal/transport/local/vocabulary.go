package local

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Vocabulary tunes the hashed model: dropped words and per-token weights.
type Vocabulary struct {
	Stopwords []string           `yaml:"stopwords"`
	Weights   map[string]float64 `yaml:"weights"`
}

// LoadVocabulary reads a YAML vocabulary file.
func LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary %s: %w", path, err)
	}
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}
	for i, s := range v.Stopwords {
		v.Stopwords[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return &v, nil
}

// DefaultVocabulary is used when no vocabulary file is configured.
func DefaultVocabulary() *Vocabulary {
	return &Vocabulary{
		Stopwords: []string{
			"a", "about", "after", "all", "an", "and", "any", "are", "as", "at", "be", "been", "but",
			"by", "can", "could", "did", "do", "does", "for", "from", "had", "has", "have", "he", "her",
			"his", "i", "if", "in", "into", "is", "it", "its", "just", "me", "movie", "my", "of", "on",
			"one", "or", "remember", "she", "show", "so", "some", "something", "that", "the", "their",
			"them", "then", "there", "they", "thing", "think", "this", "to", "up", "was", "watched",
			"were", "what", "when", "where", "which", "while", "who", "with", "you",
		},
	}
}
