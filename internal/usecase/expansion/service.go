// Package expansion turns a remembered description into search terms and picks
// which of them look like titles worth importing.
package expansion

import (
	"context"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
)

const minCandidateLength = 3

// genericTerms are genre words that never identify a single title.
var genericTerms = map[string]struct{}{
	"science fiction": {},
	"action":          {},
	"romance":         {},
	"comedy":          {},
	"drama":           {},
	"thriller":        {},
	"horror":          {},
	"adventure":       {},
}

// Service expands queries. A nil LLM disables expansion.
type Service struct {
	llm      LLM
	maxTerms int
	logger   *zap.Logger
}

// New creates an expansion service. maxTerms <= 0 keeps every term.
func New(llm LLM, maxTerms int, logger *zap.Logger) *Service {
	return &Service{llm: llm, maxTerms: maxTerms, logger: logger}
}

// Expand returns the model's terms, or [query] on any failure. Never empty.
func (s *Service) Expand(ctx context.Context, query string) (terms []string) {
	if s == nil || s.llm == nil {
		return []string{query}
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Query expansion panicked", zap.Any("panic", r))
			terms = []string{query}
		}
	}()

	got, err := s.llm.Expand(ctx, query)
	if err != nil {
		s.logger.Warn("Query expansion failed, using raw query", zap.Error(err))
		return []string{query}
	}

	out := make([]string, 0, len(got))
	for _, t := range got {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		s.logger.Warn("Query expansion returned no terms, using raw query")
		return []string{query}
	}
	if s.maxTerms > 0 && len(out) > s.maxTerms {
		out = out[:s.maxTerms]
	}

	s.logger.Debug("Query expanded", zap.Strings("terms", out))
	return out
}

// RankImportCandidates orders terms for catalog lookup: title-like terms first, original order
// otherwise. Generic genre words and terms shorter than 3 characters are dropped.
func RankImportCandidates(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if utf8.RuneCountInString(t) < minCandidateLength {
			continue
		}
		if _, generic := genericTerms[strings.ToLower(t)]; generic {
			continue
		}
		out = append(out, t)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return TitleLike(out[i]) && !TitleLike(out[j])
	})
	return out
}

// TitleLike reports whether a term reads like a proper title: it does not start with
// a lower-case letter and contains an internal space.
func TitleLike(term string) bool {
	first, _ := utf8.DecodeRuneInString(term)
	if first == utf8.RuneError || unicode.IsLower(first) {
		return false
	}
	return strings.Contains(strings.TrimSpace(term), " ")
}
