package kb

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound        = errors.New("kb entry not found")
	ErrDuplicateID     = errors.New("duplicate kb entry id")
	ErrMalformedSource = errors.New("malformed kb source")
)

// Entry is one canned question/answer unit.
type Entry struct {
	ID       string
	Category string
	Rules    []Rule
	Answer   string
}

// Source is the persisted shape of an entry, as found in KB JSON files.
type Source struct {
	ID       string   `json:"id" validate:"required"`
	Product  string   `json:"product" validate:"required"`
	Patterns []string `json:"patterns" validate:"dive,required"`
	Answer   string   `json:"answer" validate:"required"`
}

// MatchResult is an entry selected for a query together with its score.
// Exact matches carry a zero score.
type MatchResult struct {
	Entry Entry
	Score int
}

// Patterns returns the original rule sources of the entry.
func (e Entry) Patterns() []string {
	out := make([]string, 0, len(e.Rules))
	for _, r := range e.Rules {
		out = append(out, r.Source)
	}
	return out
}

// Source converts the entry back to its persisted shape.
func (e Entry) Source() Source {
	return Source{ID: e.ID, Product: e.Category, Patterns: e.Patterns(), Answer: e.Answer}
}

// Compile validates the source and compiles its patterns.
func (s Source) Compile() (Entry, error) {
	if strings.TrimSpace(s.ID) == "" {
		return Entry{}, fmt.Errorf("%w: entry without id", ErrMalformedSource)
	}
	rules := make([]Rule, 0, len(s.Patterns))
	for _, p := range s.Patterns {
		r, err := CompileRule(p)
		if err != nil {
			return Entry{}, fmt.Errorf("%w: entry %q: %v", ErrMalformedSource, s.ID, err)
		}
		rules = append(rules, r)
	}
	return Entry{
		ID:       s.ID,
		Category: s.Product,
		Rules:    rules,
		Answer:   s.Answer,
	}, nil
}

// CompileAll compiles a list of sources, rejecting duplicate ids.
func CompileAll(sources []Source) ([]Entry, error) {
	entries := make([]Entry, 0, len(sources))
	seen := make(map[string]struct{}, len(sources))
	for _, s := range sources {
		if _, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, s.ID)
		}
		seen[s.ID] = struct{}{}
		e, err := s.Compile()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
