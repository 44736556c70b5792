package kb

import "sort"

type MatchMethod string

const (
	MethodExact MatchMethod = "exact"
	MethodFuzzy MatchMethod = "fuzzy"
	MethodNone  MatchMethod = "none"
)

// Retrieval is the outcome of matching one query against a snapshot.
type Retrieval struct {
	Matches []MatchResult
	Method  MatchMethod
}

func (r Retrieval) Found() bool {
	return len(r.Matches) > 0
}

func (r Retrieval) Entries() []Entry {
	out := make([]Entry, 0, len(r.Matches))
	for _, m := range r.Matches {
		out = append(out, m.Entry)
	}
	return out
}

func (r Retrieval) IDs() []string {
	out := make([]string, 0, len(r.Matches))
	for _, m := range r.Matches {
		out = append(out, m.Entry.ID)
	}
	return out
}

// Matcher runs the exact and fuzzy passes over an immutable snapshot. It
// holds no mutable state and is safe for concurrent use.
type Matcher struct {
	cfg MatchConfig
}

func NewMatcher(cfg MatchConfig) *Matcher {
	return &Matcher{cfg: cfg.withDefaults()}
}

func (m *Matcher) Config() MatchConfig {
	return m.cfg
}

// Retrieve runs the exact pass and falls back to the fuzzy pass only when
// nothing matched exactly.
func (m *Matcher) Retrieve(snap *Snapshot, query string) Retrieval {
	if exact := m.Exact(snap, query); len(exact) > 0 {
		return Retrieval{Matches: exact, Method: MethodExact}
	}
	if fuzzy := m.Fuzzy(snap, query); len(fuzzy) > 0 {
		return Retrieval{Matches: fuzzy, Method: MethodFuzzy}
	}
	return Retrieval{Method: MethodNone}
}

// Exact returns entries with at least one matching rule, in KB order,
// capped at the configured limit.
func (m *Matcher) Exact(snap *Snapshot, query string) []MatchResult {
	if snap == nil {
		return nil
	}
	var out []MatchResult
	for _, e := range snap.entries {
		for _, r := range e.Rules {
			if r.Match(query) {
				out = append(out, MatchResult{Entry: e})
				break
			}
		}
		if len(out) == m.cfg.ExactLimit {
			break
		}
	}
	return out
}

// Fuzzy scores entries by token overlap with the normalized query. It
// returns nothing unless some query token is close to an anchor word.
func (m *Matcher) Fuzzy(snap *Snapshot, query string) []MatchResult {
	if snap == nil {
		return nil
	}
	normalized := Normalize(query)
	if normalized == "" {
		return nil
	}
	tokens := Tokenize(normalized)
	if !m.hasAnchor(tokens) {
		return nil
	}

	var scored []MatchResult
	for i, e := range snap.entries {
		cands := snap.candidates[i]
		if cands.len() == 0 {
			continue
		}
		score := m.score(tokens, cands)
		if score >= m.cfg.ScoreFloor {
			scored = append(scored, MatchResult{Entry: e, Score: score})
		}
	}
	if len(scored) == 0 {
		return nil
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > m.cfg.FuzzyLimit {
		scored = scored[:m.cfg.FuzzyLimit]
	}
	return scored
}

func (m *Matcher) hasAnchor(tokens []string) bool {
	for _, t := range tokens {
		for _, a := range m.cfg.Anchors {
			if t == a || m.cfg.near(t, a) {
				return true
			}
		}
	}
	return false
}

func (m *Matcher) score(tokens []string, cands candidateSet) int {
	overlap, near := 0, 0
	for _, t := range tokens {
		if _, ok := cands.set[t]; ok {
			overlap++
			continue
		}
		for _, c := range cands.ordered {
			if m.cfg.near(t, c) {
				near++
				break
			}
		}
	}
	return overlap*m.cfg.OverlapWeight + near*m.cfg.NearWeight
}

// candidateSet is the bag of fuzzy tokens derived from an entry's category
// and rules.
type candidateSet struct {
	ordered []string
	set     map[string]struct{}
}

func (c candidateSet) len() int { return len(c.ordered) }

func buildCandidates(e Entry) candidateSet {
	c := candidateSet{set: make(map[string]struct{})}
	add := func(tokens []string) {
		for _, t := range tokens {
			if _, ok := c.set[t]; ok {
				continue
			}
			c.set[t] = struct{}{}
			c.ordered = append(c.ordered, t)
		}
	}
	add(Tokenize(Normalize(e.Category)))
	for _, r := range e.Rules {
		add(r.Terms())
	}
	return c
}
