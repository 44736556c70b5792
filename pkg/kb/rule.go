package kb

import (
	"fmt"
	"regexp"
	"strings"
)

// RuleKind tags how a match rule is evaluated against a query.
type RuleKind int

const (
	RuleRegex RuleKind = iota
	RuleLiteral
	RuleTokenSet
)

const (
	literalPrefix  = "literal:"
	tokenSetPrefix = "tokens:"
)

func (k RuleKind) String() string {
	switch k {
	case RuleLiteral:
		return "literal"
	case RuleTokenSet:
		return "tokens"
	default:
		return "regex"
	}
}

// Rule is a compiled match rule. Rules are compiled once when the KB is
// loaded and never re-parsed at query time.
type Rule struct {
	Kind   RuleKind
	Source string

	re      *regexp.Regexp
	literal string
	tokens  []string
	terms   []string
}

// CompileRule turns a pattern string from a KB source into a Rule.
//
//	"literal:monthly fee"  case-insensitive substring
//	"tokens:loan rate"     every token must appear in the normalized query
//	anything else          case-insensitive regular expression
func CompileRule(pattern string) (Rule, error) {
	switch {
	case strings.HasPrefix(pattern, literalPrefix):
		lit := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(pattern, literalPrefix)))
		if lit == "" {
			return Rule{}, fmt.Errorf("empty literal rule %q", pattern)
		}
		return Rule{Kind: RuleLiteral, Source: pattern, literal: lit, terms: Tokenize(Normalize(lit))}, nil

	case strings.HasPrefix(pattern, tokenSetPrefix):
		tokens := Tokenize(Normalize(strings.TrimPrefix(pattern, tokenSetPrefix)))
		if len(tokens) == 0 {
			return Rule{}, fmt.Errorf("empty token rule %q", pattern)
		}
		return Rule{Kind: RuleTokenSet, Source: pattern, tokens: tokens, terms: tokens}, nil
	}

	if strings.TrimSpace(pattern) == "" {
		return Rule{}, fmt.Errorf("empty pattern")
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	return Rule{Kind: RuleRegex, Source: pattern, re: re, terms: Tokenize(stripRegexSyntax(pattern))}, nil
}

// MustCompileRule is CompileRule for static seed data.
func MustCompileRule(pattern string) Rule {
	r, err := CompileRule(pattern)
	if err != nil {
		panic(err)
	}
	return r
}

// Match reports whether the raw query satisfies the rule.
func (r Rule) Match(query string) bool {
	switch r.Kind {
	case RuleLiteral:
		return strings.Contains(strings.ToLower(query), r.literal)
	case RuleTokenSet:
		present := make(map[string]struct{})
		for _, t := range Tokenize(Normalize(query)) {
			present[t] = struct{}{}
		}
		for _, t := range r.tokens {
			if _, ok := present[t]; !ok {
				return false
			}
		}
		return true
	default:
		if r.re == nil {
			return false
		}
		return r.re.MatchString(query)
	}
}

// Terms returns the bare normalized words of the rule, used by the fuzzy
// matcher as candidate tokens.
func (r Rule) Terms() []string {
	return r.terms
}

var (
	nonCapturingGroup = regexp.MustCompile(`\(\?(:|=|!)`)
	escapeClass       = regexp.MustCompile(`\\[a-zA-Z]`)
	regexMeta         = regexp.MustCompile(`[\^$.*+?()\[\]{}|\\]`)
)

// stripRegexSyntax reduces a regex source to its normalized bare words.
// Escape classes such as \s or \b are dropped whole so they do not leave
// single-letter tokens behind.
func stripRegexSyntax(src string) string {
	s := nonCapturingGroup.ReplaceAllString(src, "(")
	s = escapeClass.ReplaceAllString(s, " ")
	s = regexMeta.ReplaceAllString(s, " ")
	return Normalize(s)
}
