package mock

import (
	"bank-support-be/pkg/llm"
	"context"
	"regexp"
	"strings"
)

const (
	GreetingText = "Hello! I'm your financial assistant. I can help with questions about our products, services, and more. How can I assist you today?"
	FallbackText = "I can help with questions about our products, services, branch locations, and hours. For example, you can ask 'what are your loan options?' or 'where is the nearest branch?'. How can I assist you?"
	AckText      = "Understood."
)

// KBContextMarker prefixes the system message carrying KB snippets.
const KBContextMarker = "Institution product info"

var (
	kbItemPattern      = regexp.MustCompile(`(?m)^\((\d+)\) \[([^\]]+)\] (.+)$`)
	greetingPattern    = regexp.MustCompile(`(?i)^(hi|hello|hey|good morning|good afternoon|good evening)[\s!.]*$`)
	affirmativePattern = regexp.MustCompile(`(?i)^(yes|yeah|yep|sure|please|ok|okay)( please)?[\s!.]*$`)
	offerPattern       = regexp.MustCompile(`(?i)connect you with a human`)
)

type kbItem struct {
	category string
	answer   string
}

// intent prefers a KB item for a kind of question.
type intent struct {
	query *regexp.Regexp
	pick  func(kbItem) bool
}

func byCategory(name string) func(kbItem) bool {
	return func(i kbItem) bool { return strings.EqualFold(i.category, name) }
}

var intents = []intent{
	{regexp.MustCompile(`(?i)\b(manager|manageress)\b`), func(i kbItem) bool {
		return strings.Contains(strings.ToLower(i.answer), "manager")
	}},
	{regexp.MustCompile(`(?i)\b(branch|branches|location|locations|nearest)\b`), byCategory("Branch")},
	{regexp.MustCompile(`(?i)\b(contact|phone|call|email|reach|address|gps)\b`), byCategory("Contact")},
	{regexp.MustCompile(`(?i)\b(invest|investment|fixed deposit|christmas account|sala account|woba)\b`), byCategory("Investment")},
	{regexp.MustCompile(`(?i)\b(loan|loans|credit|agric)\b`), byCategory("Loan")},
	{regexp.MustCompile(`(?i)\b(smart|atm|gh-?link|ezwich|apex|ach|interbank)\b`), byCategory("Smart Banking")},
	{regexp.MustCompile(`(?i)\b(deposit|current account|salary account|susu)\b`), byCategory("Deposit")},
	{regexp.MustCompile(`(?i)\b(hours|open|opening|closing|time)\b`), byCategory("Hours")},
}

// Provider is a deterministic, offline stand-in for a real model. It answers
// from the KB context when present and falls back to a canned reply.
type Provider struct{}

var _ llm.Provider = (*Provider)(nil)

func New() *Provider { return &Provider{} }

func (p *Provider) Name() string { return "mock" }

func (p *Provider) Generate(ctx context.Context, systemPrompt string, messages []llm.Message, opts ...llm.Option) (*llm.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var userQuery, lastAssistant, kbContext string
	for _, m := range messages {
		switch m.Role {
		case llm.RoleUser:
			userQuery = m.Content
		case llm.RoleAssistant:
			lastAssistant = m.Content
		case llm.RoleSystem:
			if strings.Contains(m.Content, KBContextMarker) {
				kbContext = m.Content
			}
		}
	}
	query := strings.TrimSpace(userQuery)

	if greetingPattern.MatchString(query) {
		return &llm.Response{Text: GreetingText}, nil
	}
	if affirmativePattern.MatchString(query) && offerPattern.MatchString(lastAssistant) {
		return &llm.Response{Text: AckText}, nil
	}

	if items := parseKBContext(kbContext); len(items) > 0 {
		chosen := items[0]
		for _, in := range intents {
			if !in.query.MatchString(query) {
				continue
			}
			if it, ok := first(items, in.pick); ok {
				chosen = it
				break
			}
		}
		return &llm.Response{Text: chosen.answer}, nil
	}

	return &llm.Response{Text: FallbackText}, nil
}

func parseKBContext(kbContext string) []kbItem {
	if kbContext == "" {
		return nil
	}
	var items []kbItem
	for _, m := range kbItemPattern.FindAllStringSubmatch(kbContext, -1) {
		items = append(items, kbItem{category: m[2], answer: strings.TrimSpace(m[3])})
	}
	return items
}

func first(items []kbItem, pick func(kbItem) bool) (kbItem, bool) {
	for _, it := range items {
		if pick(it) {
			return it, true
		}
	}
	return kbItem{}, false
}
