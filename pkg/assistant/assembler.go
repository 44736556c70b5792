package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bank-support-be/pkg/dialog"
	"bank-support-be/pkg/kb"
	"bank-support-be/pkg/llm"
)

const (
	DefaultTemperature = 0.2
	DefaultMaxTokens   = 600
)

var ErrEmptyReply = errors.New("provider returned an empty reply")

// Draft is the post-processed provider output before disclaimers and
// escalation text are added.
type Draft struct {
	Text      string
	Uncertain *bool
	Citations []llm.Citation
	Safety    *llm.Safety
}

type Assembler struct {
	provider    llm.Provider
	persona     string
	temperature float64
	maxTokens   int
}

func NewAssembler(provider llm.Provider) *Assembler {
	return &Assembler{
		provider:    provider,
		persona:     SystemPersona,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
	}
}

func (a *Assembler) ProviderName() string {
	return a.provider.Name()
}

// KBContext serializes matched entries as enumerated, citable items.
func KBContext(matches []kb.MatchResult) string {
	if len(matches) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\nInstitution product info (non-personalized):\n")
	for i, m := range matches {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "(%d) [%s] %s", i+1, m.Entry.Category, m.Entry.Answer)
	}
	b.WriteString("\n\nIf relevant, cite (1), (2) inline.")
	return b.String()
}

// Generate sends the full history plus KB context to the provider.
func (a *Assembler) Generate(ctx context.Context, history []dialog.Message, matches []kb.MatchResult) (Draft, error) {
	messages := make([]llm.Message, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	if kbContext := KBContext(matches); kbContext != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: kbContext})
	}

	resp, err := a.provider.Generate(ctx, a.persona, messages,
		llm.WithTemperature(a.temperature),
		llm.WithMaxTokens(a.maxTokens),
	)
	if err != nil {
		return Draft{}, err
	}
	if resp == nil {
		return Draft{}, ErrEmptyReply
	}
	text := PostProcess(resp.Text)
	if text == "" {
		return Draft{}, ErrEmptyReply
	}
	return Draft{
		Text:      text,
		Uncertain: resp.Uncertain,
		Citations: resp.Citations,
		Safety:    resp.Safety,
	}, nil
}

// Finalize appends the conditional disclaimers and, last, the escalation
// text chosen by the dialog tracker.
func (a *Assembler) Finalize(text, userText string, g Guard, escalation string) string {
	parts := []string{text}
	if needsAdviceDisclaimer(userText) {
		parts = append(parts, AdviceDisclaimer)
	}
	if needsSecurityReminder(userText, g) {
		parts = append(parts, SecurityReminder)
	}
	if escalation != "" && !strings.Contains(text, escalation) {
		parts = append(parts, escalation)
	}
	return strings.Join(parts, "\n\n")
}
