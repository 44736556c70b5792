package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"bank-support-be/pkg/dialog"
	"bank-support-be/pkg/kb"
	"bank-support-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inspectingProvider struct {
	systemPrompt string
	messages     []llm.Message
	options      llm.Options
	resp         *llm.Response
	err          error
}

func (p *inspectingProvider) Name() string { return "inspecting" }

func (p *inspectingProvider) Generate(ctx context.Context, systemPrompt string, messages []llm.Message, opts ...llm.Option) (*llm.Response, error) {
	p.systemPrompt = systemPrompt
	p.messages = messages
	p.options = llm.ApplyOptions(llm.Options{}, opts...)
	return p.resp, p.err
}

func matchesFor(t *testing.T, query string) []kb.MatchResult {
	t.Helper()
	m := kb.NewMatcher(kb.DefaultMatchConfig())
	return m.Retrieve(kb.NewSeededStore().Snapshot(), query).Matches
}

func TestKBContext(t *testing.T) {
	assert.Empty(t, KBContext(nil))

	ctx := KBContext(matchesFor(t, "What are your checking account fees?"))
	assert.True(t, strings.HasPrefix(ctx, "\n\nInstitution product info (non-personalized):\n(1) [Checking] "))
	assert.True(t, strings.HasSuffix(ctx, "\n\nIf relevant, cite (1), (2) inline."))
}

func TestGenerateInjectsKBContext(t *testing.T) {
	p := &inspectingProvider{resp: &llm.Response{Text: "Ten dollars.\n\n\n\nWaivable."}}
	a := NewAssembler(p)
	history := []dialog.Message{{Role: dialog.RoleUser, Content: "What are your checking account fees?"}}

	draft, err := a.Generate(context.Background(), history, matchesFor(t, history[0].Content))
	require.NoError(t, err)

	assert.Equal(t, "Ten dollars.\n\nWaivable.", draft.Text)
	assert.Equal(t, SystemPersona, p.systemPrompt)
	assert.Equal(t, DefaultTemperature, p.options.Temperature)
	assert.Equal(t, DefaultMaxTokens, p.options.MaxTokens)

	require.Len(t, p.messages, 2)
	last := p.messages[len(p.messages)-1]
	assert.Equal(t, llm.RoleSystem, last.Role)
	assert.Regexp(t, `Institution product info`, last.Content)
	assert.Regexp(t, `\(1\).*Checking`, last.Content)
}

func TestGenerateWithoutMatches(t *testing.T) {
	p := &inspectingProvider{resp: &llm.Response{Text: "Why did the rocket..."}}
	a := NewAssembler(p)
	history := []dialog.Message{{Role: dialog.RoleUser, Content: "Tell me a joke about space travel"}}

	_, err := a.Generate(context.Background(), history, matchesFor(t, history[0].Content))
	require.NoError(t, err)

	for _, m := range p.messages {
		assert.NotContains(t, m.Content, "Institution product info")
	}
}

func TestGenerateErrors(t *testing.T) {
	history := []dialog.Message{{Role: dialog.RoleUser, Content: "hi"}}

	boom := errors.New("quota")
	_, err := NewAssembler(&inspectingProvider{err: boom}).Generate(context.Background(), history, nil)
	assert.ErrorIs(t, err, boom)

	_, err = NewAssembler(&inspectingProvider{resp: &llm.Response{Text: "  \n"}}).Generate(context.Background(), history, nil)
	assert.ErrorIs(t, err, ErrEmptyReply)

	_, err = NewAssembler(&inspectingProvider{}).Generate(context.Background(), history, nil)
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestGeneratePassesUncertainSignal(t *testing.T) {
	yes := true
	p := &inspectingProvider{resp: &llm.Response{Text: "Maybe.", Uncertain: &yes}}
	draft, err := NewAssembler(p).Generate(context.Background(), []dialog.Message{{Role: dialog.RoleUser, Content: "x"}}, nil)
	require.NoError(t, err)
	require.NotNil(t, draft.Uncertain)
	assert.True(t, *draft.Uncertain)
}

func TestFinalize(t *testing.T) {
	a := NewAssembler(&inspectingProvider{})

	tests := []struct {
		name       string
		userText   string
		escalation string
		want       []string
		notWant    []string
	}{
		{
			name:     "plain",
			userText: "what are your hours",
			notWant:  []string{AdviceDisclaimer, SecurityReminder, dialog.OfferSentence},
		},
		{
			name:     "advice trigger",
			userText: "should I take a loan",
			want:     []string{AdviceDisclaimer},
		},
		{
			name:     "security trigger",
			userText: "I forgot my password",
			want:     []string{SecurityReminder},
		},
		{
			name:       "escalation last",
			userText:   "I want to invest, talk to a human",
			escalation: dialog.OfferSentence,
			want:       []string{AdviceDisclaimer, dialog.OfferSentence},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := GuardUserInput(tt.userText)
			got := a.Finalize("Body.", tt.userText, g, tt.escalation)
			assert.True(t, strings.HasPrefix(got, "Body."))
			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
			for _, w := range tt.notWant {
				assert.NotContains(t, got, w)
			}
			if tt.escalation != "" {
				assert.True(t, strings.HasSuffix(got, tt.escalation))
			}
		})
	}
}

func TestFinalizeDoesNotDuplicateEscalation(t *testing.T) {
	a := NewAssembler(&inspectingProvider{})
	body := "Sorry. " + dialog.OfferSentence
	got := a.Finalize(body, "hmm", Guard{}, dialog.OfferSentence)
	assert.Equal(t, 1, strings.Count(got, dialog.OfferSentence))
}
