package assistant

import (
	"regexp"
	"strings"
)

const Redacted = "[REDACTED]"

const (
	ReasonSensitive = "potential sensitive info"
	ReasonAdvice    = "financial advice request: respond with general info and disclaimers"
	ReasonAuthHelp  = "auth help: do not ask for passwords, direct to secure reset process"
)

var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{13,19}\b`), // card numbers
	regexp.MustCompile(`(?i)(password|passcode|pin)\s*[:=]`),
	regexp.MustCompile(`(?i)ssn|social security|national id`),
}

var (
	adviceRequestPattern = regexp.MustCompile(`(?i)advice|invest|loan|mortgage`)
	authHelpPattern      = regexp.MustCompile(`(?i)pwd|password|login.*help`)
	securityTopicPattern = regexp.MustCompile(`(?i)password|passcode|\bpin\b|otp|one[- ]time code|card number|cvv`)
	excessNewlines       = regexp.MustCompile(`\n{3,}`)
)

// Guard is the result of screening a user message.
type Guard struct {
	Text    string
	Flagged bool
	Reasons []string
}

func RedactSensitive(text string) string {
	out := text
	for _, re := range sensitivePatterns {
		out = re.ReplaceAllString(out, Redacted)
	}
	return out
}

// GuardUserInput redacts sensitive fragments and lists the reasons the
// message needs careful handling.
func GuardUserInput(text string) Guard {
	g := Guard{Text: RedactSensitive(text)}
	for _, re := range sensitivePatterns {
		if re.MatchString(text) {
			g.Flagged = true
			g.Reasons = append(g.Reasons, ReasonSensitive)
		}
	}
	if adviceRequestPattern.MatchString(text) {
		g.Reasons = append(g.Reasons, ReasonAdvice)
	}
	if authHelpPattern.MatchString(text) {
		g.Reasons = append(g.Reasons, ReasonAuthHelp)
	}
	return g
}

// PostProcess tidies provider output before it reaches the user.
func PostProcess(text string) string {
	return strings.TrimSpace(excessNewlines.ReplaceAllString(text, "\n\n"))
}

func needsAdviceDisclaimer(userText string) bool {
	return adviceRequestPattern.MatchString(userText)
}

func needsSecurityReminder(userText string, g Guard) bool {
	return g.Flagged || securityTopicPattern.MatchString(userText)
}
