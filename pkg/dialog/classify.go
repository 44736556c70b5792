package dialog

import (
	"regexp"
	"strings"
)

// OfferSentence is the standard handover question.
const OfferSentence = "Would you like me to connect you with a human support agent?"

const (
	AckAccepted = "Thank you. I'm connecting you with a human support agent. Please share your name and phone number in the handover form so an agent can reach you."
	AckPending  = "A human support agent is ready to help whenever you are. Just reply yes, or use the handover form to leave your contact details."
	Apology     = "I'm sorry, I'm having technical difficulties right now."
)

var (
	genericFallbackPattern = regexp.MustCompile(`(?i)i can help with questions about our products|could you (please )?rephrase|i didn't (quite )?(understand|catch) that|i'm not able to help with that`)
	uncertainPattern       = regexp.MustCompile(`(?i)not sure|couldn't|could not|don't have that info|do not have that info|unable to (find|answer|help)|i don't know`)
	trivialPattern         = regexp.MustCompile(`(?i)^(hi|hello|hey|good (morning|afternoon|evening)|thanks|thank you|thank you very much|thanks a lot|thx|cheers|ok thanks|okay thanks|bye|goodbye)[\s!.]*$`)
	humanRequestPattern    = regexp.MustCompile(`(?i)human agent|human support|talk to (a |an )?(person|human|someone|agent)|speak (to|with) (a |an )?(person|human|someone|agent|representative)|real person|live agent|customer service agent|complaint|escalate|supervisor`)
	affirmativePattern     = regexp.MustCompile(`(?i)^(yes|yeah|yep|sure|please|ok|okay)( please| thanks| thank you)?[\s!.]*$`)
)

// IsGenericFallback reports whether a reply is the provider's canned
// "I can help with..." answer.
func IsGenericFallback(reply string) bool {
	return genericFallbackPattern.MatchString(reply)
}

func IsUncertain(reply string) bool {
	return uncertainPattern.MatchString(reply)
}

// IsTrivial reports greetings and thanks that need no KB grounding.
func IsTrivial(userText string) bool {
	return trivialPattern.MatchString(strings.TrimSpace(userText))
}

func IsHumanRequest(userText string) bool {
	return humanRequestPattern.MatchString(userText)
}

func IsAffirmative(userText string) bool {
	return affirmativePattern.MatchString(strings.TrimSpace(userText))
}

func ContainsOffer(text string) bool {
	return strings.Contains(text, OfferSentence)
}
