package kb

// Default matching thresholds. They were tuned against real traffic and are
// kept as named constants so tests can pin them.
const (
	DefaultExactLimit      = 6
	DefaultFuzzyLimit      = 2
	DefaultScoreFloor      = 3
	DefaultOverlapWeight   = 3
	DefaultNearWeight      = 1
	DefaultShortTokenLen   = 6
	DefaultShortTokenEdits = 1
	DefaultLongTokenEdits  = 2
)

type MatchConfig struct {
	ExactLimit    int
	FuzzyLimit    int
	ScoreFloor    int
	OverlapWeight int
	NearWeight    int

	// Tokens up to ShortTokenLen runes tolerate ShortTokenEdits edits,
	// longer ones tolerate LongTokenEdits.
	ShortTokenLen   int
	ShortTokenEdits int
	LongTokenEdits  int

	Anchors []string
}

// DefaultAnchors gates the fuzzy path to plausibly on-topic queries.
var DefaultAnchors = []string{
	"loan", "loans", "credit", "rate", "rates", "interest",
	"account", "accounts", "current", "savings", "saving", "salary", "susu", "deposit",
	"branch", "branches", "manager", "manageress", "officer", "charge",
	"contact", "phone", "email", "address", "gps", "hours", "time",
	"investment", "invest", "smart", "atm", "ezwich", "ghlink", "apex", "transfer", "interbank", "ach", "ussd", "ghana", "pay",
	"ceo", "management", "head", "audit", "risk", "compliance", "it", "operations", "marketing",
}

func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		ExactLimit:      DefaultExactLimit,
		FuzzyLimit:      DefaultFuzzyLimit,
		ScoreFloor:      DefaultScoreFloor,
		OverlapWeight:   DefaultOverlapWeight,
		NearWeight:      DefaultNearWeight,
		ShortTokenLen:   DefaultShortTokenLen,
		ShortTokenEdits: DefaultShortTokenEdits,
		LongTokenEdits:  DefaultLongTokenEdits,
		Anchors:         DefaultAnchors,
	}
}

// withDefaults fills zero fields so a partially populated config behaves.
func (c MatchConfig) withDefaults() MatchConfig {
	d := DefaultMatchConfig()
	if c.ExactLimit <= 0 {
		c.ExactLimit = d.ExactLimit
	}
	if c.FuzzyLimit <= 0 {
		c.FuzzyLimit = d.FuzzyLimit
	}
	if c.ScoreFloor <= 0 {
		c.ScoreFloor = d.ScoreFloor
	}
	if c.OverlapWeight <= 0 {
		c.OverlapWeight = d.OverlapWeight
	}
	if c.NearWeight <= 0 {
		c.NearWeight = d.NearWeight
	}
	if c.ShortTokenLen <= 0 {
		c.ShortTokenLen = d.ShortTokenLen
	}
	if c.ShortTokenEdits <= 0 {
		c.ShortTokenEdits = d.ShortTokenEdits
	}
	if c.LongTokenEdits <= 0 {
		c.LongTokenEdits = d.LongTokenEdits
	}
	if len(c.Anchors) == 0 {
		c.Anchors = d.Anchors
	}
	return c
}

// near reports whether token is within the edit budget of ref. The budget
// is chosen by the length of ref.
func (c MatchConfig) near(token, ref string) bool {
	budget := c.LongTokenEdits
	if len([]rune(ref)) <= c.ShortTokenLen {
		budget = c.ShortTokenEdits
	}
	return Distance(token, ref) <= budget
}
