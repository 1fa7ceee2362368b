package fetch

import "strings"

// FailureKind is the closed set of download failure classes the acquisition
// loop reacts to.
type FailureKind int

const (
	// FailureTransient covers network hiccups, throttling, and any failure
	// the phrase tables do not recognize. Worth retrying in place.
	FailureTransient FailureKind = iota
	// FailureAntiBot marks platform verification challenges. One alternate
	// player client attempt per candidate, then the candidate is abandoned.
	FailureAntiBot
	// FailureHardAuth marks browser cookie store decryption failures.
	// Retrying the same candidate cannot help.
	FailureHardAuth
)

// String returns the snake_case label used in logs.
func (k FailureKind) String() string {
	switch k {
	case FailureAntiBot:
		return "anti_bot"
	case FailureHardAuth:
		return "hard_auth"
	default:
		return "transient"
	}
}

// Classifier maps a download tool error to a FailureKind. The default
// implementation matches known platform phrases; tests substitute fixed
// classifications.
type Classifier interface {
	Classify(err error) FailureKind
}

// Phrases emitted by the platform when it wants interactive verification.
// Matching is case-insensitive with typographic apostrophes folded to ASCII.
var antiBotPhrases = []string{
	"sign in to confirm you're not a bot",
	"confirm you are not a bot",
	"verify that you're not a bot",
	"verification required",
	"this video may be inappropriate",
	"age-restricted",
	"confirm your age",
	"inappropriate for some users",
}

var hardAuthPhrases = []string{
	"failed to decrypt with dpapi",
	"could not copy chrome cookie database",
}

type phraseClassifier struct{}

// NewClassifier returns the phrase-table classifier used in production.
func NewClassifier() Classifier {
	return phraseClassifier{}
}

func (phraseClassifier) Classify(err error) FailureKind {
	if err == nil {
		return FailureTransient
	}
	text := strings.ToLower(err.Error())
	text = strings.ReplaceAll(text, "’", "'")

	for _, phrase := range antiBotPhrases {
		if strings.Contains(text, phrase) {
			return FailureAntiBot
		}
	}
	if strings.Contains(text, "age") && strings.Contains(text, "restricted") {
		return FailureAntiBot
	}
	for _, phrase := range hardAuthPhrases {
		if strings.Contains(text, phrase) {
			return FailureHardAuth
		}
	}
	return FailureTransient
}
