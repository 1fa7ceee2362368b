package fetch_test

import (
	"errors"
	"testing"

	"tonearm/internal/fetch"
)

func TestClassifyAntiBotPhrases(t *testing.T) {
	classifier := fetch.NewClassifier()
	messages := []string{
		"ERROR: [youtube] dQw4w9WgXcQ: Sign in to confirm you're not a bot. Use --cookies for authentication.",
		"ERROR: [youtube] dQw4w9WgXcQ: Sign in to confirm you’re not a bot.",
		"Please confirm you are not a bot to continue",
		"verify that you're not a bot",
		"Verification required before this content can be played",
		"This video may be inappropriate for some users",
		"ERROR: This video is age-restricted",
		"Confirm your age to watch this video",
		"Sign in to confirm your age. This video may be inappropriate for some users.",
		"This content is Age Restricted in your region",
	}
	for _, message := range messages {
		if kind := classifier.Classify(errors.New(message)); kind != fetch.FailureAntiBot {
			t.Errorf("Classify(%q) = %v, want anti_bot", message, kind)
		}
	}
}

func TestClassifyHardAuthPhrases(t *testing.T) {
	classifier := fetch.NewClassifier()
	messages := []string{
		"ERROR: Failed to decrypt with DPAPI",
		"could not copy Chrome cookie database to temporary directory",
	}
	for _, message := range messages {
		if kind := classifier.Classify(errors.New(message)); kind != fetch.FailureHardAuth {
			t.Errorf("Classify(%q) = %v, want hard_auth", message, kind)
		}
	}
}

func TestClassifyDefaultsToTransient(t *testing.T) {
	classifier := fetch.NewClassifier()
	messages := []string{
		"ERROR: unable to download video data: HTTP Error 503: Service Unavailable",
		"read tcp 10.0.0.2:443: connection reset by peer",
		"ERROR: [youtube] video unavailable",
	}
	for _, message := range messages {
		if kind := classifier.Classify(errors.New(message)); kind != fetch.FailureTransient {
			t.Errorf("Classify(%q) = %v, want transient", message, kind)
		}
	}
	if kind := classifier.Classify(nil); kind != fetch.FailureTransient {
		t.Errorf("Classify(nil) = %v, want transient", kind)
	}
}

func TestFailureKindLabels(t *testing.T) {
	cases := map[fetch.FailureKind]string{
		fetch.FailureTransient: "transient",
		fetch.FailureAntiBot:   "anti_bot",
		fetch.FailureHardAuth:  "hard_auth",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("FailureKind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}
