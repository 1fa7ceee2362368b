package match

import (
	"math"
	"testing"
)

func TestTitlePredicateRequiresEveryToken(t *testing.T) {
	m := newMatcher(Target{Title: "Blinding Lights", Artists: []string{"The Weeknd"}})

	cases := []struct {
		name  string
		title string
		want  bool
	}{
		{name: "all tokens present", title: "The Weeknd - Blinding Lights (Official Video)", want: true},
		{name: "token missing", title: "The Weeknd - Blinding", want: false},
		{name: "punctuation between tokens", title: "BLINDING-LIGHTS!", want: true},
		{name: "accented variant", title: "Blïnding Lights", want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := m.evaluate(Candidate{Title: tc.title})
			if got := m.titleOK(e.title); got != tc.want {
				t.Fatalf("titleOK(%q) = %v, want %v", tc.title, got, tc.want)
			}
		})
	}
}

func TestEmptyTargetTitleNeverMatches(t *testing.T) {
	m := newMatcher(Target{Title: "   ", Artists: []string{"Somebody"}})
	e := m.evaluate(Candidate{Title: "Somebody - Anything"})
	if m.titleOK(e.title) {
		t.Fatal("empty target title must never match")
	}
}

func TestArtistPredicateChecksTitleAndChannel(t *testing.T) {
	m := newMatcher(Target{Title: "River", Artists: []string{"Bishop Briggs", "Léon"}})

	cases := []struct {
		name    string
		title   string
		channel string
		want    bool
	}{
		{name: "artist in title", title: "Bishop Briggs - River", channel: "randomuploads", want: true},
		{name: "artist in channel", title: "River (Audio)", channel: "Bishop Briggs", want: true},
		{name: "accented artist in channel", title: "River", channel: "LEON Official", want: true},
		{name: "no artist anywhere", title: "River - Best Song", channel: "lyricsworld", want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := m.evaluate(Candidate{Title: tc.title, Channel: tc.channel})
			if got := m.artistOK(e.title, e.channel); got != tc.want {
				t.Fatalf("artistOK(%q, %q) = %v, want %v", tc.title, tc.channel, got, tc.want)
			}
		})
	}
}

func scoreOf(t *testing.T, m *matcher, c Candidate, hashDistance *int) float64 {
	t.Helper()
	return m.score(m.evaluate(c), hashDistance)
}

func TestScorePenalizesVariantTerms(t *testing.T) {
	m := newMatcher(Target{Title: "River", Artists: []string{"Bishop Briggs"}})

	clean := scoreOf(t, m, Candidate{Title: "Bishop Briggs - River", Channel: "x"}, nil)
	live := scoreOf(t, m, Candidate{Title: "Bishop Briggs - River live", Channel: "x"}, nil)

	// One variant term plus five extra title runes.
	wantDelta := variantTermPenalty + 5*titleLengthWeight
	if got := live - clean; math.Abs(got-wantDelta) > 1e-9 {
		t.Fatalf("live penalty delta = %v, want %v", got, wantDelta)
	}
}

func TestScoreCountsOverlappingVariantTerms(t *testing.T) {
	m := newMatcher(Target{Title: "River", Artists: []string{"Bishop Briggs"}})

	// "lyrics" contains both "lyrics" and "lyric", doubling the penalty.
	clean := scoreOf(t, m, Candidate{Title: "Bishop Briggs - River", Channel: "x"}, nil)
	lyrics := scoreOf(t, m, Candidate{Title: "Bishop Briggs - River lyrics", Channel: "x"}, nil)

	wantDelta := 2*variantTermPenalty + 7*titleLengthWeight
	if got := lyrics - clean; math.Abs(got-wantDelta) > 1e-9 {
		t.Fatalf("lyrics penalty delta = %v, want %v", got, wantDelta)
	}
}

func TestScoreRewardsTrustedSignals(t *testing.T) {
	m := newMatcher(Target{Title: "River", Artists: []string{"Bishop Briggs"}})

	base := scoreOf(t, m, Candidate{Title: "Bishop Briggs - River", Channel: "somebody"}, nil)
	topic := scoreOf(t, m, Candidate{Title: "Bishop Briggs - River", Channel: "Bishop Briggs - Topic"}, nil)
	if topic >= base {
		t.Fatalf("topic channel should lower score: base=%v topic=%v", base, topic)
	}

	official := scoreOf(t, m, Candidate{Title: "Bishop Briggs - River (Official Audio)", Channel: "x"}, nil)
	// Normalizes to "bishop briggs river (official audio)", 36 runes.
	want := -officialAudioBonus + 36*titleLengthWeight
	if math.Abs(official-want) > 1e-9 {
		t.Fatalf("official audio score = %v, want %v", official, want)
	}
}

func TestScoreMissingPredicatePenalties(t *testing.T) {
	m := newMatcher(Target{Title: "River", Artists: []string{"Bishop Briggs"}})

	noArtist := scoreOf(t, m, Candidate{Title: "River", Channel: "x"}, nil)
	// 50 for the artist miss plus 0.02 per rune of "river".
	want := missingArtistPenalty + 5*titleLengthWeight
	if math.Abs(noArtist-want) > 1e-9 {
		t.Fatalf("score = %v, want %v", noArtist, want)
	}
}

func TestScoreAddsHashDistanceTerm(t *testing.T) {
	m := newMatcher(Target{Title: "River", Artists: []string{"Bishop Briggs"}})
	c := Candidate{Title: "Bishop Briggs - River", Channel: "x"}

	without := scoreOf(t, m, c, nil)
	distance := 4
	with := scoreOf(t, m, c, &distance)

	want := hashDistanceWeight * float64(distance)
	if got := with - without; math.Abs(got-want) > 1e-9 {
		t.Fatalf("hash distance delta = %v, want %v", got, want)
	}
}

func TestTrustedDetection(t *testing.T) {
	m := newMatcher(Target{Title: "River", Artists: []string{"Bishop Briggs"}})

	cases := []struct {
		name      string
		candidate Candidate
		want      bool
	}{
		{name: "topic channel", candidate: Candidate{Title: "River", Channel: "Bishop Briggs - Topic"}, want: true},
		{name: "official audio title", candidate: Candidate{Title: "River (Official Audio)", Channel: "x"}, want: true},
		{name: "plain upload", candidate: Candidate{Title: "River", Channel: "Bishop Briggs"}, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := trusted(m.evaluate(tc.candidate)); got != tc.want {
				t.Fatalf("trusted = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestQueryRendering(t *testing.T) {
	target := Target{Title: "River", Artists: []string{"Bishop Briggs", "Léon"}}
	if got, want := target.ArtistTitleQuery(), "Bishop Briggs, Léon - River"; got != want {
		t.Fatalf("ArtistTitleQuery = %q, want %q", got, want)
	}
	if got, want := target.TitleQuery(), "River"; got != want {
		t.Fatalf("TitleQuery = %q, want %q", got, want)
	}
}
