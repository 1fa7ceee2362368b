package match

import (
	"strings"
	"unicode/utf8"

	"tonearm/internal/textutil"
)

// variantTerms mark recordings that are not the studio original. Each term
// found in a normalized title adds a scoring penalty.
var variantTerms = []string{"live", "cover", "karaoke", "sped up", "nightcore", "slowed", "8d", "lyrics", "lyric"}

const (
	missingTitlePenalty  = 50.0
	missingArtistPenalty = 50.0
	variantTermPenalty   = 15.0
	topicChannelBonus    = 5.0
	officialAudioBonus   = 3.0
	hashDistanceWeight   = 1.5
	titleLengthWeight    = 0.02
)

// matcher holds the normalized view of a target shared by every stage.
type matcher struct {
	target      Target
	titleTokens []string
	artists     []string
	artistQuery string
	titleQuery  string
}

func newMatcher(target Target) *matcher {
	m := &matcher{
		target:      target,
		titleTokens: strings.Fields(textutil.Normalize(target.Title)),
		artistQuery: target.ArtistTitleQuery(),
		titleQuery:  target.TitleQuery(),
	}
	for _, artist := range target.Artists {
		if normalized := textutil.Normalize(artist); normalized != "" {
			m.artists = append(m.artists, normalized)
		}
	}
	return m
}

// evaluated pairs a candidate with its normalized text so stages do not
// normalize repeatedly.
type evaluated struct {
	Candidate
	title   string
	channel string
}

func (m *matcher) evaluate(c Candidate) evaluated {
	return evaluated{
		Candidate: c,
		title:     textutil.Normalize(c.Title),
		channel:   textutil.Normalize(c.Channel),
	}
}

// titleOK requires every target title token to appear in the candidate
// title. An empty target title matches nothing.
func (m *matcher) titleOK(candidateTitle string) bool {
	if len(m.titleTokens) == 0 {
		return false
	}
	for _, token := range m.titleTokens {
		if !strings.Contains(candidateTitle, token) {
			return false
		}
	}
	return true
}

// artistOK requires at least one artist name in the candidate title or
// channel.
func (m *matcher) artistOK(candidateTitle, candidateChannel string) bool {
	for _, artist := range m.artists {
		if strings.Contains(candidateTitle, artist) || strings.Contains(candidateChannel, artist) {
			return true
		}
	}
	return false
}

// eligible applies the matching predicate plus the duration filter.
func (m *matcher) eligible(e evaluated) bool {
	return m.titleOK(e.title) &&
		m.artistOK(e.title, e.channel) &&
		DurationOK(m.target.DurationMS, e.Duration)
}

// score ranks an eligible candidate; lower is better.
func (m *matcher) score(e evaluated, hashDistance *int) float64 {
	score := 0.0
	if !m.titleOK(e.title) {
		score += missingTitlePenalty
	}
	if !m.artistOK(e.title, e.channel) {
		score += missingArtistPenalty
	}
	for _, term := range variantTerms {
		if strings.Contains(e.title, term) {
			score += variantTermPenalty
		}
	}
	if strings.Contains(e.channel, "topic") {
		score -= topicChannelBonus
	}
	if strings.Contains(e.title, "official audio") {
		score -= officialAudioBonus
	}
	if hashDistance != nil {
		score += hashDistanceWeight * float64(*hashDistance)
	}
	return score + titleLengthWeight*float64(utf8.RuneCountInString(e.title))
}

// trusted reports whether the candidate comes from an auto-generated
// official channel or is labeled as official audio.
func trusted(e evaluated) bool {
	return strings.Contains(e.channel, "topic") || strings.Contains(e.title, "official audio")
}
