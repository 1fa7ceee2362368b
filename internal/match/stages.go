package match

import (
	"context"
	"log/slog"

	"tonearm/internal/coverart"
	"tonearm/internal/logging"
	"tonearm/internal/services"
)

// stage is one resolution strategy. A nil pick means the strategy found no
// acceptable candidate and the next stage runs.
type stage interface {
	name() string
	pick(ctx context.Context, m *matcher) *Pick
}

// stageCore carries the collaborators shared by all stages.
type stageCore struct {
	searcher Searcher
	covers   CoverSource
	cfg      Config
	logger   *slog.Logger
}

// eligible searches and keeps candidates passing the matching predicate and
// the duration filter. Search outages degrade to an empty result set.
func (c *stageCore) eligible(ctx context.Context, m *matcher, query string, limit int, mode Extraction) []evaluated {
	results, err := c.searcher.Search(ctx, query, limit, mode)
	if err != nil {
		c.logger.Warn("search unavailable, treating as empty result set",
			logging.String("query", query),
			logging.String(logging.FieldErrorKind, string(services.KindSearchUnavailable)),
			logging.Error(err),
		)
		return nil
	}
	kept := make([]evaluated, 0, len(results))
	for _, candidate := range results {
		e := m.evaluate(candidate)
		if m.eligible(e) {
			kept = append(kept, e)
		}
	}
	c.logger.Debug("search results filtered",
		logging.String("query", query),
		logging.Int("candidates", len(results)),
		logging.Int("rejected", len(results)-len(kept)),
	)
	return kept
}

// bestOf scores the eligible set and returns the minimum-score candidate.
func (c *stageCore) bestOf(m *matcher, stageName string, cands []evaluated) *Pick {
	var best *Pick
	for _, e := range cands {
		score := m.score(e, nil)
		if best == nil || score < best.Score {
			best = &Pick{Candidate: e.Candidate, Stage: stageName, Score: score}
		}
	}
	return best
}

// artistTitleStage searches "artists - title" and trusts auto-generated
// artist channels and "official audio" uploads outright.
type artistTitleStage struct {
	core *stageCore
}

func (s *artistTitleStage) name() string { return StageArtistTitle }

func (s *artistTitleStage) pick(ctx context.Context, m *matcher) *Pick {
	cands := s.core.eligible(ctx, m, m.artistQuery, s.core.cfg.PickLimit, ExtractionFlat)
	if len(cands) == 0 {
		return nil
	}
	for _, e := range cands {
		if trusted(e) {
			return &Pick{Candidate: e.Candidate, Stage: s.name(), Trusted: true}
		}
	}
	return s.core.bestOf(m, s.name(), cands)
}

// titleOnlyStage retries with the bare title; uploads often omit the artist
// when the channel already names them.
type titleOnlyStage struct {
	core *stageCore
}

func (s *titleOnlyStage) name() string { return StageTitleOnly }

func (s *titleOnlyStage) pick(ctx context.Context, m *matcher) *Pick {
	cands := s.core.eligible(ctx, m, m.titleQuery, s.core.cfg.PickLimit, ExtractionFlat)
	if len(cands) == 0 {
		return nil
	}
	return s.core.bestOf(m, s.name(), cands)
}

// coverStage re-searches with full extraction and admits only candidates
// whose thumbnail hash lands within the configured distance of the track
// cover.
type coverStage struct {
	core *stageCore
}

func (s *coverStage) name() string { return StageCoverArt }

func (s *coverStage) pick(ctx context.Context, m *matcher) *Pick {
	targetHash := s.core.covers.FromURL(ctx, m.target.CoverURL)
	if targetHash == nil {
		s.core.logger.Debug("track cover hash unavailable, skipping cover comparison",
			logging.String("thumbnail_url", m.target.CoverURL),
		)
		return nil
	}
	var best *Pick
	for _, e := range s.core.eligible(ctx, m, m.artistQuery, s.core.cfg.PickLimit, ExtractionFull) {
		candidateHash := s.core.covers.FromURL(ctx, e.ThumbnailURL)
		distance, ok := coverart.Distance(targetHash, candidateHash)
		if !ok || distance > s.core.cfg.MaxCoverDistance {
			continue
		}
		d := distance
		score := m.score(e, &d)
		if best == nil || score < best.Score {
			best = &Pick{Candidate: e.Candidate, Stage: s.name(), Score: score, HashDistance: &d}
		}
	}
	return best
}
