package match

import (
	"context"
	"log/slog"

	"tonearm/internal/coverart"
	"tonearm/internal/logging"
)

// Config bounds resolver searches.
type Config struct {
	// PickLimit is the per-stage search size.
	PickLimit int
	// GatherLimit is the fallback discovery search size.
	GatherLimit int
	// MaxCoverDistance is the largest perceptual hash distance accepted as
	// a cover match.
	MaxCoverDistance int
}

const (
	defaultPickLimit        = 10
	defaultGatherLimit      = 50
	defaultMaxCoverDistance = 10
)

func (c Config) withDefaults() Config {
	if c.PickLimit <= 0 {
		c.PickLimit = defaultPickLimit
	}
	if c.GatherLimit <= 0 {
		c.GatherLimit = defaultGatherLimit
	}
	if c.MaxCoverDistance <= 0 {
		c.MaxCoverDistance = defaultMaxCoverDistance
	}
	return c
}

// Resolver turns track metadata into an ordered candidate plan.
type Resolver struct {
	core   *stageCore
	stages []stage
}

// NewResolver builds a resolver around a searcher and an optional cover
// source. A nil cover source disables the cover-art stage.
func NewResolver(searcher Searcher, covers CoverSource, cfg Config, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNop()
	}
	if covers == nil {
		covers = noCoverSource{}
	}
	core := &stageCore{
		searcher: searcher,
		covers:   covers,
		cfg:      cfg.withDefaults(),
		logger:   logger.With(logging.String("component", "match-resolver")),
	}
	return &Resolver{
		core: core,
		stages: []stage{
			&artistTitleStage{core: core},
			&titleOnlyStage{core: core},
			&coverStage{core: core},
		},
	}
}

// Resolve runs the staged search: artist+title first, title-only second,
// cover-enforced last; the first stage producing a pick wins. A permissive
// sweep of both queries then fills the fallback list.
func (r *Resolver) Resolve(ctx context.Context, target Target) (Resolution, error) {
	m := newMatcher(target)
	resolution := Resolution{Query: m.artistQuery}

	for _, st := range r.stages {
		if err := ctx.Err(); err != nil {
			return resolution, err
		}
		pick := st.pick(ctx, m)
		if pick == nil {
			r.core.logger.Debug("strategy yielded no candidate", logging.String("strategy", st.name()))
			continue
		}
		resolution.Primary = pick
		break
	}
	if err := ctx.Err(); err != nil {
		return resolution, err
	}

	excludeURL := ""
	if resolution.Primary != nil {
		excludeURL = resolution.Primary.URL
	}
	resolution.Fallback = r.gather(ctx, m, excludeURL)

	r.logOutcome(resolution)
	return resolution, nil
}

// gather sweeps both queries permissively: matching predicate and duration
// filter only, discovery order, deduplicated by URL.
func (r *Resolver) gather(ctx context.Context, m *matcher, excludeURL string) []Candidate {
	seen := make(map[string]struct{}, r.core.cfg.GatherLimit)
	if excludeURL != "" {
		seen[excludeURL] = struct{}{}
	}
	var ordered []Candidate
	for _, query := range []string{m.artistQuery, m.titleQuery} {
		for _, e := range r.core.eligible(ctx, m, query, r.core.cfg.GatherLimit, ExtractionFlat) {
			if e.URL == "" {
				continue
			}
			if _, dup := seen[e.URL]; dup {
				continue
			}
			seen[e.URL] = struct{}{}
			ordered = append(ordered, e.Candidate)
		}
	}
	return ordered
}

func (r *Resolver) logOutcome(resolution Resolution) {
	switch {
	case resolution.Primary != nil:
		pick := resolution.Primary
		attrs := []logging.Attr{
			logging.String("strategy", pick.Stage),
			logging.String("candidate_title", pick.Title),
			logging.String("candidate_channel", pick.Channel),
			logging.String("candidate_url", pick.URL),
			logging.Bool("trusted", pick.Trusted),
			logging.Int("fallbacks", len(resolution.Fallback)),
		}
		if !pick.Trusted {
			attrs = append(attrs, logging.Float64("score", pick.Score))
		}
		if pick.HashDistance != nil {
			attrs = append(attrs, logging.Int("hash_distance", *pick.HashDistance), logging.Bool("cover_match", true))
		}
		r.core.logger.Info("candidate selected", logging.Args(attrs...)...)
	case len(resolution.Fallback) > 0:
		r.core.logger.Info("no strategy winner, using discovery order",
			logging.Int("fallbacks", len(resolution.Fallback)),
		)
	default:
		r.core.logger.Info("no candidates matched, deferring to raw search query",
			logging.String("query", resolution.Query),
		)
	}
}

// noCoverSource stands in when cover matching is disabled.
type noCoverSource struct{}

func (noCoverSource) FromURL(context.Context, string) *coverart.Hash { return nil }
