package selector

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/BaSui01/webpilot/history"
	"github.com/BaSui01/webpilot/internal/metrics"
	"github.com/BaSui01/webpilot/types"
)

// Ranker turns a snapshot and a semantic step into a ranked candidate list.
// It is deterministic given identical snapshot, step, strategy, and history
// state, and never mutates the history store.
type Ranker struct {
	structural *StructuralScorer
	spatial    *SpatialScorer
	store      history.Store
	metrics    *metrics.Collector
	cfg        Config
	logger     *zap.Logger
}

// NewRanker creates a ranker. store may be nil, in which case no history
// boost is applied.
func NewRanker(cfg Config, store history.Store, logger *zap.Logger) *Ranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = DefaultConfig().MaxCandidates
	}
	if cfg.Priors == nil {
		cfg.Priors = DefaultConfig().Priors
	}
	return &Ranker{
		structural: NewStructuralScorer(cfg),
		spatial:    NewSpatialScorer(cfg),
		store:      store,
		cfg:        cfg,
		logger:     logger.With(zap.String("component", "ranker")),
	}
}

// WithMetrics attaches a collector for history lookup accounting and returns
// the ranker. A nil collector records nothing.
func (r *Ranker) WithMetrics(collector *metrics.Collector) *Ranker {
	r.metrics = collector
	return r
}

// SelectStep matches elements against the step's target description, scores
// every candidate of the matched elements, and returns the top candidates in
// rank order. This is the full selection path used when no precomputed
// candidates document is supplied.
func (r *Ranker) SelectStep(ctx context.Context, snap *types.Snapshot, step *types.SemanticStep) []types.ScoredCandidate {
	elements := r.MatchElements(snap, step.Target)
	return r.RankElements(ctx, snap.URL, elements, step)
}

// RankElements scores and ranks the candidates of the given elements for the
// step, consulting the history store once for the step's key.
func (r *Ranker) RankElements(ctx context.Context, pageURL string, elements []*types.ElementRecord, step *types.SemanticStep) []types.ScoredCandidate {
	boostExpr := r.boostSelector(ctx, history.OriginFromURL(pageURL), step.Target)

	scored := make([]types.ScoredCandidate, 0, len(elements)*2)
	for _, el := range elements {
		for _, cand := range el.Candidates {
			structural := r.structural.Score(el, cand, step.Target, boostExpr)
			spatial := r.spatial.Score(el, step.Hint, structural)
			scored = append(scored, types.ScoredCandidate{
				Candidate:  cand,
				ElementID:  el.ID,
				Structural: structural,
				Spatial:    spatial,
			})
		}
	}
	return r.Rank(scored)
}

// Rank fuses structural and spatial scores per the active strategy, orders
// the candidates, and returns the top MaxCandidates with Rank assigned.
// Ties break by provenance priority, then by original generation order.
// Rank is pure and side-effect free so it can be exercised independently.
func (r *Ranker) Rank(scored []types.ScoredCandidate) []types.ScoredCandidate {
	ws, wv := r.cfg.Weights()

	out := make([]types.ScoredCandidate, len(scored))
	copy(out, scored)
	for i := range out {
		out[i].Fused = ws*out[i].Structural + wv*out[i].Spatial
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Fused != out[j].Fused {
			return out[i].Fused > out[j].Fused
		}
		return out[i].Candidate.Provenance.Priority() > out[j].Candidate.Provenance.Priority()
	})

	if len(out) > r.cfg.MaxCandidates {
		out = out[:r.cfg.MaxCandidates]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// MatchElements returns the snapshot elements whose text, accessibility
// label, or attribute values plausibly match the target description.
func (r *Ranker) MatchElements(snap *types.Snapshot, target string) []*types.ElementRecord {
	var matched []*types.ElementRecord
	for i := range snap.Elements {
		el := &snap.Elements[i]
		if r.matches(el, target) {
			matched = append(matched, el)
		}
	}
	return matched
}

func (r *Ranker) matches(el *types.ElementRecord, target string) bool {
	if TextSimilarity(el.Text, target) >= 0.8 || TextSimilarity(el.AriaLabel, target) >= 0.8 {
		return true
	}
	for _, v := range el.Attrs {
		if TextSimilarity(v, target) >= 0.8 {
			return true
		}
	}

	threshold := r.cfg.MatchThreshold
	if threshold <= 0 {
		threshold = 0.6
	}
	return WordOverlap(target, el.Text+" "+el.AriaLabel) >= threshold
}

// boostSelector looks up the history selector for the step's key. Store
// errors are logged and scoring proceeds without the boost; they never
// surface to the caller.
func (r *Ranker) boostSelector(ctx context.Context, origin, target string) string {
	if r.store == nil || origin == "" || target == "" {
		return ""
	}
	entry, err := r.store.Get(ctx, origin, target)
	if errors.Is(err, history.ErrNotFound) {
		r.metrics.RecordHistoryMiss("ranker")
		return ""
	}
	if err != nil {
		r.metrics.RecordHistoryError("ranker", "get")
		r.logger.Warn("history lookup failed, scoring without boost",
			zap.String("origin", origin),
			zap.Error(err))
		return ""
	}
	r.metrics.RecordHistoryHit("ranker")
	return entry.Selector
}
