package selector

import "github.com/BaSui01/webpilot/types"

// Strategy selects how structural and spatial scores are fused.
type Strategy string

const (
	StrategyStructural Strategy = "structural"
	StrategySpatial    Strategy = "spatial"
	StrategyHybrid     Strategy = "hybrid"
)

// Valid reports whether the strategy is one of the known kinds.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyStructural, StrategySpatial, StrategyHybrid:
		return true
	}
	return false
}

// Config holds the scoring and ranking parameters. The numeric values mirror
// the priority ordering of the provenance kinds and an approximate 60/40
// hybrid split; they are defaults, not hard invariants, and can be tuned per
// deployment.
type Config struct {
	// Strategy is the active fusion strategy.
	Strategy Strategy `json:"strategy" yaml:"strategy"`

	// MaxCandidates is how many ranked candidates are exposed per step.
	MaxCandidates int `json:"max_candidates" yaml:"max_candidates"`

	// Priors are the base scores per provenance kind, highest for
	// accessibility labels, lowest for structural paths.
	Priors map[types.Provenance]float64 `json:"priors" yaml:"priors"`

	// HistoryBoost is added to the structural score of a candidate whose
	// expression matches the stored history selector for the step's key.
	HistoryBoost float64 `json:"history_boost" yaml:"history_boost"`

	// HybridStructuralWeight is w_s under the hybrid strategy; the spatial
	// weight is 1 - w_s.
	HybridStructuralWeight float64 `json:"hybrid_structural_weight" yaml:"hybrid_structural_weight"`

	// NormDistance normalizes the center-to-hint distance for the proximity
	// term; distances at or beyond it score zero proximity.
	NormDistance float64 `json:"norm_distance" yaml:"norm_distance"`

	// ProximityWeight weights the proximity term against size consistency
	// within the spatial score.
	ProximityWeight float64 `json:"proximity_weight" yaml:"proximity_weight"`

	// MatchThreshold is the minimum word-overlap ratio for an element to be
	// considered a match for a step's target description.
	MatchThreshold float64 `json:"match_threshold" yaml:"match_threshold"`
}

// DefaultConfig returns the default scoring configuration.
func DefaultConfig() Config {
	return Config{
		Strategy:      StrategyHybrid,
		MaxCandidates: 3,
		Priors: map[types.Provenance]float64{
			types.ProvenanceAria:  1.0,
			types.ProvenanceID:    0.9,
			types.ProvenanceClass: 0.75,
			types.ProvenanceText:  0.6,
			types.ProvenancePath:  0.5,
		},
		HistoryBoost:           0.2,
		HybridStructuralWeight: 0.6,
		NormDistance:           1500,
		ProximityWeight:        0.7,
		MatchThreshold:         0.6,
	}
}

// Weights returns the fusion weights (w_s, w_v) for the strategy; they always
// sum to 1.
func (c Config) Weights() (ws, wv float64) {
	switch c.Strategy {
	case StrategyStructural:
		return 1, 0
	case StrategySpatial:
		return 0, 1
	default:
		w := c.HybridStructuralWeight
		if w <= 0 || w >= 1 {
			w = 0.6
		}
		return w, 1 - w
	}
}

// prior returns the base prior for a provenance kind, falling back to the
// structural-path prior for unknown kinds.
func (c Config) prior(p types.Provenance) float64 {
	if v, ok := c.Priors[p]; ok {
		return v
	}
	return c.Priors[types.ProvenancePath]
}
