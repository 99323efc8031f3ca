package selector

import "github.com/BaSui01/webpilot/types"

// StructuralScorer scores candidates from provenance priors, text similarity
// to the step's target description, and the learned history boost.
type StructuralScorer struct {
	cfg Config
}

// NewStructuralScorer creates a structural scorer.
func NewStructuralScorer(cfg Config) *StructuralScorer {
	return &StructuralScorer{cfg: cfg}
}

// Score computes the structural score for one candidate of el against the
// target description. boostExpr is the selector expression stored in history
// for the step's (origin, target) key, or empty when there is none; a
// matching candidate receives the configured boost. The result is in [0, 1].
func (s *StructuralScorer) Score(el *types.ElementRecord, cand types.SelectorCandidate, target, boostExpr string) float64 {
	score := s.cfg.prior(cand.Provenance) * TextSimilarity(anchorText(el, cand), target)

	if boostExpr != "" && cand.Expr == boostExpr {
		score += s.cfg.HistoryBoost
	}

	return clamp01(score)
}

// anchorText picks the element-side text a candidate is compared against:
// the accessibility label for aria-derived candidates, the visible text
// otherwise, falling back to whichever is non-empty.
func anchorText(el *types.ElementRecord, cand types.SelectorCandidate) string {
	if cand.Provenance == types.ProvenanceAria {
		if el.AriaLabel != "" {
			return el.AriaLabel
		}
		return el.Text
	}
	if el.Text != "" {
		return el.Text
	}
	return el.AriaLabel
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
