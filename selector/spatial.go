package selector

import (
	"math"

	"github.com/BaSui01/webpilot/types"
)

// SpatialScorer scores candidates from element geometry against a step's
// optional visual hint.
type SpatialScorer struct {
	cfg Config
}

// NewSpatialScorer creates a spatial scorer.
func NewSpatialScorer(cfg Config) *SpatialScorer {
	return &SpatialScorer{cfg: cfg}
}

// Score computes the spatial score for el in [0, 1]. Without a hint the
// spatial score copies the structural score so that hybrid fusion is not
// penalized by missing visual information.
func (s *SpatialScorer) Score(el *types.ElementRecord, hint *types.VisualHint, structural float64) float64 {
	if hint == nil {
		return structural
	}

	cx, cy := el.Box.Center()
	dist := math.Hypot(cx-hint.X, cy-hint.Y)

	norm := s.cfg.NormDistance
	if norm <= 0 {
		norm = 1500
	}
	proximity := 1 - math.Min(dist/norm, 1)

	size := 1.0
	if hint.HasSize() {
		hintArea := hint.Width * hint.Height
		elArea := el.Box.Area()
		if hintArea > 0 && elArea > 0 {
			size = math.Min(elArea, hintArea) / math.Max(elArea, hintArea)
		} else {
			size = 0
		}
	}

	pw := s.cfg.ProximityWeight
	if pw <= 0 || pw > 1 {
		pw = 0.7
	}
	return clamp01(pw*proximity + (1-pw)*size)
}
