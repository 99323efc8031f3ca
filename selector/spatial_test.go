package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/BaSui01/webpilot/types"
)

func boxedElement(x, y, w, h float64) *types.ElementRecord {
	return &types.ElementRecord{
		ID:  "el-1",
		Box: types.BoundingBox{X: x, Y: y, Width: w, Height: h},
	}
}

func TestSpatialScorer_NoHintCopiesStructural(t *testing.T) {
	scorer := NewSpatialScorer(DefaultConfig())
	el := boxedElement(100, 100, 80, 24)

	assert.Equal(t, 0.42, scorer.Score(el, nil, 0.42))
	assert.Equal(t, 0.0, scorer.Score(el, nil, 0))
}

func TestSpatialScorer_PerfectOverlap(t *testing.T) {
	scorer := NewSpatialScorer(DefaultConfig())
	el := boxedElement(100, 100, 80, 24)
	hint := &types.VisualHint{X: 140, Y: 112, Width: 80, Height: 24}

	// Hint at the element center with matching size scores 1.
	assert.InDelta(t, 1.0, scorer.Score(el, hint, 0), 1e-9)
}

func TestSpatialScorer_ProximityDecaysWithDistance(t *testing.T) {
	scorer := NewSpatialScorer(DefaultConfig())
	el := boxedElement(0, 0, 10, 10)

	near := scorer.Score(el, &types.VisualHint{X: 20, Y: 5}, 0)
	far := scorer.Score(el, &types.VisualHint{X: 800, Y: 5}, 0)
	assert.Greater(t, near, far)

	// Beyond the normalization distance, proximity bottoms out at zero but
	// the size component keeps the score from going negative.
	beyond := scorer.Score(el, &types.VisualHint{X: 5000, Y: 5}, 0)
	assert.GreaterOrEqual(t, beyond, 0.0)
}

func TestSpatialScorer_SizeMismatchLowersScore(t *testing.T) {
	scorer := NewSpatialScorer(DefaultConfig())
	el := boxedElement(100, 100, 80, 24)
	cx, cy := el.Box.Center()

	matching := scorer.Score(el, &types.VisualHint{X: cx, Y: cy, Width: 80, Height: 24}, 0)
	mismatched := scorer.Score(el, &types.VisualHint{X: cx, Y: cy, Width: 800, Height: 600}, 0)
	assert.Greater(t, matching, mismatched)
}

func TestSpatialScorer_HintWithoutSizeUsesProximityOnly(t *testing.T) {
	scorer := NewSpatialScorer(DefaultConfig())
	el := boxedElement(100, 100, 80, 24)
	cx, cy := el.Box.Center()

	// Proximity 1, size component defaults to 1 when the hint has no size.
	assert.InDelta(t, 1.0, scorer.Score(el, &types.VisualHint{X: cx, Y: cy}, 0), 1e-9)
}

func TestSpatialScorer_ScoreRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		scorer := NewSpatialScorer(DefaultConfig())
		el := boxedElement(
			rapid.Float64Range(0, 5000).Draw(t, "x"),
			rapid.Float64Range(0, 5000).Draw(t, "y"),
			rapid.Float64Range(0, 2000).Draw(t, "w"),
			rapid.Float64Range(0, 2000).Draw(t, "h"),
		)
		hint := &types.VisualHint{
			X:      rapid.Float64Range(0, 5000).Draw(t, "hx"),
			Y:      rapid.Float64Range(0, 5000).Draw(t, "hy"),
			Width:  rapid.Float64Range(0, 2000).Draw(t, "hw"),
			Height: rapid.Float64Range(0, 2000).Draw(t, "hh"),
		}
		structural := rapid.Float64Range(0, 1).Draw(t, "structural")

		score := scorer.Score(el, hint, structural)
		if score < 0 || score > 1 {
			t.Fatalf("score %f out of range", score)
		}
	})
}
