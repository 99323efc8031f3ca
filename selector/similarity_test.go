package selector

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestTextSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected float64
	}{
		{
			name:     "exact match",
			a:        "Sign in",
			b:        "Sign in",
			expected: 1.0,
		},
		{
			name:     "exact match after normalization",
			a:        "  Sign-In!  ",
			b:        "sign in",
			expected: 1.0,
		},
		{
			name:     "containment floors at 0.8",
			a:        "submit",
			b:        "submit your order now please",
			expected: 0.8,
		},
		{
			name:     "partial token overlap",
			a:        "add to cart",
			b:        "remove from cart",
			expected: 1.0 / 5.0,
		},
		{
			name:     "no overlap",
			a:        "login",
			b:        "checkout",
			expected: 0,
		},
		{
			name:     "empty left side",
			a:        "",
			b:        "anything",
			expected: 0,
		},
		{
			name:     "empty both sides",
			a:        "",
			b:        "",
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, TextSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestWordOverlap(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		text     string
		expected float64
	}{
		{
			name:     "all target tokens present",
			target:   "search button",
			text:     "the big search button on top",
			expected: 1.0,
		},
		{
			name:     "half present",
			target:   "search button",
			text:     "search field",
			expected: 0.5,
		},
		{
			name:     "none present",
			target:   "search",
			text:     "checkout",
			expected: 0,
		},
		{
			name:     "empty target",
			target:   "",
			text:     "anything",
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, WordOverlap(tt.target, tt.text), 1e-9)
		})
	}
}

func TestProperty_TextSimilarityRange(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("similarity stays within [0, 1]", prop.ForAll(
		func(a, b string) bool {
			s := TextSimilarity(a, b)
			return s >= 0 && s <= 1
		},
		gen.AnyString(),
		gen.AnyString(),
	))

	properties.Property("similarity is symmetric", prop.ForAll(
		func(a, b string) bool {
			return TextSimilarity(a, b) == TextSimilarity(b, a)
		},
		gen.AnyString(),
		gen.AnyString(),
	))

	properties.Property("identical non-empty tokenizable strings score 1", prop.ForAll(
		func(a string) bool {
			if len(tokens(a)) == 0 {
				return TextSimilarity(a, a) == 0
			}
			return TextSimilarity(a, a) == 1
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestProperty_WordOverlapRange(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("overlap stays within [0, 1]", prop.ForAll(
		func(target, text string) bool {
			o := WordOverlap(target, text)
			return o >= 0 && o <= 1
		},
		gen.AnyString(),
		gen.AnyString(),
	))

	properties.Property("text containing the whole target scores 1", prop.ForAll(
		func(target string) bool {
			if len(tokens(target)) == 0 {
				return WordOverlap(target, target) == 0
			}
			return WordOverlap(target, target+" suffix") == 1
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
