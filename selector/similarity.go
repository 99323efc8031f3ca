package selector

import "strings"

// TextSimilarity returns a normalized lexical-overlap ratio in [0, 1] between
// two free-text descriptions. Exact matches (after normalization) score 1.0,
// containment scores at least 0.8, everything else scores the Jaccard ratio
// of the token sets. Empty input scores 0.
func TextSimilarity(a, b string) float64 {
	a = normalize(a)
	b = normalize(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	jaccard := tokenJaccard(a, b)
	if strings.Contains(a, b) || strings.Contains(b, a) {
		if jaccard < 0.8 {
			return 0.8
		}
	}
	return jaccard
}

// WordOverlap returns the fraction of target tokens present in the
// element-side text. Used for matching elements to a target description
// before per-candidate scoring.
func WordOverlap(target, text string) float64 {
	targetTokens := tokens(target)
	if len(targetTokens) == 0 {
		return 0
	}
	textTokens := tokenSet(text)
	hit := 0
	for _, t := range targetTokens {
		if _, ok := textTokens[t]; ok {
			hit++
		}
	}
	return float64(hit) / float64(len(targetTokens))
}

func normalize(s string) string {
	return strings.Join(tokens(s), " ")
}

func tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
	})
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range tokens(s) {
		set[t] = struct{}{}
	}
	return set
}

func tokenJaccard(a, b string) float64 {
	sa := tokenSet(a)
	sb := tokenSet(b)
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}
	inter := 0
	for t := range sa {
		if _, ok := sb[t]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}
