// Package selector maps a semantic step onto concrete selector candidates.
//
// Structural scoring fuses provenance priors with text similarity to the
// step's target description and a learned history boost; spatial scoring
// compares element geometry against an optional visual hint. The ranker
// combines both per the configured fusion strategy into a deterministic total
// order and exposes the top candidates to the execution engine.
//
// Ranking is pure: it reads the history store but never mutates it, and
// recomputing against identical inputs yields an identical order.
package selector
