package types

import "time"

// Provenance identifies the signal a selector candidate was derived from.
// Higher-provenance candidates are more stable across page loads and win
// ties during ranking.
type Provenance string

const (
	ProvenanceAria  Provenance = "aria"  // accessibility label
	ProvenanceID    Provenance = "id"    // element identifier
	ProvenanceClass Provenance = "class" // CSS class
	ProvenanceText  Provenance = "text"  // visible text
	ProvenancePath  Provenance = "path"  // structural CSS/XPath position
)

// Priority returns the tie-break rank of a provenance kind. Higher is
// stronger: aria > id > class > text > path. Unknown kinds rank below all
// known ones.
func (p Provenance) Priority() int {
	switch p {
	case ProvenanceAria:
		return 5
	case ProvenanceID:
		return 4
	case ProvenanceClass:
		return 3
	case ProvenanceText:
		return 2
	case ProvenancePath:
		return 1
	default:
		return 0
	}
}

// SelectorKind is the expression language of a selector candidate.
type SelectorKind string

const (
	SelectorCSS   SelectorKind = "css"
	SelectorXPath SelectorKind = "xpath"
)

// SelectorCandidate is one way to address an element on the page. A candidate
// belongs to exactly one ElementRecord and is never shared across snapshots.
type SelectorCandidate struct {
	Expr       string       `json:"expr"`
	Kind       SelectorKind `json:"kind"`
	Provenance Provenance   `json:"provenance"`
}

// BoundingBox is an element's position and size in page coordinates.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the box's midpoint.
func (b BoundingBox) Center() (x, y float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Area returns the box's area in square pixels.
func (b BoundingBox) Area() float64 {
	return b.Width * b.Height
}

// ElementRecord is one page element as captured by the scraping collaborator.
// Records are immutable once captured and owned by exactly one Snapshot.
type ElementRecord struct {
	ID         string              `json:"id"`
	Tag        string              `json:"tag"`
	Text       string              `json:"text,omitempty"`
	AriaLabel  string              `json:"aria_label,omitempty"`
	Attrs      map[string]string   `json:"attrs,omitempty"`
	Box        BoundingBox         `json:"box"`
	Visible    bool                `json:"visible"`
	Candidates []SelectorCandidate `json:"candidates"`
}

// Snapshot is the captured structural state of a page at scrape time.
type Snapshot struct {
	URL        string          `json:"url"`
	CapturedAt time.Time       `json:"captured_at"`
	Elements   []ElementRecord `json:"elements"`
}

// Element returns the record with the given ID, or nil.
func (s *Snapshot) Element(id string) *ElementRecord {
	for i := range s.Elements {
		if s.Elements[i].ID == id {
			return &s.Elements[i]
		}
	}
	return nil
}
