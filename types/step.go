package types

// Action is the kind of a planned browser action.
type Action string

const (
	ActionNavigate Action = "navigate"
	ActionClick    Action = "click"
	ActionType     Action = "type"
	ActionScroll   Action = "scroll"
	ActionExtract  Action = "extract"
	ActionWait     Action = "wait"
)

// NeedsCandidates reports whether the action targets a concrete element and
// therefore requires ranked selector candidates. Navigation, waiting, and
// window scrolling act on the page as a whole.
func (a Action) NeedsCandidates() bool {
	switch a {
	case ActionClick, ActionType, ActionExtract:
		return true
	default:
		return false
	}
}

// VisualHint is an approximate region the planner expects the target element
// to occupy. Width/Height are optional; zero means the hint describes only a
// point.
type VisualHint struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// HasSize reports whether the hint describes an approximate element size in
// addition to a target point.
func (h VisualHint) HasSize() bool {
	return h.Width > 0 && h.Height > 0
}

// ValidatorKind names one post-action predicate.
type ValidatorKind string

const (
	ValidatorPresence     ValidatorKind = "presence"
	ValidatorValueEquals  ValidatorKind = "value_equals"
	ValidatorURLContains  ValidatorKind = "url_contains"
	ValidatorTextContains ValidatorKind = "text_contains"
)

// ValidatorSpec declares one validator to run after a step's action.
// Selector is used by element-scoped kinds (presence, value_equals); Value is
// the expected value or substring.
type ValidatorSpec struct {
	Kind     ValidatorKind `json:"kind"`
	Selector string        `json:"selector,omitempty"`
	Value    string        `json:"value,omitempty"`
}

// SemanticStep is one planned, action-typed unit of automation with a
// natural-language target, produced by the planning collaborator.
type SemanticStep struct {
	ID     string          `json:"step_id"`
	Action Action          `json:"action"`
	Target string          `json:"target"`
	Value  string          `json:"value,omitempty"`
	Hint   *VisualHint     `json:"visual_hint,omitempty"`
	Expect []ValidatorSpec `json:"expect,omitempty"`
}
