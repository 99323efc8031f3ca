package types

import "time"

// ScoredCandidate is the ephemeral, per-step scoring record for one selector
// candidate. Recomputed on every run; influenced by the history store but
// never mutating it.
type ScoredCandidate struct {
	Candidate  SelectorCandidate `json:"candidate"`
	ElementID  string            `json:"element_id"`
	Structural float64           `json:"structural_score"`
	Spatial    float64           `json:"spatial_score"`
	Fused      float64           `json:"fused_score"`
	Rank       int               `json:"rank"`
}

// StepStatus is the lifecycle state of one step. A step that has started
// always reaches one of the terminal states; it is never left pending.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepAttempting StepStatus = "attempting"
	StepSuccess    StepStatus = "success"
	StepFailed     StepStatus = "failed"
	StepCancelled  StepStatus = "cancelled"
)

// Terminal reports whether the status is a terminal state.
func (s StepStatus) Terminal() bool {
	return s == StepSuccess || s == StepFailed || s == StepCancelled
}

// FailureReason classifies why an attempt or a step did not succeed.
type FailureReason string

const (
	ReasonCandidateExhausted FailureReason = "candidate_exhausted"
	ReasonDriverTimeout      FailureReason = "driver_timeout"
	ReasonDriverActionError  FailureReason = "driver_action_error"
	ReasonValidatorFailure   FailureReason = "validator_failure"
	ReasonSessionCancelled   FailureReason = "session_cancelled"
	ReasonStepTimeout        FailureReason = "step_timeout"
	ReasonHistoryStoreIO     FailureReason = "history_store_io_error"
)

// AttemptRecord traces one candidate attempt: the primary invocation plus its
// optional in-place script fallback count as a single attempt.
type AttemptRecord struct {
	Candidate    ScoredCandidate `json:"candidate"`
	Success      bool            `json:"success"`
	UsedFallback bool            `json:"used_fallback,omitempty"`
	Reason       FailureReason   `json:"reason,omitempty"`
	Error        string          `json:"error,omitempty"`
	Elapsed      time.Duration   `json:"elapsed"`
}

// ValidatorOutcome is the result of one validator evaluation.
type ValidatorOutcome struct {
	Kind   ValidatorKind `json:"kind"`
	Passed bool          `json:"passed"`
	Error  string        `json:"error,omitempty"`
}

// ExecutionResult is the per-step output of the execution engine.
type ExecutionResult struct {
	StepID        string             `json:"step_id"`
	Status        StepStatus         `json:"status"`
	Reason        FailureReason      `json:"reason,omitempty"`
	Attempts      []AttemptRecord    `json:"attempts,omitempty"`
	Validators    []ValidatorOutcome `json:"validators,omitempty"`
	Extracted     string             `json:"extracted,omitempty"`
	DiagnosticRef string             `json:"diagnostic_ref,omitempty"`
	Elapsed       time.Duration      `json:"elapsed"`
}

// OK reports whether the step succeeded.
func (r *ExecutionResult) OK() bool { return r.Status == StepSuccess }

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// Session binds one snapshot to an ordered step list and the growing list of
// execution results. Steps execute strictly in order: a later step never
// begins before the previous one reaches a terminal status.
type Session struct {
	ID        string            `json:"id"`
	Snapshot  *Snapshot         `json:"snapshot"`
	Steps     []SemanticStep    `json:"steps"`
	Results   []ExecutionResult `json:"results"`
	Status    SessionStatus     `json:"status"`
	StartedAt time.Time         `json:"started_at,omitempty"`
	EndedAt   time.Time         `json:"ended_at,omitempty"`
}

// Summary aggregates session results.
type Summary struct {
	Total     int           `json:"total"`
	Passed    int           `json:"passed"`
	Failed    int           `json:"failed"`
	Cancelled int           `json:"cancelled"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Summarize computes a Summary over the session's results.
func (s *Session) Summarize() Summary {
	sum := Summary{Total: len(s.Results), Elapsed: s.EndedAt.Sub(s.StartedAt)}
	for i := range s.Results {
		switch s.Results[i].Status {
		case StepSuccess:
			sum.Passed++
		case StepCancelled:
			sum.Cancelled++
		default:
			sum.Failed++
		}
	}
	return sum
}
