package executor

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/webpilot/history"
	"github.com/BaSui01/webpilot/internal/metrics"
	"github.com/BaSui01/webpilot/types"
)

// Config bounds the engine's attempt loop.
type Config struct {
	// MaxCandidates is the maximum number of distinct candidates attempted
	// per step, regardless of how many are ranked.
	MaxCandidates int `json:"max_candidates" yaml:"max_candidates"`

	// ActionTimeout bounds one driver invocation (primary or fallback).
	ActionTimeout time.Duration `json:"action_timeout" yaml:"action_timeout"`

	// StepTimeout bounds the entire candidate loop of one step, not each
	// candidate individually.
	StepTimeout time.Duration `json:"step_timeout" yaml:"step_timeout"`

	// SettleDelay is how long the engine waits after a successful action
	// before running validators, giving the page time to react.
	SettleDelay time.Duration `json:"settle_delay" yaml:"settle_delay"`

	// WaitDelay is the pause performed by a wait step.
	WaitDelay time.Duration `json:"wait_delay" yaml:"wait_delay"`

	// ScrollAmount is how many pixels a scroll step moves the window.
	ScrollAmount int `json:"scroll_amount" yaml:"scroll_amount"`

	// ContinueOnFailure controls whether the session runner proceeds to the
	// next step after a FAILED step. Cancellation always stops the session.
	ContinueOnFailure bool `json:"continue_on_failure" yaml:"continue_on_failure"`
}

// DefaultConfig returns sensible engine defaults.
func DefaultConfig() Config {
	return Config{
		MaxCandidates:     3,
		ActionTimeout:     3 * time.Second,
		StepTimeout:       15 * time.Second,
		SettleDelay:       300 * time.Millisecond,
		WaitDelay:         1 * time.Second,
		ScrollAmount:      500,
		ContinueOnFailure: true,
	}
}

// Engine executes one semantic step at a time against the automation driver.
// Candidate attempts within a step are strictly sequential, never concurrent,
// so live side effects are not duplicated.
type Engine struct {
	driver   Driver
	store    history.Store
	reporter ProgressReporter
	metrics  *metrics.Collector
	tracer   trace.Tracer
	config   Config
	logger   *zap.Logger
}

// NewEngine creates an execution engine. store, reporter, and collector may
// be nil: history learning, progress reporting, and metrics are then
// disabled respectively.
func NewEngine(driver Driver, store history.Store, reporter ProgressReporter, collector *metrics.Collector, config Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reporter == nil {
		reporter = NopReporter{}
	}
	if config.MaxCandidates <= 0 {
		config.MaxCandidates = DefaultConfig().MaxCandidates
	}
	if config.ActionTimeout <= 0 {
		config.ActionTimeout = DefaultConfig().ActionTimeout
	}
	if config.StepTimeout <= 0 {
		config.StepTimeout = DefaultConfig().StepTimeout
	}
	return &Engine{
		driver:   driver,
		store:    store,
		reporter: reporter,
		metrics:  collector,
		tracer:   otel.Tracer("github.com/BaSui01/webpilot/executor"),
		config:   config,
		logger:   logger.With(zap.String("component", "engine")),
	}
}

// ExecuteStep runs one step to a terminal status. ranked is the candidate
// list for element-targeted actions; page-level actions (navigate, wait,
// scroll) ignore it. The returned result always carries a terminal status.
func (e *Engine) ExecuteStep(ctx context.Context, sessionID, pageURL string, step types.SemanticStep, ranked []types.ScoredCandidate) types.ExecutionResult {
	start := time.Now()

	ctx, span := e.tracer.Start(ctx, "executor.step", trace.WithAttributes(
		attribute.String("step.id", step.ID),
		attribute.String("step.action", string(step.Action)),
	))
	defer span.End()

	e.report(sessionID, step.ID, PhaseExecuting, string(step.Action))

	result := types.ExecutionResult{StepID: step.ID, Status: types.StepPending}

	if step.Action.NeedsCandidates() {
		e.runCandidateLoop(ctx, sessionID, &result, step, ranked, start)
	} else {
		e.runPageAction(ctx, &result, step)
	}

	result.Elapsed = time.Since(start)

	if result.Status == types.StepSuccess && e.store != nil && len(result.Attempts) > 0 {
		e.recordSuccess(pageURL, step, result.Attempts[len(result.Attempts)-1])
	}

	e.metrics.RecordStep(string(step.Action), string(result.Status), result.Elapsed)
	if result.Status != types.StepSuccess {
		span.SetStatus(codes.Error, string(result.Reason))
	}
	e.report(sessionID, step.ID, PhaseStepComplete, string(result.Status))

	e.logger.Info("step finished",
		zap.String("step_id", step.ID),
		zap.String("action", string(step.Action)),
		zap.String("status", string(result.Status)),
		zap.Int("attempts", len(result.Attempts)),
		zap.Duration("elapsed", result.Elapsed),
	)
	return result
}

// runCandidateLoop is the per-step state machine: PENDING -> ATTEMPTING(i)
// -> SUCCESS | EXHAUSTED | CANCELLED, expressed as a straight loop over the
// ranked candidates with explicit exit conditions.
func (e *Engine) runCandidateLoop(ctx context.Context, sessionID string, result *types.ExecutionResult, step types.SemanticStep, ranked []types.ScoredCandidate, start time.Time) {
	limit := len(ranked)
	if limit > e.config.MaxCandidates {
		limit = e.config.MaxCandidates
	}
	deadline := start.Add(e.config.StepTimeout)

	// The step deadline bounds the whole loop, in-flight driver calls
	// included; each invocation still runs under the per-action timeout.
	stepCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	result.Status = types.StepAttempting

	for i := 0; i < limit; i++ {
		// Cancellation is observed between attempts at minimum.
		if ctx.Err() != nil {
			result.Status = types.StepCancelled
			result.Reason = types.ReasonSessionCancelled
			return
		}
		if stepCtx.Err() != nil || time.Now().After(deadline) {
			result.Status = types.StepFailed
			result.Reason = types.ReasonStepTimeout
			result.DiagnosticRef = e.captureDiagnostic(step.ID)
			return
		}

		cand := ranked[i]
		e.report(sessionID, step.ID, PhaseAttempting,
			fmt.Sprintf("candidate %d/%d: %s", i+1, limit, cand.Candidate.Expr))

		attempt, extracted, outcomes := e.attemptCandidate(stepCtx, step, cand)
		result.Attempts = append(result.Attempts, attempt)
		if len(outcomes) > 0 {
			result.Validators = outcomes
		}

		if attempt.Success {
			result.Status = types.StepSuccess
			result.Extracted = extracted
			e.metrics.RecordWinningRank(string(step.Action), cand.Rank)
			return
		}
	}

	result.Status = types.StepFailed
	result.Reason = types.ReasonCandidateExhausted
	if stepCtx.Err() != nil && ctx.Err() == nil {
		// The deadline expired during the final attempt.
		result.Reason = types.ReasonStepTimeout
	}
	result.DiagnosticRef = e.captureDiagnostic(step.ID)
}

// attemptCandidate runs one candidate attempt: the primary invocation, the
// in-place script fallback when the driver reports a retryable condition,
// then the step's validators in declaration order.
func (e *Engine) attemptCandidate(ctx context.Context, step types.SemanticStep, cand types.ScoredCandidate) (types.AttemptRecord, string, []types.ValidatorOutcome) {
	start := time.Now()
	rec := types.AttemptRecord{Candidate: cand}

	extracted, err := e.invoke(ctx, step, cand.Candidate.Expr, false)
	if err != nil && retryable(err) && ctx.Err() == nil {
		e.metrics.RecordFallback(string(step.Action))
		rec.UsedFallback = true
		e.logger.Debug("primary invocation failed, trying script dispatch",
			zap.String("step_id", step.ID),
			zap.String("selector", cand.Candidate.Expr),
			zap.Error(err))
		extracted, err = e.invoke(ctx, step, cand.Candidate.Expr, true)
	}

	if err != nil {
		rec.Reason = failureReason(err)
		rec.Error = err.Error()
		rec.Elapsed = time.Since(start)
		e.metrics.RecordAttempt(string(step.Action), "driver_error")
		return rec, "", nil
	}

	e.settle(ctx)

	outcomes := e.runValidators(ctx, step, cand.Candidate.Expr)
	for _, o := range outcomes {
		if !o.Passed {
			rec.Reason = types.ReasonValidatorFailure
			rec.Error = fmt.Sprintf("validator %s failed", o.Kind)
			rec.Elapsed = time.Since(start)
			e.metrics.RecordAttempt(string(step.Action), "validator_failed")
			return rec, "", outcomes
		}
	}

	rec.Success = true
	rec.Elapsed = time.Since(start)
	e.metrics.RecordAttempt(string(step.Action), "success")
	return rec, extracted, outcomes
}

// invoke performs one driver invocation for the step under the per-action
// timeout. script selects the lower-level dispatch path.
func (e *Engine) invoke(ctx context.Context, step types.SemanticStep, selector string, script bool) (string, error) {
	actx, cancel := context.WithTimeout(ctx, e.config.ActionTimeout)
	defer cancel()

	dispatch := "primary"
	if script {
		dispatch = "script"
	}
	start := time.Now()
	defer func() {
		e.metrics.RecordDriverAction(string(step.Action), dispatch, time.Since(start))
	}()

	switch step.Action {
	case types.ActionClick:
		if script {
			return "", e.driver.ClickViaScript(actx, selector)
		}
		return "", e.driver.Click(actx, selector)
	case types.ActionType:
		if script {
			return "", e.driver.TypeViaScript(actx, selector, step.Value)
		}
		return "", e.driver.Type(actx, selector, step.Value)
	case types.ActionExtract:
		if script {
			return e.driver.ExtractTextViaScript(actx, selector)
		}
		return e.driver.ExtractText(actx, selector)
	default:
		return "", fmt.Errorf("action %s does not take candidates", step.Action)
	}
}

// runPageAction executes the candidate-free actions: navigate, wait, scroll.
func (e *Engine) runPageAction(ctx context.Context, result *types.ExecutionResult, step types.SemanticStep) {
	actx, cancel := context.WithTimeout(ctx, e.config.StepTimeout)
	defer cancel()

	var err error
	switch step.Action {
	case types.ActionNavigate:
		err = e.driver.Navigate(actx, step.Target)
	case types.ActionWait:
		err = e.sleep(actx, e.config.WaitDelay)
	case types.ActionScroll:
		delta := e.config.ScrollAmount
		if step.Value == "up" {
			delta = -delta
		}
		err = e.driver.Scroll(actx, delta)
	default:
		err = fmt.Errorf("unsupported action: %s", step.Action)
	}

	if err != nil {
		if ctx.Err() == context.Canceled {
			result.Status = types.StepCancelled
			result.Reason = types.ReasonSessionCancelled
			return
		}
		result.Status = types.StepFailed
		result.Reason = failureReason(err)
		return
	}

	outcomes := e.runValidators(ctx, step, "")
	result.Validators = outcomes
	for _, o := range outcomes {
		if !o.Passed {
			result.Status = types.StepFailed
			result.Reason = types.ReasonValidatorFailure
			return
		}
	}
	result.Status = types.StepSuccess
}

// runValidators evaluates the step's validators in declaration order.
func (e *Engine) runValidators(ctx context.Context, step types.SemanticStep, selector string) []types.ValidatorOutcome {
	if len(step.Expect) == 0 {
		return nil
	}

	vctx := ValidatorContext{Driver: e.driver, Selector: selector}
	outcomes := make([]types.ValidatorOutcome, 0, len(step.Expect))
	for _, spec := range step.Expect {
		actx, cancel := context.WithTimeout(ctx, e.config.ActionTimeout)
		outcome := EvaluateValidator(actx, vctx, spec)
		cancel()

		e.metrics.RecordValidator(string(spec.Kind), outcome.Passed)
		outcomes = append(outcomes, outcome)
		if !outcome.Passed {
			// First failing validator marks the attempt failed.
			break
		}
	}
	return outcomes
}

// recordSuccess upserts the winning selector into the history store. Store
// errors are logged and counted, never surfaced to the session.
func (e *Engine) recordSuccess(pageURL string, step types.SemanticStep, attempt types.AttemptRecord) {
	origin := history.OriginFromURL(pageURL)
	if origin == "" || step.Target == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.store.Upsert(ctx, origin, step.Target, attempt.Candidate.Candidate.Expr); err != nil {
		e.metrics.RecordHistoryError("engine", "upsert")
		e.logger.Warn("history upsert failed",
			zap.String("origin", origin),
			zap.String("target", step.Target),
			zap.Error(err))
	}
}

// captureDiagnostic asks the driver for a diagnostic artifact. Best effort:
// a capture failure leaves the reference empty.
func (e *Engine) captureDiagnostic(stepID string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ref, err := e.driver.CaptureDiagnostic(ctx, stepID)
	if err != nil {
		e.logger.Warn("diagnostic capture failed", zap.String("step_id", stepID), zap.Error(err))
		return ""
	}
	return ref
}

// settle pauses briefly after a successful action so the page can react
// before validation. Returns early on cancellation.
func (e *Engine) settle(ctx context.Context) {
	_ = e.sleep(ctx, e.config.SettleDelay)
}

func (e *Engine) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (e *Engine) report(sessionID, stepID string, phase ProgressPhase, detail string) {
	e.reporter.Emit(ProgressEvent{
		SessionID: sessionID,
		StepID:    stepID,
		Phase:     phase,
		Detail:    detail,
		At:        time.Now(),
	})
}
