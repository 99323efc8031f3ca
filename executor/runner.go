package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/webpilot/selector"
	"github.com/BaSui01/webpilot/types"
)

// Runner drives a whole session: per step it selects candidates through the
// ranker (or takes them from a precomputed document), hands them to the
// engine, and collects results in order.
type Runner struct {
	engine *Engine
	ranker *selector.Ranker
	logger *zap.Logger
}

// NewRunner creates a session runner around an engine and a ranker.
func NewRunner(engine *Engine, ranker *selector.Ranker, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		engine: engine,
		ranker: ranker,
		logger: logger.With(zap.String("component", "runner")),
	}
}

// NewSession builds a pending session over the snapshot and steps.
func NewSession(snap *types.Snapshot, steps []types.SemanticStep) *types.Session {
	return &types.Session{
		ID:       uuid.NewString(),
		Snapshot: snap,
		Steps:    steps,
		Status:   types.SessionPending,
	}
}

// Run executes the session's steps strictly in order. precomputed maps step
// IDs to externally supplied candidate lists; steps absent from the map go
// through the full selection path. The session is mutated in place and also
// returned for convenience.
func (r *Runner) Run(ctx context.Context, sess *types.Session, precomputed map[string][]types.ScoredCandidate) *types.Session {
	sess.Status = types.SessionRunning
	sess.StartedAt = time.Now()

	for i := range sess.Steps {
		step := sess.Steps[i]

		if ctx.Err() != nil {
			sess.Results = append(sess.Results, types.ExecutionResult{
				StepID: step.ID,
				Status: types.StepCancelled,
				Reason: types.ReasonSessionCancelled,
			})
			break
		}

		ranked := r.selectCandidates(ctx, sess, step, precomputed)

		result := r.engine.ExecuteStep(ctx, sess.ID, sess.Snapshot.URL, step, ranked)
		sess.Results = append(sess.Results, result)

		if result.Status == types.StepCancelled {
			break
		}
		if result.Status == types.StepFailed && !r.engine.config.ContinueOnFailure {
			r.logger.Info("stopping session on step failure",
				zap.String("session_id", sess.ID),
				zap.String("step_id", step.ID))
			break
		}
	}

	sess.EndedAt = time.Now()
	if ctx.Err() != nil || lastCancelled(sess) {
		sess.Status = types.SessionCancelled
	} else {
		sess.Status = types.SessionCompleted
	}

	sum := sess.Summarize()
	r.engine.report(sess.ID, "", PhaseSessionComplete,
		fmt.Sprintf("passed %d/%d", sum.Passed, sum.Total))
	r.logger.Info("session finished",
		zap.String("session_id", sess.ID),
		zap.String("status", string(sess.Status)),
		zap.Int("passed", sum.Passed),
		zap.Int("failed", sum.Failed),
		zap.Duration("elapsed", sum.Elapsed),
	)
	return sess
}

// selectCandidates resolves the candidate list for one step. Precomputed
// lists still go through Rank so fusion, ordering, and the bound reflect the
// active strategy.
func (r *Runner) selectCandidates(ctx context.Context, sess *types.Session, step types.SemanticStep, precomputed map[string][]types.ScoredCandidate) []types.ScoredCandidate {
	if !step.Action.NeedsCandidates() {
		return nil
	}

	r.engine.report(sess.ID, step.ID, PhaseSelecting, step.Target)

	var ranked []types.ScoredCandidate
	if pre, ok := precomputed[step.ID]; ok {
		ranked = r.ranker.Rank(pre)
	} else {
		ranked = r.ranker.SelectStep(ctx, sess.Snapshot, &step)
	}

	r.engine.report(sess.ID, step.ID, PhaseSelected,
		fmt.Sprintf("%d candidates", len(ranked)))
	if len(ranked) == 0 {
		r.logger.Warn("no candidates for step",
			zap.String("session_id", sess.ID),
			zap.String("step_id", step.ID),
			zap.String("target", step.Target))
	}
	return ranked
}

// SessionRun pairs one session with the runner that executes it. Each run
// needs its own runner because a driver serves a single session; the history
// store behind the runners may be shared, its implementations are safe for
// concurrent use.
type SessionRun struct {
	Runner      *Runner
	Session     *types.Session
	Precomputed map[string][]types.ScoredCandidate
}

// RunSessions executes independent sessions with bounded concurrency. Step
// order within each session stays strictly sequential.
func RunSessions(ctx context.Context, runs []SessionRun, limit int) error {
	if limit <= 0 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, run := range runs {
		run := run
		g.Go(func() error {
			run.Runner.Run(gctx, run.Session, run.Precomputed)
			return nil
		})
	}
	return g.Wait()
}

func lastCancelled(sess *types.Session) bool {
	if len(sess.Results) == 0 {
		return false
	}
	return sess.Results[len(sess.Results)-1].Status == types.StepCancelled
}
