package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/webpilot/selector"
	"github.com/BaSui01/webpilot/types"
)

func checkoutSnapshot() *types.Snapshot {
	return &types.Snapshot{
		URL: "https://shop.example.com/checkout",
		Elements: []types.ElementRecord{
			{
				ID: "el-name", Tag: "input", AriaLabel: "Full name", Visible: true,
				Candidates: []types.SelectorCandidate{
					{Expr: "#name", Kind: types.SelectorCSS, Provenance: types.ProvenanceID},
				},
			},
			{
				ID: "el-submit", Tag: "button", Text: "Place order", Visible: true,
				Candidates: []types.SelectorCandidate{
					{Expr: "#submit", Kind: types.SelectorCSS, Provenance: types.ProvenanceID},
					{Expr: ".checkout-submit", Kind: types.SelectorCSS, Provenance: types.ProvenanceClass},
				},
			},
		},
	}
}

func newTestRunner(t *testing.T, driver Driver, cfg Config, reporter ProgressReporter) *Runner {
	t.Helper()
	if reporter == nil {
		reporter = NopReporter{}
	}
	logger := zaptest.NewLogger(t)
	engine := NewEngine(driver, nil, reporter, nil, cfg, logger)
	ranker := selector.NewRanker(selector.DefaultConfig(), nil, logger)
	return NewRunner(engine, ranker, logger)
}

func TestRunner_RunsAllStepsInOrder(t *testing.T) {
	driver := newFakeDriver()
	runner := newTestRunner(t, driver, fastConfig(), nil)

	sess := NewSession(checkoutSnapshot(), []types.SemanticStep{
		{ID: "s1", Action: types.ActionType, Target: "full name", Value: "Ada"},
		{ID: "s2", Action: types.ActionClick, Target: "place order"},
	})
	runner.Run(context.Background(), sess, nil)

	assert.Equal(t, types.SessionCompleted, sess.Status)
	require.Len(t, sess.Results, 2)
	assert.Equal(t, "s1", sess.Results[0].StepID)
	assert.Equal(t, "s2", sess.Results[1].StepID)
	assert.True(t, sess.Results[0].OK())
	assert.True(t, sess.Results[1].OK())
	assert.Equal(t, []string{"type:#name", "click:#submit"}, driver.callLog())

	sum := sess.Summarize()
	assert.Equal(t, 2, sum.Passed)
	assert.Equal(t, 0, sum.Failed)
}

func TestRunner_ContinueOnFailure(t *testing.T) {
	driver := newFakeDriver()
	driver.fail["#name"] = NewDriverError("type", DriverActionFailed, errBoom)
	runner := newTestRunner(t, driver, fastConfig(), nil)

	sess := NewSession(checkoutSnapshot(), []types.SemanticStep{
		{ID: "s1", Action: types.ActionType, Target: "full name", Value: "Ada"},
		{ID: "s2", Action: types.ActionClick, Target: "place order"},
	})
	runner.Run(context.Background(), sess, nil)

	assert.Equal(t, types.SessionCompleted, sess.Status)
	require.Len(t, sess.Results, 2)
	assert.Equal(t, types.StepFailed, sess.Results[0].Status)
	assert.True(t, sess.Results[1].OK(), "later steps still run")
}

func TestRunner_StopOnFailure(t *testing.T) {
	driver := newFakeDriver()
	driver.fail["#name"] = NewDriverError("type", DriverActionFailed, errBoom)
	cfg := fastConfig()
	cfg.ContinueOnFailure = false
	runner := newTestRunner(t, driver, cfg, nil)

	sess := NewSession(checkoutSnapshot(), []types.SemanticStep{
		{ID: "s1", Action: types.ActionType, Target: "full name", Value: "Ada"},
		{ID: "s2", Action: types.ActionClick, Target: "place order"},
	})
	runner.Run(context.Background(), sess, nil)

	require.Len(t, sess.Results, 1, "session stops after the failed step")
	assert.Equal(t, types.StepFailed, sess.Results[0].Status)
}

func TestRunner_CancellationStopsSession(t *testing.T) {
	driver := newFakeDriver()
	runner := newTestRunner(t, driver, fastConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sess := NewSession(checkoutSnapshot(), []types.SemanticStep{
		{ID: "s1", Action: types.ActionType, Target: "full name", Value: "Ada"},
		{ID: "s2", Action: types.ActionClick, Target: "place order"},
	})
	runner.Run(ctx, sess, nil)

	assert.Equal(t, types.SessionCancelled, sess.Status)
	require.NotEmpty(t, sess.Results)
	assert.Equal(t, types.StepCancelled, sess.Results[0].Status)
	assert.Less(t, len(sess.Results), 2, "no step starts after cancellation")
	assert.Empty(t, driver.callLog(), "no live actions after cancellation")
}

func TestRunner_PrecomputedCandidatesAreRanked(t *testing.T) {
	driver := newFakeDriver()
	runner := newTestRunner(t, driver, fastConfig(), nil)

	// Supplied out of order and unranked; Rank must reorder by provenance.
	precomputed := map[string][]types.ScoredCandidate{
		"s1": {
			{Candidate: types.SelectorCandidate{Expr: "div.x > button", Provenance: types.ProvenancePath}, Structural: 0.5, Spatial: 0.5},
			{Candidate: types.SelectorCandidate{Expr: "#direct", Provenance: types.ProvenanceID}, Structural: 0.9, Spatial: 0.9},
		},
	}

	sess := NewSession(checkoutSnapshot(), []types.SemanticStep{
		{ID: "s1", Action: types.ActionClick, Target: "anything at all"},
	})
	runner.Run(context.Background(), sess, precomputed)

	require.Len(t, sess.Results, 1)
	assert.True(t, sess.Results[0].OK())
	assert.Equal(t, []string{"click:#direct"}, driver.callLog())
}

func TestRunner_EmitsProgressPhases(t *testing.T) {
	driver := newFakeDriver()
	reporter := NewChannelReporter(64)
	runner := newTestRunner(t, driver, fastConfig(), reporter)

	sess := NewSession(checkoutSnapshot(), []types.SemanticStep{
		{ID: "s1", Action: types.ActionClick, Target: "place order"},
	})
	runner.Run(context.Background(), sess, nil)
	reporter.Close()

	var phases []ProgressPhase
	for event := range reporter.Events() {
		phases = append(phases, event.Phase)
		assert.Equal(t, sess.ID, event.SessionID)
	}
	assert.Equal(t, []ProgressPhase{
		PhaseSelecting, PhaseSelected, PhaseExecuting,
		PhaseAttempting, PhaseStepComplete, PhaseSessionComplete,
	}, phases)
}

func TestRunSessions_BoundedConcurrency(t *testing.T) {
	runs := make([]SessionRun, 3)
	drivers := make([]*fakeDriver, 3)
	for i := range runs {
		drivers[i] = newFakeDriver()
		runs[i] = SessionRun{
			Runner: newTestRunner(t, drivers[i], fastConfig(), nil),
			Session: NewSession(checkoutSnapshot(), []types.SemanticStep{
				{ID: "s1", Action: types.ActionClick, Target: "place order"},
			}),
		}
	}

	require.NoError(t, RunSessions(context.Background(), runs, 2))
	for i, run := range runs {
		assert.Equal(t, types.SessionCompleted, run.Session.Status, "session %d", i)
		assert.Equal(t, []string{"click:#submit"}, drivers[i].callLog())
	}
}
