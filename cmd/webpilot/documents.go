package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/BaSui01/webpilot/selector"
	"github.com/BaSui01/webpilot/types"
)

// stepsDocument is the steps input file. A bare JSON array of steps is
// accepted as well.
type stepsDocument struct {
	Steps []types.SemanticStep `json:"steps"`
}

// candidatesDocument is the optional precomputed candidates file, keyed by
// step ID. A bare JSON object of the same shape is accepted as well.
type candidatesDocument struct {
	Candidates map[string][]types.ScoredCandidate `json:"candidates"`
}

// loadDocuments reads and validates the three input documents. The
// candidates path may be empty.
func loadDocuments(snapshotPath, stepsPath, candidatesPath string) (*types.Snapshot, []types.SemanticStep, map[string][]types.ScoredCandidate, error) {
	var snap types.Snapshot
	if err := readJSON(snapshotPath, &snap); err != nil {
		return nil, nil, nil, fmt.Errorf("snapshot document: %w", err)
	}
	if len(snap.Elements) == 0 {
		return nil, nil, nil, fmt.Errorf("snapshot document %s contains no elements", snapshotPath)
	}

	steps, err := loadSteps(stepsPath)
	if err != nil {
		return nil, nil, nil, err
	}

	var precomputed map[string][]types.ScoredCandidate
	if candidatesPath != "" {
		precomputed, err = loadCandidates(candidatesPath)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	return &snap, steps, precomputed, nil
}

func loadSteps(path string) ([]types.SemanticStep, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("steps document: %w", err)
	}

	var doc stepsDocument
	if err := json.Unmarshal(data, &doc); err != nil || len(doc.Steps) == 0 {
		var bare []types.SemanticStep
		if bareErr := json.Unmarshal(data, &bare); bareErr != nil {
			return nil, fmt.Errorf("steps document %s: %w", path, firstErr(err, bareErr))
		}
		doc.Steps = bare
	}
	if len(doc.Steps) == 0 {
		return nil, fmt.Errorf("steps document %s contains no steps", path)
	}

	for i, step := range doc.Steps {
		if step.ID == "" {
			return nil, fmt.Errorf("steps document %s: step %d has no step_id", path, i)
		}
		if step.Action.NeedsCandidates() && step.Target == "" {
			return nil, fmt.Errorf("steps document %s: step %s has action %s but no target", path, step.ID, step.Action)
		}
	}
	return doc.Steps, nil
}

func loadCandidates(path string) (map[string][]types.ScoredCandidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("candidates document: %w", err)
	}

	var doc candidatesDocument
	if err := json.Unmarshal(data, &doc); err != nil || doc.Candidates == nil {
		var bare map[string][]types.ScoredCandidate
		if bareErr := json.Unmarshal(data, &bare); bareErr != nil {
			return nil, fmt.Errorf("candidates document %s: %w", path, firstErr(err, bareErr))
		}
		doc.Candidates = bare
	}
	return doc.Candidates, nil
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// reports
// =============================================================================

type stepRanking struct {
	StepID     string                  `json:"step_id"`
	Target     string                  `json:"target,omitempty"`
	Candidates []types.ScoredCandidate `json:"candidates"`
}

type rankingReport struct {
	URL   string        `json:"url"`
	Steps []stepRanking `json:"steps"`
}

// rankReport ranks every candidate-taking step without touching a browser.
func rankReport(ranker *selector.Ranker, snap *types.Snapshot, steps []types.SemanticStep, precomputed map[string][]types.ScoredCandidate) rankingReport {
	report := rankingReport{URL: snap.URL}
	ctx := context.Background()

	for i := range steps {
		step := steps[i]
		if !step.Action.NeedsCandidates() {
			continue
		}

		var ranked []types.ScoredCandidate
		if pre, ok := precomputed[step.ID]; ok {
			ranked = ranker.Rank(pre)
		} else {
			ranked = ranker.SelectStep(ctx, snap, &step)
		}
		report.Steps = append(report.Steps, stepRanking{
			StepID:     step.ID,
			Target:     step.Target,
			Candidates: ranked,
		})
	}
	return report
}

type sessionReportDoc struct {
	SessionID string                  `json:"session_id"`
	Status    types.SessionStatus     `json:"status"`
	Summary   types.Summary           `json:"summary"`
	Results   []types.ExecutionResult `json:"results"`
}

func sessionReport(sess *types.Session) sessionReportDoc {
	return sessionReportDoc{
		SessionID: sess.ID,
		Status:    sess.Status,
		Summary:   sess.Summarize(),
		Results:   sess.Results,
	}
}

// writeReport marshals the report to the output path, or stdout when the
// path is empty.
func writeReport(report any, output string) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode report: %v\n", err)
		os.Exit(1)
	}
	data = append(data, '\n')

	if output == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write report: %v\n", err)
		os.Exit(1)
	}
}
