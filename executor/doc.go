// Package executor drives ranked selector candidates against a live page.
//
// The engine runs one bounded, sequential attempt loop per semantic step:
// each candidate gets a primary driver invocation plus one in-place
// script-dispatch fallback, followed by the step's validators. The first
// candidate that acts and validates marks the step successful and records
// the selector in the history store; exhausting all candidates captures a
// diagnostic artifact and fails the step. Cancellation is cooperative and
// observed between attempts.
package executor
