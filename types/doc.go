// Package types provides the shared data model for the webpilot core:
// page snapshots, selector candidates, semantic steps, and execution results.
//
// The types package is the lowest-level package with no internal dependencies,
// so placing the shared model here avoids circular imports between the
// selector, history, and executor packages.
package types
