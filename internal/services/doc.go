// Package services defines shared error markers consumed by the pipeline
// components and the CLI.
//
// The sentinel errors classify failures into the categories the orchestration
// layer cares about: user-fixable validation problems, quota exhaustion,
// cancellation, and everything else. Wrap tags an error with one of those
// markers plus component context so callers can branch with errors.Is while
// still printing a useful message.
package services
