// Package director turns a parsed subtitle script into a hydrated storyboard.
//
// The model plans segments as groups of subtitle ids; the director resolves
// those ids back to cue timings, closes timeline gaps so segments are
// contiguous, enforces the minimum duration, and sanitizes reference indexes
// before anything is persisted. Prompt text for the model also lives here.
package director
