// Package scheduler runs bounded-concurrency image generation batches over a
// project's storyboard segments.
//
// Segment failures are isolated: one bad generation marks its own segment
// failed and the rest of the batch continues. Cancellation reverts in-flight
// segments to idle, and a shadow quota counter keeps concurrent workers from
// overshooting the daily ceiling.
package scheduler
