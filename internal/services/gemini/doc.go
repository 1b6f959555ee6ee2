// Package gemini is the HTTP boundary to the Gemini generateContent API.
//
// It owns every retry policy in the system: storyboard planning retries only
// rate-limit failures, image generation additionally retries empty responses
// with a flat delay, and 404s abort immediately. Callers classify failures
// with Classify rather than sniffing error strings themselves.
package gemini
