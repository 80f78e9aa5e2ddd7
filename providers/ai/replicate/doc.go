// Package replicate implements [ai.ImageProvider] on top of Replicate's
// model predictions API, with input mapping for black-forest-labs/flux-schnell.
//
// Predictions are created with the "Prefer: wait" header so the reply carries
// the finished output. A prediction still running when the wait window ends is
// reported as an error; the package never polls.
package replicate
