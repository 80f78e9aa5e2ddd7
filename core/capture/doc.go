// Package capture records audio from a stream until the user asks it to stop.
//
// A Session reads its source in a background goroutine that owns the buffer
// while recording and reads until the source reports an error. The only state
// shared with the caller is an atomic stop flag: Stop raises it, closes the
// source to end the stream, waits for the goroutine to drain what is left and
// then hands the buffer over.
//
// The source is usually an external recorder started with [Command], for
// example arecord writing raw PCM to stdout. [EncodeWAV] wraps that PCM in a
// WAV container suitable for transcription uploads.
package capture
