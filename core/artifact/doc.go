// Package artifact stores the files a program produces: JSON results,
// generated images, synthesized audio and text transcripts.
//
// Every destination implements [Sink]. [FileSink] writes to a directory,
// [S3Sink] uploads to an S3 compatible bucket and [MemorySink] keeps
// short-lived entries in memory for the web UI.
package artifact
