// Package history journals job run attempts and per-step events in SQLite.
//
// The job store remains the source of truth for job status; history is an
// append-mostly audit trail read by `faceswap job history`. Schema changes
// are applied through embedded, ordered migrations.
package history
