// Package jobs defines the job and step data model shared by the job store,
// the workflow manager and the CLI.
//
// A job's status is derived from its steps' outcomes (Resolve) except for the
// user-initiated drafted to queued transition.
package jobs
