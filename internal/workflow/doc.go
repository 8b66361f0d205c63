// Package workflow implements the job lifecycle state machine.
//
// The Manager validates and applies user transitions (create, edit steps,
// submit, unsubmit, delete), then runs queued jobs step by step through the
// pipeline runner. Step outcomes decide the terminal status: completed when
// every step succeeded, failed when any step failed. With halt-on-error the
// steps after a failure are recorded as failed without running.
//
// The job store is the only holder of job status; the Manager re-reads it on
// every operation. A per-job file lock plus an in-process active set reject a
// second concurrent run of the same job. Cancellation is honoured between
// steps; the step in flight always finishes.
package workflow
