// Package daemon coordinates the long-running faceswap queue worker.
//
// It wires configuration, the job store and the workflow manager into a
// single lifecycle with flock-based locking to prevent multiple instances
// from draining the same jobs root. While running it polls the queued
// partition and runs every job it finds, backing off after errors, and
// publishes per-job and per-pass notifications.
//
// Keep orchestration logic here: job transitions and step execution live in
// the workflow package while the daemon focuses on startup, shutdown and the
// poll cadence.
package daemon
