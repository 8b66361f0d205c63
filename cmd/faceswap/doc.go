// Package main hosts the faceswap CLI entrypoint and command graph.
//
// The Cobra-based command tree drives the job manager directly against the
// configured jobs root: creating and editing drafted jobs, submitting them,
// running and retrying queued work, and inspecting run history. It centralizes
// configuration resolution, logger setup and the cli-scoped settings view so
// subcommands can focus on argument handling and output.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
