// Package services defines shared utilities consumed by the job manager, the
// pipeline runner and the processor registry.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, step indexes, application contexts
//     and correlation identifiers for logging and configuration scoping.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the invalid-argument / invalid-state / not-found / processor
//     taxonomy callers branch on with errors.Is.
//
// Use these helpers when wiring new job or processor logic so operational
// behaviour (error handling, observability) stays uniform across the pipeline.
package services
