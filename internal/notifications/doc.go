// Package notifications delivers job events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when no topic is set. The daemon
// publishes job completion, job failure and queue pass summaries; callers
// depend only on the Service interface.
package notifications
