// Package state implements the process-wide Configuration Store.
//
// Values live in separate namespaces per invocation scope (cli or ui) so an
// interactive session and a batch run never observe each other's choices.
// Reads of a key that was never written return Unset instead of a zero value.
package state
