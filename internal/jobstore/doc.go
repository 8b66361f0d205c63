// Package jobstore persists jobs as JSON records partitioned by status.
//
// Each job lives at <root>/<status>/<id>.json. A status change is a single
// rename between partition directories, so a crash leaves the record fully in
// one partition. The partition a record is found in is authoritative; the
// status field inside the record is refreshed on the next Update.
//
// Record writes go through a sibling temp file and a rename. Stray temp files
// left by a crash are removed by Init.
package jobstore
