// Package preflight provides readiness checks for the filesystem paths,
// external binaries and processors faceswap depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and refuses to poll the queue while
//     the jobs root is unusable.
//   - The CLI "faceswap doctor" command renders every result as a table.
//
// Processor checks call each processor's own pre-check; a failure there does
// not stop job creation, it only predicts that runs will fail.
package preflight
