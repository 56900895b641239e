// Package workers implements the supervised worker pool that runs pipeline
// jobs in the background.
//
// The worker pool manages a fixed number of goroutines that:
//   - Take jobs from a bounded queue (submitters never block)
//   - Recover from panics so a single job cannot take a worker down
//   - Drain queued jobs on shutdown, cancelling in-flight work only when the
//     shutdown deadline expires
//
// The health monitor tracks worker status and logs metrics.
package workers
