// Package orchestrator implements the video generation pipeline.
//
// The orchestrator manager coordinates task execution by:
//   - Validating generation requests
//   - Managing the task lifecycle (submit, status, cancel)
//   - Running the four stages in order on the worker pool
//   - Publishing a status update at every transition
//
// Cancellation is cooperative: the cancel flag is read from the task
// registry before each stage and never interrupts an in-flight call.
package orchestrator
