// Package publisher implements the single write path for task status.
//
// Every update is first applied to the task registry and only then
// forwarded: to the observer bound to the task (at most one per task id) and
// to the status stream. Forwarding failures are logged and drop the observer;
// they never reach the caller.
package publisher
