// Package websocket provides real-time task status streaming via WebSocket.
//
// Clients connect to /ws/tasks/:id and receive the current task state
// followed by every status update until the task reaches a terminal state.
// A second connection for the same task replaces the first.
package websocket
