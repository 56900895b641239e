// Package events provides status stream implementations that mirror every
// task status update to consumers outside the process.
//
// Implementations:
//   - redis: Redis Streams, trimmed to an approximate maximum length
//   - memory: in-memory recorder for testing
package events
