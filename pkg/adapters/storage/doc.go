// Package storage provides task registry implementations.
//
// Implementations:
//   - redis: JSON task records with per-task optimistic transactions, safe to
//     share between orchestrator instances
//   - memory: single-process registry with per-task locking
package storage
