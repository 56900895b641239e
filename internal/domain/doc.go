// Package domain holds the types shared by the generation pipeline: tasks and
// their lifecycle, status updates, the tagged content records passed between
// stages, and the sentinel errors used across adapters.
package domain
