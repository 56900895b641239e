// Package llm provides content generator implementations backed by large
// language models.
//
// The factory creates a generator based on provider configuration.
// Currently supports:
//   - Anthropic Claude
package llm
