// Package generation defines the text-generation backend interface used to
// turn a composed briefing prompt into rider-facing prose.
package generation

import "context"

// Generator produces text from a prompt. Implementations bound output length
// and carry a request timeout; errors are returned to the caller, which owns
// the fail-soft policy.
type Generator interface {
	// Generate sends the prompt to the backend and returns the response text.
	Generate(ctx context.Context, prompt string) (string, error)

	// Name returns the backend name for logging.
	Name() string
}
