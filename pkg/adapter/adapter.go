package adapter

import "context"

// Adapter defines the interface for LLM provider adapters. Adapters serve
// only the trigger classifier's tie-breaker; the routing engine itself never
// performs I/O.
type Adapter interface {
	// Complete sends a prompt to the model and returns the response text.
	Complete(ctx context.Context, model string, prompt string) (string, error)

	// Name returns the adapter's identifier.
	Name() string

	// Models returns the list of supported models.
	Models() []string
}
