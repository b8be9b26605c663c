package execution

import (
	"context"

	"parwrk/internal/domain"
)

// Executor runs a batch of examples and returns them with their results
// filled in.
type Executor interface {
	Execute(ctx context.Context, examples []domain.Example) []domain.Example
}
