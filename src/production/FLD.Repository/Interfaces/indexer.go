package interfaces

import "context"

// Indexer is implemented by repositories whose collections need indexes
// before the service starts. EnsureIndexes must be idempotent.
type Indexer interface {
	EnsureIndexes(ctx context.Context) error
}
