package worker

import (
	"context"
)

// Worker is a long-running stream consumer managed by WorkerManager.
type Worker interface {
	// Start blocks until ctx is cancelled or Stop is called.
	Start(ctx context.Context) error

	Stop() error

	Name() string
}
