package ports

import "context"

// Initializer is implemented by entities that need asynchronous setup
// right after construction.
type Initializer interface {
	Init(ctx context.Context) error
}

// Finalizer is implemented by entities holding resources that the owner of
// the config tree releases when the run ends.
type Finalizer interface {
	Finalize(ctx context.Context) error
}
