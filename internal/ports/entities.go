package ports

import "context"

type Service interface {
	Initializer
	Finalizer
}

type Filter interface {
	Match(value string) bool
}

type Loader interface {
	Load(ctx context.Context) ([]string, error)
}

type Condition interface {
	Check(ctx context.Context) (bool, error)
}
