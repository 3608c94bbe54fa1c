package ports

import (
	"context"

	"w3plex/internal/types"
)

// Action is a named step of an application. kwargs are the fields of the
// configured action that bound it.
type Action func(ctx context.Context, env AppEnv, kwargs map[string]any) error

type Application interface {
	Actions() map[string]Action
	Run(ctx context.Context, env AppEnv) error
}

// AppEnv is what an application sees while it runs. Kwargs holds the
// application's config fields overlaid by command line key=value pairs;
// Actions holds every action with its configured kwargs already bound.
type AppEnv struct {
	Name     string
	Config   *types.Mapping
	Extras   *types.Mapping
	Chains   map[string]Chain
	Services map[string]Service
	Args     []string
	Kwargs   map[string]any
	Actions  map[string]func(ctx context.Context) error
}
