package app

import (
	"context"
	"fmt"
	"sort"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"

	"w3plex/internal/core"
	"w3plex/internal/ports"
	"w3plex/internal/types"
)

const (
	applicationsKey = "applications"
	actionsKey      = "actions"
	actionBaseKey   = "action"
)

// AppBinding is an application bound to its configuration entry.
type AppBinding struct {
	Name        string
	Constructor string
	App         ports.Application
	// Config holds the entry's fields without the constructor key.
	Config *types.Mapping
}

func (b *AppBinding) Actions() map[string]ports.Action {
	return b.App.Actions()
}

func (b *AppBinding) Run(ctx context.Context, env ports.AppEnv) error {
	return b.App.Run(ctx, env)
}

// applicationsFactory binds every applications.<name> entry to the
// application its constructor key names.
func applicationsFactory(lookup ports.ConstructorLookup) core.Factory {
	return core.Factory{
		Name:      "applications",
		Predicate: core.MustMatchPattern(core.ApplicationsPattern),
		Classify:  core.Collection(types.CollectionApplications),
		Construct: func(ctx context.Context, node *types.Mapping, path string) (core.Result, error) {
			name := types.PathTail(path)
			assert.NotEmpty(ctx, name, "application name must be set")
			if !node.Has(types.ConstructorKey) {
				return core.Result{}, errbuilder.New().
					WithCode(errbuilder.CodeInvalidArgument).
					WithMsg(fmt.Sprintf("%s: field %s is required", name, types.ConstructorKey))
			}
			symbol, config, err := core.LookupSymbol(lookup, node, path)
			if err != nil {
				return core.Result{}, err
			}
			if symbol.Kind != types.SymbolApplication || symbol.Application == nil {
				return core.Result{}, errbuilder.New().
					WithCode(errbuilder.CodeInvalidArgument).
					WithMsg(fmt.Sprintf("%s: constructor %s is not an application", name, symbol.Name))
			}
			config.Freeze()
			return core.Constructed(&AppBinding{
				Name:        name,
				Constructor: symbol.Name,
				App:         symbol.Application,
				Config:      config,
			}), nil
		},
	}
}

// bindActions returns the application's actions plus the configured ones.
// A configured action binds its fields as kwargs to the action named by its
// "action" field, or to the action of the same name.
func bindActions(binding *AppBinding) (map[string]boundAction, error) {
	bound := map[string]boundAction{}
	base := binding.App.Actions()
	for name, action := range base {
		bound[name] = boundAction{action: action, kwargs: map[string]any{}}
	}

	raw, ok := binding.Config.Get(actionsKey)
	if !ok || raw == nil {
		return bound, nil
	}
	configured, ok := raw.(*types.Mapping)
	if !ok {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("%s.%s must be a mapping", binding.Name, actionsKey))
	}
	for _, name := range configured.Keys() {
		value, _ := configured.Get(name)
		kwargs := map[string]any{}
		switch fields := value.(type) {
		case nil:
		case *types.Mapping:
			kwargs = fields.ToMap()
		default:
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("%s.%s.%s must be a mapping", binding.Name, actionsKey, name))
		}
		baseName := name
		if rawBase, ok := kwargs[actionBaseKey]; ok {
			delete(kwargs, actionBaseKey)
			if value, ok := rawBase.(string); ok && strings.TrimSpace(value) != "" {
				baseName = strings.TrimSpace(value)
			}
		}
		action, ok := base[baseName]
		if !ok {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("application %s has no action %s to bind %s", binding.Name, baseName, name))
		}
		bound[name] = boundAction{action: action, kwargs: kwargs}
	}
	return bound, nil
}

type boundAction struct {
	action ports.Action
	kwargs map[string]any
}

func sortedActionNames(actions map[string]boundAction) []string {
	names := make([]string, 0, len(actions))
	for name := range actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
