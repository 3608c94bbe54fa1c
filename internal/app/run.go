package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"w3plex/internal/ports"
	"w3plex/internal/types"
)

// Run resolves the document, runs one application and finalizes every
// entity afterwards, whether or not the application failed.
func (s Service) Run(ctx context.Context, req RunRequest) (result RunResult, err error) {
	name := strings.TrimSpace(req.Application)
	if name == "" {
		return RunResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("application name is required")
	}
	ctx, sess, err := s.open(ctx, req.ConfigPath)
	if err != nil {
		return RunResult{}, err
	}
	defer func() {
		err = joinErrors(err, sess.Close(ctx))
	}()

	entity, ok := sess.tree.Entity(types.CollectionApplications, name)
	if !ok {
		return RunResult{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("application not found: " + name)
	}
	binding, ok := entity.(*AppBinding)
	if !ok {
		return RunResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("%s is not a configured application (%T)", name, entity))
	}
	actions, err := bindActions(binding)
	if err != nil {
		return RunResult{}, err
	}

	env := ports.AppEnv{
		Name:     name,
		Config:   binding.Config,
		Extras:   extrasOf(sess.tree.Root()),
		Chains:   sess.tree.Chains(),
		Services: sess.tree.Services(),
		Args:     req.Args,
		Kwargs:   appKwargs(binding.Config, req.Kwargs),
		Actions:  map[string]func(ctx context.Context) error{},
	}
	for actionName, bound := range actions {
		env.Actions[actionName] = func(ctx context.Context) error {
			actionCtx := log.Ctx(ctx).With().Str("action", actionName).Logger().WithContext(ctx)
			return bound.action(actionCtx, env, bound.kwargs)
		}
	}

	logger := log.Ctx(ctx).With().Str("application", name).Logger()
	ctx = logger.WithContext(ctx)
	logger.Info().Strs("args", req.Args).Msg("application started")
	if err := binding.Run(ctx, env); err != nil {
		return RunResult{}, err
	}
	logger.Info().Msg("application finished")
	return RunResult{Application: name, Actions: sortedActionNames(actions)}, nil
}

// extrasOf is the document without the applications section.
func extrasOf(root *types.Mapping) *types.Mapping {
	extras := types.NewMapping()
	for _, key := range root.Keys() {
		if key == applicationsKey {
			continue
		}
		value, _ := root.Get(key)
		_ = extras.Set(key, value)
	}
	extras.Freeze()
	return extras
}

// appKwargs overlays command line kwargs on the application's config
// fields. Dunder keys and the actions section are not kwargs.
func appKwargs(config *types.Mapping, cli map[string]string) map[string]any {
	kwargs := map[string]any{}
	for _, key := range config.Keys() {
		if strings.HasPrefix(key, "__") || key == actionsKey || key == applicationsKey {
			continue
		}
		value, _ := config.Get(key)
		kwargs[key] = value
	}
	for key, value := range cli {
		kwargs[key] = value
	}
	return kwargs
}
