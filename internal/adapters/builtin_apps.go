package adapters

import (
	"context"
	"fmt"
	"sort"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"w3plex/internal/policies"
	"w3plex/internal/ports"
)

// ChainsApp reports the configured chains and their loaded tokens.
//
// Positional arguments name actions to run in order; without arguments it
// runs "list". The "list" action takes an optional "chains" filter
// template.
type ChainsApp struct{}

func (ChainsApp) Actions() map[string]ports.Action {
	return map[string]ports.Action{
		"list": listChains,
	}
}

func (ChainsApp) Run(ctx context.Context, env ports.AppEnv) error {
	if len(env.Args) == 0 {
		return listChains(ctx, env, env.Kwargs)
	}
	for _, name := range env.Args {
		action, ok := env.Actions[name]
		if !ok {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("application %s has no action %s", env.Name, name))
		}
		if err := action(ctx); err != nil {
			return err
		}
	}
	return nil
}

func listChains(ctx context.Context, env ports.AppEnv, kwargs map[string]any) error {
	template := policies.Wildcard
	if raw, ok := kwargs["chains"]; ok {
		value, ok := raw.(string)
		if !ok {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("chains filter must be a string")
		}
		template = value
	}
	filter, err := policies.NewChainFilter(template)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(env.Chains))
	for name := range env.Chains {
		names = append(names, name)
	}
	sort.Strings(names)
	logger := log.Ctx(ctx)
	listed := 0
	for _, name := range names {
		info := env.Chains[name].Info()
		if !filter.MatchChain(info) {
			continue
		}
		listed++
		tokens := env.Chains[name].Tokens()
		logger.Info().Str("chain", info.Name).Uint64("chain_id", info.ChainID).Int("tokens", len(tokens)).Msg("chain")
		for _, token := range tokens {
			logger.Info().
				Str("chain", info.Name).
				Str("alias", token.Alias).
				Str("symbol", token.Symbol).
				Str("address", token.Address).
				Int("decimals", token.Decimals).
				Msg("token")
		}
	}
	logger.Info().Str("app", env.Name).Int("chains", listed).Msg("chains listed")
	return nil
}

var _ ports.Application = ChainsApp{}
