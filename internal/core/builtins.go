package core

import (
	"context"
	"fmt"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"w3plex/internal/ports"
	"w3plex/internal/types"
)

const (
	// ChainsPattern matches a single segment under chains.
	ChainsPattern = `^chains\.[^.]+$`
	// ApplicationsPattern matches a single segment under applications.
	ApplicationsPattern = `^applications\.[^.]+$`
	// TokensKey holds the alias to address mapping preloaded on a chain.
	TokensKey = "erc20"
)

// RegisterBuiltins registers the generic entity factory and the chain
// factory. The chain factory is registered last so it is tried first.
func RegisterBuiltins(registry *FactoryRegistry, lookup ports.ConstructorLookup, dialer ports.ChainDialer) error {
	if lookup == nil || dialer == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("built-in factories require a constructor lookup and a chain dialer")
	}
	b := builtins{lookup: lookup, dialer: dialer}
	if err := registry.Register(Factory{
		Name:      "entity",
		Predicate: HasKey(types.ConstructorKey),
		Construct: b.constructEntity,
		Classify:  ClassifyEntity,
	}); err != nil {
		return err
	}
	return registry.Register(Factory{
		Name:      "chain",
		Predicate: MustMatchPattern(ChainsPattern),
		Construct: b.constructChain,
		Classify:  Collection(types.CollectionChains),
	})
}

// ClassifyEntity picks the collection of an entity from the interfaces it
// implements.
func ClassifyEntity(entity any) types.Collection {
	switch entity.(type) {
	case ports.Chain:
		return types.CollectionChains
	case ports.Service:
		return types.CollectionServices
	case ports.Filter:
		return types.CollectionFilters
	case ports.Loader:
		return types.CollectionLoaders
	case ports.Condition:
		return types.CollectionConditions
	default:
		return types.CollectionNone
	}
}

type builtins struct {
	lookup ports.ConstructorLookup
	dialer ports.ChainDialer
}

func (b builtins) constructEntity(ctx context.Context, node *types.Mapping, path string) (Result, error) {
	symbol, args, err := LookupSymbol(b.lookup, node, path)
	if err != nil {
		return Result{}, err
	}
	switch symbol.Kind {
	case types.SymbolApplication:
		return NotApplicable(), nil
	case types.SymbolChain:
		chain, err := ConnectChain(ctx, symbol.Dialer, path, args)
		if err != nil {
			return Result{}, err
		}
		return Constructed(chain), nil
	}
	if symbol.Construct == nil {
		return Result{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("constructor %s at %s has no entity constructor", symbol.Name, path))
	}
	entity, err := symbol.Construct(ctx, args)
	if err != nil {
		return Result{}, err
	}
	if entity == nil {
		return PlainValue(), nil
	}
	if initializer, ok := entity.(ports.Initializer); ok {
		if err := initializer.Init(ctx); err != nil {
			return Result{}, err
		}
	}
	log.Ctx(ctx).Debug().Str("path", path).Str("constructor", symbol.Name).Msg("entity initialized")
	return Constructed(entity), nil
}

func (b builtins) constructChain(ctx context.Context, node *types.Mapping, path string) (Result, error) {
	if node.Has(types.ConstructorKey) {
		// The entity factory resolves the named chain constructor.
		return NotApplicable(), nil
	}
	chain, err := ConnectChain(ctx, b.dialer, path, node.Clone())
	if err != nil {
		return Result{}, err
	}
	return Constructed(chain), nil
}

// LookupSymbol resolves the constructor named by node's constructor key and
// returns it with the remaining fields as keyword arguments.
func LookupSymbol(lookup ports.ConstructorLookup, node *types.Mapping, path string) (ports.Symbol, *types.Mapping, error) {
	name, ok := node.String(types.ConstructorKey)
	if !ok || strings.TrimSpace(name) == "" {
		return ports.Symbol{}, nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("%s: field %s must name a constructor", path, types.ConstructorKey))
	}
	symbol, ok := lookup.Lookup(strings.TrimSpace(name))
	if !ok {
		return ports.Symbol{}, nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("%s: unknown constructor %s", path, name))
	}
	args := node.Clone()
	_ = args.Delete(types.ConstructorKey)
	return symbol, args, nil
}

// ConnectChain dials the chain named after the path tail and preloads the
// tokens listed under erc20 concurrently.
func ConnectChain(ctx context.Context, dialer ports.ChainDialer, path string, args *types.Mapping) (ports.Chain, error) {
	name := types.PathTail(path)
	assert.NotEmpty(ctx, name, "chain name must be set")
	if dialer == nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("%s: no chain dialer configured", path))
	}
	tokens, err := takeTokens(args, path)
	if err != nil {
		return nil, err
	}
	chain, err := dialer.Dial(ctx, name, args)
	if err != nil {
		return nil, err
	}
	if tokens.Len() == 0 {
		return chain, nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, alias := range tokens.Keys() {
		address, _ := tokens.String(alias)
		group.Go(func() error {
			_, err := chain.LoadToken(groupCtx, address, alias)
			return err
		})
	}
	if err := group.Wait(); err != nil {
		if finalizer, ok := chain.(ports.Finalizer); ok {
			if finalizeErr := finalizer.Finalize(ctx); finalizeErr != nil {
				log.Ctx(ctx).Warn().Err(finalizeErr).Str("chain", name).Msg("chain finalize failed")
			}
		}
		return nil, err
	}
	log.Ctx(ctx).Debug().Str("chain", name).Int("tokens", tokens.Len()).Msg("chain tokens preloaded")
	return chain, nil
}

func takeTokens(args *types.Mapping, path string) (*types.Mapping, error) {
	raw, ok := args.Get(TokensKey)
	if !ok {
		return types.NewMapping(), nil
	}
	_ = args.Delete(TokensKey)
	if raw == nil {
		return types.NewMapping(), nil
	}
	tokens, ok := raw.(*types.Mapping)
	if !ok {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("%s.%s must map token aliases to addresses", path, TokensKey))
	}
	for _, alias := range tokens.Keys() {
		if _, ok := tokens.String(alias); !ok {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("%s.%s.%s must be a token address", path, TokensKey, alias))
		}
	}
	return tokens, nil
}
