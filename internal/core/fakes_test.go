package core

import (
	"context"
	"sort"
	"strings"
	"sync"

	"w3plex/internal/ports"
	"w3plex/internal/types"
)

type fakeService struct {
	args        map[string]any
	initialized bool
	finalized   bool
	finalizeErr error
}

func (s *fakeService) Init(ctx context.Context) error {
	s.initialized = true
	return nil
}

func (s *fakeService) Finalize(ctx context.Context) error {
	s.finalized = true
	return s.finalizeErr
}

type fakeFilter struct{ prefix string }

func (f fakeFilter) Match(value string) bool { return strings.HasPrefix(value, f.prefix) }

type fakeApp struct{}

func (fakeApp) Actions() map[string]ports.Action                 { return nil }
func (fakeApp) Run(ctx context.Context, env ports.AppEnv) error { return nil }

type fakeChain struct {
	info types.ChainInfo
	args map[string]any

	mu     sync.Mutex
	tokens map[string]types.Token
}

func (c *fakeChain) Info() types.ChainInfo { return c.info }

func (c *fakeChain) LoadToken(ctx context.Context, address string, alias string) (types.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	token := types.Token{Alias: alias, Address: address, Symbol: strings.ToUpper(alias), Decimals: 18}
	c.tokens[alias] = token
	return token, nil
}

func (c *fakeChain) Token(alias string) (types.Token, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	token, ok := c.tokens[alias]
	return token, ok
}

func (c *fakeChain) Tokens() []types.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.Token, 0, len(c.tokens))
	for _, token := range c.tokens {
		out = append(out, token)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Alias < out[j].Alias })
	return out
}

type fakeDialer struct {
	mu    sync.Mutex
	names []string
	err   error
}

func (d *fakeDialer) Dial(ctx context.Context, name string, args *types.Mapping) (ports.Chain, error) {
	d.mu.Lock()
	d.names = append(d.names, name)
	d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	rpc, _ := args.String("rpc")
	return &fakeChain{
		info:   types.ChainInfo{Name: name, ChainID: 1, RPC: rpc},
		args:   args.ToMap(),
		tokens: map[string]types.Token{},
	}, nil
}

type fakeLookup map[string]ports.Symbol

func (l fakeLookup) Lookup(name string) (ports.Symbol, bool) {
	symbol, ok := l[name]
	return symbol, ok
}

// newTestLoader returns a loader with the built-in factories and a lookup
// knowing test:Service, test:Filter, test:Chain and test:App.
func newTestLoader(dialer *fakeDialer, opts ...LoaderOption) (*ConfigLoader, error) {
	lookup := fakeLookup{
		"test:Service": {Name: "test:Service", Kind: types.SymbolEntity, Construct: func(ctx context.Context, args *types.Mapping) (any, error) {
			return &fakeService{args: args.ToMap()}, nil
		}},
		"test:Filter": {Name: "test:Filter", Kind: types.SymbolEntity, Construct: func(ctx context.Context, args *types.Mapping) (any, error) {
			prefix, _ := args.String("prefix")
			return fakeFilter{prefix: prefix}, nil
		}},
		"test:Nothing": {Name: "test:Nothing", Kind: types.SymbolEntity, Construct: func(ctx context.Context, args *types.Mapping) (any, error) {
			return nil, nil
		}},
		"test:Chain": {Name: "test:Chain", Kind: types.SymbolChain, Dialer: dialer},
		"test:App":   {Name: "test:App", Kind: types.SymbolApplication, Application: fakeApp{}},
	}
	registry := NewFactoryRegistry()
	if err := RegisterBuiltins(registry, lookup, dialer); err != nil {
		return nil, err
	}
	return NewConfigLoader(registry, opts...), nil
}
