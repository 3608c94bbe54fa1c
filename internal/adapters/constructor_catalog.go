package adapters

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/afero"

	"w3plex/internal/core"
	"w3plex/internal/policies"
	"w3plex/internal/ports"
	"w3plex/internal/types"
)

// Names of the constructors every catalog built by NewDefaultCatalog knows.
const (
	ProxyServiceConstructor   = "w3plex:ProxyService"
	FileLoaderConstructor     = "w3plex:FileLoader"
	TemplateFilterConstructor = "w3plex:TemplateFilter"
	ChainFilterConstructor    = "w3plex:ChainFilter"
	ChainConstructor          = "w3plex:Chain"
	ChainsApplication         = "w3plex:chains"
)

// ConstructorCatalog maps constructor names used in __init__ to symbols.
type ConstructorCatalog struct {
	mu      sync.RWMutex
	symbols map[string]ports.Symbol
}

func NewConstructorCatalog() *ConstructorCatalog {
	return &ConstructorCatalog{symbols: map[string]ports.Symbol{}}
}

// NewDefaultCatalog registers the built-in constructors. Chains declared
// with w3plex:Chain connect through dialer.
func NewDefaultCatalog(fs afero.Fs, dialer ports.ChainDialer) (*ConstructorCatalog, error) {
	catalog := NewConstructorCatalog()
	entities := map[string]ports.Constructor{
		ProxyServiceConstructor:   NewProxyServiceConstructor(fs),
		FileLoaderConstructor:     NewFileLoaderConstructor(fs),
		TemplateFilterConstructor: templateFilterConstructor,
		ChainFilterConstructor:    chainFilterConstructor,
	}
	for name, construct := range entities {
		if err := catalog.RegisterEntity(name, construct); err != nil {
			return nil, err
		}
	}
	if err := catalog.RegisterChain(ChainConstructor, dialer); err != nil {
		return nil, err
	}
	if err := catalog.RegisterApplication(ChainsApplication, ChainsApp{}); err != nil {
		return nil, err
	}
	return catalog, nil
}

func (c *ConstructorCatalog) RegisterEntity(name string, construct ports.Constructor) error {
	if construct == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("constructor " + name + " is nil")
	}
	return c.register(ports.Symbol{Name: name, Kind: types.SymbolEntity, Construct: construct})
}

func (c *ConstructorCatalog) RegisterChain(name string, dialer ports.ChainDialer) error {
	if dialer == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("chain constructor " + name + " has no dialer")
	}
	return c.register(ports.Symbol{Name: name, Kind: types.SymbolChain, Dialer: dialer})
}

func (c *ConstructorCatalog) RegisterApplication(name string, app ports.Application) error {
	if app == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("application " + name + " is nil")
	}
	return c.register(ports.Symbol{Name: name, Kind: types.SymbolApplication, Application: app})
}

func (c *ConstructorCatalog) register(symbol ports.Symbol) error {
	name := strings.TrimSpace(symbol.Name)
	if name == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("constructor name is empty")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.symbols[name]; exists {
		return errbuilder.New().
			WithCode(errbuilder.CodeAlreadyExists).
			WithMsg("constructor already registered: " + name)
	}
	symbol.Name = name
	c.symbols[name] = symbol
	return nil
}

func (c *ConstructorCatalog) Lookup(name string) (ports.Symbol, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	symbol, ok := c.symbols[name]
	return symbol, ok
}

// Names returns the registered constructor names, sorted.
func (c *ConstructorCatalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.symbols))
	for name := range c.symbols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type filterArgs struct {
	Template string `mapstructure:"template"`
}

func templateFilterConstructor(ctx context.Context, args *types.Mapping) (any, error) {
	var cfg filterArgs
	if err := core.DecodeArgs(args, &cfg); err != nil {
		return nil, err
	}
	return policies.NewTemplateFilter(cfg.Template)
}

func chainFilterConstructor(ctx context.Context, args *types.Mapping) (any, error) {
	var cfg filterArgs
	if err := core.DecodeArgs(args, &cfg); err != nil {
		return nil, err
	}
	return policies.NewChainFilter(cfg.Template)
}

var _ ports.ConstructorLookup = (*ConstructorCatalog)(nil)
