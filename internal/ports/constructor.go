package ports

import (
	"context"

	"w3plex/internal/types"
)

// Constructor builds an entity from the keyword arguments of an entity
// specification (the mapping without its constructor key).
type Constructor func(ctx context.Context, args *types.Mapping) (any, error)

// Symbol is a named constructor resolved by a ConstructorLookup. Exactly
// one of Construct, Dialer or Application is set, according to Kind.
type Symbol struct {
	Name        string
	Kind        types.SymbolKind
	Construct   Constructor
	Dialer      ChainDialer
	Application Application
}

// ConstructorLookup maps constructor names such as "w3plex:ProxyService"
// to symbols.
type ConstructorLookup interface {
	Lookup(name string) (Symbol, bool)
}
