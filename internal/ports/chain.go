package ports

import (
	"context"

	"w3plex/internal/types"
)

type Chain interface {
	Info() types.ChainInfo
	LoadToken(ctx context.Context, address string, alias string) (types.Token, error)
	Token(alias string) (types.Token, bool)
	Tokens() []types.Token
}

// ChainDialer establishes a chain connection named after the last path
// segment of its configuration node.
type ChainDialer interface {
	Dial(ctx context.Context, name string, args *types.Mapping) (Chain, error)
}
