package types

// Token is ERC-20 metadata preloaded for a chain under an alias.
type Token struct {
	Alias    string
	Address  string
	Symbol   string
	Decimals int
}

// ChainInfo describes an established chain connection.
type ChainInfo struct {
	Name    string
	ChainID uint64
	RPC     string
}
