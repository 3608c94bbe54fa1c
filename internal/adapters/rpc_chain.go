package adapters

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"w3plex/internal/core"
	"w3plex/internal/ports"
	"w3plex/internal/shared"
	"w3plex/internal/types"
)

const (
	defaultRPCTimeout    = 10 * time.Second
	defaultRPCRetries    = 2
	defaultRPCRetryDelay = 200 * time.Millisecond
	maxRPCRetryDelay     = 2 * time.Second

	selectorDecimals = "0x313ce567"
	selectorSymbol   = "0x95d89b41"
)

// RPCChainArgs are the fields of a chain entry.
type RPCChainArgs struct {
	RPC     string         `mapstructure:"rpc"`
	ChainID uint64         `mapstructure:"chain_id"`
	Timeout time.Duration  `mapstructure:"timeout"`
	Retries *int           `mapstructure:"retries"`
	Extras  map[string]any `mapstructure:",remain"`
}

// RPCChainDialer connects to EVM chains over JSON-RPC.
type RPCChainDialer struct {
	client *resty.Client
}

func NewRPCChainDialer() RPCChainDialer {
	return RPCChainDialer{}
}

// NewRPCChainDialerWithClient shares client between every dialed chain.
func NewRPCChainDialerWithClient(client *resty.Client) RPCChainDialer {
	return RPCChainDialer{client: client}
}

func (d RPCChainDialer) Dial(ctx context.Context, name string, args *types.Mapping) (ports.Chain, error) {
	var cfg RPCChainArgs
	if err := core.DecodeArgs(args, &cfg); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid chain config: " + name).
			WithCause(err)
	}
	if strings.TrimSpace(cfg.RPC) == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("chain " + name + " has no rpc url")
	}

	client := d.client
	if client == nil {
		client = newRPCClient(cfg)
	}
	chain := &RPCChain{
		client: client,
		info:   types.ChainInfo{Name: name, RPC: cfg.RPC},
		tokens: map[string]types.Token{},
	}

	var raw string
	if err := chain.call(ctx, "eth_chainId", []any{}, &raw); err != nil {
		return nil, err
	}
	id, err := parseQuantity(raw)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("invalid eth_chainId response from " + name).
			WithCause(err)
	}
	if cfg.ChainID != 0 && cfg.ChainID != id {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("chain %s reports id %d, configured %d", name, id, cfg.ChainID))
	}
	chain.info.ChainID = id
	log.Ctx(ctx).Info().Str("chain", name).Uint64("chain_id", id).Str("rpc", shared.RedactURL(cfg.RPC)).Msg("chain connected")
	return chain, nil
}

func newRPCClient(cfg RPCChainArgs) *resty.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRPCTimeout
	}
	retries := defaultRPCRetries
	if cfg.Retries != nil && *cfg.Retries >= 0 {
		retries = *cfg.Retries
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(retries).
		SetRetryWaitTime(defaultRPCRetryDelay).
		SetRetryMaxWaitTime(maxRPCRetryDelay)
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return r != nil && r.StatusCode() >= 500
	})
	return client
}

// RPCChain is a connected chain with its loaded tokens.
type RPCChain struct {
	client *resty.Client
	info   types.ChainInfo
	nextID atomic.Uint64

	mu     sync.RWMutex
	tokens map[string]types.Token
}

func (c *RPCChain) Info() types.ChainInfo {
	return c.info
}

func (c *RPCChain) Token(alias string) (types.Token, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	token, ok := c.tokens[strings.ToLower(alias)]
	return token, ok
}

// Tokens returns the loaded tokens ordered by alias.
func (c *RPCChain) Tokens() []types.Token {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]types.Token, 0, len(c.tokens))
	for _, token := range c.tokens {
		out = append(out, token)
	}
	sortTokens(out)
	return out
}

// LoadToken reads decimals and symbol of an ERC-20 contract and caches the
// token under alias. An empty alias defaults to the symbol.
func (c *RPCChain) LoadToken(ctx context.Context, address string, alias string) (types.Token, error) {
	if !isAddress(address) {
		return types.Token{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid token address %q on %s", address, c.info.Name))
	}
	if alias != "" {
		if token, ok := c.Token(alias); ok && strings.EqualFold(token.Address, address) {
			return token, nil
		}
	}

	var decimalsRaw, symbolRaw string
	if err := c.ethCall(ctx, address, selectorDecimals, &decimalsRaw); err != nil {
		return types.Token{}, err
	}
	if err := c.ethCall(ctx, address, selectorSymbol, &symbolRaw); err != nil {
		return types.Token{}, err
	}
	decimals, err := parseQuantity(decimalsRaw)
	if err != nil || decimals > 255 {
		return types.Token{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("invalid decimals for token %s on %s", address, c.info.Name)).
			WithCause(err)
	}
	symbol, err := decodeABIString(symbolRaw)
	if err != nil {
		return types.Token{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("invalid symbol for token %s on %s", address, c.info.Name)).
			WithCause(err)
	}
	if alias == "" {
		alias = symbol
	}
	token := types.Token{Alias: alias, Address: address, Symbol: symbol, Decimals: int(decimals)}

	c.mu.Lock()
	c.tokens[strings.ToLower(alias)] = token
	c.mu.Unlock()
	log.Ctx(ctx).Debug().Str("chain", c.info.Name).Str("token", alias).Str("symbol", symbol).Msg("token loaded")
	return token, nil
}

func (c *RPCChain) ethCall(ctx context.Context, to string, data string, out *string) error {
	params := []any{map[string]string{"to": to, "data": data}, "latest"}
	return c.call(ctx, "eth_call", params, out)
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *RPCChain) call(ctx context.Context, method string, params []any, out any) error {
	request := rpcRequest{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method, Params: params}
	var response rpcResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&response).
		Post(c.info.RPC)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("%s request to %s failed", method, c.info.Name)).
			WithCause(err)
	}
	if resp.IsError() {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("%s request to %s failed", method, c.info.Name)).
			WithCause(shared.HTTPStatusError(resp.StatusCode(), c.info.RPC, resp.String()))
	}
	if response.Error != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("%s on %s: rpc error %d: %s", method, c.info.Name, response.Error.Code, response.Error.Message))
	}
	if err := json.Unmarshal(response.Result, out); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("invalid %s result from %s", method, c.info.Name)).
			WithCause(err)
	}
	return nil
}

func sortTokens(tokens []types.Token) {
	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].Alias < tokens[j].Alias
	})
}

func parseQuantity(raw string) (uint64, error) {
	value, ok := new(big.Int).SetString(strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X"), 16)
	if !ok {
		return 0, fmt.Errorf("not a hex quantity: %q", raw)
	}
	if !value.IsUint64() {
		return 0, fmt.Errorf("quantity out of range: %q", raw)
	}
	return value.Uint64(), nil
}

// decodeABIString decodes a string return value. Some older tokens return
// bytes32 instead of a dynamic string.
func decodeABIString(raw string) (string, error) {
	data, err := hex.DecodeString(strings.TrimPrefix(raw, "0x"))
	if err != nil {
		return "", err
	}
	if len(data) == 32 {
		return strings.TrimRight(string(data), "\x00"), nil
	}
	if len(data) < 64 {
		return "", fmt.Errorf("short abi string: %d bytes", len(data))
	}
	size := uint64(len(data))
	offset := new(big.Int).SetBytes(data[:32])
	if !offset.IsUint64() || offset.Uint64() > size-32 {
		return "", fmt.Errorf("abi string offset out of range")
	}
	start := offset.Uint64()
	length := new(big.Int).SetBytes(data[start : start+32])
	if !length.IsUint64() || length.Uint64() > size-start-32 {
		return "", fmt.Errorf("abi string length out of range")
	}
	return string(data[start+32 : start+32+length.Uint64()]), nil
}

func isAddress(value string) bool {
	if len(value) != 42 || !strings.HasPrefix(strings.ToLower(value), "0x") {
		return false
	}
	_, err := hex.DecodeString(value[2:])
	return err == nil
}

var _ ports.ChainDialer = RPCChainDialer{}
