package app

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"w3plex/internal/adapters"
	"w3plex/internal/ports"
	"w3plex/internal/types"
)

type memChain struct {
	info types.ChainInfo
}

func (c memChain) Info() types.ChainInfo { return c.info }

func (c memChain) LoadToken(ctx context.Context, address string, alias string) (types.Token, error) {
	return types.Token{Alias: alias, Address: address, Symbol: alias, Decimals: 18}, nil
}

func (c memChain) Token(alias string) (types.Token, bool) { return types.Token{}, false }

func (c memChain) Tokens() []types.Token { return nil }

type memDialer struct {
	mu    sync.Mutex
	names []string
}

func (d *memDialer) Dial(ctx context.Context, name string, args *types.Mapping) (ports.Chain, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.names = append(d.names, name)
	rpc, _ := args.String("rpc")
	return memChain{info: types.ChainInfo{Name: name, ChainID: 1, RPC: rpc}}, nil
}

// recorderApp records the environment of every run and calls the actions
// named by the positional args.
type recorderApp struct {
	mu       sync.Mutex
	envs     []ports.AppEnv
	kwargs   []map[string]any
	runError error
}

func (a *recorderApp) Actions() map[string]ports.Action {
	return map[string]ports.Action{
		"record": func(ctx context.Context, env ports.AppEnv, kwargs map[string]any) error {
			a.mu.Lock()
			defer a.mu.Unlock()
			a.kwargs = append(a.kwargs, kwargs)
			return nil
		},
	}
}

func (a *recorderApp) Run(ctx context.Context, env ports.AppEnv) error {
	a.mu.Lock()
	a.envs = append(a.envs, env)
	a.mu.Unlock()
	for _, arg := range env.Args {
		if err := env.Actions[arg](ctx); err != nil {
			return err
		}
	}
	return a.runError
}

type testService struct {
	Service
	fs     afero.Fs
	dialer *memDialer
	app    *recorderApp
	logs   *bytes.Buffer
}

func newTestService(t *testing.T) testService {
	t.Helper()
	fs := afero.NewMemMapFs()
	dialer := &memDialer{}
	catalog, err := adapters.NewDefaultCatalog(fs, dialer)
	require.NoError(t, err)
	app := &recorderApp{}
	require.NoError(t, catalog.RegisterApplication("test:recorder", app))
	logs := &bytes.Buffer{}
	return testService{
		Service: Service{
			Documents: adapters.NewDocumentFileAdapterWithFS(fs),
			Lookup:    catalog,
			Dialer:    dialer,
			FS:        fs,
			LogWriter: logs,
		},
		fs:     fs,
		dialer: dialer,
		app:    app,
		logs:   logs,
	}
}

func writeFile(t *testing.T, fs afero.Fs, path string, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}

const testDocument = `
chains:
  ethereum:
    rpc: http://localhost:8545
  base:
    rpc: http://localhost:9545
services:
  proxies:
    __init__: w3plex:ProxyService
    proxies: proxies.txt
filters:
  eth:
    __init__: w3plex:ChainFilter
    template: eth*
settings:
  retries: 3
  proxy_pool: $services.proxies
applications:
  recorder:
    __init__: test:recorder
    greeting: hello
    actions:
      loud:
        action: record
        volume: 11
      record:
`
