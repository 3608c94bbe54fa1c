package app

import (
	"context"
	"errors"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"w3plex/internal/adapters"
	"w3plex/internal/types"
)

func TestRunPassesEnvironment(t *testing.T) {
	svc := newTestService(t)
	writeFile(t, svc.fs, "/cfg/w3plex.yaml", testDocument)
	writeFile(t, svc.fs, "/cfg/proxies.txt", "http://a:1\nhttp://b:2\n")

	result, err := svc.Run(t.Context(), RunRequest{
		ConfigPath:  "/cfg/w3plex.yaml",
		Application: "recorder",
		Kwargs:      map[string]string{"greeting": "hi", "mode": "fast"},
	})
	require.NoError(t, err)
	assert.Equal(t, "recorder", result.Application)
	if diff := cmp.Diff([]string{"loud", "record"}, result.Actions); diff != "" {
		t.Fatalf("unexpected actions (-want +got):\n%s", diff)
	}

	require.Len(t, svc.app.envs, 1)
	env := svc.app.envs[0]
	assert.Equal(t, "recorder", env.Name)
	if diff := cmp.Diff(map[string]any{"greeting": "hi", "mode": "fast"}, env.Kwargs); diff != "" {
		t.Fatalf("unexpected kwargs (-want +got):\n%s", diff)
	}
	assert.ElementsMatch(t, []string{"chains", "services", "filters", "settings"}, env.Extras.Keys())
	assert.False(t, env.Extras.Has("applications"))
	assert.Len(t, env.Chains, 2)
	require.Contains(t, env.Services, "proxies")

	// Services are finalized once the application returns.
	proxies := env.Services["proxies"].(*adapters.ProxyService)
	assert.Equal(t, 0, proxies.Len())
	assert.Equal(t, 2, proxies.Total())
}

func TestRunBindsConfiguredActions(t *testing.T) {
	svc := newTestService(t)
	writeFile(t, svc.fs, "/cfg/w3plex.yaml", testDocument)
	writeFile(t, svc.fs, "/cfg/proxies.txt", "http://a:1\n")

	_, err := svc.Run(t.Context(), RunRequest{
		ConfigPath:  "/cfg/w3plex.yaml",
		Application: "recorder",
		Args:        []string{"loud", "record"},
	})
	require.NoError(t, err)

	want := []map[string]any{{"volume": 11}, {}}
	if diff := cmp.Diff(want, svc.app.kwargs); diff != "" {
		t.Fatalf("unexpected action kwargs (-want +got):\n%s", diff)
	}
}

func TestRunFinalizesAfterFailure(t *testing.T) {
	svc := newTestService(t)
	svc.app.runError = errors.New("boom")
	writeFile(t, svc.fs, "/cfg/w3plex.yaml", testDocument)
	writeFile(t, svc.fs, "/cfg/proxies.txt", "http://a:1\n")

	_, err := svc.Run(t.Context(), RunRequest{ConfigPath: "/cfg/w3plex.yaml", Application: "recorder"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	require.Len(t, svc.app.envs, 1)
	proxies := svc.app.envs[0].Services["proxies"].(*adapters.ProxyService)
	assert.Equal(t, 0, proxies.Len())
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name     string
		document string
		app      string
		wantCode errbuilder.ErrCode
	}{
		{
			name:     "missing name",
			document: "applications: {}\n",
			app:      "",
			wantCode: errbuilder.CodeInvalidArgument,
		},
		{
			name:     "unknown application",
			document: "applications: {}\n",
			app:      "nope",
			wantCode: errbuilder.CodeNotFound,
		},
		{
			name: "configured action without base",
			document: `
applications:
  recorder:
    __init__: test:recorder
    actions:
      shout:
        volume: 3
`,
			app:      "recorder",
			wantCode: errbuilder.CodeInvalidArgument,
		},
		{
			name: "actions not a mapping",
			document: `
applications:
  recorder:
    __init__: test:recorder
    actions: [record]
`,
			app:      "recorder",
			wantCode: errbuilder.CodeInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t)
			writeFile(t, svc.fs, "/cfg/w3plex.yaml", tt.document)
			_, err := svc.Run(t.Context(), RunRequest{ConfigPath: "/cfg/w3plex.yaml", Application: tt.app})
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errbuilder.CodeOf(err))
			assert.Empty(t, svc.app.envs)
		})
	}
}

func TestRunChainsApplication(t *testing.T) {
	svc := newTestService(t)
	writeFile(t, svc.fs, "/cfg/w3plex.yaml", `
chains:
  ethereum:
    rpc: http://localhost:8545
  base:
    rpc: http://localhost:9545
applications:
  chains:
    __init__: w3plex:chains
    actions:
      mainnet:
        action: list
        chains: ethereum
logging:
  - level: info
`)

	_, err := svc.Run(t.Context(), RunRequest{
		ConfigPath:  "/cfg/w3plex.yaml",
		Application: "chains",
		Args:        []string{"mainnet"},
	})
	require.NoError(t, err)
	out := svc.logs.String()
	assert.Contains(t, out, `"chain":"ethereum"`)
	assert.NotContains(t, out, `"chain":"base"`)
	assert.Contains(t, out, `"action":"mainnet"`)
}

func TestRunIgnoresApplicationsOutsideTheApplicationsSection(t *testing.T) {
	svc := newTestService(t)
	catalog := svc.Lookup.(*adapters.ConstructorCatalog)
	tool := &recorderApp{}
	require.NoError(t, catalog.RegisterEntity("test:tool", func(ctx context.Context, args *types.Mapping) (any, error) {
		return tool, nil
	}))

	writeFile(t, svc.fs, "/cfg/w3plex.yaml", `
tools:
  helper:
    __init__: test:tool
`)
	_, err := svc.Run(t.Context(), RunRequest{ConfigPath: "/cfg/w3plex.yaml", Application: "helper"})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
	assert.Empty(t, tool.envs)

	writeFile(t, svc.fs, "/cfg/w3plex.yaml", `
tools:
  helper:
    __init__: test:tool
applications:
  helper:
    __init__: test:recorder
`)
	result, err := svc.Run(t.Context(), RunRequest{ConfigPath: "/cfg/w3plex.yaml", Application: "helper"})
	require.NoError(t, err)
	assert.Equal(t, "helper", result.Application)
	assert.Len(t, svc.app.envs, 1)
	assert.Empty(t, tool.envs)
}
