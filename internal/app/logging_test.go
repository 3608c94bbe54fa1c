package app

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingSinks(t *testing.T) {
	svc := newTestService(t)
	writeFile(t, svc.fs, "/cfg/w3plex.yaml", `
applications:
  recorder:
    __init__: test:recorder
logging:
  - file: logs/run.log
    level: info
  - level: error
`)
	require.NoError(t, svc.fs.MkdirAll("/cfg/logs", 0o755))

	_, err := svc.Run(t.Context(), RunRequest{ConfigPath: "/cfg/w3plex.yaml", Application: "recorder"})
	require.NoError(t, err)

	data, err := afero.ReadFile(svc.fs, "/cfg/logs/run.log")
	require.NoError(t, err)
	assert.Contains(t, string(data), "application started")
	assert.Contains(t, string(data), `"application":"recorder"`)
	assert.NotContains(t, svc.logs.String(), "application started")
}

func TestLoggingWithoutSection(t *testing.T) {
	svc := newTestService(t)
	writeFile(t, svc.fs, "/cfg/w3plex.yaml", "applications:\n  recorder:\n    __init__: test:recorder\n")

	_, err := svc.Run(t.Context(), RunRequest{ConfigPath: "/cfg/w3plex.yaml", Application: "recorder"})
	require.NoError(t, err)
	assert.Empty(t, svc.logs.String())
}

func TestLoggingRejectsNonList(t *testing.T) {
	svc := newTestService(t)
	writeFile(t, svc.fs, "/cfg/w3plex.yaml", "logging: {level: info}\n")

	_, err := svc.Validate(t.Context(), ValidateRequest{ConfigPath: "/cfg/w3plex.yaml"})
	require.Error(t, err)
}
