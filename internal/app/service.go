package app

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"w3plex/internal/adapters"
	"w3plex/internal/core"
	"w3plex/internal/ports"
)

type Service struct {
	Documents ports.DocumentLoaderPort
	Lookup    ports.ConstructorLookup
	Dialer    ports.ChainDialer
	FS        afero.Fs
	// Factories are registered after the built-in ones, so they take
	// precedence over them. The applications factory always comes last.
	Factories []core.Factory
	// LogWriter receives log output when the document configures extra
	// logging sinks.
	LogWriter io.Writer
}

func NewService() (Service, error) {
	fs := afero.NewOsFs()
	dialer := adapters.NewRPCChainDialer()
	catalog, err := adapters.NewDefaultCatalog(fs, dialer)
	if err != nil {
		return Service{}, err
	}
	return Service{
		Documents: adapters.NewDocumentFileAdapterWithFS(fs),
		Lookup:    catalog,
		Dialer:    dialer,
		FS:        fs,
		LogWriter: zerolog.ConsoleWriter{Out: os.Stderr},
	}, nil
}
