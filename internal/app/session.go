package app

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"w3plex/internal/core"
	"w3plex/internal/types"
)

// session is one resolved configuration document and the resources opened
// for it.
type session struct {
	tree      *core.ConfigTree
	closeLogs func() error
}

// Close finalizes the tree entities, then the log files.
func (s *session) Close(ctx context.Context) error {
	return joinErrors(s.tree.Close(ctx), s.closeLogs())
}

// joinErrors keeps a lone error unwrapped so its code stays visible to
// errbuilder.CodeOf.
func joinErrors(err error, closeErr error) error {
	switch {
	case closeErr == nil:
		return err
	case err == nil:
		return closeErr
	default:
		return errors.Join(err, closeErr)
	}
}

func (s Service) loadDocument(path string) (*types.Mapping, string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("config path is required")
	}
	doc, err := s.Documents.Load(path)
	if err != nil {
		return nil, "", err
	}
	return doc, filepath.Dir(path), nil
}

// open loads and resolves the document at path. The returned context
// carries the logger configured by the document.
func (s Service) open(ctx context.Context, path string) (context.Context, *session, error) {
	doc, dir, err := s.loadDocument(path)
	if err != nil {
		return ctx, nil, err
	}
	ctx, closeLogs, err := s.configureLogging(ctx, doc, dir)
	if err != nil {
		return ctx, nil, err
	}

	registry, err := s.factories()
	if err != nil {
		_ = closeLogs()
		return ctx, nil, err
	}
	loader := core.NewConfigLoader(registry, core.WithBaseDir(dir), core.WithFS(s.FS))
	tree, err := loader.Parse(ctx, doc)
	if err != nil {
		_ = closeLogs()
		return ctx, nil, err
	}
	log.Ctx(ctx).Debug().Str("config", path).Int("collections", len(tree.CollectionNames())).Msg("config resolved")
	return ctx, &session{tree: tree, closeLogs: closeLogs}, nil
}

func (s Service) factories() (*core.FactoryRegistry, error) {
	registry := core.NewFactoryRegistry()
	if err := core.RegisterBuiltins(registry, s.Lookup, s.Dialer); err != nil {
		return nil, err
	}
	for _, factory := range s.Factories {
		if err := registry.Register(factory); err != nil {
			return nil, err
		}
	}
	if err := registry.Register(applicationsFactory(s.Lookup)); err != nil {
		return nil, err
	}
	return registry, nil
}
