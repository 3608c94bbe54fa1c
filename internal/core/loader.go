package core

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"w3plex/internal/types"
)

// ConfigLoader resolves a document tree into a ConfigTree. Factories are
// consulted for every mapping whose references are all resolved; forward
// references are deferred and repaired by a fixpoint loop after the
// depth-first pass.
type ConfigLoader struct {
	factories *FactoryRegistry
	baseDir   string
	fs        afero.Fs
}

type LoaderOption func(*ConfigLoader)

// WithBaseDir makes relative file paths in the root document resolve
// against dir when the joined file exists.
func WithBaseDir(dir string) LoaderOption {
	return func(l *ConfigLoader) {
		l.baseDir = dir
	}
}

// WithFS sets the filesystem used to check relative file paths.
func WithFS(fs afero.Fs) LoaderOption {
	return func(l *ConfigLoader) {
		l.fs = fs
	}
}

func NewConfigLoader(factories *FactoryRegistry, opts ...LoaderOption) *ConfigLoader {
	if factories == nil {
		factories = NewFactoryRegistry()
	}
	loader := &ConfigLoader{factories: factories, fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(loader)
	}
	return loader
}

func (l *ConfigLoader) Factories() *FactoryRegistry {
	return l.factories
}

// Parse resolves doc. Every run uses a fresh reference registry; the
// returned tree is frozen. Constructor errors are returned unchanged.
func (l *ConfigLoader) Parse(ctx context.Context, doc *types.Mapping) (*ConfigTree, error) {
	if doc == nil {
		doc = types.NewMapping()
	}
	s := &session{
		loader:      l,
		refs:        NewReferenceRegistry(),
		collections: map[types.Collection]map[string]any{},
	}

	var root any
	resolved, ok, err := s.parseMapping(ctx, doc, "", l.baseDir, func(value any) {
		root = value
	})
	if err != nil {
		return nil, err
	}
	if ok {
		root = resolved
	}
	if err := s.fixpoint(ctx); err != nil {
		return nil, err
	}
	if s.setErr != nil {
		return nil, s.setErr
	}
	if names := s.refs.UnresolvedNames(); len(names) > 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("unresolved config references: " + strings.Join(names, ", "))
	}
	if len(s.pending) > 0 {
		paths := make([]string, 0, len(s.pending))
		for _, state := range s.pending {
			paths = append(paths, state.path)
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("config subtrees left unresolved: " + strings.Join(paths, ", "))
	}
	mapping, ok := root.(*types.Mapping)
	if !ok {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("root document resolved to %T, expected a mapping", root))
	}
	return newConfigTree(mapping, s.collections), nil
}

// session is the state of one Parse call.
type session struct {
	loader      *ConfigLoader
	refs        *ReferenceRegistry
	collections map[types.Collection]map[string]any
	pending     []*pendingState
	scans       int
	// setErr is the first failed write into a parsed subtree.
	setErr error
}

func (s *session) keep(err error) {
	if err != nil && s.setErr == nil {
		s.setErr = err
	}
}

// pendingState is a mapping subtree waiting on references or on deferred
// descendants. attach splices the final value into the parent.
type pendingState struct {
	path       string
	parsed     *types.Mapping
	unresolved int
	attach     func(value any)
}

// tracker counts outstanding resolutions for the mapping that owns a value
// and for every sequence between that mapping and the value.
type tracker struct {
	owner *pendingState
	seq   *sequenceTracker
}

func (t tracker) add() {
	t.owner.unresolved++
	for seq := t.seq; seq != nil; seq = seq.parent {
		seq.remaining++
	}
}

func (t tracker) done() {
	t.owner.unresolved--
	for seq := t.seq; seq != nil; seq = seq.parent {
		seq.remaining--
		if seq.remaining == 0 {
			seq.complete()
		}
	}
}

// sequenceTracker registers a sequence once all its elements are final.
type sequenceTracker struct {
	remaining int
	parent    *sequenceTracker
	complete  func()
}

// parseMapping walks node in document order. It returns the factory result
// and true when the subtree is final; otherwise the subtree is recorded as
// pending and attach is called once the fixpoint loop completes it.
func (s *session) parseMapping(ctx context.Context, node *types.Mapping, path string, dir string, attach func(any)) (any, bool, error) {
	if include := node.IncludeDir(); include != "" {
		dir = include
	}
	state := &pendingState{path: path, parsed: types.NewMapping(), attach: attach}
	state.parsed.SetIncludeDir(node.IncludeDir())
	track := tracker{owner: state}

	for _, key := range node.Keys() {
		raw, _ := node.Get(key)
		set := func(value any) {
			s.keep(state.parsed.Set(key, value))
		}
		if err := s.parseValue(ctx, raw, types.JoinPath(path, key), dir, track, set); err != nil {
			return nil, false, err
		}
	}

	if state.unresolved == 0 {
		value, err := s.finalize(ctx, state)
		if err != nil {
			return nil, false, err
		}
		return value, true, nil
	}
	log.Ctx(ctx).Debug().Str("path", path).Int("unresolved", state.unresolved).Msg("config subtree deferred")
	s.pending = append(s.pending, state)
	return state.parsed, false, nil
}

func (s *session) parseValue(ctx context.Context, raw any, path string, dir string, track tracker, set func(any)) error {
	switch value := raw.(type) {
	case *types.Mapping:
		result, ok, err := s.parseMapping(ctx, value, path, dir, func(final any) {
			set(final)
			track.done()
		})
		if err != nil {
			return err
		}
		set(result)
		if !ok {
			track.add()
		}
		return nil
	case *types.Sequence:
		return s.parseSequence(ctx, value, path, dir, track, set)
	case string:
		return s.parseString(ctx, value, path, dir, track, set)
	default:
		set(value)
		s.refs.Register(path, value)
		return nil
	}
}

func (s *session) parseSequence(ctx context.Context, seq *types.Sequence, path string, dir string, track tracker, set func(any)) error {
	parsed := types.NewSequence(seq.Items()...)
	set(parsed)

	seqTrack := &sequenceTracker{
		parent: track.seq,
		complete: func() {
			s.refs.Register(path, parsed)
		},
	}
	itemTrack := tracker{owner: track.owner, seq: seqTrack}
	// Hold the sequence open until every element has been visited.
	seqTrack.remaining++
	for i, item := range seq.Items() {
		index := i
		setItem := func(value any) {
			s.keep(parsed.Set(index, value))
		}
		if err := s.parseValue(ctx, item, types.JoinPath(path, strconv.Itoa(index)), dir, itemTrack, setItem); err != nil {
			return err
		}
	}
	seqTrack.remaining--
	if seqTrack.remaining == 0 {
		seqTrack.complete()
	}
	return nil
}

func (s *session) parseString(ctx context.Context, value string, path string, dir string, track tracker, set func(any)) error {
	target, isRef, err := types.ParseReference(value)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid reference at %s", path)).
			WithCause(err)
	}
	if !isRef {
		literal := s.relativePath(types.UnescapeLiteral(value), dir)
		set(literal)
		s.refs.Register(path, literal)
		return nil
	}

	set(value)
	track.add()
	resolved := s.refs.ResolveOnceReady(target.String(), func(final any) {
		set(final)
		track.done()
		s.refs.Register(path, final)
	})
	if !resolved {
		log.Ctx(ctx).Debug().Str("path", path).Str("reference", target.String()).Msg("reference deferred")
	}
	return nil
}

// finalize runs factory matching for a subtree with no outstanding
// references, records entities in their collection and registers the
// result under the subtree path.
func (s *session) finalize(ctx context.Context, state *pendingState) (any, error) {
	value, isEntity, collection, err := s.loader.factories.Match(ctx, state.parsed, state.path)
	if err != nil {
		return nil, err
	}
	if state.path == "" {
		return value, nil
	}
	if isEntity && collection != types.CollectionNone {
		bucket, ok := s.collections[collection]
		if !ok {
			bucket = map[string]any{}
			s.collections[collection] = bucket
		}
		bucket[types.PathTail(state.path)] = value
	}
	s.refs.Register(state.path, value)
	return value, nil
}

// fixpoint finalizes pending subtrees whose counters reached zero until a
// full scan makes no progress.
func (s *session) fixpoint(ctx context.Context) error {
	for {
		s.scans++
		progressed := false
		for i := 0; i < len(s.pending); {
			state := s.pending[i]
			if state.unresolved != 0 {
				i++
				continue
			}
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			value, err := s.finalize(ctx, state)
			if err != nil {
				return err
			}
			state.attach(value)
			progressed = true
		}
		log.Ctx(ctx).Debug().
			Int("scan", s.scans).
			Int("pending", len(s.pending)).
			Bool("progressed", progressed).
			Msg("config fixpoint scan")
		if !progressed {
			return nil
		}
	}
}

func (s *session) relativePath(value string, dir string) string {
	if dir == "" || value == "" || filepath.IsAbs(value) {
		return value
	}
	joined := filepath.Join(dir, value)
	exists, err := afero.Exists(s.loader.fs, joined)
	if err != nil || !exists {
		return value
	}
	return joined
}
