package core

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"w3plex/internal/ports"
	"w3plex/internal/types"
)

// ConfigTree is the resolved configuration plus its named collections.
// It is read-only: the root is frozen and collection accessors return
// copies.
type ConfigTree struct {
	root        *types.Mapping
	collections map[types.Collection]map[string]any

	closeOnce sync.Once
	closeErr  error
}

func newConfigTree(root *types.Mapping, collections map[types.Collection]map[string]any) *ConfigTree {
	root.Freeze()
	return &ConfigTree{root: root, collections: collections}
}

func (t *ConfigTree) Root() *types.Mapping {
	return t.root
}

// Get looks up a dotted path through mappings and sequences.
func (t *ConfigTree) Get(path string) (any, bool) {
	if path == "" {
		return t.root, true
	}
	var current any = t.root
	for _, segment := range strings.Split(path, types.PathSeparator) {
		switch node := current.(type) {
		case *types.Mapping:
			value, ok := node.Get(segment)
			if !ok {
				return nil, false
			}
			current = value
		case *types.Sequence:
			index, err := strconv.Atoi(segment)
			if err != nil {
				return nil, false
			}
			value, ok := node.At(index)
			if !ok {
				return nil, false
			}
			current = value
		default:
			return nil, false
		}
	}
	return current, true
}

// Collection returns a copy of the path-tail to entity index of name.
func (t *ConfigTree) Collection(name types.Collection) map[string]any {
	bucket := t.collections[name]
	out := make(map[string]any, len(bucket))
	for key, entity := range bucket {
		out[key] = entity
	}
	return out
}

func (t *ConfigTree) CollectionNames() []types.Collection {
	names := make([]types.Collection, 0, len(t.collections))
	for name := range t.collections {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return names[i] < names[j]
	})
	return names
}

func (t *ConfigTree) Entity(collection types.Collection, name string) (any, bool) {
	entity, ok := t.collections[collection][name]
	return entity, ok
}

func (t *ConfigTree) Chains() map[string]ports.Chain {
	return collectionOf[ports.Chain](t, types.CollectionChains)
}

func (t *ConfigTree) Services() map[string]ports.Service {
	return collectionOf[ports.Service](t, types.CollectionServices)
}

func (t *ConfigTree) Applications() map[string]ports.Application {
	return collectionOf[ports.Application](t, types.CollectionApplications)
}

func collectionOf[T any](t *ConfigTree, name types.Collection) map[string]T {
	out := map[string]T{}
	for key, entity := range t.collections[name] {
		if typed, ok := entity.(T); ok {
			out[key] = typed
		}
	}
	return out
}

// Close finalizes every collected entity that implements ports.Finalizer.
// Finalizers run concurrently; all failures are joined. Close is safe to
// call more than once.
func (t *ConfigTree) Close(ctx context.Context) error {
	t.closeOnce.Do(func() {
		t.closeErr = t.finalize(ctx)
	})
	return t.closeErr
}

func (t *ConfigTree) finalize(ctx context.Context) error {
	var finalizers []ports.Finalizer
	for _, name := range t.CollectionNames() {
		for _, entity := range t.collections[name] {
			finalizer, ok := entity.(ports.Finalizer)
			if !ok {
				continue
			}
			finalizers = append(finalizers, finalizer)
		}
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	var group errgroup.Group
	for _, finalizer := range finalizers {
		group.Go(func() error {
			if err := finalizer.Finalize(ctx); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = group.Wait()
	log.Ctx(ctx).Debug().Int("finalized", len(finalizers)).Int("failed", len(errs)).Msg("config tree closed")
	if len(errs) > 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to finalize config entities").
			WithCause(errors.Join(errs...))
	}
	return nil
}
