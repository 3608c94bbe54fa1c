package core

import (
	"context"
	"errors"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"w3plex/internal/types"
)

func parseDoc(t *testing.T, doc *types.Mapping, opts ...LoaderOption) (*ConfigTree, error) {
	t.Helper()
	loader, err := newTestLoader(&fakeDialer{}, opts...)
	require.NoError(t, err)
	return loader.Parse(t.Context(), doc)
}

func TestParsePlainDocumentIsStructuralCopy(t *testing.T) {
	doc := types.MappingOf(
		"name", "w3plex",
		"limits", types.MappingOf("retries", 3, "ratio", 0.5, "enabled", true),
		"tags", types.NewSequence("a", "b", types.MappingOf("c", nil)),
	)
	tree, err := parseDoc(t, doc)
	require.NoError(t, err)

	want := map[string]any{
		"name":   "w3plex",
		"limits": map[string]any{"retries": 3, "ratio": 0.5, "enabled": true},
		"tags":   []any{"a", "b", map[string]any{"c": nil}},
	}
	if diff := cmp.Diff(want, tree.Root().ToMap()); diff != "" {
		t.Fatalf("unexpected tree (-want +got):\n%s", diff)
	}
	assert.Empty(t, tree.CollectionNames())
}

func TestParseIsIndependentOfKeyOrder(t *testing.T) {
	first := types.MappingOf(
		"a", types.MappingOf("x", "$c.y"),
		"c", types.MappingOf("y", 42),
		"services", types.MappingOf("s", types.MappingOf("__init__", "test:Service", "level", "$c.y")),
	)
	second := types.MappingOf(
		"services", types.MappingOf("s", types.MappingOf("level", "$c.y", "__init__", "test:Service")),
		"c", types.MappingOf("y", 42),
		"a", types.MappingOf("x", "$c.y"),
	)
	left, err := parseDoc(t, first)
	require.NoError(t, err)
	right, err := parseDoc(t, second)
	require.NoError(t, err)

	leftService, _ := left.Entity(types.CollectionServices, "s")
	rightService, _ := right.Entity(types.CollectionServices, "s")
	assert.Equal(t, leftService.(*fakeService).args, rightService.(*fakeService).args)
	x, ok := right.Get("a.x")
	require.True(t, ok)
	assert.Equal(t, 42, x)
}

func TestParseForwardReference(t *testing.T) {
	doc := types.MappingOf(
		"a", "$b",
		"b", types.MappingOf("__init__", "test:Service", "proxies", "p.txt"),
	)
	tree, err := parseDoc(t, doc)
	require.NoError(t, err)

	a, ok := tree.Get("a")
	require.True(t, ok)
	b, ok := tree.Get("b")
	require.True(t, ok)
	assert.Same(t, b, a)
	assert.True(t, b.(*fakeService).initialized)
}

func TestParseForwardReferenceIntoNestedMapping(t *testing.T) {
	doc := types.MappingOf(
		"services", types.MappingOf(
			"consumer", types.MappingOf("__init__", "test:Service", "upstream", "$services.provider"),
			"provider", types.MappingOf("__init__", "test:Service"),
		),
	)
	tree, err := parseDoc(t, doc)
	require.NoError(t, err)

	services := tree.Services()
	require.Len(t, services, 2)
	consumer := services["consumer"].(*fakeService)
	assert.Same(t, services["provider"], consumer.args["upstream"])
}

func TestParseDetectsCycle(t *testing.T) {
	doc := types.MappingOf("a", "$b", "b", "$a")
	_, err := parseDoc(t, doc)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
	assert.Contains(t, err.Error(), "unresolved config references: a, b")
}

func TestParseReportsEveryDanglingReference(t *testing.T) {
	doc := types.MappingOf(
		"x", types.MappingOf("y", "$missing.one"),
		"z", types.NewSequence("$missing.two"),
	)
	_, err := parseDoc(t, doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.one, missing.two")
}

func TestParsePlainDataReferences(t *testing.T) {
	doc := types.MappingOf(
		"a", types.MappingOf("x", "$c.y"),
		"c", types.MappingOf("y", 42),
	)
	tree, err := parseDoc(t, doc)
	require.NoError(t, err)

	x, ok := tree.Get("a.x")
	require.True(t, ok)
	assert.Equal(t, 42, x)
	assert.Empty(t, tree.CollectionNames())
	a, ok := tree.Root().Get("a")
	require.True(t, ok)
	assert.IsType(t, &types.Mapping{}, a)
}

func TestParseSequences(t *testing.T) {
	doc := types.MappingOf(
		"list", types.NewSequence("$b", 2, types.MappingOf("x", "$b"), types.NewSequence("$b")),
		"copy", "$list",
		"second", "$list.1",
		"b", 1,
	)
	tree, err := parseDoc(t, doc)
	require.NoError(t, err)

	want := map[string]any{
		"list":   []any{1, 2, map[string]any{"x": 1}, []any{1}},
		"copy":   []any{1, 2, map[string]any{"x": 1}, []any{1}},
		"second": 2,
		"b":      1,
	}
	if diff := cmp.Diff(want, tree.Root().ToMap()); diff != "" {
		t.Fatalf("unexpected tree (-want +got):\n%s", diff)
	}
}

func TestParseEscapedLiteral(t *testing.T) {
	tree, err := parseDoc(t, types.MappingOf("price", "$$5"))
	require.NoError(t, err)
	price, _ := tree.Get("price")
	assert.Equal(t, "$5", price)
}

func TestParseMalformedReference(t *testing.T) {
	for _, ref := range []string{"$a..b", "$", "$a. b"} {
		t.Run(ref, func(t *testing.T) {
			_, err := parseDoc(t, types.MappingOf("x", ref))
			require.Error(t, err)
			assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
			assert.Contains(t, err.Error(), "invalid reference at x")
		})
	}
}

func TestParseConstructorErrorPropagatesUnchanged(t *testing.T) {
	boom := errors.New("constructor exploded")
	registry := NewFactoryRegistry()
	require.NoError(t, registry.RegisterPattern(`^services\.bad$`, Collection(types.CollectionServices),
		func(ctx context.Context, node *types.Mapping, path string) (Result, error) {
			return Result{}, boom
		}))

	doc := types.MappingOf("services", types.MappingOf("bad", types.MappingOf("k", 1)))
	_, err := NewConfigLoader(registry).Parse(t.Context(), doc)
	assert.Same(t, boom, err)
}

func TestParseClassifiesByPathTail(t *testing.T) {
	doc := types.MappingOf(
		"services", types.MappingOf(
			"one", types.MappingOf("__init__", "test:Service"),
			"two", types.MappingOf("__init__", "test:Service"),
		),
		"filters", types.MappingOf(
			"eth", types.MappingOf("__init__", "test:Filter", "prefix", "eth"),
		),
		"plain", types.MappingOf("__init__", "test:Nothing", "kept", true),
	)
	tree, err := parseDoc(t, doc)
	require.NoError(t, err)

	services := tree.Collection(types.CollectionServices)
	require.Len(t, services, 2)
	assert.NotSame(t, services["one"], services["two"])
	filters := tree.Collection(types.CollectionFilters)
	assert.Equal(t, fakeFilter{prefix: "eth"}, filters["eth"])
	assert.Equal(t, []types.Collection{types.CollectionFilters, types.CollectionServices}, tree.CollectionNames())

	plain, ok := tree.Get("plain.kept")
	require.True(t, ok)
	assert.Equal(t, true, plain)
}

func TestParseRejectsEntityRoot(t *testing.T) {
	_, err := parseDoc(t, types.MappingOf("__init__", "test:Service"))
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestParseRewritesRelativePaths(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/cfg/proxies.txt", []byte("p"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/inc/wallets.txt", []byte("w"), 0o644))

	included := types.MappingOf("file", "wallets.txt", "other", "proxies.txt")
	included.SetIncludeDir("/inc")
	doc := types.MappingOf(
		"proxies", "proxies.txt",
		"missing", "missing.txt",
		"loader", included,
	)
	tree, err := parseDoc(t, doc, WithBaseDir("/cfg"), WithFS(fs))
	require.NoError(t, err)

	want := map[string]any{
		"proxies": "/cfg/proxies.txt",
		"missing": "missing.txt",
		"loader":  map[string]any{"file": "/inc/wallets.txt", "other": "proxies.txt"},
	}
	if diff := cmp.Diff(want, tree.Root().ToMap()); diff != "" {
		t.Fatalf("unexpected paths (-want +got):\n%s", diff)
	}
}

func TestParseCancelledContext(t *testing.T) {
	loader, err := newTestLoader(&fakeDialer{})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	doc := types.MappingOf("services", types.MappingOf("s", types.MappingOf("__init__", "test:Service")))
	_, err = loader.Parse(ctx, doc)
	require.ErrorIs(t, err, context.Canceled)
}

func TestParseUsesFreshRegistryPerCall(t *testing.T) {
	loader, err := newTestLoader(&fakeDialer{})
	require.NoError(t, err)
	_, err = loader.Parse(t.Context(), types.MappingOf("b", 1))
	require.NoError(t, err)

	_, err = loader.Parse(t.Context(), types.MappingOf("a", "$b"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unresolved config references: b")
}

func TestSessionKeepsFirstWriteError(t *testing.T) {
	s := &session{}
	frozen := types.MappingOf("a", 1)
	frozen.Freeze()
	seq := types.NewSequence(1)
	seq.Freeze()

	s.keep(nil)
	require.NoError(t, s.setErr)
	s.keep(frozen.Set("a", 2))
	first := s.setErr
	require.Error(t, first)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(first))
	s.keep(seq.Set(0, 2))
	s.keep(nil)
	assert.Contains(t, s.setErr.Error(), "mapping key a")
}
