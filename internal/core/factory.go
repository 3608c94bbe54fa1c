package core

import (
	"context"
	"regexp"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog/log"

	"w3plex/internal/types"
)

// Predicate decides whether a factory is eligible for the mapping at path.
type Predicate func(node *types.Mapping, path string) bool

// Constructor turns an eligible mapping into a Result. It may block on I/O.
type Constructor func(ctx context.Context, node *types.Mapping, path string) (Result, error)

// Classifier names the collection a constructed entity belongs to. An
// empty name leaves the entity unclassified.
type Classifier func(entity any) types.Collection

// Result is the outcome of a construction attempt.
type Result struct {
	Outcome types.Outcome
	Entity  any
}

func Constructed(entity any) Result {
	return Result{Outcome: types.OutcomeConstructed, Entity: entity}
}

func NotApplicable() Result {
	return Result{Outcome: types.OutcomeNotApplicable}
}

func PlainValue() Result {
	return Result{Outcome: types.OutcomePlainValue}
}

type Factory struct {
	Name      string
	Predicate Predicate
	Construct Constructor
	Classify  Classifier
}

// Collection returns a classifier that puts every entity in name.
func Collection(name types.Collection) Classifier {
	return func(any) types.Collection {
		return name
	}
}

// MatchPattern matches paths against a regular expression, anchored the
// way the expression is written.
func MatchPattern(pattern string) (Predicate, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid factory path pattern: " + pattern).
			WithCause(err)
	}
	return func(_ *types.Mapping, path string) bool {
		return re.MatchString(path)
	}, nil
}

func MustMatchPattern(pattern string) Predicate {
	predicate, err := MatchPattern(pattern)
	if err != nil {
		panic(err)
	}
	return predicate
}

// MatchGlob matches paths against a doublestar glob where path segments
// are separated by "/", e.g. "chains/*" or "applications/**".
func MatchGlob(pattern string) (Predicate, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid factory glob: " + pattern)
	}
	return func(_ *types.Mapping, path string) bool {
		matched, err := doublestar.Match(pattern, strings.ReplaceAll(path, types.PathSeparator, "/"))
		return err == nil && matched
	}, nil
}

// HasKey matches mappings that carry key.
func HasKey(key string) Predicate {
	return func(node *types.Mapping, _ string) bool {
		return node.Has(key)
	}
}

// FactoryRegistry keeps factories in registration order and tries them
// last-registered first.
type FactoryRegistry struct {
	factories []Factory
}

func NewFactoryRegistry() *FactoryRegistry {
	return &FactoryRegistry{}
}

func (r *FactoryRegistry) Register(factory Factory) error {
	if factory.Predicate == nil || factory.Construct == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("factory " + factory.Name + " requires a predicate and a constructor")
	}
	r.factories = append(r.factories, factory)
	return nil
}

// RegisterPattern registers a factory matched by a path regular expression.
func (r *FactoryRegistry) RegisterPattern(pattern string, classify Classifier, construct Constructor) error {
	predicate, err := MatchPattern(pattern)
	if err != nil {
		return err
	}
	return r.Register(Factory{Name: pattern, Predicate: predicate, Construct: construct, Classify: classify})
}

func (r *FactoryRegistry) Len() int {
	return len(r.factories)
}

// Match runs eligible factories against node. It returns the entity and
// its collection when one was constructed; otherwise node is returned with
// isEntity false.
func (r *FactoryRegistry) Match(ctx context.Context, node *types.Mapping, path string) (value any, isEntity bool, collection types.Collection, err error) {
	for i := len(r.factories) - 1; i >= 0; i-- {
		factory := r.factories[i]
		if !factory.Predicate(node, path) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, false, types.CollectionNone, err
		}
		result, err := factory.Construct(ctx, node, path)
		if err != nil {
			return nil, false, types.CollectionNone, err
		}
		switch result.Outcome {
		case types.OutcomeNotApplicable:
			log.Ctx(ctx).Debug().Str("path", path).Str("factory", factory.Name).Msg("factory declined")
			continue
		case types.OutcomeConstructed:
			if isPlain(result.Entity, node) {
				return node, false, types.CollectionNone, nil
			}
			if factory.Classify != nil {
				collection = factory.Classify(result.Entity)
			}
			log.Ctx(ctx).Debug().
				Str("path", path).
				Str("factory", factory.Name).
				Str("collection", string(collection)).
				Msg("entity constructed")
			return result.Entity, true, collection, nil
		default:
			return node, false, types.CollectionNone, nil
		}
	}
	return node, false, types.CollectionNone, nil
}

func isPlain(entity any, node *types.Mapping) bool {
	if entity == nil {
		return true
	}
	m, ok := entity.(*types.Mapping)
	return ok && m == node
}
