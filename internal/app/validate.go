package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"w3plex/internal/types"
)

// Validate resolves the document, constructing every entity, and closes the
// result again.
func (s Service) Validate(ctx context.Context, req ValidateRequest) (result ValidateResult, err error) {
	ctx, sess, err := s.open(ctx, req.ConfigPath)
	if err != nil {
		return ValidateResult{}, err
	}
	defer func() {
		err = joinErrors(err, sess.Close(ctx))
	}()

	counts := map[types.Collection]int{}
	for _, name := range sess.tree.CollectionNames() {
		counts[name] = len(sess.tree.Collection(name))
	}
	log.Ctx(ctx).Debug().Str("config", req.ConfigPath).Msg("config validated")
	return ValidateResult{Keys: sess.tree.Root().Keys(), Collections: counts}, nil
}
