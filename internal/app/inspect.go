package app

import (
	"context"
	"sort"
)

func (s Service) Inspect(ctx context.Context, req InspectRequest) (result InspectResult, err error) {
	ctx, sess, err := s.open(ctx, req.ConfigPath)
	if err != nil {
		return InspectResult{}, err
	}
	defer func() {
		err = joinErrors(err, sess.Close(ctx))
	}()

	var collections []InspectCollection
	for _, name := range sess.tree.CollectionNames() {
		collections = append(collections, InspectCollection{
			Name:     name,
			Entities: sortedKeys(sess.tree.Collection(name)),
		})
	}
	return InspectResult{Keys: sess.tree.Root().Keys(), Collections: collections}, nil
}

func sortedKeys[T any](values map[string]T) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
