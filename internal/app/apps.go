package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"w3plex/internal/types"
)

// Applications lists the applications of a document without resolving it,
// so no chain or service is contacted.
func (s Service) Applications(ctx context.Context, req AppsRequest) (AppsResult, error) {
	doc, _, err := s.loadDocument(req.ConfigPath)
	if err != nil {
		return AppsResult{}, err
	}
	raw, ok := doc.Get(applicationsKey)
	if !ok || raw == nil {
		return AppsResult{}, nil
	}
	apps, ok := raw.(*types.Mapping)
	if !ok {
		return AppsResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(applicationsKey + " must be a mapping")
	}

	var summaries []AppSummary
	for _, name := range apps.Keys() {
		value, _ := apps.Get(name)
		entry, ok := value.(*types.Mapping)
		if !ok {
			return AppsResult{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("%s.%s must be a mapping", applicationsKey, name))
		}
		constructor, _ := entry.String(types.ConstructorKey)
		summary := AppSummary{Name: name, Constructor: constructor}
		if symbol, found := s.Lookup.Lookup(constructor); found && symbol.Application != nil {
			summary.Actions = append(summary.Actions, sortedKeys(symbol.Application.Actions())...)
		}
		if actions, ok := entry.Get(actionsKey); ok {
			if configured, ok := actions.(*types.Mapping); ok {
				summary.Actions = append(summary.Actions, configured.Keys()...)
			}
		}
		summary.Actions = dedupe(summary.Actions)
		summaries = append(summaries, summary)
	}
	return AppsResult{Applications: summaries}, nil
}

func dedupe(values []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}
