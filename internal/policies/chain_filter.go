package policies

import (
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"w3plex/internal/types"
)

// Wildcard matches every value in a filter template.
const Wildcard = "*"

// ChainFilter selects chains by name or chain id. Templates are separated
// by commas and joined by OR; each one is "*", an exact name, a name
// prefix ending in "*", or a numeric chain id.
type ChainFilter struct {
	exact    map[string]struct{}
	prefixes []string
	ids      map[uint64]struct{}
	wildcard bool
}

func NewChainFilter(template string) (*ChainFilter, error) {
	filter := &ChainFilter{
		exact: map[string]struct{}{},
		ids:   map[uint64]struct{}{},
	}
	for _, raw := range strings.Split(template, ",") {
		name, kind := parseNamePattern(raw)
		switch kind {
		case patternInvalid:
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("invalid chain filter template: " + template)
		case patternWildcard:
			filter.wildcard = true
		case patternPrefix:
			filter.prefixes = append(filter.prefixes, strings.ToLower(name))
		case patternExact:
			if id, err := strconv.ParseUint(name, 10, 64); err == nil {
				filter.ids[id] = struct{}{}
				continue
			}
			filter.exact[strings.ToLower(name)] = struct{}{}
		}
	}
	return filter, nil
}

// Match reports whether a chain name passes the filter.
func (f *ChainFilter) Match(value string) bool {
	if f.wildcard {
		return true
	}
	name := strings.ToLower(strings.TrimSpace(value))
	if _, ok := f.exact[name]; ok {
		return true
	}
	for _, prefix := range f.prefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func (f *ChainFilter) MatchChain(info types.ChainInfo) bool {
	if f.Match(info.Name) {
		return true
	}
	_, ok := f.ids[info.ChainID]
	return ok
}

type patternKind int

const (
	patternExact patternKind = iota
	patternPrefix
	patternWildcard
	patternInvalid
)

func parseNamePattern(value string) (string, patternKind) {
	pattern := strings.TrimSpace(value)
	if pattern == "" {
		return "", patternInvalid
	}
	if pattern == Wildcard {
		return "", patternWildcard
	}
	if strings.HasSuffix(pattern, Wildcard) {
		return strings.TrimSuffix(pattern, Wildcard), patternPrefix
	}
	return pattern, patternExact
}
