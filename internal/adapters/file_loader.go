package adapters

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/afero"

	"w3plex/internal/core"
	"w3plex/internal/policies"
	"w3plex/internal/ports"
	"w3plex/internal/types"
)

type FileLoaderArgs struct {
	File   string `mapstructure:"file"`
	Filter any    `mapstructure:"filter"`
}

// FileLoader reads items, one per line, from a text file.
type FileLoader struct {
	fs     afero.Fs
	path   string
	filter ports.Filter
}

func NewFileLoader(fs afero.Fs, path string, filter ports.Filter) *FileLoader {
	return &FileLoader{fs: fs, path: path, filter: filter}
}

// NewFileLoaderConstructor builds FileLoader entities. filter is a template
// string, a referenced filter entity, or a list of either joined by OR.
func NewFileLoaderConstructor(fs afero.Fs) ports.Constructor {
	return func(ctx context.Context, args *types.Mapping) (any, error) {
		var cfg FileLoaderArgs
		if err := core.DecodeArgs(args, &cfg); err != nil {
			return nil, err
		}
		if strings.TrimSpace(cfg.File) == "" {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("file loader requires a file")
		}
		filter, err := filterOf(cfg.Filter)
		if err != nil {
			return nil, err
		}
		return NewFileLoader(fs, cfg.File, filter), nil
	}
}

func (l *FileLoader) Load(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lines, err := readLines(l.fs, l.path)
	if err != nil {
		return nil, err
	}
	if l.filter == nil {
		return lines, nil
	}
	out := lines[:0]
	for _, line := range lines {
		if l.filter.Match(line) {
			out = append(out, line)
		}
	}
	return out, nil
}

func filterOf(raw any) (ports.Filter, error) {
	switch value := raw.(type) {
	case nil:
		return nil, nil
	case ports.Filter:
		return value, nil
	case string:
		return policies.NewTemplateFilter(value)
	case []any:
		matchers := make([]policies.Matcher, 0, len(value))
		for _, item := range value {
			filter, err := filterOf(item)
			if err != nil {
				return nil, err
			}
			if filter != nil {
				matchers = append(matchers, filter)
			}
		}
		return policies.AnyOf(matchers...), nil
	default:
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("filter must be a template or a filter entity")
	}
}

var _ ports.Loader = (*FileLoader)(nil)
