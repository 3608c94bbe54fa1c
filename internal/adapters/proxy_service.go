package adapters

import (
	"bufio"
	"bytes"
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"w3plex/internal/core"
	"w3plex/internal/ports"
	"w3plex/internal/types"
)

type ProxyServiceArgs struct {
	Proxies string `mapstructure:"proxies"`
}

// ProxyService hands out proxies from a file in round-robin order. A proxy
// is held by one caller between Acquire and Release.
type ProxyService struct {
	fs    afero.Fs
	path  string
	queue chan string
	total int
}

func NewProxyService(fs afero.Fs, path string) *ProxyService {
	return &ProxyService{fs: fs, path: path}
}

// NewProxyServiceConstructor builds ProxyService entities from config.
func NewProxyServiceConstructor(fs afero.Fs) ports.Constructor {
	return func(ctx context.Context, args *types.Mapping) (any, error) {
		var cfg ProxyServiceArgs
		if err := core.DecodeArgs(args, &cfg); err != nil {
			return nil, err
		}
		if strings.TrimSpace(cfg.Proxies) == "" {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("proxy service requires a proxies file")
		}
		return NewProxyService(fs, cfg.Proxies), nil
	}
}

func (s *ProxyService) Init(ctx context.Context) error {
	lines, err := readLines(s.fs, s.path)
	if err != nil {
		return err
	}
	s.queue = make(chan string, len(lines))
	for _, line := range lines {
		s.queue <- line
	}
	s.total = len(lines)
	log.Ctx(ctx).Info().Str("file", s.path).Int("proxies", s.total).Msg("proxy service initialized")
	return nil
}

// Acquire blocks until a proxy is free or ctx is done.
func (s *ProxyService) Acquire(ctx context.Context) (string, error) {
	if s.total == 0 {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("proxy service has no proxies: " + s.path)
	}
	select {
	case proxy := <-s.queue:
		return proxy, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *ProxyService) Release(proxy string) {
	select {
	case s.queue <- proxy:
	default:
	}
}

// Len reports how many proxies are free.
func (s *ProxyService) Len() int {
	return len(s.queue)
}

func (s *ProxyService) Total() int {
	return s.total
}

func (s *ProxyService) Finalize(ctx context.Context) error {
	drained := 0
	for {
		select {
		case <-s.queue:
			drained++
		default:
			log.Ctx(ctx).Debug().Str("file", s.path).Int("drained", drained).Msg("proxy service finalized")
			return nil
		}
	}
}

// readLines returns the non-empty trimmed lines of a text file.
func readLines(fs afero.Fs, path string) ([]string, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("file not found: " + path).
			WithCause(err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to read file: " + path).
			WithCause(err)
	}
	return lines, nil
}

var _ ports.Service = (*ProxyService)(nil)
