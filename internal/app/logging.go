package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog"

	"w3plex/internal/core"
	"w3plex/internal/types"
)

const loggingKey = "logging"

type logSinkConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// levelWriter drops events below level.
type levelWriter struct {
	out   io.Writer
	level zerolog.Level
}

func (w levelWriter) Write(p []byte) (int, error) {
	return w.out.Write(p)
}

func (w levelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < w.level {
		return len(p), nil
	}
	return w.out.Write(p)
}

// configureLogging adds the sinks listed under "logging" to the context
// logger:
//
//	logging:
//	  - file: w3plex.log
//	    level: debug
//	  - level: warn
//
// An entry without a file sets the level of LogWriter, which otherwise
// receives every event. Files are relative to dir.
func (s Service) configureLogging(ctx context.Context, doc *types.Mapping, dir string) (context.Context, func() error, error) {
	noop := func() error { return nil }
	raw, ok := doc.Get(loggingKey)
	if !ok || raw == nil {
		return ctx, noop, nil
	}
	entries, ok := raw.(*types.Sequence)
	if !ok {
		return ctx, noop, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("logging must be a list of sinks")
	}

	var (
		writers      []io.Writer
		closers      []io.Closer
		consoleLevel = zerolog.TraceLevel
	)
	closeAll := func() error {
		var errs []error
		for _, closer := range closers {
			errs = append(errs, closer.Close())
		}
		return errors.Join(errs...)
	}
	for i, item := range entries.Items() {
		entry, ok := item.(*types.Mapping)
		if !ok {
			_ = closeAll()
			return ctx, noop, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("logging.%d must be a mapping", i))
		}
		var cfg logSinkConfig
		if err := core.DecodeArgs(entry, &cfg); err != nil {
			_ = closeAll()
			return ctx, noop, err
		}
		level := zerolog.InfoLevel
		if strings.TrimSpace(cfg.Level) != "" {
			parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
			if err != nil {
				_ = closeAll()
				return ctx, noop, errbuilder.New().
					WithCode(errbuilder.CodeInvalidArgument).
					WithMsg(fmt.Sprintf("logging.%d: invalid level %s", i, cfg.Level)).
					WithCause(err)
			}
			level = parsed
		}

		file := strings.TrimSpace(cfg.File)
		if file == "" {
			consoleLevel = level
			continue
		}
		if !filepath.IsAbs(file) {
			file = filepath.Join(dir, file)
		}
		f, err := s.FS.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			_ = closeAll()
			return ctx, noop, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to open log file: " + file).
				WithCause(err)
		}
		closers = append(closers, f)
		writers = append(writers, levelWriter{out: f, level: level})
	}
	if entries.Len() == 0 {
		return ctx, noop, nil
	}

	writers = append([]io.Writer{levelWriter{out: s.consoleWriter(), level: consoleLevel}}, writers...)
	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	return logger.WithContext(ctx), closeAll, nil
}

func (s Service) consoleWriter() io.Writer {
	if s.LogWriter != nil {
		return s.LogWriter
	}
	return zerolog.ConsoleWriter{Out: os.Stderr}
}
