package core

import (
	"testing"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"w3plex/internal/types"
)

type decodedArgs struct {
	File     string        `mapstructure:"file"`
	Workers  int           `mapstructure:"workers"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Tags     []string      `mapstructure:"tags"`
	Upstream any           `mapstructure:"upstream"`
}

func TestDecodeArgs(t *testing.T) {
	upstream := &fakeService{}
	args := types.MappingOf(
		"file", "proxies.txt",
		"workers", "4",
		"timeout", "1500ms",
		"tags", types.NewSequence("a", "b"),
		"upstream", upstream,
	)

	var got decodedArgs
	require.NoError(t, DecodeArgs(args, &got))
	assert.Equal(t, "proxies.txt", got.File)
	assert.Equal(t, 4, got.Workers)
	assert.Equal(t, 1500*time.Millisecond, got.Timeout)
	assert.Equal(t, []string{"a", "b"}, got.Tags)
	assert.Same(t, upstream, got.Upstream)
}

func TestDecodeArgsRejectsUnknownFields(t *testing.T) {
	var got decodedArgs
	err := DecodeArgs(types.MappingOf("file", "x", "surprise", true), &got)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}
