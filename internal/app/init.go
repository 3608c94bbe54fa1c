package app

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const chainsFileName = "chains.yaml"

const starterConfig = `# Resolved by w3plex. "$path" references another value, "__init__" names
# the constructor of an entity.
chains: !include {file: chains.yaml, items: [ethereum]}

services: {}

applications:
  chains:
    __init__: w3plex:chains
    actions:
      mainnet:
        action: list
        chains: ethereum

logging:
  - level: info
`

const starterChains = `ethereum:
  rpc: ${ETHEREUM_RPC}
  chain_id: 1
  erc20:
    usdc: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
base:
  rpc: ${BASE_RPC}
  chain_id: 8453
`

// Init writes a starter document and its chains file next to it. Existing
// files are kept unless Force is set.
func (s Service) Init(ctx context.Context, req InitRequest) (InitResult, error) {
	path := strings.TrimSpace(req.ConfigPath)
	if path == "" {
		return InitResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("config path is required")
	}
	files := []struct {
		path    string
		content string
	}{
		{path: filepath.Join(filepath.Dir(path), chainsFileName), content: starterChains},
		{path: path, content: starterConfig},
	}
	if !req.Force {
		for _, file := range files {
			exists, err := afero.Exists(s.FS, file.path)
			if err != nil {
				return InitResult{}, errbuilder.New().
					WithCode(errbuilder.CodeInternal).
					WithMsg("failed to check " + file.path).
					WithCause(err)
			}
			if exists {
				return InitResult{}, errbuilder.New().
					WithCode(errbuilder.CodeAlreadyExists).
					WithMsg("file already exists: " + file.path)
			}
		}
	}

	var result InitResult
	for _, file := range files {
		if err := s.FS.MkdirAll(filepath.Dir(file.path), 0o755); err != nil {
			return InitResult{}, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to create directory for " + file.path).
				WithCause(err)
		}
		if err := afero.WriteFile(s.FS, file.path, []byte(file.content), 0o644); err != nil {
			return InitResult{}, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to write " + file.path).
				WithCause(err)
		}
		result.Written = append(result.Written, file.path)
		log.Ctx(ctx).Debug().Str("file", file.path).Msg("starter file written")
	}
	return result, nil
}
