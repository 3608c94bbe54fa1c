package adapters

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"w3plex/internal/ports"
	"w3plex/internal/types"
)

const (
	includeTag      = "!include"
	maxIncludeDepth = 16
)

// DocumentFileAdapter loads YAML configuration documents. Environment
// variables are expanded before parsing (unknown ones are left alone), and
// "!include" pulls in other files relative to the including file:
//
//	chains: !include chains.yaml
//	chains: !include {file: chains.yaml, items: [ethereum]}
type DocumentFileAdapter struct {
	fs afero.Fs
}

func NewDocumentFileAdapter() DocumentFileAdapter {
	return DocumentFileAdapter{fs: afero.NewOsFs()}
}

func NewDocumentFileAdapterWithFS(fs afero.Fs) DocumentFileAdapter {
	return DocumentFileAdapter{fs: fs}
}

func (a DocumentFileAdapter) Load(path string) (*types.Mapping, error) {
	value, err := a.loadFile(path, 0)
	if err != nil {
		return nil, err
	}
	switch doc := value.(type) {
	case nil:
		return types.NewMapping(), nil
	case *types.Mapping:
		return doc, nil
	default:
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("config document root must be a mapping: " + path)
	}
}

func (a DocumentFileAdapter) loadFile(path string, depth int) (any, error) {
	if depth > maxIncludeDepth {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("include depth exceeded at " + path)
	}
	data, err := afero.ReadFile(a.fs, path)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("config file not found: " + path).
			WithCause(err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(expandEnv(string(data))), &doc); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse config yaml: " + path).
			WithCause(err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	log.Debug().Str("path", path).Int("depth", depth).Msg("config file loaded")
	return a.convert(doc.Content[0], filepath.Dir(path), depth)
}

func (a DocumentFileAdapter) convert(node *yaml.Node, dir string, depth int) (any, error) {
	if node.Tag == includeTag {
		return a.include(node, dir, depth)
	}
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return a.convert(node.Content[0], dir, depth)
	case yaml.AliasNode:
		return a.convert(node.Alias, dir, depth)
	case yaml.MappingNode:
		return a.convertMapping(node, dir, depth)
	case yaml.SequenceNode:
		seq := types.NewSequence()
		for _, item := range node.Content {
			value, err := a.convert(item, dir, depth)
			if err != nil {
				return nil, err
			}
			_ = seq.Append(value)
		}
		return seq, nil
	default:
		return convertScalar(node)
	}
}

func (a DocumentFileAdapter) convertMapping(node *yaml.Node, dir string, depth int) (*types.Mapping, error) {
	out := types.NewMapping()
	explicit := map[string]struct{}{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valueNode := node.Content[i], node.Content[i+1]
		if keyNode.Tag == "!!merge" {
			if err := a.merge(out, explicit, valueNode, dir, depth); err != nil {
				return nil, err
			}
			continue
		}
		value, err := a.convert(valueNode, dir, depth)
		if err != nil {
			return nil, err
		}
		explicit[keyNode.Value] = struct{}{}
		_ = out.Set(keyNode.Value, value)
	}
	return out, nil
}

// merge applies a "<<" key. Keys set explicitly in the mapping win.
func (a DocumentFileAdapter) merge(out *types.Mapping, explicit map[string]struct{}, node *yaml.Node, dir string, depth int) error {
	sources := []*yaml.Node{node}
	if node.Kind == yaml.SequenceNode {
		sources = node.Content
	}
	for _, source := range sources {
		value, err := a.convert(source, dir, depth)
		if err != nil {
			return err
		}
		merged, ok := value.(*types.Mapping)
		if !ok {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("merge value at line %d must be a mapping", source.Line))
		}
		if out.IncludeDir() == "" {
			out.SetIncludeDir(merged.IncludeDir())
		}
		for _, key := range merged.Keys() {
			if _, ok := explicit[key]; ok {
				continue
			}
			value, _ := merged.Get(key)
			_ = out.Set(key, value)
		}
	}
	return nil
}

func (a DocumentFileAdapter) include(node *yaml.Node, dir string, depth int) (any, error) {
	var file string
	var items []string
	switch node.Kind {
	case yaml.ScalarNode:
		file = node.Value
	case yaml.MappingNode:
		var spec struct {
			File  string   `yaml:"file"`
			Items []string `yaml:"items"`
		}
		if err := node.Decode(&spec); err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("invalid include at line %d", node.Line)).
				WithCause(err)
		}
		file, items = spec.File, spec.Items
	default:
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unrecognized include at line %d", node.Line))
	}
	if strings.TrimSpace(file) == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("include at line %d has no file", node.Line))
	}

	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, file)
	}
	value, err := a.loadFile(path, depth+1)
	if err != nil {
		return nil, err
	}
	included, ok := value.(*types.Mapping)
	if !ok {
		return value, nil
	}
	if items != nil {
		selected := types.NewMapping()
		for _, item := range items {
			if part, ok := included.Get(item); ok {
				_ = selected.Set(item, part)
			}
		}
		included = selected
	}
	included.SetIncludeDir(filepath.Dir(path))
	return included, nil
}

// convertScalar decodes a scalar to its Go value. Hex literals stay
// strings so addresses and keys keep their form.
func convertScalar(node *yaml.Node) (any, error) {
	if node.Tag == "!!int" && isHex(node.Value) {
		return node.Value, nil
	}
	var value any
	if err := node.Decode(&value); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid scalar at line %d", node.Line)).
			WithCause(err)
	}
	return value, nil
}

func isHex(value string) bool {
	if !strings.HasPrefix(value, "0x") && !strings.HasPrefix(value, "0X") {
		return false
	}
	digits := value[2:]
	if digits == "" {
		return false
	}
	for _, r := range digits {
		if !strings.ContainsRune("0123456789abcdefABCDEF_", r) {
			return false
		}
	}
	return true
}

// expandEnv substitutes $VAR and ${VAR} from the environment and keeps
// unknown names verbatim, so config references survive expansion.
func expandEnv(data string) string {
	return os.Expand(data, func(name string) string {
		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		if name == "$" {
			return "$$"
		}
		return "$" + name
	})
}

var _ ports.DocumentLoaderPort = DocumentFileAdapter{}
