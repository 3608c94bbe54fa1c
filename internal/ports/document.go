package ports

import "w3plex/internal/types"

// DocumentLoaderPort reads a configuration file into a document tree.
type DocumentLoaderPort interface {
	Load(path string) (*types.Mapping, error)
}
