package metadatastore

import (
	"github.com/flowstate/reassigner/internal/storage"
	"github.com/flowstate/reassigner/pkg/config"
)

// NewFromConfig builds a Store whose backend is selected the same way
// internal/storage.NewStorage selects it (local directory or Tencent COS),
// using JSONCodec as the reference wire format.
func NewFromConfig(cfg *config.StorageConfig) (*Store, error) {
	backend, err := storage.NewStorage(cfg)
	if err != nil {
		return nil, err
	}
	return NewStore(backend, JSONCodec{}), nil
}
