package metadatastore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/flowstate/reassigner/internal/storage"
	"github.com/flowstate/reassigner/pkg/reassign"
)

// Store reads and writes CheckpointMetadata blobs through a storage.Storage
// backend, decoding/encoding them with a Codec. It never inspects the
// backend's bytes itself; the backend is opaque key/value storage and the
// Codec is the only place that knows the blob's shape.
type Store struct {
	backend storage.Storage
	codec   Codec
}

// NewStore builds a Store over an already-constructed storage backend.
func NewStore(backend storage.Storage, codec Codec) *Store {
	return &Store{backend: backend, codec: codec}
}

// Load reads and decodes the checkpoint metadata at key.
func (s *Store) Load(ctx context.Context, key string) (*CheckpointMetadata, error) {
	reader, err := s.backend.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint metadata %q: %w", key, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint metadata body %q: %w", key, err)
	}

	return s.codec.Decode(data)
}

// LoadOperatorStates loads and decodes the metadata at key directly into the
// reassignment core's OperatorStates index, returning the restore checkpoint
// id alongside it.
func (s *Store) LoadOperatorStates(ctx context.Context, key string) (*reassign.OperatorStates, uint64, error) {
	meta, err := s.Load(ctx, key)
	if err != nil {
		return nil, 0, err
	}
	states, err := meta.ToOperatorStates()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode operator states from %q: %w", key, err)
	}
	return states, meta.RestoreCheckpointID, nil
}

// Save encodes meta and writes it to key, for tooling that produces
// checkpoint metadata fixtures or snapshots rather than only consuming them.
func (s *Store) Save(ctx context.Context, key string, meta *CheckpointMetadata) error {
	data, err := s.codec.Encode(meta)
	if err != nil {
		return err
	}
	if err := s.backend.Upload(ctx, key, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write checkpoint metadata %q: %w", key, err)
	}
	return nil
}

// Exists reports whether checkpoint metadata is present at key.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	return s.backend.Exists(ctx, key)
}
