package metadatastore

import (
	"encoding/json"
	"fmt"
)

// Codec decodes and encodes the bytes a CheckpointMetadataSource returns.
// Kept narrow and swappable so a deployment whose checkpoint directory was
// written by a different serializer can plug in its own implementation
// without touching the store or the reassignment core.
type Codec interface {
	Decode(data []byte) (*CheckpointMetadata, error)
	Encode(meta *CheckpointMetadata) ([]byte, error)
}

// JSONCodec is the reference Codec: plain indented JSON over the wire types
// in model.go.
type JSONCodec struct{}

func (JSONCodec) Decode(data []byte) (*CheckpointMetadata, error) {
	var m CheckpointMetadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint metadata: %w", err)
	}
	return &m, nil
}

func (JSONCodec) Encode(meta *CheckpointMetadata) ([]byte, error) {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode checkpoint metadata: %w", err)
	}
	return data, nil
}
