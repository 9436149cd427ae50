// Package topologyfile decodes a new execution topology (the vertex chains,
// parallelism, and max-parallelism the Assignment Driver reassigns state
// onto) from a JSON description, for the CLI's restore command.
package topologyfile

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/flowstate/reassigner/pkg/reassign"
)

// ChainSpec is one vertex's operator chain, head operator last, matching
// reassign.OperatorChain's convention.
type ChainSpec struct {
	Ids    []string `json:"ids"`
	AltIds []string `json:"alt_ids,omitempty"`
}

// VertexSpec describes one vertex of the new topology.
type VertexSpec struct {
	ID                       string    `json:"id"`
	Chain                    ChainSpec `json:"chain"`
	Parallelism              int32     `json:"parallelism"`
	MaxParallelism           int32     `json:"max_parallelism"`
	MaxParallelismConfigured bool      `json:"max_parallelism_configured"`
}

// Spec is the top-level topology description.
type Spec struct {
	Vertices []VertexSpec `json:"vertices"`
}

// Load reads and parses a topology description from path.
func Load(path string) (*reassign.StaticTopology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read topology file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a topology description into a StaticTopology ready to pass
// to the Assignment Driver.
func Parse(data []byte) (*reassign.StaticTopology, error) {
	var spec Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse topology file: %w", err)
	}

	topo := reassign.NewStaticTopology()
	for _, v := range spec.Vertices {
		if v.ID == "" {
			return nil, fmt.Errorf("topology file: vertex with empty id")
		}

		ids, err := parseOperatorIds(v.Chain.Ids)
		if err != nil {
			return nil, fmt.Errorf("topology file: vertex %s: %w", v.ID, err)
		}
		altIds := make([]reassign.OperatorId, len(ids))
		if len(v.Chain.AltIds) > 0 {
			if len(v.Chain.AltIds) != len(ids) {
				return nil, fmt.Errorf("topology file: vertex %s: alt_ids length %d does not match ids length %d", v.ID, len(v.Chain.AltIds), len(ids))
			}
			parsed, err := parseOperatorIds(v.Chain.AltIds)
			if err != nil {
				return nil, fmt.Errorf("topology file: vertex %s: %w", v.ID, err)
			}
			altIds = parsed
		}

		chain := reassign.OperatorChain{Ids: ids, AltIds: altIds}
		topo.AddVertex(reassign.VertexId(v.ID), chain, v.Parallelism, v.MaxParallelism, v.MaxParallelismConfigured)
	}

	return topo, nil
}

func parseOperatorIds(raw []string) ([]reassign.OperatorId, error) {
	out := make([]reassign.OperatorId, len(raw))
	for i, s := range raw {
		id, err := operatorIDFromHex(s)
		if err != nil {
			return nil, fmt.Errorf("operator id %q: %w", s, err)
		}
		out[i] = id
	}
	return out, nil
}

// operatorIDFromHex decodes a 16-byte (32 hex character) operator id, the
// same encoding the checkpoint metadata store uses. An empty string decodes
// to the zero OperatorId (OperatorChain's "no alt id" sentinel).
func operatorIDFromHex(s string) (reassign.OperatorId, error) {
	if s == "" {
		return reassign.OperatorId{}, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return reassign.OperatorId{}, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != 16 {
		return reassign.OperatorId{}, fmt.Errorf("expected 16 bytes, got %d", len(b))
	}
	var arr [16]byte
	copy(arr[:], b)
	return reassign.OperatorIdFromBytes(arr), nil
}
