package reassign

// VertexId identifies one job vertex (a chain of fused operators) in the new
// execution topology. It is opaque to the core beyond equality and use as a
// map key.
type VertexId string

// OperatorChain is the ordered sequence of operators fused into one vertex.
// The chain's head is the operator at the last index (source-side
// convention, per the glossary) — only the head carries keyed state.
type OperatorChain struct {
	// Ids is the ordered list of primary operator ids, head last.
	Ids []OperatorId
	// AltIds is the same length as Ids; AltIds[i] is the compatibility id
	// used to match restored state from a previous job version, or the
	// zero OperatorId if this position has no alt id.
	AltIds []OperatorId
}

// HeadIndex returns the index of the chain's head operator (its last
// position), or -1 if the chain is empty.
func (c OperatorChain) HeadIndex() int {
	return len(c.Ids) - 1
}

// LookupKey returns the id that §4.4's matching rule says to use for
// position i: AltIds[i] if non-zero, else Ids[i].
func (c OperatorChain) LookupKey(i int) OperatorId {
	if i < len(c.AltIds) && !c.AltIds[i].IsZero() {
		return c.AltIds[i]
	}
	return c.Ids[i]
}

// TopologyAdapter is a read-only view of the new execution's job graph: for
// each vertex, its operator chain, parallelism, and max-parallelism
// configuration. Implementations may additionally allow SetMaxParallelism,
// restricted to the reassignment scope, per §4.4 and §5.
type TopologyAdapter interface {
	// Vertices returns every vertex id in the new topology, in a stable
	// deterministic order (the order the Assignment Driver iterates in; it
	// submits in ascending VertexId order regardless).
	Vertices() []VertexId
	// Chain returns the operator chain for vertex.
	Chain(vertex VertexId) OperatorChain
	// Parallelism returns the new parallelism for vertex.
	Parallelism(vertex VertexId) int32
	// MaxParallelism returns the new max-parallelism for vertex.
	MaxParallelism(vertex VertexId) int32
	// IsMaxParallelismConfigured reports whether the user explicitly fixed
	// max-parallelism for vertex (as opposed to it being derived/default).
	IsMaxParallelismConfigured(vertex VertexId) bool
	// SetMaxParallelism overrides the max-parallelism the adapter reports
	// for vertex. Callers outside the reassignment scope must not invoke
	// this; see §5's concurrency note on why the mutation is safe here.
	SetMaxParallelism(vertex VertexId, value int32)
}

// StaticTopology is the reference TopologyAdapter implementation: an
// in-memory, fully-specified topology built once (typically decoded from a
// job graph description) and handed to the driver.
type StaticTopology struct {
	order   []VertexId
	chains  map[VertexId]OperatorChain
	par     map[VertexId]int32
	maxPar  map[VertexId]int32
	fixed   map[VertexId]bool
}

// NewStaticTopology builds an empty StaticTopology; use AddVertex to
// populate it before passing it to the Assignment Driver.
func NewStaticTopology() *StaticTopology {
	return &StaticTopology{
		chains: make(map[VertexId]OperatorChain),
		par:    make(map[VertexId]int32),
		maxPar: make(map[VertexId]int32),
		fixed:  make(map[VertexId]bool),
	}
}

// AddVertex registers one vertex's chain, parallelism, max-parallelism, and
// whether max-parallelism was user-fixed.
func (t *StaticTopology) AddVertex(id VertexId, chain OperatorChain, parallelism, maxParallelism int32, maxParallelismConfigured bool) {
	if _, exists := t.chains[id]; !exists {
		t.order = append(t.order, id)
	}
	t.chains[id] = chain
	t.par[id] = parallelism
	t.maxPar[id] = maxParallelism
	t.fixed[id] = maxParallelismConfigured
}

func (t *StaticTopology) Vertices() []VertexId {
	out := make([]VertexId, len(t.order))
	copy(out, t.order)
	return out
}

func (t *StaticTopology) Chain(vertex VertexId) OperatorChain {
	return t.chains[vertex]
}

func (t *StaticTopology) Parallelism(vertex VertexId) int32 {
	return t.par[vertex]
}

func (t *StaticTopology) MaxParallelism(vertex VertexId) int32 {
	return t.maxPar[vertex]
}

func (t *StaticTopology) IsMaxParallelismConfigured(vertex VertexId) bool {
	return t.fixed[vertex]
}

func (t *StaticTopology) SetMaxParallelism(vertex VertexId, value int32) {
	t.maxPar[vertex] = value
}
