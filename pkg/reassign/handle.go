package reassign

// DistributionMode controls how an operator-state stream's sub-partitions
// are redistributed across new subtasks during repartitioning (§4.7).
type DistributionMode int

const (
	// SplitDistribute round-robins sub-partitions across new subtasks.
	SplitDistribute DistributionMode = iota
	// Union gives every new subtask the full concatenated sub-partition list.
	Union
	// Broadcast gives every new subtask a copy of one old subtask's list.
	Broadcast
)

func (m DistributionMode) String() string {
	switch m {
	case SplitDistribute:
		return "SPLIT_DISTRIBUTE"
	case Union:
		return "UNION"
	case Broadcast:
		return "BROADCAST"
	default:
		return "UNKNOWN"
	}
}

// KeyedStateHandle is an opaque, immutable descriptor pointing to persisted
// keyed state bytes, carrying just enough metadata (its key-group range) to
// support intersection-based reassignment without reading the payload.
//
// Handles are a closed sum type from the core's point of view: the only
// operations it performs on a handle are KeyGroupRange, Intersect, and
// equality. Concrete backends (RocksDB incremental handles, heap snapshot
// handles, …) are free to carry arbitrary payload behind this interface.
type KeyedStateHandle interface {
	// KeyGroupRange returns the total range of key groups this handle covers.
	KeyGroupRange() KeyGroupRange
	// Intersect returns a handle restricted to the intersection with r, and
	// true, or the zero value and false if the intersection is empty.
	//
	// Implementations must preserve equality-under-identity-intersection:
	// h.Intersect(h.KeyGroupRange()) must return h itself (by Equal), not a
	// freshly rebuilt but equivalent value, whenever that is practical.
	Intersect(r KeyGroupRange) (KeyedStateHandle, bool)
	// Equal reports whether two handles are the same logical handle.
	Equal(other KeyedStateHandle) bool
	// ID is an opaque, implementation-defined identifier used for logging
	// and ledger rows; it carries no reassignment semantics.
	ID() string
}

// rangeHandle is the reference KeyedStateHandle implementation: a handle
// whose entire payload is range-addressed (the common case for keyed state
// backends used by this core's callers).
type rangeHandle struct {
	id    string
	krnge KeyGroupRange
}

// NewRangeKeyedStateHandle builds the reference KeyedStateHandle
// implementation covering exactly the given range.
func NewRangeKeyedStateHandle(id string, r KeyGroupRange) KeyedStateHandle {
	return rangeHandle{id: id, krnge: r}
}

func (h rangeHandle) KeyGroupRange() KeyGroupRange { return h.krnge }

func (h rangeHandle) Intersect(r KeyGroupRange) (KeyedStateHandle, bool) {
	ix := h.krnge.Intersect(r)
	if ix.IsEmpty() {
		return nil, false
	}
	if ix.Equal(h.krnge) {
		return h, true
	}
	return rangeHandle{id: h.id, krnge: ix}, true
}

func (h rangeHandle) Equal(other KeyedStateHandle) bool {
	o, ok := other.(rangeHandle)
	if !ok {
		return false
	}
	return h.id == o.id && h.krnge.Equal(o.krnge)
}

func (h rangeHandle) ID() string { return h.id }

// OperatorStateSubPartition is one bytewise-offset-addressed sub-partition of
// an operator-state stream, as written by a single old subtask.
type OperatorStateSubPartition struct {
	// SourceSubtask is the old subtask index that originally wrote this
	// sub-partition. It is carried along unchanged; SPLIT_DISTRIBUTE and
	// UNION order by the index of the old subtask whose handle holds the
	// sub-partition, not by this field.
	SourceSubtask SubtaskIndex
	// Offset is the sub-partition's original position within its source
	// subtask's stream, used to order sub-partitions within one old
	// subtask's contribution.
	Offset int
	// Handle is an opaque reference to the underlying bytes (a byte range,
	// a file path plus offsets — whatever the producing backend chose).
	// The core only ever copies this reference; it never reads it.
	Handle string
}

// StateMeta describes one named operator-state stream: its distribution
// mode and the ordered sub-partitions a single old subtask contributed.
type StateMeta struct {
	StreamName string
	Mode       DistributionMode
	Partitions []OperatorStateSubPartition
}

// OperatorStateHandle is an opaque descriptor for one old subtask's
// operator-list-state contribution to one operator, carrying a StateMeta per
// named stream.
type OperatorStateHandle struct {
	Streams map[string]StateMeta
}

// NewOperatorStateHandle builds an empty OperatorStateHandle ready to accept
// streams via its Streams map.
func NewOperatorStateHandle() OperatorStateHandle {
	return OperatorStateHandle{Streams: make(map[string]StateMeta)}
}

// IsEmpty reports whether the handle carries no streams at all.
func (h OperatorStateHandle) IsEmpty() bool {
	return len(h.Streams) == 0
}
