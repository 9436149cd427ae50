// Package reassign implements the checkpoint state reassignment core: it
// takes the persisted state of a previous job execution and deterministically
// redistributes it across a new set of parallel task instances on restart or
// rescale.
package reassign

import (
	"encoding/binary"
	"fmt"
)

// OperatorId is a 128-bit opaque identifier for a single user-level stateful
// operator. It is stable across job restarts and is the primary key under
// which prior-execution state is indexed.
type OperatorId struct {
	hi uint64
	lo uint64
}

// NewOperatorId builds an OperatorId from its two 64-bit halves.
func NewOperatorId(hi, lo uint64) OperatorId {
	return OperatorId{hi: hi, lo: lo}
}

// OperatorIdFromBytes decodes a 16-byte big-endian buffer into an OperatorId.
func OperatorIdFromBytes(b [16]byte) OperatorId {
	return OperatorId{
		hi: binary.BigEndian.Uint64(b[0:8]),
		lo: binary.BigEndian.Uint64(b[8:16]),
	}
}

// Bytes returns the canonical 16-byte big-endian encoding. String renders
// the same bytes as hex, which is what OperatorInstanceId.Key builds on.
func (o OperatorId) Bytes() [16]byte {
	var b [16]byte
	binary.BigEndian.PutUint64(b[0:8], o.hi)
	binary.BigEndian.PutUint64(b[8:16], o.lo)
	return b
}

// String renders the id as a fixed-width hex string.
func (o OperatorId) String() string {
	return fmt.Sprintf("%016x%016x", o.hi, o.lo)
}

// Equal reports whether two operator ids refer to the same operator.
func (o OperatorId) Equal(other OperatorId) bool {
	return o.hi == other.hi && o.lo == other.lo
}

// IsZero reports whether this is the zero-value OperatorId, used as the
// "absent" sentinel for optional alt-operator-id slots.
func (o OperatorId) IsZero() bool {
	return o.hi == 0 && o.lo == 0
}

// SubtaskIndex is a non-negative parallel-instance index in [0, parallelism).
type SubtaskIndex int32

// OperatorInstanceId names one operator's state at one subtask index. It is
// used as a map key within a process; Go's builtin map hashing over its two
// plain fields is seeded per process, so a key that must be stable across
// processes (e.g. for a distributed ledger key) comes from Key() below.
type OperatorInstanceId struct {
	Subtask SubtaskIndex
	Op      OperatorId
}

// Key returns a process-stable string key suitable for external persistence
// (the restore ledger, diagnostics records) or for use as a map key when
// determinism of the key's textual form matters.
func (id OperatorInstanceId) Key() string {
	return fmt.Sprintf("%s/%d", id.Op.String(), id.Subtask)
}

// KeyGroupRange is a closed interval [Lo, Hi] over 32-bit key-group ids.
// Invariant: 0 <= Lo <= Hi < max_parallelism, except for the Empty sentinel.
type KeyGroupRange struct {
	Lo int32
	Hi int32
}

// EmptyKeyGroupRange is the sentinel empty range. It never intersects
// anything, including itself.
var EmptyKeyGroupRange = KeyGroupRange{Lo: 0, Hi: -1}

// IsEmpty reports whether r is the empty sentinel (Hi < Lo).
func (r KeyGroupRange) IsEmpty() bool {
	return r.Hi < r.Lo
}

// Len returns the number of key groups covered, 0 for an empty range.
func (r KeyGroupRange) Len() int {
	if r.IsEmpty() {
		return 0
	}
	return int(r.Hi-r.Lo) + 1
}

// Contains reports whether the single key group g falls within r.
func (r KeyGroupRange) Contains(g int32) bool {
	return !r.IsEmpty() && g >= r.Lo && g <= r.Hi
}

// Intersect returns the intersection of r and other, or EmptyKeyGroupRange if
// they are disjoint. Intersection is commutative.
func (r KeyGroupRange) Intersect(other KeyGroupRange) KeyGroupRange {
	if r.IsEmpty() || other.IsEmpty() {
		return EmptyKeyGroupRange
	}
	lo := r.Lo
	if other.Lo > lo {
		lo = other.Lo
	}
	hi := r.Hi
	if other.Hi < hi {
		hi = other.Hi
	}
	if lo > hi {
		return EmptyKeyGroupRange
	}
	return KeyGroupRange{Lo: lo, Hi: hi}
}

// Equal reports structural equality, treating any two empty ranges as equal
// regardless of their exact Lo/Hi sentinel values.
func (r KeyGroupRange) Equal(other KeyGroupRange) bool {
	if r.IsEmpty() && other.IsEmpty() {
		return true
	}
	return r.Lo == other.Lo && r.Hi == other.Hi
}

// Less orders ranges by Lo then Hi, matching §4.1's ordering contract.
func (r KeyGroupRange) Less(other KeyGroupRange) bool {
	if r.Lo != other.Lo {
		return r.Lo < other.Lo
	}
	return r.Hi < other.Hi
}

func (r KeyGroupRange) String() string {
	if r.IsEmpty() {
		return "[]"
	}
	return fmt.Sprintf("[%d,%d]", r.Lo, r.Hi)
}
