package reassign

import (
	reassignerrors "github.com/flowstate/reassigner/pkg/errors"
)

// Partition implements the key-group partitioner (§4.5): given the maximum
// parallelism M and a new parallelism P, it produces P contiguous,
// gap-free, non-overlapping ranges whose union is [0, M).
//
// R_i.Lo = i*M/P (integer division), R_i.Hi = (i+1)*M/P - 1.
//
// This formula must stay byte-identical to the one used at checkpoint-write
// time; any divergence here silently corrupts every stored keyed-state
// handle's addressing, which is why it lives in exactly one place and every
// other component calls through it rather than recomputing ranges inline.
func Partition(maxParallelism, newParallelism int32) ([]KeyGroupRange, error) {
	if newParallelism <= 0 || maxParallelism < newParallelism {
		return nil, reassignerrors.Newf(reassignerrors.CodeInvalidParallelism,
			"partition requires max_parallelism >= new_parallelism > 0, got max=%d new=%d",
			maxParallelism, newParallelism)
	}

	ranges := make([]KeyGroupRange, newParallelism)
	m64 := int64(maxParallelism)
	p64 := int64(newParallelism)
	for i := int64(0); i < p64; i++ {
		lo := i * m64 / p64
		hi := (i+1)*m64/p64 - 1
		ranges[i] = KeyGroupRange{Lo: int32(lo), Hi: int32(hi)}
	}
	return ranges, nil
}

// KeyGroupOwner returns the index of the partition in ranges that contains
// key group g, or -1 if none does. Useful for tests and for diagnostics that
// need to report which new subtask a given key group landed on.
func KeyGroupOwner(ranges []KeyGroupRange, g int32) int {
	for i, r := range ranges {
		if r.Contains(g) {
			return i
		}
	}
	return -1
}
