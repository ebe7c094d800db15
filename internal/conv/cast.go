package conv

import (
	"fmt"
	"math"
)

// IntToUint32 converts int to uint32 safely.
func IntToUint32(v int) (uint32, error) {
	if v < 0 {
		return 0, fmt.Errorf("integer overflow: %d cannot be converted to uint32 (negative)", v)
	}
	// On 64-bit systems, int can exceed uint32 max; on 32-bit, this is always false
	if uint64(v) > math.MaxUint32 {
		return 0, fmt.Errorf("integer overflow: %d cannot be converted to uint32 (too large)", v)
	}
	return uint32(v), nil
}

// IntsToUint32 converts every element of vs, failing on the first that does
// not fit.
func IntsToUint32(vs []int) ([]uint32, error) {
	out := make([]uint32, len(vs))
	for i, v := range vs {
		u, err := IntToUint32(v)
		if err != nil {
			return nil, err
		}
		out[i] = u
	}
	return out, nil
}
