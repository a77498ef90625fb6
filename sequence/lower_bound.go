package sequence

import (
	"context"
	"errors"
	"math"
	"strings"
)

// ErrUnboundedSequence is returned when every probe up to the int64 range is in use,
// e.g. a constant formatter over a populated column.
var ErrUnboundedSequence = errors.New("sequence has no free value in the int64 range")

// EncryptedSuffix marks encrypted columns. They are queried through an accessor named
// without the suffix.
const EncryptedSuffix = "_crypt"

// unbounded stands in for an unknown upper bound.
const unbounded = math.MaxInt64

// Oracle reports whether raw value n is already in use.
type Oracle func(ctx context.Context, n int64) (bool, error)

// FinderOracle formats each probe before asking the finder.
func FinderOracle(finder Finder, format Formatter) Oracle {
	return func(ctx context.Context, n int64) (bool, error) {
		return finder.Exists(ctx, format(n))
	}
}

// AccessorName returns the name used to look values up for a column.
func AccessorName(column string) string {
	return strings.TrimSuffix(column, EncryptedSuffix)
}

// LowerBound finds K such that the oracle holds for 1..K and not for K+1, in O(log K)
// oracle calls. The oracle is assumed monotone; with gaps the result is the end of the
// first unbroken run starting at 1.
func LowerBound(ctx context.Context, exists Oracle) (int64, error) {
	current, lower, upper := int64(1), int64(0), int64(unbounded)
	for {
		used, err := exists(ctx, current)
		if err != nil {
			return 0, err
		}

		switch {
		case used:
			if current == unbounded {
				return 0, ErrUnboundedSequence
			}
			lower = max(current, lower)
			current = nextProbe(current, upper)
		case current-lower > 1:
			upper = min(current, upper)
			current = nextProbe(lower, current)
		default:
			// current == lower+1 and is free
			return lower, nil
		}
	}
}

// nextProbe doubles while the upper bound is unknown and bisects once it is known.
// Past half the int64 range doubling would wrap, so it bisects towards upper instead.
func nextProbe(lower, upper int64) int64 {
	if lower > unbounded/2 {
		return lower + (upper-lower+1)/2
	}
	return min((lower+1)/2+upper/2, lower*2)
}
