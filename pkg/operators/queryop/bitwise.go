package queryop

import (
	"fmt"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
)

func bitsAllSet(v, mask int64) bool   { return v&mask == mask }
func bitsAnySet(v, mask int64) bool   { return v&mask != 0 }
func bitsAllClear(v, mask int64) bool { return v&mask == 0 }
func bitsAnyClear(v, mask int64) bool { return v&mask != mask }

// bitMask accepts a numeric mask or a list of bit positions. Positions
// past 63 refer to the sign bit, as two's complement sign extension
// would.
func bitMask(value interface{}) (int64, error) {
	if positions, ok := value.([]interface{}); ok {
		var mask int64
		for _, p := range positions {
			pos, ok := document.ToInt64(p)
			if !ok || !document.IsInteger(p) || pos < 0 {
				return 0, fmt.Errorf("%w: bit positions must be non-negative integers, got %v", core.ErrInvalidArgument, p)
			}
			if pos > 63 {
				pos = 63
			}
			mask |= 1 << uint(pos)
		}
		return mask, nil
	}
	if !document.IsInteger(value) {
		return 0, fmt.Errorf("%w: bitmask must be an integer or positions array, got %v", core.ErrInvalidArgument, value)
	}
	mask, _ := document.ToInt64(value)
	if mask < 0 {
		return 0, fmt.Errorf("%w: bitmask must be non-negative", core.ErrInvalidArgument)
	}
	return mask, nil
}

func compileBits(test func(v, mask int64) bool) compiler {
	return func(value interface{}, depth int, ctx *core.Context) (matcher, error) {
		mask, err := bitMask(value)
		if err != nil {
			return nil, err
		}
		return func(lhs interface{}) (bool, error) {
			if !document.IsInteger(lhs) {
				return false, nil
			}
			v, ok := document.ToInt64(lhs)
			return ok && test(v, mask), nil
		}, nil
	}
}
