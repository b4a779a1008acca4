package container

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/stratadb/strata/internal/errors"
	"github.com/stratadb/strata/pkg/types"
)

// Null sentinels per dtype. Absent fields in combined-layout records are
// stored as these values.
var (
	sentinelFloat64 = math.NaN()
	sentinelInt64   = int64(math.MinInt64)
	sentinelUint64  = uint64(math.MaxUint64)
)

// IsNull reports whether a decoded value is the null sentinel for its dtype.
func IsNull(dtype string, v interface{}) bool {
	switch dtype {
	case types.DTypeFloat64:
		f, ok := v.(float64)
		return ok && math.IsNaN(f)
	case types.DTypeInt64:
		i, ok := v.(int64)
		return ok && i == sentinelInt64
	case types.DTypeUint64:
		u, ok := v.(uint64)
		return ok && u == sentinelUint64
	}
	return false
}

// encodeCell writes one value into an 8-byte cell, little endian. A nil
// value writes the dtype's null sentinel. Numeric values are coerced;
// JSON-decoded numbers arrive as float64 and are accepted for all dtypes.
func encodeCell(dtype string, v interface{}, cell []byte) error {
	var bits uint64
	switch dtype {
	case types.DTypeFloat64:
		f, err := toFloat64(v)
		if err != nil {
			return err
		}
		bits = math.Float64bits(f)
	case types.DTypeInt64:
		i, err := toInt64(v)
		if err != nil {
			return err
		}
		bits = uint64(i)
	case types.DTypeUint64:
		u, err := toUint64(v)
		if err != nil {
			return err
		}
		bits = u
	default:
		return errors.NewStorageError(errors.CodeWriteFailed,
			fmt.Sprintf("unsupported cell dtype %q", dtype), nil)
	}
	binary.LittleEndian.PutUint64(cell[:8], bits)
	return nil
}

// decodeCell reads one 8-byte cell back into its native Go representation:
// float64 for f8, int64 for i8, uint64 for u8.
func decodeCell(dtype string, cell []byte) interface{} {
	bits := binary.LittleEndian.Uint64(cell[:8])
	switch dtype {
	case types.DTypeInt64:
		return int64(bits)
	case types.DTypeUint64:
		return bits
	default:
		return math.Float64frombits(bits)
	}
}

func toFloat64(v interface{}) (float64, error) {
	switch x := v.(type) {
	case nil:
		return sentinelFloat64, nil
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	}
	return 0, errors.NewStorageError(errors.CodeWriteFailed,
		fmt.Sprintf("cannot store %T as f8", v), nil)
}

func toInt64(v interface{}) (int64, error) {
	switch x := v.(type) {
	case nil:
		return sentinelInt64, nil
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case uint64:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case float32:
		return int64(x), nil
	}
	return 0, errors.NewStorageError(errors.CodeWriteFailed,
		fmt.Sprintf("cannot store %T as i8", v), nil)
}

func toUint64(v interface{}) (uint64, error) {
	switch x := v.(type) {
	case nil:
		return sentinelUint64, nil
	case uint64:
		return x, nil
	case int64:
		return uint64(x), nil
	case int:
		return uint64(x), nil
	case float64:
		return uint64(x), nil
	case float32:
		return uint64(x), nil
	}
	return 0, errors.NewStorageError(errors.CodeWriteFailed,
		fmt.Sprintf("cannot store %T as u8", v), nil)
}

// AttrInt64 normalizes a metadata attribute to int64. Attributes round-trip
// through JSON, so integers read back as float64.
func AttrInt64(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	case uint64:
		return int64(x), true
	}
	return 0, false
}
