package artifact

import (
	"fmt"
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// coerce converts v into the Go representation go-ethereum expects for t.
// Values it does not know how to convert are passed through unchanged so the
// ABI packer can report the mismatch.
func coerce(t abi.Type, v any) (any, error) {
	switch t.T {
	case abi.AddressTy:
		if s, ok := v.(string); ok {
			if !common.IsHexAddress(s) {
				return nil, fmt.Errorf("%q is not a hex address", s)
			}
			return common.HexToAddress(s), nil
		}
		return v, nil

	case abi.UintTy, abi.IntTy:
		n, ok := v.(uint64)
		if !ok {
			return v, nil
		}
		return integer(t, n)

	case abi.SliceTy, abi.ArrayTy:
		values, ok := v.([]uint64)
		if !ok || t.Elem == nil || (t.Elem.T != abi.UintTy && t.Elem.T != abi.IntTy) {
			return v, nil
		}
		return integerList(t, values)
	}
	return v, nil
}

func integer(t abi.Type, n uint64) (any, error) {
	if t.Size > 64 {
		return new(big.Int).SetUint64(n), nil
	}

	limitBits := t.Size
	if t.T == abi.IntTy {
		limitBits--
	}
	if limitBits < 64 && n >= uint64(1)<<limitBits {
		return nil, fmt.Errorf("value %d overflows %s", n, t.String())
	}

	rv := reflect.New(t.GetType()).Elem()
	if t.T == abi.UintTy {
		rv.SetUint(n)
	} else {
		rv.SetInt(int64(n))
	}
	return rv.Interface(), nil
}

func integerList(t abi.Type, values []uint64) (any, error) {
	var rv reflect.Value
	switch t.T {
	case abi.ArrayTy:
		if len(values) != t.Size {
			return nil, fmt.Errorf("%s needs %d elements, got %d", t.String(), t.Size, len(values))
		}
		rv = reflect.New(t.GetType()).Elem()
	default:
		rv = reflect.MakeSlice(t.GetType(), len(values), len(values))
	}

	for i, n := range values {
		elem, err := integer(*t.Elem, n)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		rv.Index(i).Set(reflect.ValueOf(elem))
	}
	return rv.Interface(), nil
}
