package contract

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/codypharm/Opensafari/internal/types"
)

func AddressArg(args []any, i int) (types.Address, error) {
	if i >= len(args) {
		return types.Address{}, fmt.Errorf("%w: missing argument %d", ErrInvalidArgument, i)
	}
	a, ok := args[i].(types.Address)
	if !ok {
		return types.Address{}, fmt.Errorf("%w: argument %d is %T, expected address", ErrInvalidArgument, i, args[i])
	}
	return a, nil
}

func AmountArg(args []any, i int) (*uint256.Int, error) {
	if i >= len(args) {
		return nil, fmt.Errorf("%w: missing argument %d", ErrInvalidArgument, i)
	}
	b, ok := args[i].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: argument %d is %T, expected uint256", ErrInvalidArgument, i, args[i])
	}
	v, overflow := uint256.FromBig(b)
	if overflow || b.Sign() < 0 {
		return nil, fmt.Errorf("%w: argument %d out of range", ErrInvalidArgument, i)
	}
	return v, nil
}

func StringArg(args []any, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("%w: missing argument %d", ErrInvalidArgument, i)
	}
	s, ok := args[i].(string)
	if !ok {
		return "", fmt.Errorf("%w: argument %d is %T, expected string", ErrInvalidArgument, i, args[i])
	}
	return s, nil
}

// GetUint256 reads slot as big-endian number, missing slot is zero.
func GetUint256(st Storage, slot []byte) (*uint256.Int, error) {
	b, err := st.Get(slot)
	if err != nil {
		return nil, err
	}
	if len(b) > 32 {
		return nil, fmt.Errorf("slot %x holds %d bytes, not a uint256", slot, len(b))
	}
	return new(uint256.Int).SetBytes(b), nil
}

// SetUint256 writes v into slot, zero clears the slot.
func SetUint256(st Storage, slot []byte, v *uint256.Int) error {
	if v == nil || v.IsZero() {
		return st.Set(slot, nil)
	}
	return st.Set(slot, v.Bytes())
}
