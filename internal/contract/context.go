package contract

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/codypharm/Opensafari/internal/types"
)

type (
	// Storage is the persistent key-value storage of a single contract.
	Storage interface {
		Get(slot []byte) ([]byte, error)
		// Set writes the slot, empty value deletes it.
		Set(slot, value []byte) error
	}

	// CallContext is the environment a contract method executes in.
	CallContext struct {
		Caller      types.Address
		Self        types.Address
		BlockNumber uint64
		Storage     Storage
		events      map[string]abi.Event
		logs        []*types.Log
	}
)

func (c *CallContext) Logs() []*types.Log {
	return c.logs
}

// Emit records event log of the executing contract, args must be given in the order of event inputs.
func (c *CallContext) Emit(name string, args ...any) error {
	ev, ok := c.events[name]
	if !ok {
		return fmt.Errorf("unknown event %q", name)
	}
	if len(args) != len(ev.Inputs) {
		return fmt.Errorf("event %s expects %d arguments, got %d", ev.Name, len(ev.Inputs), len(args))
	}
	args = NormalizeArgs(args)
	topics := []types.Hash{ev.ID}
	var data []any
	for i, in := range ev.Inputs {
		if !in.Indexed {
			data = append(data, args[i])
			continue
		}
		topic, err := toTopic(args[i])
		if err != nil {
			return fmt.Errorf("event %s argument %s: %w", ev.Name, in.Name, err)
		}
		topics = append(topics, topic)
	}
	packed, err := ev.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		return fmt.Errorf("packing event %s: %w", ev.Name, err)
	}
	c.logs = append(c.logs, &types.Log{Address: c.Self, Topics: topics, Data: packed})
	return nil
}

func toTopic(v any) (types.Hash, error) {
	switch t := v.(type) {
	case common.Address:
		return common.BytesToHash(t.Bytes()), nil
	case *big.Int:
		return common.BigToHash(t), nil
	case common.Hash:
		return t, nil
	default:
		return types.Hash{}, fmt.Errorf("unsupported indexed type %T", v)
	}
}

// NormalizeArgs converts argument types not known to the ABI encoder, ie *uint256.Int to *big.Int.
func NormalizeArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case *uint256.Int:
			out[i] = v.ToBig()
		case uint256.Int:
			out[i] = v.ToBig()
		default:
			out[i] = a
		}
	}
	return out
}
