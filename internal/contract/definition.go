package contract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

type (
	// Handler implements a contract method, args and return values are in ABI order.
	Handler func(ctx *CallContext, args []any) ([]any, error)

	// ConstructorFunc initializes storage of a freshly deployed contract.
	ConstructorFunc func(ctx *CallContext, args []any) error

	// Definition is a contract type that can be deployed by name.
	Definition struct {
		Name        string
		ABI         abi.ABI
		constructor ConstructorFunc
		methods     map[string]Handler
	}
)

// NewDefinition parses the ABI and checks that every ABI method has a handler and vice versa.
func NewDefinition(name, abiJSON string, constructor ConstructorFunc, methods map[string]Handler) (*Definition, error) {
	if name == "" {
		return nil, errors.New("contract name is empty")
	}
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("parsing %s ABI: %w", name, err)
	}
	for m := range parsed.Methods {
		if methods[m] == nil {
			return nil, fmt.Errorf("%s: method %q has no handler", name, m)
		}
	}
	for m := range methods {
		if _, ok := parsed.Methods[m]; !ok {
			return nil, fmt.Errorf("%s: handler %q is not in the ABI", name, m)
		}
	}
	if constructor == nil {
		constructor = func(*CallContext, []any) error { return nil }
	}
	return &Definition{Name: name, ABI: parsed, constructor: constructor, methods: methods}, nil
}

func MustDefinition(name, abiJSON string, constructor ConstructorFunc, methods map[string]Handler) *Definition {
	d, err := NewDefinition(name, abiJSON, constructor, methods)
	if err != nil {
		panic(err)
	}
	return d
}

// Deploy runs the constructor with ABI-encoded arguments.
func (d *Definition) Deploy(ctx *CallContext, input []byte) error {
	ctx.events = d.ABI.Events
	var args []any
	if len(d.ABI.Constructor.Inputs) > 0 {
		var err error
		if args, err = d.ABI.Constructor.Inputs.Unpack(input); err != nil {
			return Revert("invalid constructor arguments: %v", err)
		}
	}
	return d.constructor(ctx, args)
}

// Call dispatches input (4 byte method selector and ABI-encoded arguments) to the method handler
// and returns ABI-encoded result.
func (d *Definition) Call(ctx *CallContext, input []byte) ([]byte, error) {
	ctx.events = d.ABI.Events
	if len(input) < 4 {
		return nil, Revert("%v: input too short", ErrUnknownMethod)
	}
	method, err := d.ABI.MethodById(input[:4])
	if err != nil {
		return nil, Revert("%v: selector %x", ErrUnknownMethod, input[:4])
	}
	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, Revert("invalid arguments for %s: %v", method.Name, err)
	}
	out, err := d.methods[method.Name](ctx, args)
	if err != nil {
		return nil, err
	}
	res, err := method.Outputs.Pack(NormalizeArgs(out)...)
	if err != nil {
		return nil, fmt.Errorf("packing %s result: %w", method.Name, err)
	}
	return res, nil
}

// IsView returns true when method doesn't modify state.
func (d *Definition) IsView(method string) bool {
	m, ok := d.ABI.Methods[method]
	return ok && m.IsConstant()
}

func (d *Definition) PackConstructor(args ...any) ([]byte, error) {
	return d.ABI.Pack("", NormalizeArgs(args)...)
}

func (d *Definition) Pack(method string, args ...any) ([]byte, error) {
	if _, ok := d.ABI.Methods[method]; !ok {
		return nil, fmt.Errorf("%w %q of %s", ErrUnknownMethod, method, d.Name)
	}
	return d.ABI.Pack(method, NormalizeArgs(args)...)
}

func (d *Definition) Unpack(method string, data []byte) ([]any, error) {
	if _, ok := d.ABI.Methods[method]; !ok {
		return nil, fmt.Errorf("%w %q of %s", ErrUnknownMethod, method, d.Name)
	}
	return d.ABI.Unpack(method, data)
}
