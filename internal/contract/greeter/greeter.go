// Package greeter implements a contract that stores a single greeting.
package greeter

import (
	"github.com/codypharm/Opensafari/internal/contract"
)

const ContractName = "Greeter"

const abiJSON = `[
	{"type":"constructor","inputs":[{"name":"greeting","type":"string"}]},
	{"type":"function","name":"greet","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"setGreeting","stateMutability":"nonpayable","inputs":[{"name":"greeting","type":"string"}],"outputs":[]},
	{"type":"event","name":"GreetingChanged","anonymous":false,"inputs":[{"name":"by","type":"address","indexed":true},{"name":"greeting","type":"string","indexed":false}]}
]`

var slotGreeting = []byte("greeting")

var Definition = contract.MustDefinition(ContractName, abiJSON,
	func(ctx *contract.CallContext, args []any) error {
		g, err := contract.StringArg(args, 0)
		if err != nil {
			return err
		}
		return ctx.Storage.Set(slotGreeting, []byte(g))
	},
	map[string]contract.Handler{
		"greet":       greet,
		"setGreeting": setGreeting,
	})

func greet(ctx *contract.CallContext, _ []any) ([]any, error) {
	b, err := ctx.Storage.Get(slotGreeting)
	if err != nil {
		return nil, err
	}
	return []any{string(b)}, nil
}

func setGreeting(ctx *contract.CallContext, args []any) ([]any, error) {
	g, err := contract.StringArg(args, 0)
	if err != nil {
		return nil, err
	}
	if err := ctx.Storage.Set(slotGreeting, []byte(g)); err != nil {
		return nil, err
	}
	return nil, ctx.Emit("GreetingChanged", ctx.Caller, g)
}
