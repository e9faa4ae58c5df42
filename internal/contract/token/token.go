// Package token implements the OpenSafariToken ERC-20 contract.
package token

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/codypharm/Opensafari/internal/contract"
	"github.com/codypharm/Opensafari/internal/types"
)

const (
	ContractName = "OpenSafariToken"
	TokenName    = "OpenSafari"
	Symbol       = "OST"
	Decimals     = 18
)

var (
	slotOwner       = []byte("owner")
	slotTotalSupply = []byte("totalSupply")
	prefixBalance   = []byte("balance/")
	prefixAllowance = []byte("allowance/")
)

var Definition = contract.MustDefinition(ContractName, abiJSON, construct, map[string]contract.Handler{
	"name":         constant(TokenName),
	"symbol":       constant(Symbol),
	"decimals":     constant(uint8(Decimals)),
	"totalSupply":  totalSupply,
	"owner":        owner,
	"balanceOf":    balanceOf,
	"allowance":    allowance,
	"transfer":     transfer,
	"approve":      approve,
	"transferFrom": transferFrom,
	"mint":         mint,
})

func constant(v any) contract.Handler {
	return func(*contract.CallContext, []any) ([]any, error) {
		return []any{v}, nil
	}
}

func construct(ctx *contract.CallContext, args []any) error {
	supply, err := contract.AmountArg(args, 0)
	if err != nil {
		return err
	}
	if err := ctx.Storage.Set(slotOwner, ctx.Caller.Bytes()); err != nil {
		return err
	}
	return newLedger(ctx).mint(ctx.Caller, supply)
}

func totalSupply(ctx *contract.CallContext, _ []any) ([]any, error) {
	v, err := contract.GetUint256(ctx.Storage, slotTotalSupply)
	if err != nil {
		return nil, err
	}
	return []any{v}, nil
}

func owner(ctx *contract.CallContext, _ []any) ([]any, error) {
	o, err := getOwner(ctx)
	if err != nil {
		return nil, err
	}
	return []any{o}, nil
}

func balanceOf(ctx *contract.CallContext, args []any) ([]any, error) {
	account, err := contract.AddressArg(args, 0)
	if err != nil {
		return nil, err
	}
	v, err := newLedger(ctx).balance(account)
	if err != nil {
		return nil, err
	}
	return []any{v}, nil
}

func allowance(ctx *contract.CallContext, args []any) ([]any, error) {
	o, err := contract.AddressArg(args, 0)
	if err != nil {
		return nil, err
	}
	spender, err := contract.AddressArg(args, 1)
	if err != nil {
		return nil, err
	}
	v, err := newLedger(ctx).allowance(o, spender)
	if err != nil {
		return nil, err
	}
	return []any{v}, nil
}

func transfer(ctx *contract.CallContext, args []any) ([]any, error) {
	to, err := contract.AddressArg(args, 0)
	if err != nil {
		return nil, err
	}
	amount, err := contract.AmountArg(args, 1)
	if err != nil {
		return nil, err
	}
	if err := newLedger(ctx).transfer(ctx.Caller, to, amount); err != nil {
		return nil, err
	}
	return []any{true}, nil
}

func approve(ctx *contract.CallContext, args []any) ([]any, error) {
	spender, err := contract.AddressArg(args, 0)
	if err != nil {
		return nil, err
	}
	amount, err := contract.AmountArg(args, 1)
	if err != nil {
		return nil, err
	}
	if err := newLedger(ctx).approve(ctx.Caller, spender, amount); err != nil {
		return nil, err
	}
	return []any{true}, nil
}

func transferFrom(ctx *contract.CallContext, args []any) ([]any, error) {
	from, err := contract.AddressArg(args, 0)
	if err != nil {
		return nil, err
	}
	to, err := contract.AddressArg(args, 1)
	if err != nil {
		return nil, err
	}
	amount, err := contract.AmountArg(args, 2)
	if err != nil {
		return nil, err
	}
	l := newLedger(ctx)
	if err := l.spendAllowance(from, ctx.Caller, amount); err != nil {
		return nil, err
	}
	if err := l.transfer(from, to, amount); err != nil {
		return nil, err
	}
	return []any{true}, nil
}

// mint credits the caller, only the owner of the contract may mint.
func mint(ctx *contract.CallContext, args []any) ([]any, error) {
	amount, err := contract.AmountArg(args, 0)
	if err != nil {
		return nil, err
	}
	o, err := getOwner(ctx)
	if err != nil {
		return nil, err
	}
	if o != ctx.Caller {
		return nil, contract.Revert("caller is not the owner")
	}
	return nil, newLedger(ctx).mint(ctx.Caller, amount)
}

func getOwner(ctx *contract.CallContext) (types.Address, error) {
	b, err := ctx.Storage.Get(slotOwner)
	if err != nil {
		return types.Address{}, err
	}
	return common.BytesToAddress(b), nil
}

func balanceSlot(account types.Address) []byte {
	return append(append([]byte{}, prefixBalance...), account.Bytes()...)
}

func allowanceSlot(o, spender types.Address) []byte {
	s := append(append([]byte{}, prefixAllowance...), o.Bytes()...)
	return append(s, spender.Bytes()...)
}

var maxAllowance = new(uint256.Int).Not(new(uint256.Int))
