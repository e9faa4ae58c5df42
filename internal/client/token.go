package client

import (
	"context"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/codypharm/Opensafari/internal/account"
	"github.com/codypharm/Opensafari/internal/types"
)

// Token is a typed binding of an ERC-20 contract.
type Token struct {
	*Contract
}

func NewToken(c *Contract) *Token {
	return &Token{Contract: c}
}

func (t *Token) Connect(signer *account.Signer) *Token {
	return &Token{Contract: t.Contract.Connect(signer)}
}

func (t *Token) Name(ctx context.Context) (string, error) {
	return callString(ctx, t.Contract, "name")
}

func (t *Token) Symbol(ctx context.Context) (string, error) {
	return callString(ctx, t.Contract, "symbol")
}

func (t *Token) Decimals(ctx context.Context) (uint8, error) {
	res, err := t.Call(ctx, "decimals")
	if err != nil {
		return 0, err
	}
	d, ok := res[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals type %T", res[0])
	}
	return d, nil
}

func (t *Token) TotalSupply(ctx context.Context) (*uint256.Int, error) {
	return callAmount(ctx, t.Contract, "totalSupply")
}

func (t *Token) BalanceOf(ctx context.Context, owner types.Address) (*uint256.Int, error) {
	return callAmount(ctx, t.Contract, "balanceOf", owner)
}

func (t *Token) Allowance(ctx context.Context, owner, spender types.Address) (*uint256.Int, error) {
	return callAmount(ctx, t.Contract, "allowance", owner, spender)
}

func (t *Token) Owner(ctx context.Context) (types.Address, error) {
	res, err := t.Call(ctx, "owner")
	if err != nil {
		return types.Address{}, err
	}
	a, ok := res[0].(types.Address)
	if !ok {
		return types.Address{}, fmt.Errorf("unexpected owner type %T", res[0])
	}
	return a, nil
}

func (t *Token) Mint(ctx context.Context, amount *uint256.Int) (*PendingTx, error) {
	return t.Transact(ctx, "mint", amount)
}

func (t *Token) Transfer(ctx context.Context, to types.Address, amount *uint256.Int) (*PendingTx, error) {
	return t.Transact(ctx, "transfer", to, amount)
}

func (t *Token) Approve(ctx context.Context, spender types.Address, amount *uint256.Int) (*PendingTx, error) {
	return t.Transact(ctx, "approve", spender, amount)
}

func (t *Token) TransferFrom(ctx context.Context, from, to types.Address, amount *uint256.Int) (*PendingTx, error) {
	return t.Transact(ctx, "transferFrom", from, to, amount)
}

func callString(ctx context.Context, c *Contract, method string) (string, error) {
	res, err := c.Call(ctx, method)
	if err != nil {
		return "", err
	}
	s, ok := res[0].(string)
	if !ok {
		return "", fmt.Errorf("unexpected %s type %T", method, res[0])
	}
	return s, nil
}

func callAmount(ctx context.Context, c *Contract, method string, args ...any) (*uint256.Int, error) {
	res, err := c.Call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	b, ok := res[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s type %T", method, res[0])
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("%s result overflows uint256", method)
	}
	return v, nil
}
