package client

import (
	"context"
	"fmt"

	"github.com/codypharm/Opensafari/internal/account"
	"github.com/codypharm/Opensafari/internal/contract"
	"github.com/codypharm/Opensafari/internal/types"
)

// Contract is a handle of a deployed contract bound to a signer.
type Contract struct {
	client   *Client
	def      *contract.Definition
	signer   *account.Signer
	address  types.Address
	deployTx *PendingTx
}

func (c *Contract) Address() types.Address {
	return c.address
}

func (c *Contract) Signer() *account.Signer {
	return c.signer
}

// DeployTransaction returns nil when the contract was not deployed by this handle.
func (c *Contract) DeployTransaction() *PendingTx {
	return c.deployTx
}

// Deployed waits until the deploy transaction is executed, error is returned when it reverted.
func (c *Contract) Deployed(ctx context.Context) (*Contract, error) {
	if c.deployTx == nil {
		return c, nil
	}
	r, err := c.deployTx.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("deploying %s: %w", c.def.Name, err)
	}
	if r.ContractAddress != c.address {
		return nil, fmt.Errorf("%s deployed to %s, expected %s", c.def.Name, r.ContractAddress, c.address)
	}
	return c, nil
}

// Connect returns copy of the handle which sends transactions signed by signer.
func (c *Contract) Connect(signer *account.Signer) *Contract {
	cpy := *c
	cpy.signer = signer
	return &cpy
}

// Call executes method without sending transaction and returns decoded results.
func (c *Contract) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	input, err := c.def.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encoding %s call: %w", method, err)
	}
	out, err := c.client.backend.Call(ctx, c.signer.Address(), c.address, input)
	if err != nil {
		return nil, fmt.Errorf("calling %s.%s: %w", c.def.Name, method, err)
	}
	res, err := c.def.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("decoding %s result: %w", method, err)
	}
	return res, nil
}

// Transact sends transaction invoking method, use Wait of the returned PendingTx to get the receipt.
// View methods are rejected with ErrViewMethod, read them with Call.
func (c *Contract) Transact(ctx context.Context, method string, args ...any) (*PendingTx, error) {
	if c.def.IsView(method) {
		return nil, fmt.Errorf("%w: %s.%s, use Call", ErrViewMethod, c.def.Name, method)
	}
	input, err := c.def.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encoding %s call: %w", method, err)
	}
	ptx, err := c.client.send(ctx, c.signer, &types.TransactionOrder{
		Kind:  types.TxKindCall,
		To:    c.address,
		Input: input,
	})
	if err != nil {
		return nil, fmt.Errorf("calling %s.%s: %w", c.def.Name, method, err)
	}
	return ptx, nil
}
