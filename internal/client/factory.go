package client

import (
	"context"
	"fmt"

	"github.com/codypharm/Opensafari/internal/account"
	"github.com/codypharm/Opensafari/internal/contract"
	"github.com/codypharm/Opensafari/internal/types"
)

// Factory deploys contracts of single type.
type Factory struct {
	client *Client
	def    *contract.Definition
	signer *account.Signer
}

// Connect returns copy of the factory which deploys using given signer.
func (f *Factory) Connect(signer *account.Signer) *Factory {
	cpy := *f
	cpy.signer = signer
	return &cpy
}

func (f *Factory) Name() string {
	return f.def.Name
}

/*
Deploy sends deploy transaction with constructor arguments args. Returned
contract has address assigned but Deployed must be called to make sure it
was deployed successfully.
*/
func (f *Factory) Deploy(ctx context.Context, args ...any) (*Contract, error) {
	input, err := f.def.PackConstructor(args...)
	if err != nil {
		return nil, fmt.Errorf("encoding constructor arguments of %s: %w", f.def.Name, err)
	}
	ptx, err := f.client.send(ctx, f.signer, &types.TransactionOrder{
		Kind:     types.TxKindDeploy,
		Contract: f.def.Name,
		Input:    input,
	})
	if err != nil {
		return nil, fmt.Errorf("deploying %s: %w", f.def.Name, err)
	}
	return &Contract{
		client:   f.client,
		def:      f.def,
		signer:   f.signer,
		address:  types.ContractAddress(ptx.From, ptx.Nonce),
		deployTx: ptx,
	}, nil
}
