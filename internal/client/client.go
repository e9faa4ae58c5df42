// Package client is a scripting interface for deploying and calling contracts
// on the development chain.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/codypharm/Opensafari/internal/account"
	"github.com/codypharm/Opensafari/internal/contract"
	"github.com/codypharm/Opensafari/internal/logger"
	"github.com/codypharm/Opensafari/internal/types"
)

var (
	ErrTxReverted = errors.New("transaction reverted")
	ErrViewMethod = errors.New("method does not modify state")
)

var log = logger.CreateForPackage()

// Backend is the chain the client talks to, either in process node or a REST client.
type Backend interface {
	SendTransaction(ctx context.Context, tx *types.TransactionOrder) (types.Hash, error)
	WaitForReceipt(ctx context.Context, txHash types.Hash) (*types.Receipt, error)
	Call(ctx context.Context, from, to types.Address, input []byte) ([]byte, error)
	PendingNonce(ctx context.Context, addr types.Address) (uint64, error)
}

type Client struct {
	backend  Backend
	registry *contract.Registry
	signers  []*account.Signer
	// serializes nonce assignment so concurrent sends of the same signer don't collide
	sendMu sync.Mutex
}

func New(backend Backend, registry *contract.Registry, signers []*account.Signer) (*Client, error) {
	if backend == nil {
		return nil, errors.New("backend is nil")
	}
	if registry == nil {
		return nil, errors.New("contract registry is nil")
	}
	if len(signers) == 0 {
		return nil, errors.New("at least one signer is required")
	}
	return &Client{backend: backend, registry: registry, signers: signers}, nil
}

// GetSigners returns the accounts of the client, the first one is the default signer.
func (c *Client) GetSigners() []*account.Signer {
	return c.signers
}

func (c *Client) GetContractFactory(name string) (*Factory, error) {
	def, err := c.registry.Get(name)
	if err != nil {
		return nil, err
	}
	return &Factory{client: c, def: def, signer: c.signers[0]}, nil
}

// ContractAt returns handle of an already deployed contract.
func (c *Client) ContractAt(name string, addr types.Address) (*Contract, error) {
	def, err := c.registry.Get(name)
	if err != nil {
		return nil, err
	}
	return &Contract{client: c, def: def, signer: c.signers[0], address: addr}, nil
}

func (c *Client) send(ctx context.Context, signer *account.Signer, tx *types.TransactionOrder) (*PendingTx, error) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	nonce, err := c.backend.PendingNonce(ctx, signer.Address())
	if err != nil {
		return nil, fmt.Errorf("reading nonce: %w", err)
	}
	tx.Nonce = nonce
	if err := signer.SignTx(tx); err != nil {
		return nil, err
	}
	h, err := c.backend.SendTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("sending transaction: %w", err)
	}
	log.Debug("sent %s tx %s, nonce %d", tx.Kind, h, nonce)
	return &PendingTx{Hash: h, Nonce: nonce, From: signer.Address(), backend: c.backend}, nil
}

// PendingTx is a transaction accepted by the chain but not necessarily executed yet.
type PendingTx struct {
	Hash    types.Hash
	Nonce   uint64
	From    types.Address
	backend Backend
}

// Wait blocks until the tx is executed. Reverted tx is returned with ErrTxReverted.
func (p *PendingTx) Wait(ctx context.Context) (*types.Receipt, error) {
	r, err := p.backend.WaitForReceipt(ctx, p.Hash)
	if err != nil {
		return nil, fmt.Errorf("waiting for receipt of %s: %w", p.Hash, err)
	}
	if !r.Successful() {
		return r, fmt.Errorf("tx %s: %w: %s", p.Hash, ErrTxReverted, r.RevertReason)
	}
	return r, nil
}
