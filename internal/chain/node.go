package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/codypharm/Opensafari/internal/contract"
	"github.com/codypharm/Opensafari/internal/logger"
	"github.com/codypharm/Opensafari/internal/state"
	"github.com/codypharm/Opensafari/internal/txbuffer"
	"github.com/codypharm/Opensafari/internal/types"
)

var (
	ErrBlockNotFound   = errors.New("block not found")
	ErrReceiptNotFound = errors.New("receipt not found")
	ErrInvalidNonce    = errors.New("invalid nonce")
	ErrNoContract      = errors.New("no contract at address")
	ErrUnknownTxKind   = errors.New("unknown transaction kind")
	ErrNotChainDB      = errors.New("database is not empty but contains no blocks")
)

var log = logger.CreateForPackage()

/*
Node is a single-party development chain.

Transactions submitted with SendTransaction are queued in the tx buffer and
executed by Run, which seals one block per transaction ("automine"). Every
transaction is executed inside a state savepoint so a failing transaction
leaves no trace except its receipt and the consumed nonce.
*/
type Node struct {
	// mutex serializes state access, outside of it the state is always committed
	mutex     sync.Mutex
	state     *state.State
	buffer    *txbuffer.TxBuffer
	registry  *contract.Registry
	executors TxExecutors
	clock     func() time.Time
	head      *types.Block
	headHash  types.Hash
	// next nonce of accounts with transactions in the buffer
	pending   map[types.Address]uint64

	notifyMu sync.Mutex
	notify   chan struct{} // closed and replaced when new block is sealed
}

func New(opts ...Option) (*Node, error) {
	options := DefaultOptions()
	for _, option := range opts {
		option(options)
	}
	if err := options.init(); err != nil {
		return nil, fmt.Errorf("initializing options: %w", err)
	}
	s, err := state.New(options.db)
	if err != nil {
		return nil, fmt.Errorf("creating state: %w", err)
	}
	buf, err := txbuffer.New(options.txBufferSize)
	if err != nil {
		return nil, fmt.Errorf("creating tx buffer: %w", err)
	}
	n := &Node{
		state:     s,
		buffer:    buf,
		registry:  options.registry,
		executors: make(TxExecutors),
		clock:     options.clock,
		pending:   make(map[types.Address]uint64),
		notify:    make(chan struct{}),
	}
	if err := n.executors.Add(contractExecutors()); err != nil {
		return nil, fmt.Errorf("registering tx executors: %w", err)
	}
	if err := n.loadOrCreateGenesis(); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Node) loadOrCreateGenesis() error {
	head, err := loadHead(n.state)
	if err != nil {
		return err
	}
	if head == nil {
		empty, err := n.state.IsEmpty()
		if err != nil {
			return fmt.Errorf("checking database: %w", err)
		}
		if !empty {
			return ErrNotChainDB
		}
		head = &types.Block{Number: 0, Timestamp: n.timestamp()}
		if err := n.state.Apply(storeBlock(head)...); err != nil {
			return fmt.Errorf("storing genesis block: %w", err)
		}
		if err := n.state.Commit(); err != nil {
			n.state.Revert()
			return fmt.Errorf("committing genesis block: %w", err)
		}
		log.Info("created genesis block")
	} else {
		log.Info("resuming chain from block %d", head.Number)
	}
	return n.setHead(head)
}

func (n *Node) setHead(b *types.Block) error {
	h, err := b.Hash()
	if err != nil {
		return err
	}
	n.head = b
	n.headHash = h
	return nil
}

func (n *Node) timestamp() uint64 {
	return uint64(n.clock().Unix())
}

func (n *Node) Registry() *contract.Registry {
	return n.registry
}

/*
Run executes buffered transactions until ctx is cancelled, sealing a block for
every transaction. Error is returned when sealed block can't be persisted.
*/
func (n *Node) Run(ctx context.Context) error {
	log.Info("automining from block %d", n.BlockNumber())
	for {
		tx, err := n.buffer.Remove(ctx)
		if err != nil {
			return err
		}
		if err := n.mine(tx); err != nil {
			return fmt.Errorf("sealing block: %w", err)
		}
	}
}

func (n *Node) mine(tx *types.TransactionOrder) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	txHash, err := tx.Hash()
	if err != nil {
		return fmt.Errorf("hashing transaction: %w", err)
	}
	number := n.head.Number + 1
	receipt := n.execute(tx, txHash, number)

	block := &types.Block{
		Number:       number,
		ParentHash:   n.headHash,
		Timestamp:    n.timestamp(),
		Transactions: []*types.TransactionOrder{tx},
		Receipts:     []*types.Receipt{receipt},
	}
	if err := n.state.Apply(storeBlock(block)...); err != nil {
		n.state.Revert()
		return fmt.Errorf("storing block %d: %w", number, err)
	}
	if err := n.state.Commit(); err != nil {
		n.state.Revert()
		return fmt.Errorf("committing block %d: %w", number, err)
	}
	if err := n.setHead(block); err != nil {
		return err
	}
	if next, ok := n.pending[tx.From]; ok && next <= tx.Nonce+1 {
		delete(n.pending, tx.From)
	}
	log.Debug("sealed block %d, tx %s status %d", number, txHash, receipt.Status)
	n.broadcast()
	return nil
}

// execute runs the tx, nonce of the sender is consumed even when the tx reverts.
func (n *Node) execute(tx *types.TransactionOrder, txHash types.Hash, blockNr uint64) *types.Receipt {
	receipt := &types.Receipt{
		TxHash:      txHash,
		BlockNumber: blockNr,
		From:        tx.From,
		To:          tx.To,
		Status:      types.TxStatusSuccessful,
		Logs:        []*types.Log{},
	}
	sp := n.state.Savepoint()
	res, err := n.executors.Execute(tx, &TxExecutionContext{state: n.state, registry: n.registry, CurrentBlockNr: blockNr})
	if err != nil {
		n.state.RollbackToSavepoint(sp)
		receipt.Status = types.TxStatusReverted
		receipt.RevertReason = contract.RevertReason(err)
		log.Debug("tx %s reverted: %v", txHash, err)
	} else {
		n.state.ReleaseToSavepoint(sp)
		receipt.ContractAddress = res.ContractAddress
		receipt.Logs = append(receipt.Logs, res.Logs...)
	}
	if err := n.state.Apply(state.IncrementNonce(tx.From)); err != nil {
		log.Warning("incrementing nonce of %s: %v", tx.From, err)
	}
	return receipt
}

func (n *Node) broadcast() {
	n.notifyMu.Lock()
	defer n.notifyMu.Unlock()
	close(n.notify)
	n.notify = make(chan struct{})
}

func (n *Node) newBlockCh() <-chan struct{} {
	n.notifyMu.Lock()
	defer n.notifyMu.Unlock()
	return n.notify
}

/*
SendTransaction validates the signature and nonce of the tx and queues it for
execution. Returns hash of the transaction.
*/
func (n *Node) SendTransaction(ctx context.Context, tx *types.TransactionOrder) (types.Hash, error) {
	if tx == nil {
		return types.Hash{}, types.ErrTxIsNil
	}
	if err := tx.VerifySender(); err != nil {
		return types.Hash{}, err
	}
	switch tx.Kind {
	case types.TxKindDeploy:
		if _, err := n.registry.Get(tx.Contract); err != nil {
			return types.Hash{}, err
		}
	case types.TxKindCall:
	default:
		return types.Hash{}, fmt.Errorf("%w %s", ErrUnknownTxKind, tx.Kind)
	}

	n.mutex.Lock()
	defer n.mutex.Unlock()

	expected, err := n.pendingNonce(tx.From)
	if err != nil {
		return types.Hash{}, err
	}
	if tx.Nonce != expected {
		return types.Hash{}, fmt.Errorf("%w: expected %d, got %d", ErrInvalidNonce, expected, tx.Nonce)
	}
	txHash, err := n.buffer.Add(tx)
	if err != nil {
		return types.Hash{}, err
	}
	n.pending[tx.From] = tx.Nonce + 1
	return txHash, nil
}

// WaitForReceipt blocks until tx with given hash has been included in a block.
func (n *Node) WaitForReceipt(ctx context.Context, txHash types.Hash) (*types.Receipt, error) {
	for {
		ch := n.newBlockCh()
		r, err := n.GetReceipt(ctx, txHash)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, ErrReceiptNotFound) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ch:
		}
	}
}

/*
Call executes a contract method against the latest block without creating a
transaction. All state changes made by the call are discarded.
*/
func (n *Node) Call(ctx context.Context, from, to types.Address, input []byte) ([]byte, error) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	sp := n.state.Savepoint()
	defer n.state.RollbackToSavepoint(sp)

	exeCtx := &TxExecutionContext{state: n.state, registry: n.registry, CurrentBlockNr: n.head.Number}
	def, err := exeCtx.contractAt(to)
	if err != nil {
		return nil, err
	}
	return def.Call(exeCtx.callContext(from, to), input)
}

// PendingNonce returns the nonce the next transaction of addr must have.
func (n *Node) PendingNonce(ctx context.Context, addr types.Address) (uint64, error) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	return n.pendingNonce(addr)
}

func (n *Node) pendingNonce(addr types.Address) (uint64, error) {
	if next, ok := n.pending[addr]; ok {
		return next, nil
	}
	return n.state.GetNonce(addr)
}

func (n *Node) BlockNumber() uint64 {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	return n.head.Number
}

func (n *Node) GetBlock(ctx context.Context, number uint64) (*types.Block, error) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	return loadBlock(n.state, number)
}

func (n *Node) GetReceipt(ctx context.Context, txHash types.Hash) (*types.Receipt, error) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	return loadReceipt(n.state, txHash)
}

// Contracts returns all deployed contracts ordered by address.
func (n *Node) Contracts(ctx context.Context) ([]*state.ContractInfo, error) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	return n.state.Contracts()
}

// ContractAt returns metadata of the contract deployed at addr.
func (n *Node) ContractAt(ctx context.Context, addr types.Address) (*state.ContractInfo, error) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	info, err := n.state.GetContract(addr)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return nil, fmt.Errorf("%w %s", ErrNoContract, addr)
		}
		return nil, err
	}
	return info, nil
}
