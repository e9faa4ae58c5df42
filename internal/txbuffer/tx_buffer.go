package txbuffer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/codypharm/Opensafari/internal/logger"
	"github.com/codypharm/Opensafari/internal/types"
)

var (
	ErrTxIsNil      = errors.New("tx is nil")
	ErrTxInBuffer   = errors.New("tx already in tx buffer")
	ErrTxBufferFull = errors.New("tx buffer is full")
)

var log = logger.CreateForPackage()

// TxBuffer is an in-memory FIFO queue of unconfirmed transactions.
type TxBuffer struct {
	mutex          sync.Mutex
	transactions   map[types.Hash]time.Time // index of pending transactions, hash->added_ts
	transactionsCh chan *types.TransactionOrder
}

/*
New creates a new instance of the TxBuffer.
MaxSize specifies the total number of transactions the TxBuffer may contain.
*/
func New(maxSize uint) (*TxBuffer, error) {
	if maxSize < 1 {
		return nil, fmt.Errorf("buffer max size must be greater than zero, got %d", maxSize)
	}
	return &TxBuffer{
		transactions:   make(map[types.Hash]time.Time),
		transactionsCh: make(chan *types.TransactionOrder, maxSize),
	}, nil
}

/*
Add adds the given transaction into the transaction buffer.
Returns an error if the transaction is nil, is already present in the TxBuffer,
or TxBuffer is full.
*/
func (buf *TxBuffer) Add(tx *types.TransactionOrder) (types.Hash, error) {
	if tx == nil {
		return types.Hash{}, ErrTxIsNil
	}
	txHash, err := tx.Hash()
	if err != nil {
		return types.Hash{}, fmt.Errorf("hashing transaction: %w", err)
	}
	log.Debug("received %s transaction %s from %s, nonce %d", tx.Kind, txHash, tx.From, tx.Nonce)

	buf.mutex.Lock()
	defer buf.mutex.Unlock()

	if _, found := buf.transactions[txHash]; found {
		return types.Hash{}, ErrTxInBuffer
	}

	select {
	case buf.transactionsCh <- tx:
		buf.transactions[txHash] = time.Now()
	default:
		return types.Hash{}, ErrTxBufferFull
	}
	return txHash, nil
}

// Remove blocks until there is a transaction in the buffer or ctx is cancelled.
func (buf *TxBuffer) Remove(ctx context.Context) (*types.TransactionOrder, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case tx := <-buf.transactionsCh:
		txHash, err := tx.Hash()
		if err != nil {
			return nil, fmt.Errorf("hashing transaction: %w", err)
		}
		buf.removeFromIndex(txHash)
		return tx, nil
	}
}

// Contains returns true when tx with given hash is waiting in the buffer.
func (buf *TxBuffer) Contains(txHash types.Hash) bool {
	buf.mutex.Lock()
	defer buf.mutex.Unlock()
	_, found := buf.transactions[txHash]
	return found
}

func (buf *TxBuffer) Len() int {
	return len(buf.transactionsCh)
}

func (buf *TxBuffer) removeFromIndex(id types.Hash) {
	buf.mutex.Lock()
	defer buf.mutex.Unlock()

	if added, found := buf.transactions[id]; found {
		log.Trace("tx %s was buffered for %s", id, time.Since(added))
		delete(buf.transactions, id)
	}
}
