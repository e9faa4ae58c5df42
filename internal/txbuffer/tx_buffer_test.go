package txbuffer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/codypharm/Opensafari/internal/types"
)

const testBufferSize = 10

func newTx(nonce uint64) *types.TransactionOrder {
	return &types.TransactionOrder{
		Kind:  types.TxKindCall,
		From:  common.HexToAddress("0x01"),
		Nonce: nonce,
		To:    common.HexToAddress("0x02"),
		Input: []byte{1, 2, 3, 4},
	}
}

func Test_TxBuffer_New(t *testing.T) {
	t.Run("invalid buffer size", func(t *testing.T) {
		buffer, err := New(0)
		require.EqualError(t, err, `buffer max size must be greater than zero, got 0`)
		require.Nil(t, buffer)
	})

	t.Run("success", func(t *testing.T) {
		buffer, err := New(testBufferSize)
		require.NoError(t, err)
		require.NotNil(t, buffer.transactions)
		require.EqualValues(t, testBufferSize, cap(buffer.transactionsCh))
	})
}

func Test_TxBuffer_Add(t *testing.T) {
	t.Run("nil tx is rejected", func(t *testing.T) {
		buffer, err := New(testBufferSize)
		require.NoError(t, err)
		txh, err := buffer.Add(nil)
		require.ErrorIs(t, err, ErrTxIsNil)
		require.Equal(t, types.Hash{}, txh)
		require.Empty(t, buffer.transactions)
		require.Zero(t, buffer.Len())
	})

	t.Run("tx already in buffer", func(t *testing.T) {
		buffer, err := New(testBufferSize)
		require.NoError(t, err)

		tx := newTx(0)
		txh, err := buffer.Add(tx)
		require.NoError(t, err)
		require.NotEqual(t, types.Hash{}, txh)
		require.True(t, buffer.Contains(txh))

		_, err = buffer.Add(tx)
		require.ErrorIs(t, err, ErrTxInBuffer)
		require.Len(t, buffer.transactions, 1)
		require.Equal(t, 1, buffer.Len())
	})

	t.Run("buffer is full", func(t *testing.T) {
		buffer, err := New(testBufferSize)
		require.NoError(t, err)
		for i := 0; i < testBufferSize; i++ {
			_, err := buffer.Add(newTx(uint64(i)))
			require.NoError(t, err)
		}
		_, err = buffer.Add(newTx(testBufferSize))
		require.ErrorIs(t, err, ErrTxBufferFull)
		require.Len(t, buffer.transactions, testBufferSize)
	})
}

func Test_TxBuffer_Remove(t *testing.T) {
	t.Run("returns transactions in order of adding", func(t *testing.T) {
		buffer, err := New(testBufferSize)
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			_, err := buffer.Add(newTx(uint64(i)))
			require.NoError(t, err)
		}
		for i := 0; i < 3; i++ {
			tx, err := buffer.Remove(context.Background())
			require.NoError(t, err)
			require.EqualValues(t, i, tx.Nonce)
			h, err := tx.Hash()
			require.NoError(t, err)
			require.False(t, buffer.Contains(h))
		}
		require.Empty(t, buffer.transactions)
	})

	t.Run("removed tx can be added again", func(t *testing.T) {
		buffer, err := New(testBufferSize)
		require.NoError(t, err)
		tx := newTx(0)
		_, err = buffer.Add(tx)
		require.NoError(t, err)
		_, err = buffer.Remove(context.Background())
		require.NoError(t, err)
		_, err = buffer.Add(tx)
		require.NoError(t, err)
	})

	t.Run("blocks until ctx is cancelled", func(t *testing.T) {
		buffer, err := New(testBufferSize)
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		var done atomic.Bool
		go func() {
			_, err := buffer.Remove(ctx)
			require.ErrorIs(t, err, context.Canceled)
			done.Store(true)
		}()
		time.Sleep(50 * time.Millisecond)
		require.False(t, done.Load())
		cancel()
		require.Eventually(t, done.Load, time.Second, 10*time.Millisecond)
	})
}
