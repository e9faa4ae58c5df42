package chain

import (
	"encoding/binary"
	"fmt"

	"github.com/codypharm/Opensafari/internal/state"
	"github.com/codypharm/Opensafari/internal/types"
)

var (
	keyHead       = []byte("head")
	prefixBlock   = []byte("blk")
	prefixReceipt = []byte("rcp")
)

func blockKey(n uint64) []byte {
	return binary.BigEndian.AppendUint64(append([]byte{}, prefixBlock...), n)
}

func receiptKey(txHash types.Hash) []byte {
	return append(append([]byte{}, prefixReceipt...), txHash.Bytes()...)
}

// storeBlock returns actions that persist the block, its receipts and move the head to the block.
func storeBlock(b *types.Block) []state.Action {
	actions := []state.Action{
		state.PutValue(blockKey(b.Number), b),
		state.PutValue(keyHead, b.Number),
	}
	for _, r := range b.Receipts {
		actions = append(actions, state.PutValue(receiptKey(r.TxHash), r))
	}
	return actions
}

func loadHead(s *state.State) (*types.Block, error) {
	var n uint64
	found, err := s.Get(keyHead, &n)
	if err != nil {
		return nil, fmt.Errorf("reading chain head: %w", err)
	}
	if !found {
		return lastStoredBlock(s)
	}
	b, err := loadBlock(s, n)
	if err != nil {
		return nil, fmt.Errorf("reading head block: %w", err)
	}
	return b, nil
}

// lastStoredBlock returns the block with the greatest number, nil when there are no blocks.
func lastStoredBlock(s *state.State) (*types.Block, error) {
	b := &types.Block{}
	key, err := s.Last(prefixBlock, b)
	if err != nil {
		return nil, fmt.Errorf("reading last block: %w", err)
	}
	if key == nil {
		return nil, nil
	}
	log.Warning("chain head is missing, using the last stored block %d", b.Number)
	return b, nil
}

func loadBlock(s *state.State, n uint64) (*types.Block, error) {
	b := &types.Block{}
	found, err := s.Get(blockKey(n), b)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("block %d: %w", n, ErrBlockNotFound)
	}
	return b, nil
}

func loadReceipt(s *state.State, txHash types.Hash) (*types.Receipt, error) {
	r := &types.Receipt{}
	found, err := s.Get(receiptKey(txHash), r)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("receipt %s: %w", txHash, ErrReceiptNotFound)
	}
	return r, nil
}
