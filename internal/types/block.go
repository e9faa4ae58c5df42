package types

import "fmt"

type Block struct {
	_            struct{}            `cbor:",toarray"`
	Number       uint64              `json:"number"`
	ParentHash   Hash                `json:"parentHash"`
	Timestamp    uint64              `json:"timestamp"`
	Transactions []*TransactionOrder `json:"transactions"`
	Receipts     []*Receipt          `json:"receipts"`
}

func (b *Block) Hash() (Hash, error) {
	data, err := Cbor.Marshal(b)
	if err != nil {
		return Hash{}, fmt.Errorf("encoding block %d: %w", b.Number, err)
	}
	return Keccak256(data), nil
}
