package types

import "github.com/ethereum/go-ethereum/common/hexutil"

type TxStatus uint8

const (
	TxStatusReverted   TxStatus = 0
	TxStatusSuccessful TxStatus = 1
)

type (
	// Receipt is the outcome of a transaction included in a block.
	Receipt struct {
		_               struct{} `cbor:",toarray"`
		TxHash          Hash     `json:"transactionHash"`
		BlockNumber     uint64   `json:"blockNumber"`
		TxIndex         uint32   `json:"transactionIndex"`
		From            Address  `json:"from"`
		To              Address  `json:"to"`
		Status          TxStatus `json:"status"`
		ContractAddress Address  `json:"contractAddress"`
		Logs            []*Log   `json:"logs"`
		RevertReason    string   `json:"revertReason,omitempty"`
	}

	// Log is an event emitted by a contract.
	Log struct {
		_       struct{}      `cbor:",toarray"`
		Address Address       `json:"address"`
		Topics  []Hash        `json:"topics"`
		Data    hexutil.Bytes `json:"data"`
	}
)

func (r *Receipt) Successful() bool {
	return r != nil && r.Status == TxStatusSuccessful
}
