package rpc

import (
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/codypharm/Opensafari/internal/state"
	"github.com/codypharm/Opensafari/internal/types"
)

type (
	AccountsResponse struct {
		Accounts []types.Address `json:"accounts"`
	}

	BlockNumberResponse struct {
		BlockNumber uint64 `json:"blockNumber"`
	}

	NonceResponse struct {
		Nonce uint64 `json:"nonce"`
	}

	// SendTxRequest carries CBOR encoded signed transaction.
	SendTxRequest struct {
		Tx hexutil.Bytes `json:"tx"`
	}

	SendTxResponse struct {
		TxHash types.Hash `json:"txHash"`
	}

	CallRequest struct {
		From types.Address `json:"from"`
		To   types.Address `json:"to"`
		Data hexutil.Bytes `json:"data"`
	}

	CallResponse struct {
		Data hexutil.Bytes `json:"data"`
	}

	ContractsResponse struct {
		Contracts []*state.ContractInfo `json:"contracts"`
	}

	BalanceResponse struct {
		Token   types.Address `json:"token"`
		Owner   types.Address `json:"owner"`
		Balance string        `json:"balance"` // decimal amount in the smallest unit
	}

	ErrorResponse struct {
		Message      string `json:"message"`
		RevertReason string `json:"revertReason,omitempty"`
	}
)
