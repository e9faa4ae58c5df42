package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"

	"github.com/codypharm/Opensafari/internal/chain"
	"github.com/codypharm/Opensafari/internal/contract"
	"github.com/codypharm/Opensafari/internal/state"
	"github.com/codypharm/Opensafari/internal/txbuffer"
	"github.com/codypharm/Opensafari/internal/types"
)

type chainNode interface {
	BlockNumber() uint64
	GetBlock(ctx context.Context, number uint64) (*types.Block, error)
	GetReceipt(ctx context.Context, txHash types.Hash) (*types.Receipt, error)
	SendTransaction(ctx context.Context, tx *types.TransactionOrder) (types.Hash, error)
	Call(ctx context.Context, from, to types.Address, input []byte) ([]byte, error)
	PendingNonce(ctx context.Context, addr types.Address) (uint64, error)
	ContractAt(ctx context.Context, addr types.Address) (*state.ContractInfo, error)
	Contracts(ctx context.Context) ([]*state.ContractInfo, error)
	Registry() *contract.Registry
}

// ChainEndpoints registers the API of the development chain, accounts are the addresses of node's signers.
func ChainEndpoints(node chainNode, accounts []types.Address) RegistrarFunc {
	return func(r *mux.Router) {
		r.HandleFunc("/accounts", getAccounts(accounts)).Methods("GET", "OPTIONS")
		r.HandleFunc("/block-number", getBlockNumber(node)).Methods("GET", "OPTIONS")
		r.HandleFunc("/blocks/{number}", getBlock(node)).Methods("GET", "OPTIONS")
		r.HandleFunc("/receipts/{hash}", getReceipt(node)).Methods("GET", "OPTIONS")
		r.HandleFunc("/nonces/{address}", getNonce(node)).Methods("GET", "OPTIONS")
		r.HandleFunc("/contracts", getContracts(node)).Methods("GET", "OPTIONS")
		r.HandleFunc("/contracts/{address}", getContract(node)).Methods("GET", "OPTIONS")
		r.HandleFunc("/transactions", postTransaction(node)).Methods("POST", "OPTIONS")
		r.HandleFunc("/call", postCall(node)).Methods("POST", "OPTIONS")
		r.HandleFunc("/tokens/{address}/balance/{owner}", getTokenBalance(node)).Methods("GET", "OPTIONS")
	}
}

func getAccounts(accounts []types.Address) http.HandlerFunc {
	if accounts == nil {
		accounts = []types.Address{}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, AccountsResponse{Accounts: accounts})
	}
}

func getBlockNumber(node chainNode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, BlockNumberResponse{BlockNumber: node.BlockNumber()})
	}
}

func getBlock(node chainNode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var number uint64
		if s := mux.Vars(r)["number"]; s == "latest" {
			number = node.BlockNumber()
		} else {
			n, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				invalidParamResponse(w, "number", err)
				return
			}
			number = n
		}
		b, err := node.GetBlock(r.Context(), number)
		if err != nil {
			writeErrorResponse(w, err)
			return
		}
		writeResponse(w, b)
	}
}

func getReceipt(node chainNode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h, err := parseHash(mux.Vars(r)["hash"])
		if err != nil {
			invalidParamResponse(w, "hash", err)
			return
		}
		rcp, err := node.GetReceipt(r.Context(), h)
		if err != nil {
			writeErrorResponse(w, err)
			return
		}
		writeResponse(w, rcp)
	}
}

func getNonce(node chainNode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr, err := parseAddress(mux.Vars(r)["address"])
		if err != nil {
			invalidParamResponse(w, "address", err)
			return
		}
		nonce, err := node.PendingNonce(r.Context(), addr)
		if err != nil {
			writeErrorResponse(w, err)
			return
		}
		writeResponse(w, NonceResponse{Nonce: nonce})
	}
}

func getContracts(node chainNode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contracts, err := node.Contracts(r.Context())
		if err != nil {
			writeErrorResponse(w, err)
			return
		}
		if contracts == nil {
			contracts = []*state.ContractInfo{}
		}
		writeResponse(w, ContractsResponse{Contracts: contracts})
	}
}

func getContract(node chainNode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr, err := parseAddress(mux.Vars(r)["address"])
		if err != nil {
			invalidParamResponse(w, "address", err)
			return
		}
		info, err := node.ContractAt(r.Context(), addr)
		if err != nil {
			writeErrorResponse(w, err)
			return
		}
		writeResponse(w, info)
	}
}

/*
postTransaction accepts signed transaction either as raw CBOR (Content-Type
application/cbor) or as JSON SendTxRequest.
*/
func postTransaction(node chainNode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		buf, err := io.ReadAll(r.Body)
		if err != nil {
			errorResponse(w, http.StatusBadRequest, fmt.Errorf("failed to read request body: %w", err))
			return
		}
		if r.Header.Get(headerContentType) != applicationCBOR {
			req := &SendTxRequest{}
			if err := json.Unmarshal(buf, req); err != nil {
				errorResponse(w, http.StatusBadRequest, fmt.Errorf("failed to decode request body: %w", err))
				return
			}
			buf = req.Tx
		}
		tx := &types.TransactionOrder{}
		if err := types.Cbor.Unmarshal(buf, tx); err != nil {
			errorResponse(w, http.StatusBadRequest, fmt.Errorf("failed to decode transaction: %w", err))
			return
		}
		h, err := node.SendTransaction(r.Context(), tx)
		if err != nil {
			writeErrorResponse(w, err)
			return
		}
		w.Header().Set(headerContentType, applicationJson)
		w.WriteHeader(http.StatusAccepted)
		if err := json.NewEncoder(w).Encode(SendTxResponse{TxHash: h}); err != nil {
			log.Warning("failed to encode response data as json: %v", err)
		}
	}
}

func postCall(node chainNode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		req := &CallRequest{}
		if !decodeJSON(w, r, req) {
			return
		}
		out, err := node.Call(r.Context(), req.From, req.To, req.Data)
		if err != nil {
			writeErrorResponse(w, err)
			return
		}
		writeResponse(w, CallResponse{Data: out})
	}
}

// getTokenBalance calls balanceOf of the token contract at address.
func getTokenBalance(node chainNode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		tokenAddr, err := parseAddress(vars["address"])
		if err != nil {
			invalidParamResponse(w, "address", err)
			return
		}
		owner, err := parseAddress(vars["owner"])
		if err != nil {
			invalidParamResponse(w, "owner", err)
			return
		}
		info, err := node.ContractAt(r.Context(), tokenAddr)
		if err != nil {
			writeErrorResponse(w, err)
			return
		}
		def, err := node.Registry().Get(info.Type)
		if err != nil {
			writeErrorResponse(w, err)
			return
		}
		input, err := def.Pack("balanceOf", owner)
		if err != nil {
			errorResponse(w, http.StatusBadRequest, fmt.Errorf("contract %s is not a token: %w", info.Type, err))
			return
		}
		out, err := node.Call(r.Context(), owner, tokenAddr, input)
		if err != nil {
			writeErrorResponse(w, err)
			return
		}
		res, err := def.Unpack("balanceOf", out)
		if err != nil {
			writeErrorResponse(w, err)
			return
		}
		balance, ok := res[0].(*big.Int)
		if !ok {
			writeErrorResponse(w, fmt.Errorf("unexpected balanceOf result type %T", res[0]))
			return
		}
		writeResponse(w, BalanceResponse{Token: tokenAddr, Owner: owner, Balance: balance.String()})
	}
}

func parseAddress(s string) (types.Address, error) {
	if !common.IsHexAddress(s) {
		return types.Address{}, fmt.Errorf("%q is not a hex encoded address", s)
	}
	return common.HexToAddress(s), nil
}

func parseHash(s string) (types.Hash, error) {
	var h types.Hash
	if err := h.UnmarshalText([]byte(s)); err != nil {
		return types.Hash{}, err
	}
	return h, nil
}

// decodeJSON decodes request body into v, on failure bad request response is sent and false returned.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		errorResponse(w, http.StatusBadRequest, fmt.Errorf("failed to decode request body: %w", err))
		return false
	}
	return true
}

func writeResponse(w http.ResponseWriter, data any) {
	w.Header().Set(headerContentType, applicationJson)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warning("failed to encode response data as json: %v", err)
	}
}

var (
	// invalidTxErrors are rejections of the transaction itself, client must not retry as is
	invalidTxErrors = []error{
		chain.ErrInvalidNonce,
		chain.ErrUnknownTxKind,
		types.ErrTxIsNil,
		types.ErrMissingSignature,
		types.ErrInvalidSender,
		types.ErrInvalidSignature,
		contract.ErrUnknownContract,
	}
	unavailableErrors = []error{
		txbuffer.ErrTxBufferFull,
		txbuffer.ErrTxInBuffer,
	}
)

func isOneOf(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// writeErrorResponse maps err to HTTP status code.
func writeErrorResponse(w http.ResponseWriter, err error) {
	var revert *contract.RevertError
	switch {
	case errors.As(err, &revert):
		writeError(w, http.StatusUnprocessableEntity, ErrorResponse{Message: err.Error(), RevertReason: revert.Reason})
	case errors.Is(err, chain.ErrBlockNotFound),
		errors.Is(err, chain.ErrReceiptNotFound),
		errors.Is(err, chain.ErrNoContract):
		errorResponse(w, http.StatusNotFound, err)
	case isOneOf(err, invalidTxErrors):
		errorResponse(w, http.StatusBadRequest, err)
	case isOneOf(err, unavailableErrors):
		errorResponse(w, http.StatusServiceUnavailable, err)
	default:
		log.Error("API request failed: %v", err)
		errorResponse(w, http.StatusInternalServerError, err)
	}
}

func invalidParamResponse(w http.ResponseWriter, name string, err error) {
	errorResponse(w, http.StatusBadRequest, fmt.Errorf("invalid parameter %q: %w", name, err))
}

func errorResponse(w http.ResponseWriter, code int, err error) {
	writeError(w, code, ErrorResponse{Message: err.Error()})
}

func writeError(w http.ResponseWriter, code int, rsp ErrorResponse) {
	w.Header().Set(headerContentType, applicationJson)
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Warning("failed to encode error response as json: %v", err)
	}
}
