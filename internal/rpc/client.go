package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/holiman/uint256"

	"github.com/codypharm/Opensafari/internal/chain"
	"github.com/codypharm/Opensafari/internal/contract"
	"github.com/codypharm/Opensafari/internal/state"
	"github.com/codypharm/Opensafari/internal/types"
)

const (
	AccountsPath     = "api/v1/accounts"
	BlockNumberPath  = "api/v1/block-number"
	BlocksPath       = "api/v1/blocks"
	ReceiptsPath     = "api/v1/receipts"
	NoncesPath       = "api/v1/nonces"
	ContractsPath    = "api/v1/contracts"
	TransactionsPath = "api/v1/transactions"
	CallPath         = "api/v1/call"
	TokensPath       = "api/v1/tokens"

	defaultScheme       = "http://"
	defaultPollInterval = 100 * time.Millisecond
)

// ErrBadResponse is returned when the API responds with unexpected status code.
var ErrBadResponse = errors.New("unexpected response")

/*
Client is a client of the development chain REST API. It implements the
backend interface of the scripting client so scripts can be run against
the node in another process.
*/
type Client struct {
	BaseUrl      *url.URL
	HttpClient   http.Client
	PollInterval time.Duration
}

func NewClient(baseUrl string) (*Client, error) {
	if !strings.HasPrefix(baseUrl, "http://") && !strings.HasPrefix(baseUrl, "https://") {
		baseUrl = defaultScheme + baseUrl
	}
	u, err := url.Parse(baseUrl)
	if err != nil {
		return nil, fmt.Errorf("error parsing chain API base URL (%s): %w", baseUrl, err)
	}
	return &Client{
		BaseUrl:      u,
		HttpClient:   http.Client{Timeout: time.Minute},
		PollInterval: defaultPollInterval,
	}, nil
}

func (c *Client) Accounts(ctx context.Context) ([]types.Address, error) {
	rsp := &AccountsResponse{}
	if err := c.get(ctx, c.BaseUrl.JoinPath(AccountsPath), rsp); err != nil {
		return nil, fmt.Errorf("get accounts request failed: %w", err)
	}
	return rsp.Accounts, nil
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	rsp := &BlockNumberResponse{}
	if err := c.get(ctx, c.BaseUrl.JoinPath(BlockNumberPath), rsp); err != nil {
		return 0, fmt.Errorf("get block number request failed: %w", err)
	}
	return rsp.BlockNumber, nil
}

func (c *Client) GetBlock(ctx context.Context, number uint64) (*types.Block, error) {
	b := &types.Block{}
	if err := c.get(ctx, c.BaseUrl.JoinPath(BlocksPath, fmt.Sprint(number)), b); err != nil {
		return nil, fmt.Errorf("get block request failed: %w", err)
	}
	return b, nil
}

// GetReceipt returns error wrapping chain.ErrReceiptNotFound when tx hasn't been executed yet.
func (c *Client) GetReceipt(ctx context.Context, txHash types.Hash) (*types.Receipt, error) {
	r := &types.Receipt{}
	if err := c.get(ctx, c.BaseUrl.JoinPath(ReceiptsPath, txHash.Hex()), r); err != nil {
		return nil, fmt.Errorf("get receipt request failed: %w", err)
	}
	return r, nil
}

// WaitForReceipt polls receipt of the tx until it's available or ctx is done.
func (c *Client) WaitForReceipt(ctx context.Context, txHash types.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(c.PollInterval)
	defer ticker.Stop()
	for {
		r, err := c.GetReceipt(ctx, txHash)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, chain.ErrReceiptNotFound) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) PendingNonce(ctx context.Context, addr types.Address) (uint64, error) {
	rsp := &NonceResponse{}
	if err := c.get(ctx, c.BaseUrl.JoinPath(NoncesPath, addr.Hex()), rsp); err != nil {
		return 0, fmt.Errorf("get nonce request failed: %w", err)
	}
	return rsp.Nonce, nil
}

func (c *Client) ContractAt(ctx context.Context, addr types.Address) (*state.ContractInfo, error) {
	info := &state.ContractInfo{}
	if err := c.get(ctx, c.BaseUrl.JoinPath(ContractsPath, addr.Hex()), info); err != nil {
		return nil, fmt.Errorf("get contract request failed: %w", err)
	}
	return info, nil
}

func (c *Client) Contracts(ctx context.Context) ([]*state.ContractInfo, error) {
	rsp := &ContractsResponse{}
	if err := c.get(ctx, c.BaseUrl.JoinPath(ContractsPath), rsp); err != nil {
		return nil, fmt.Errorf("get contracts request failed: %w", err)
	}
	return rsp.Contracts, nil
}

func (c *Client) SendTransaction(ctx context.Context, tx *types.TransactionOrder) (types.Hash, error) {
	if tx == nil {
		return types.Hash{}, types.ErrTxIsNil
	}
	b, err := types.Cbor.Marshal(tx)
	if err != nil {
		return types.Hash{}, fmt.Errorf("encoding transaction: %w", err)
	}
	rsp := &SendTxResponse{}
	if err := c.post(ctx, c.BaseUrl.JoinPath(TransactionsPath), applicationCBOR, b, rsp); err != nil {
		return types.Hash{}, fmt.Errorf("send transaction request failed: %w", err)
	}
	return rsp.TxHash, nil
}

// Call returns *contract.RevertError when the call reverted.
func (c *Client) Call(ctx context.Context, from, to types.Address, input []byte) ([]byte, error) {
	body, err := json.Marshal(CallRequest{From: from, To: to, Data: input})
	if err != nil {
		return nil, err
	}
	rsp := &CallResponse{}
	if err := c.post(ctx, c.BaseUrl.JoinPath(CallPath), applicationJson, body, rsp); err != nil {
		return nil, fmt.Errorf("call request failed: %w", err)
	}
	return rsp.Data, nil
}

func (c *Client) TokenBalance(ctx context.Context, tokenAddr, owner types.Address) (*uint256.Int, error) {
	rsp := &BalanceResponse{}
	if err := c.get(ctx, c.BaseUrl.JoinPath(TokensPath, tokenAddr.Hex(), "balance", owner.Hex()), rsp); err != nil {
		return nil, fmt.Errorf("get token balance request failed: %w", err)
	}
	v, err := types.ParseUnits(rsp.Balance, "wei")
	if err != nil {
		return nil, fmt.Errorf("invalid balance %q: %w", rsp.Balance, err)
	}
	return v, nil
}

func (c *Client) get(ctx context.Context, u *url.URL, data any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set(headerContentType, applicationJson)
	return c.do(req, data)
}

func (c *Client) post(ctx context.Context, u *url.URL, contentType string, body []byte, data any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set(headerContentType, contentType)
	return c.do(req, data)
}

func (c *Client) do(req *http.Request, data any) error {
	rsp, err := c.HttpClient.Do(req)
	if err != nil {
		return err
	}
	defer rsp.Body.Close()

	if rsp.StatusCode >= 300 {
		return decodeError(req.URL, rsp)
	}
	if err := json.NewDecoder(rsp.Body).Decode(data); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// decodeError converts error response back into the sentinel errors of the chain where possible.
func decodeError(u *url.URL, rsp *http.Response) error {
	er := &ErrorResponse{}
	if err := json.NewDecoder(rsp.Body).Decode(er); err != nil {
		return fmt.Errorf("%w: status %s for %s", ErrBadResponse, rsp.Status, u)
	}
	switch rsp.StatusCode {
	case http.StatusUnprocessableEntity:
		return &contract.RevertError{Reason: er.RevertReason}
	case http.StatusNotFound:
		switch {
		case strings.HasPrefix(u.Path, "/"+ReceiptsPath):
			return fmt.Errorf("%w: %s", chain.ErrReceiptNotFound, er.Message)
		case strings.HasPrefix(u.Path, "/"+BlocksPath):
			return fmt.Errorf("%w: %s", chain.ErrBlockNotFound, er.Message)
		case strings.Contains(er.Message, chain.ErrNoContract.Error()):
			return fmt.Errorf("%w: %s", chain.ErrNoContract, er.Message)
		}
	case http.StatusBadRequest:
		if sentinel := matchError(er.Message, invalidTxErrors); sentinel != nil {
			return fmt.Errorf("%w: %s", sentinel, er.Message)
		}
	case http.StatusServiceUnavailable:
		if sentinel := matchError(er.Message, unavailableErrors); sentinel != nil {
			return fmt.Errorf("%w: %s", sentinel, er.Message)
		}
	}
	return fmt.Errorf("%w: status %s: %s", ErrBadResponse, rsp.Status, er.Message)
}

// matchError returns the first of the sentinels whose text is part of the error message.
func matchError(msg string, sentinels []error) error {
	for _, sentinel := range sentinels {
		if strings.Contains(msg, sentinel.Error()) {
			return sentinel
		}
	}
	return nil
}
