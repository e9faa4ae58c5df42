package chain

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/codypharm/Opensafari/internal/account"
	"github.com/codypharm/Opensafari/internal/contract"
	"github.com/codypharm/Opensafari/internal/contract/greeter"
	"github.com/codypharm/Opensafari/internal/contract/token"
	"github.com/codypharm/Opensafari/internal/keyvaluedb/boltdb"
	"github.com/codypharm/Opensafari/internal/keyvaluedb/memorydb"
	"github.com/codypharm/Opensafari/internal/txbuffer"
	"github.com/codypharm/Opensafari/internal/types"
)

func testSigners(t *testing.T) []*account.Signer {
	t.Helper()
	signers, err := account.FromMnemonic("", 2)
	require.NoError(t, err)
	return signers
}

// startNode creates node and runs automining until the test ends.
func startNode(t *testing.T, opts ...Option) *Node {
	t.Helper()
	n, err := New(opts...)
	require.NoError(t, err)
	runNode(t, n)
	return n
}

func runNode(t *testing.T, n *Node) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.ErrorIs(t, <-done, context.Canceled)
	})
}

func sendTx(t *testing.T, n *Node, signer *account.Signer, tx *types.TransactionOrder) *types.Receipt {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	nonce, err := n.PendingNonce(ctx, signer.Address())
	require.NoError(t, err)
	tx.Nonce = nonce
	require.NoError(t, signer.SignTx(tx))
	h, err := n.SendTransaction(ctx, tx)
	require.NoError(t, err)
	r, err := n.WaitForReceipt(ctx, h)
	require.NoError(t, err)
	require.Equal(t, h, r.TxHash)
	return r
}

func deployToken(t *testing.T, n *Node, signer *account.Signer, supply *uint256.Int) types.Address {
	t.Helper()
	input, err := token.Definition.PackConstructor(supply)
	require.NoError(t, err)
	r := sendTx(t, n, signer, &types.TransactionOrder{Kind: types.TxKindDeploy, Contract: token.ContractName, Input: input})
	require.True(t, r.Successful(), r.RevertReason)
	return r.ContractAddress
}

func callToken(t *testing.T, n *Node, signer *account.Signer, addr types.Address, method string, args ...any) *types.Receipt {
	t.Helper()
	input, err := token.Definition.Pack(method, args...)
	require.NoError(t, err)
	return sendTx(t, n, signer, &types.TransactionOrder{Kind: types.TxKindCall, To: addr, Input: input})
}

func balanceOf(t *testing.T, n *Node, addr, owner types.Address) *uint256.Int {
	t.Helper()
	input, err := token.Definition.Pack("balanceOf", owner)
	require.NoError(t, err)
	out, err := n.Call(context.Background(), owner, addr, input)
	require.NoError(t, err)
	res, err := token.Definition.Unpack("balanceOf", out)
	require.NoError(t, err)
	v, overflow := uint256.FromBig(res[0].(*big.Int))
	require.False(t, overflow)
	return v
}

func TestNew_Genesis(t *testing.T) {
	n, err := New(WithClock(func() time.Time { return time.Unix(1700000000, 0) }))
	require.NoError(t, err)
	require.EqualValues(t, 0, n.BlockNumber())

	b, err := n.GetBlock(context.Background(), 0)
	require.NoError(t, err)
	require.EqualValues(t, 1700000000, b.Timestamp)
	require.Empty(t, b.Transactions)

	_, err = n.GetBlock(context.Background(), 1)
	require.ErrorIs(t, err, ErrBlockNotFound)
	require.NotNil(t, n.Registry())
}

func TestNode_DeployAndMint(t *testing.T) {
	signers := testSigners(t)
	deployer := signers[0]
	n := startNode(t)

	addr := deployToken(t, n, deployer, types.Ether(1_000_000))
	require.Equal(t, types.ContractAddress(deployer.Address(), 0), addr)
	require.Equal(t, types.Ether(1_000_000), balanceOf(t, n, addr, deployer.Address()))

	info, err := n.ContractAt(context.Background(), addr)
	require.NoError(t, err)
	require.Equal(t, token.ContractName, info.Type)
	require.Equal(t, deployer.Address(), info.Deployer)
	require.EqualValues(t, 1, info.BlockNumber)

	r := callToken(t, n, deployer, addr, "mint", types.Ether(1_000_000))
	require.True(t, r.Successful(), r.RevertReason)
	require.EqualValues(t, 2, r.BlockNumber)
	require.Len(t, r.Logs, 1)
	require.Equal(t, addr, r.Logs[0].Address)
	require.Equal(t, types.Ether(2_000_000), balanceOf(t, n, addr, deployer.Address()))

	require.EqualValues(t, 2, n.BlockNumber())
	b2, err := n.GetBlock(context.Background(), 2)
	require.NoError(t, err)
	b1, err := n.GetBlock(context.Background(), 1)
	require.NoError(t, err)
	h1, err := b1.Hash()
	require.NoError(t, err)
	require.Equal(t, h1, b2.ParentHash)
	require.Len(t, b2.Transactions, 1)
	require.Equal(t, r, b2.Receipts[0])

	nonce, err := n.PendingNonce(context.Background(), deployer.Address())
	require.NoError(t, err)
	require.EqualValues(t, 2, nonce)
}

func TestNode_RevertedTxConsumesNonce(t *testing.T) {
	signers := testSigners(t)
	n := startNode(t)
	addr := deployToken(t, n, signers[0], types.Ether(1))

	r := callToken(t, n, signers[1], addr, "mint", types.Ether(1))
	require.False(t, r.Successful())
	require.Equal(t, types.TxStatusReverted, r.Status)
	require.Equal(t, "caller is not the owner", r.RevertReason)
	require.Empty(t, r.Logs)
	require.True(t, balanceOf(t, n, addr, signers[1].Address()).IsZero())

	nonce, err := n.PendingNonce(context.Background(), signers[1].Address())
	require.NoError(t, err)
	require.EqualValues(t, 1, nonce)

	// state changes made before the revert are discarded
	r = callToken(t, n, signers[0], addr, "transfer", signers[1].Address(), types.Ether(2))
	require.Equal(t, "transfer amount exceeds balance", r.RevertReason)
	require.Equal(t, types.Ether(1), balanceOf(t, n, addr, signers[0].Address()))
}

func TestNode_CallToMissingContract(t *testing.T) {
	signers := testSigners(t)
	n := startNode(t)
	input, err := token.Definition.Pack("totalSupply")
	require.NoError(t, err)

	_, err = n.Call(context.Background(), signers[0].Address(), signers[1].Address(), input)
	var re *contract.RevertError
	require.ErrorAs(t, err, &re)

	r := sendTx(t, n, signers[0], &types.TransactionOrder{Kind: types.TxKindCall, To: signers[1].Address(), Input: input})
	require.False(t, r.Successful())
	require.Contains(t, r.RevertReason, "no contract at address")

	_, err = n.ContractAt(context.Background(), signers[1].Address())
	require.ErrorIs(t, err, ErrNoContract)
}

func TestNode_CallDoesNotChangeState(t *testing.T) {
	signers := testSigners(t)
	n := startNode(t)
	addr := deployToken(t, n, signers[0], types.Ether(5))

	input, err := token.Definition.Pack("transfer", signers[1].Address(), types.Ether(5))
	require.NoError(t, err)
	out, err := n.Call(context.Background(), signers[0].Address(), addr, input)
	require.NoError(t, err)
	res, err := token.Definition.Unpack("transfer", out)
	require.NoError(t, err)
	require.Equal(t, true, res[0])

	require.Equal(t, types.Ether(5), balanceOf(t, n, addr, signers[0].Address()))
	require.True(t, balanceOf(t, n, addr, signers[1].Address()).IsZero())
}

func TestNode_Greeter(t *testing.T) {
	signers := testSigners(t)
	n := startNode(t)
	input, err := greeter.Definition.PackConstructor("Hello, Hardhat!")
	require.NoError(t, err)
	r := sendTx(t, n, signers[0], &types.TransactionOrder{Kind: types.TxKindDeploy, Contract: greeter.ContractName, Input: input})
	require.True(t, r.Successful(), r.RevertReason)

	greet := func() string {
		input, err := greeter.Definition.Pack("greet")
		require.NoError(t, err)
		out, err := n.Call(context.Background(), signers[0].Address(), r.ContractAddress, input)
		require.NoError(t, err)
		res, err := greeter.Definition.Unpack("greet", out)
		require.NoError(t, err)
		return res[0].(string)
	}
	require.Equal(t, "Hello, Hardhat!", greet())

	input, err = greeter.Definition.Pack("setGreeting", "Hola, mundo!")
	require.NoError(t, err)
	r2 := sendTx(t, n, signers[0], &types.TransactionOrder{Kind: types.TxKindCall, To: r.ContractAddress, Input: input})
	require.True(t, r2.Successful(), r2.RevertReason)
	require.Equal(t, "Hola, mundo!", greet())
}

func TestSendTransaction_Validation(t *testing.T) {
	signers := testSigners(t)
	ctx := context.Background()
	n, err := New(WithTxBufferSize(2))
	require.NoError(t, err)

	newDeploy := func(nonce uint64) *types.TransactionOrder {
		return &types.TransactionOrder{Kind: types.TxKindDeploy, Contract: greeter.ContractName, Nonce: nonce}
	}

	_, err = n.SendTransaction(ctx, nil)
	require.ErrorIs(t, err, types.ErrTxIsNil)

	tx := newDeploy(0)
	tx.From = signers[0].Address()
	_, err = n.SendTransaction(ctx, tx)
	require.ErrorIs(t, err, types.ErrMissingSignature)

	require.NoError(t, tx.Sign(signers[1].PrivateKey()))
	_, err = n.SendTransaction(ctx, tx)
	require.ErrorIs(t, err, types.ErrInvalidSender)

	tx = newDeploy(0)
	tx.Contract = "Missing"
	require.NoError(t, signers[0].SignTx(tx))
	_, err = n.SendTransaction(ctx, tx)
	require.ErrorIs(t, err, contract.ErrUnknownContract)

	tx = newDeploy(0)
	require.NoError(t, signers[0].SignTx(tx))
	tx.Signature = []byte{1, 2, 3}
	_, err = n.SendTransaction(ctx, tx)
	require.ErrorIs(t, err, types.ErrInvalidSignature)

	tx = &types.TransactionOrder{Kind: types.TxKind(9)}
	require.NoError(t, signers[0].SignTx(tx))
	_, err = n.SendTransaction(ctx, tx)
	require.ErrorIs(t, err, ErrUnknownTxKind)

	tx = newDeploy(1)
	require.NoError(t, signers[0].SignTx(tx))
	_, err = n.SendTransaction(ctx, tx)
	require.ErrorIs(t, err, ErrInvalidNonce)

	// pending nonce follows buffered transactions
	for i := uint64(0); i < 2; i++ {
		tx = newDeploy(i)
		require.NoError(t, signers[0].SignTx(tx))
		_, err = n.SendTransaction(ctx, tx)
		require.NoError(t, err)
	}
	nonce, err := n.PendingNonce(ctx, signers[0].Address())
	require.NoError(t, err)
	require.EqualValues(t, 2, nonce)

	_, err = n.SendTransaction(ctx, tx)
	require.ErrorIs(t, err, ErrInvalidNonce)

	tx = newDeploy(0)
	require.NoError(t, signers[1].SignTx(tx))
	_, err = n.SendTransaction(ctx, tx)
	require.ErrorIs(t, err, txbuffer.ErrTxBufferFull)
}

func TestWaitForReceipt_ContextCancelled(t *testing.T) {
	n, err := New()
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = n.WaitForReceipt(ctx, types.Hash{1})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNode_ResumesFromDB(t *testing.T) {
	signers := testSigners(t)
	dbFile := filepath.Join(t.TempDir(), "chain.db")

	db, err := boltdb.New(dbFile)
	require.NoError(t, err)
	n, err := New(WithDB(db))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()
	addr := deployToken(t, n, signers[0], types.Ether(1_000_000))
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	require.NoError(t, db.Close())

	db, err = boltdb.New(dbFile)
	require.NoError(t, err)
	defer db.Close()
	n, err = New(WithDB(db))
	require.NoError(t, err)
	require.EqualValues(t, 1, n.BlockNumber())
	require.Equal(t, types.Ether(1_000_000), balanceOf(t, n, addr, signers[0].Address()))
	nonce, err := n.PendingNonce(context.Background(), signers[0].Address())
	require.NoError(t, err)
	require.EqualValues(t, 1, nonce)

	runNode(t, n)
	r := callToken(t, n, signers[0], addr, "mint", types.Ether(1_000_000))
	require.EqualValues(t, 2, r.BlockNumber)
	require.Equal(t, types.Ether(2_000_000), balanceOf(t, n, addr, signers[0].Address()))
}

func TestNode_Contracts(t *testing.T) {
	signers := testSigners(t)
	n := startNode(t)
	ctx := context.Background()

	contracts, err := n.Contracts(ctx)
	require.NoError(t, err)
	require.Empty(t, contracts)

	tokenAddr := deployToken(t, n, signers[0], types.Ether(1))
	input, err := greeter.Definition.PackConstructor("hi")
	require.NoError(t, err)
	r := sendTx(t, n, signers[1], &types.TransactionOrder{Kind: types.TxKindDeploy, Contract: greeter.ContractName, Input: input})
	require.True(t, r.Successful(), r.RevertReason)

	contracts, err = n.Contracts(ctx)
	require.NoError(t, err)
	require.Len(t, contracts, 2)
	byAddr := map[types.Address]string{}
	for _, c := range contracts {
		byAddr[c.Address] = c.Type
	}
	require.Equal(t, token.ContractName, byAddr[tokenAddr])
	require.Equal(t, greeter.ContractName, byAddr[r.ContractAddress])
}

func TestNew_NotChainDB(t *testing.T) {
	db := memorydb.New()
	require.NoError(t, db.Write([]byte("something else"), "value"))
	n, err := New(WithDB(db))
	require.ErrorIs(t, err, ErrNotChainDB)
	require.Nil(t, n)
}

func TestNew_MissingHeadUsesLastBlock(t *testing.T) {
	signers := testSigners(t)
	db := memorydb.New()
	n := startNode(t, WithDB(db))
	addr := deployToken(t, n, signers[0], types.Ether(5))
	callToken(t, n, signers[0], addr, "mint", types.Ether(5))
	require.EqualValues(t, 2, n.BlockNumber())

	require.NoError(t, db.Delete(keyHead))
	resumed, err := New(WithDB(db))
	require.NoError(t, err)
	require.EqualValues(t, 2, resumed.BlockNumber())
	require.Equal(t, types.Ether(10), balanceOf(t, resumed, addr, signers[0].Address()))
}
