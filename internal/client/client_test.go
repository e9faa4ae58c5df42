package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codypharm/Opensafari/internal/account"
	"github.com/codypharm/Opensafari/internal/chain"
	"github.com/codypharm/Opensafari/internal/contract"
	"github.com/codypharm/Opensafari/internal/contract/greeter"
	"github.com/codypharm/Opensafari/internal/contract/token"
	"github.com/codypharm/Opensafari/internal/types"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	node, err := chain.New()
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- node.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	signers, err := account.FromMnemonic("", 3)
	require.NoError(t, err)
	c, err := New(node, node.Registry(), signers)
	require.NoError(t, err)
	return c
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestOpenSafariToken_InitialSupplyAndMint(t *testing.T) {
	ctx := testContext(t)
	c := newTestClient(t)

	initialSupply, err := types.ParseUnits("1000000", "ether")
	require.NoError(t, err)

	factory, err := c.GetContractFactory("OpenSafariToken")
	require.NoError(t, err)
	deployed, err := factory.Deploy(ctx, initialSupply)
	require.NoError(t, err)
	deployed, err = deployed.Deployed(ctx)
	require.NoError(t, err)
	tkn := NewToken(deployed)

	owner := c.GetSigners()[0]
	balance, err := tkn.BalanceOf(ctx, owner.Address())
	require.NoError(t, err)
	require.Equal(t, "1000000", types.FormatEther(balance))

	ptx, err := tkn.Mint(ctx, initialSupply)
	require.NoError(t, err)
	_, err = ptx.Wait(ctx)
	require.NoError(t, err)

	balance, err = tkn.BalanceOf(ctx, owner.Address())
	require.NoError(t, err)
	require.Equal(t, "2000000", types.FormatEther(balance))
	require.Equal(t, types.Ether(2_000_000), balance)
}

func TestRunTokenScenario(t *testing.T) {
	c := newTestClient(t)
	res, err := RunTokenScenario(testContext(t), c, types.Ether(1_000_000), types.Ether(1_000_000))
	require.NoError(t, err)
	require.Equal(t, c.GetSigners()[0].Address(), res.Owner)
	require.Equal(t, types.Ether(1_000_000), res.InitialBalance)
	require.Equal(t, types.Ether(2_000_000), res.FinalBalance)
	require.Equal(t, types.ContractAddress(res.Owner, 0), res.Token)
}

func TestToken_Binding(t *testing.T) {
	ctx := testContext(t)
	c := newTestClient(t)
	signers := c.GetSigners()

	factory, err := c.GetContractFactory(token.ContractName)
	require.NoError(t, err)
	deployed, err := factory.Deploy(ctx, types.Ether(100))
	require.NoError(t, err)
	deployed, err = deployed.Deployed(ctx)
	require.NoError(t, err)
	tkn := NewToken(deployed)

	name, err := tkn.Name(ctx)
	require.NoError(t, err)
	require.Equal(t, token.TokenName, name)
	symbol, err := tkn.Symbol(ctx)
	require.NoError(t, err)
	require.Equal(t, token.Symbol, symbol)
	decimals, err := tkn.Decimals(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 18, decimals)
	owner, err := tkn.Owner(ctx)
	require.NoError(t, err)
	require.Equal(t, signers[0].Address(), owner)

	wait := func(ptx *PendingTx, err error) *types.Receipt {
		t.Helper()
		require.NoError(t, err)
		r, err := ptx.Wait(ctx)
		require.NoError(t, err)
		return r
	}
	wait(tkn.Transfer(ctx, signers[1].Address(), types.Ether(10)))
	wait(tkn.Approve(ctx, signers[2].Address(), types.Ether(30)))
	wait(tkn.Connect(signers[2]).TransferFrom(ctx, signers[0].Address(), signers[2].Address(), types.Ether(20)))

	for addr, expected := range map[types.Address]uint64{signers[0].Address(): 70, signers[1].Address(): 10, signers[2].Address(): 20} {
		balance, err := tkn.BalanceOf(ctx, addr)
		require.NoError(t, err)
		require.Equal(t, types.Ether(expected), balance, addr)
	}
	allowance, err := tkn.Allowance(ctx, signers[0].Address(), signers[2].Address())
	require.NoError(t, err)
	require.Equal(t, types.Ether(10), allowance)
	supply, err := tkn.TotalSupply(ctx)
	require.NoError(t, err)
	require.Equal(t, types.Ether(100), supply)

	// only the owner can mint
	ptx, err := tkn.Connect(signers[1]).Mint(ctx, types.Ether(1))
	require.NoError(t, err)
	r, err := ptx.Wait(ctx)
	require.ErrorIs(t, err, ErrTxReverted)
	require.ErrorContains(t, err, "caller is not the owner")
	require.Equal(t, types.TxStatusReverted, r.Status)
}

func TestFactory_Errors(t *testing.T) {
	ctx := testContext(t)
	c := newTestClient(t)

	_, err := c.GetContractFactory("Missing")
	require.ErrorIs(t, err, contract.ErrUnknownContract)

	factory, err := c.GetContractFactory(token.ContractName)
	require.NoError(t, err)
	_, err = factory.Deploy(ctx, "not a number")
	require.ErrorContains(t, err, "encoding constructor arguments of OpenSafariToken")

	deployed, err := factory.Connect(c.GetSigners()[1]).Deploy(ctx, types.Ether(1))
	require.NoError(t, err)
	require.Equal(t, types.ContractAddress(c.GetSigners()[1].Address(), 0), deployed.Address())
	require.NotNil(t, deployed.DeployTransaction())
	_, err = deployed.Deployed(ctx)
	require.NoError(t, err)

	_, err = deployed.Call(ctx, "missingMethod")
	require.ErrorIs(t, err, contract.ErrUnknownMethod)
}

func TestContract_Greeter(t *testing.T) {
	ctx := testContext(t)
	c := newTestClient(t)

	factory, err := c.GetContractFactory(greeter.ContractName)
	require.NoError(t, err)
	g, err := factory.Deploy(ctx, "Hello, world!")
	require.NoError(t, err)
	g, err = g.Deployed(ctx)
	require.NoError(t, err)

	res, err := g.Call(ctx, "greet")
	require.NoError(t, err)
	require.Equal(t, "Hello, world!", res[0])

	_, err = g.Transact(ctx, "greet")
	require.ErrorIs(t, err, ErrViewMethod)

	ptx, err := g.Transact(ctx, "setGreeting", "Hola, mundo!")
	require.NoError(t, err)
	r, err := ptx.Wait(ctx)
	require.NoError(t, err)
	require.Len(t, r.Logs, 1)

	attached, err := c.ContractAt(greeter.ContractName, g.Address())
	require.NoError(t, err)
	require.Nil(t, attached.DeployTransaction())
	attached, err = attached.Deployed(ctx)
	require.NoError(t, err)
	res, err = attached.Call(ctx, "greet")
	require.NoError(t, err)
	require.Equal(t, "Hola, mundo!", res[0])
}

func TestNew_Validation(t *testing.T) {
	node, err := chain.New()
	require.NoError(t, err)
	signers, err := account.FromMnemonic("", 1)
	require.NoError(t, err)

	_, err = New(nil, node.Registry(), signers)
	require.EqualError(t, err, "backend is nil")
	_, err = New(node, nil, signers)
	require.EqualError(t, err, "contract registry is nil")
	_, err = New(node, node.Registry(), nil)
	require.EqualError(t, err, "at least one signer is required")
}
