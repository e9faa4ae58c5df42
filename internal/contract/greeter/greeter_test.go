package greeter

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/codypharm/Opensafari/internal/contract"
	"github.com/codypharm/Opensafari/internal/keyvaluedb/memorydb"
	"github.com/codypharm/Opensafari/internal/state"
)

func TestGreeter(t *testing.T) {
	s, err := state.New(memorydb.New())
	require.NoError(t, err)
	self := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	caller := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	newCtx := func() *contract.CallContext {
		return &contract.CallContext{Caller: caller, Self: self, Storage: s.ContractStorage(self)}
	}
	greeting := func() string {
		input, err := Definition.Pack("greet")
		require.NoError(t, err)
		out, err := Definition.Call(newCtx(), input)
		require.NoError(t, err)
		res, err := Definition.Unpack("greet", out)
		require.NoError(t, err)
		return res[0].(string)
	}

	input, err := Definition.PackConstructor("Hello, world!")
	require.NoError(t, err)
	require.NoError(t, Definition.Deploy(newCtx(), input))
	require.Equal(t, "Hello, world!", greeting())

	input, err = Definition.Pack("setGreeting", "Hola, mundo!")
	require.NoError(t, err)
	ctx := newCtx()
	_, err = Definition.Call(ctx, input)
	require.NoError(t, err)
	require.Len(t, ctx.Logs(), 1)
	require.Equal(t, "Hola, mundo!", greeting())

	// empty greeting clears the slot
	input, err = Definition.Pack("setGreeting", "")
	require.NoError(t, err)
	_, err = Definition.Call(newCtx(), input)
	require.NoError(t, err)
	require.Equal(t, "", greeting())
}
