package chain

import (
	"errors"
	"fmt"

	"github.com/codypharm/Opensafari/internal/contract"
	"github.com/codypharm/Opensafari/internal/state"
	"github.com/codypharm/Opensafari/internal/types"
)

type (
	TxExecutors map[types.TxKind]ExecuteFunc

	ExecuteFunc func(tx *types.TransactionOrder, exeCtx *TxExecutionContext) (*ExecutionResult, error)

	TxExecutionContext struct {
		state          *state.State
		registry       *contract.Registry
		CurrentBlockNr uint64
	}

	ExecutionResult struct {
		ContractAddress types.Address
		ReturnData      []byte
		Logs            []*types.Log
	}
)

func (e TxExecutors) Execute(tx *types.TransactionOrder, exeCtx *TxExecutionContext) (*ExecutionResult, error) {
	executor, found := e[tx.Kind]
	if !found {
		return nil, fmt.Errorf("unknown transaction kind %s", tx.Kind)
	}
	res, err := executor(tx, exeCtx)
	if err != nil {
		return nil, fmt.Errorf("tx order execution failed: %w", err)
	}
	return res, nil
}

func (e TxExecutors) Add(src TxExecutors) error {
	for kind, handler := range src {
		if kind == 0 {
			return fmt.Errorf("tx executor must have non-zero tx kind")
		}
		if handler == nil {
			return fmt.Errorf("tx executor must not be nil (%s)", kind)
		}
		if _, ok := e[kind]; ok {
			return fmt.Errorf("tx executor for %q is already registered", kind)
		}
		e[kind] = handler
	}
	return nil
}

func contractExecutors() TxExecutors {
	return TxExecutors{
		types.TxKindDeploy: executeDeploy,
		types.TxKindCall:   executeCall,
	}
}

func executeDeploy(tx *types.TransactionOrder, exeCtx *TxExecutionContext) (*ExecutionResult, error) {
	def, err := exeCtx.registry.Get(tx.Contract)
	if err != nil {
		return nil, err
	}
	addr := types.ContractAddress(tx.From, tx.Nonce)
	info := &state.ContractInfo{Type: def.Name, Address: addr, Deployer: tx.From, BlockNumber: exeCtx.CurrentBlockNr}
	if err := exeCtx.state.Apply(state.AddContract(info)); err != nil {
		return nil, err
	}
	callCtx := exeCtx.callContext(tx.From, addr)
	if err := def.Deploy(callCtx, tx.Input); err != nil {
		return nil, err
	}
	return &ExecutionResult{ContractAddress: addr, Logs: callCtx.Logs()}, nil
}

func executeCall(tx *types.TransactionOrder, exeCtx *TxExecutionContext) (*ExecutionResult, error) {
	def, err := exeCtx.contractAt(tx.To)
	if err != nil {
		return nil, err
	}
	callCtx := exeCtx.callContext(tx.From, tx.To)
	out, err := def.Call(callCtx, tx.Input)
	if err != nil {
		return nil, err
	}
	return &ExecutionResult{ReturnData: out, Logs: callCtx.Logs()}, nil
}

func (ec *TxExecutionContext) callContext(caller, self types.Address) *contract.CallContext {
	return &contract.CallContext{
		Caller:      caller,
		Self:        self,
		BlockNumber: ec.CurrentBlockNr,
		Storage:     ec.state.ContractStorage(self),
	}
}

func (ec *TxExecutionContext) contractAt(addr types.Address) (*contract.Definition, error) {
	info, err := ec.state.GetContract(addr)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return nil, contract.Revert("no contract at address %s", addr)
		}
		return nil, err
	}
	return ec.registry.Get(info.Type)
}
