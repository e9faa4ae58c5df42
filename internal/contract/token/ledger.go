package token

import (
	"github.com/holiman/uint256"

	"github.com/codypharm/Opensafari/internal/contract"
	"github.com/codypharm/Opensafari/internal/types"
)

type ledger struct {
	ctx *contract.CallContext
}

func newLedger(ctx *contract.CallContext) *ledger {
	return &ledger{ctx: ctx}
}

func (l *ledger) balance(account types.Address) (*uint256.Int, error) {
	return contract.GetUint256(l.ctx.Storage, balanceSlot(account))
}

func (l *ledger) allowance(o, spender types.Address) (*uint256.Int, error) {
	return contract.GetUint256(l.ctx.Storage, allowanceSlot(o, spender))
}

func (l *ledger) mint(to types.Address, amount *uint256.Int) error {
	if to == types.ZeroAddress {
		return contract.Revert("mint to the zero address")
	}
	supply, err := contract.GetUint256(l.ctx.Storage, slotTotalSupply)
	if err != nil {
		return err
	}
	newSupply, overflow := new(uint256.Int).AddOverflow(supply, amount)
	if overflow {
		return contract.Revert("total supply overflow")
	}
	bal, err := l.balance(to)
	if err != nil {
		return err
	}
	// balance never exceeds total supply
	newBal := new(uint256.Int).Add(bal, amount)
	if err := contract.SetUint256(l.ctx.Storage, slotTotalSupply, newSupply); err != nil {
		return err
	}
	if err := contract.SetUint256(l.ctx.Storage, balanceSlot(to), newBal); err != nil {
		return err
	}
	return l.ctx.Emit("Transfer", types.ZeroAddress, to, amount)
}

func (l *ledger) transfer(from, to types.Address, amount *uint256.Int) error {
	if from == types.ZeroAddress {
		return contract.Revert("transfer from the zero address")
	}
	if to == types.ZeroAddress {
		return contract.Revert("transfer to the zero address")
	}
	fromBal, err := l.balance(from)
	if err != nil {
		return err
	}
	if fromBal.Lt(amount) {
		return contract.Revert("transfer amount exceeds balance")
	}
	if err := contract.SetUint256(l.ctx.Storage, balanceSlot(from), new(uint256.Int).Sub(fromBal, amount)); err != nil {
		return err
	}
	toBal, err := l.balance(to)
	if err != nil {
		return err
	}
	if err := contract.SetUint256(l.ctx.Storage, balanceSlot(to), new(uint256.Int).Add(toBal, amount)); err != nil {
		return err
	}
	return l.ctx.Emit("Transfer", from, to, amount)
}

func (l *ledger) approve(o, spender types.Address, amount *uint256.Int) error {
	if o == types.ZeroAddress {
		return contract.Revert("approve from the zero address")
	}
	if spender == types.ZeroAddress {
		return contract.Revert("approve to the zero address")
	}
	if err := contract.SetUint256(l.ctx.Storage, allowanceSlot(o, spender), amount); err != nil {
		return err
	}
	return l.ctx.Emit("Approval", o, spender, amount)
}

// spendAllowance decreases allowance of spender, maximum allowance is never decreased.
func (l *ledger) spendAllowance(o, spender types.Address, amount *uint256.Int) error {
	current, err := l.allowance(o, spender)
	if err != nil {
		return err
	}
	if current.Eq(maxAllowance) {
		return nil
	}
	if current.Lt(amount) {
		return contract.Revert("insufficient allowance")
	}
	return contract.SetUint256(l.ctx.Storage, allowanceSlot(o, spender), new(uint256.Int).Sub(current, amount))
}
