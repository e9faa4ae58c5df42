package client

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/codypharm/Opensafari/internal/contract/token"
	"github.com/codypharm/Opensafari/internal/types"
)

type ScenarioResult struct {
	Token          types.Address
	Owner          types.Address
	InitialBalance *uint256.Int
	FinalBalance   *uint256.Int
}

/*
RunTokenScenario deploys OpenSafariToken with initialSupply using the default
signer, checks that the deployer holds the whole supply, mints mintAmount and
checks that the balance grew by the minted amount. Any failure ends the
scenario.
*/
func RunTokenScenario(ctx context.Context, c *Client, initialSupply, mintAmount *uint256.Int) (*ScenarioResult, error) {
	factory, err := c.GetContractFactory(token.ContractName)
	if err != nil {
		return nil, err
	}
	deployed, err := factory.Deploy(ctx, initialSupply)
	if err != nil {
		return nil, err
	}
	if deployed, err = deployed.Deployed(ctx); err != nil {
		return nil, err
	}
	tkn := NewToken(deployed)
	owner := c.GetSigners()[0].Address()
	log.Info("%s deployed at %s", token.ContractName, tkn.Address())

	res := &ScenarioResult{Token: tkn.Address(), Owner: owner}
	if res.InitialBalance, err = tkn.BalanceOf(ctx, owner); err != nil {
		return nil, err
	}
	if !res.InitialBalance.Eq(initialSupply) {
		return res, fmt.Errorf("balance after deploy is %s, expected %s", res.InitialBalance.ToBig(), initialSupply.ToBig())
	}

	ptx, err := tkn.Mint(ctx, mintAmount)
	if err != nil {
		return res, err
	}
	if _, err = ptx.Wait(ctx); err != nil {
		return res, err
	}
	if res.FinalBalance, err = tkn.BalanceOf(ctx, owner); err != nil {
		return res, err
	}
	expected, overflow := new(uint256.Int).AddOverflow(initialSupply, mintAmount)
	if overflow || !res.FinalBalance.Eq(expected) {
		return res, fmt.Errorf("balance after mint is %s, expected %s + %s", res.FinalBalance.ToBig(), initialSupply.ToBig(), mintAmount.ToBig())
	}
	return res, nil
}
