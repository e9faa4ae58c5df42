package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codypharm/Opensafari/internal/account"
	"github.com/codypharm/Opensafari/internal/chain"
	"github.com/codypharm/Opensafari/internal/client"
	"github.com/codypharm/Opensafari/internal/contract/token"
	"github.com/codypharm/Opensafari/internal/rpc"
	"github.com/codypharm/Opensafari/internal/types"
)

const (
	flagNameURL           = "url"
	flagNameInitialSupply = "initial-supply"
	flagNameMintAmount    = "mint-amount"
)

type scenarioConfig struct {
	Base          *baseConfiguration
	URL           string
	Mnemonic      string
	InitialSupply string
	MintAmount    string
}

func newScenarioCmd(baseConfig *baseConfiguration) *cobra.Command {
	config := &scenarioConfig{Base: baseConfig}
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Runs the OpenSafariToken scenario",
		Long: "Deploys OpenSafariToken with initial supply, verifies the balance of the deployer, " +
			"mints more tokens and verifies the balance again. Runs on an in-memory chain unless node URL is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(cmd.Context(), config)
		},
	}
	cmd.Flags().StringVar(&config.URL, flagNameURL, "", "REST API URL of a running node, in-memory chain is used when not set")
	cmd.Flags().StringVar(&config.Mnemonic, flagNameMnemonic, "", "BIP-39 mnemonic of the accounts (default is the well-known development mnemonic)")
	cmd.Flags().StringVar(&config.InitialSupply, flagNameInitialSupply, "1000000", "initial supply in ether units")
	cmd.Flags().StringVar(&config.MintAmount, flagNameMintAmount, "1000000", "amount to mint in ether units")
	return cmd
}

func runScenario(ctx context.Context, config *scenarioConfig) error {
	initialSupply, err := types.ParseEther(config.InitialSupply)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", flagNameInitialSupply, err)
	}
	mintAmount, err := types.ParseEther(config.MintAmount)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", flagNameMintAmount, err)
	}
	signers, err := account.FromMnemonic(config.Mnemonic, 1)
	if err != nil {
		return err
	}
	registry, err := chain.DefaultRegistry()
	if err != nil {
		return err
	}

	var backend client.Backend
	if config.URL != "" {
		rc, err := rpc.NewClient(config.URL)
		if err != nil {
			return err
		}
		if err := checkNodeAccounts(ctx, rc, signers[0].Address()); err != nil {
			return err
		}
		backend = rc
	} else {
		node, err := chain.New(chain.WithRegistry(registry))
		if err != nil {
			return err
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- node.Run(ctx) }()
		defer func() {
			cancel()
			<-done
		}()
		backend = node
	}

	c, err := client.New(backend, registry, signers)
	if err != nil {
		return err
	}
	res, err := client.RunTokenScenario(ctx, c, initialSupply, mintAmount)
	if res != nil {
		consoleWriter.Println(fmt.Sprintf("%s deployed at %s by %s", token.ContractName, res.Token, res.Owner))
		if res.InitialBalance != nil {
			consoleWriter.Println(fmt.Sprintf("Balance after deploy: %s %s", types.FormatEther(res.InitialBalance), token.Symbol))
		}
		if res.FinalBalance != nil {
			consoleWriter.Println(fmt.Sprintf("Balance after mint: %s %s", types.FormatEther(res.FinalBalance), token.Symbol))
		}
	}
	if err != nil {
		return fmt.Errorf("token scenario failed: %w", err)
	}
	consoleWriter.Println("Scenario passed")
	return nil
}

// checkNodeAccounts fails if the node is unreachable. A signer the node does not
// list is only a warning since the node also accepts transactions from foreign keys.
func checkNodeAccounts(ctx context.Context, rc *rpc.Client, signer types.Address) error {
	accounts, err := rc.Accounts(ctx)
	if err != nil {
		return fmt.Errorf("node %s is not reachable: %w", rc.BaseUrl, err)
	}
	for _, a := range accounts {
		if a == signer {
			log.Debug("signer %s is a node account", signer)
			return nil
		}
	}
	log.Warning("signer %s is not one of the %d node accounts", signer, len(accounts))
	return nil
}
