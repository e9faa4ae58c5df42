package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codypharm/Opensafari/internal/account"
)

const (
	flagNameMnemonic = "mnemonic"
	flagNameCount    = "count"
	flagNameGenerate = "generate"
)

type accountsConfig struct {
	Base     *baseConfiguration
	Mnemonic string
	Count    int
	Generate bool
}

func newAccountsCmd(baseConfig *baseConfiguration) *cobra.Command {
	config := &accountsConfig{Base: baseConfig}
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Prints the development accounts",
		Long:  "Prints addresses of the accounts derived from the mnemonic, these are the signers the node and scripts use.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printAccounts(config)
		},
	}
	cmd.Flags().StringVar(&config.Mnemonic, flagNameMnemonic, "", "BIP-39 mnemonic of the accounts (default is the well-known development mnemonic)")
	cmd.Flags().IntVar(&config.Count, flagNameCount, account.DefaultAccountCount, "number of accounts to derive")
	cmd.Flags().BoolVar(&config.Generate, flagNameGenerate, false, "generate a new random mnemonic and print its accounts")
	return cmd
}

func printAccounts(config *accountsConfig) error {
	if config.Generate {
		if config.Mnemonic != "" {
			return errors.New("flags --mnemonic and --generate are mutually exclusive")
		}
		mnemonic, err := account.GenerateMnemonic()
		if err != nil {
			return fmt.Errorf("generating mnemonic: %w", err)
		}
		config.Mnemonic = mnemonic
		consoleWriter.Println("Mnemonic: " + mnemonic)
	}
	signers, err := account.FromMnemonic(config.Mnemonic, config.Count)
	if err != nil {
		return err
	}
	printSigners(signers)
	return nil
}

func printSigners(signers []*account.Signer) {
	for i, s := range signers {
		consoleWriter.Println(fmt.Sprintf("Account #%d: %s (%s)", i, s.Address(), s.DerivationPath()))
	}
}
