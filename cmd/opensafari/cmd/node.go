package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ainvaltin/httpsrv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/codypharm/Opensafari/internal/account"
	"github.com/codypharm/Opensafari/internal/chain"
	"github.com/codypharm/Opensafari/internal/keyvaluedb"
	"github.com/codypharm/Opensafari/internal/keyvaluedb/boltdb"
	"github.com/codypharm/Opensafari/internal/keyvaluedb/memorydb"
	"github.com/codypharm/Opensafari/internal/logger"
	"github.com/codypharm/Opensafari/internal/rpc"
	"github.com/codypharm/Opensafari/internal/types"
)

const (
	defaultServerAddr = "localhost:8545"

	flagNameAddress      = "address"
	flagNameDB           = "db"
	flagNameAccounts     = "accounts"
	flagNameTxBufferSize = "tx-buffer-size"
	flagNameMaxBodySize  = "max-body-size"
)

var log = logger.CreateForPackage()

type nodeConfig struct {
	Base         *baseConfiguration
	Address      string
	DbFile       string
	Accounts     int
	Mnemonic     string
	TxBufferSize uint
	MaxBodySize  int64
}

func newNodeCmd(baseConfig *baseConfiguration) *cobra.Command {
	config := &nodeConfig{Base: baseConfig}
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Starts a development chain node",
		Long:  "Starts a development chain which mines a block for every transaction and serves REST API until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(cmd.Context(), config)
		},
	}
	cmd.Flags().StringVar(&config.Address, flagNameAddress, defaultServerAddr, "REST API listen address with port")
	cmd.Flags().StringVar(&config.DbFile, flagNameDB, "", "path to the chain database file, chain is kept in memory when not set")
	cmd.Flags().IntVar(&config.Accounts, flagNameAccounts, account.DefaultAccountCount, "number of development accounts")
	cmd.Flags().StringVar(&config.Mnemonic, flagNameMnemonic, "", "BIP-39 mnemonic of the development accounts (default is the well-known development mnemonic)")
	cmd.Flags().UintVar(&config.TxBufferSize, flagNameTxBufferSize, chain.DefaultTxBufferSize, "maximum number of pending transactions")
	cmd.Flags().Int64Var(&config.MaxBodySize, flagNameMaxBodySize, rpc.MaxBodySize, "maximum size of REST API request body in bytes")
	return cmd
}

func runNode(ctx context.Context, config *nodeConfig) error {
	signers, err := account.FromMnemonic(config.Mnemonic, config.Accounts)
	if err != nil {
		return err
	}
	db, err := openDB(config.DbFile)
	if err != nil {
		return err
	}
	if closer, ok := db.(interface{ Close() error }); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				log.Warning("closing database: %v", err)
			}
		}()
	}

	node, err := chain.New(chain.WithDB(db), chain.WithTxBufferSize(config.TxBufferSize))
	if err != nil {
		return fmt.Errorf("creating chain node: %w", err)
	}
	addresses := make([]types.Address, len(signers))
	for i, s := range signers {
		addresses[i] = s.Address()
	}
	printSigners(signers)
	consoleWriter.Println(fmt.Sprintf("REST API listening on http://%s/api/v1", config.Address))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return node.Run(ctx)
	})
	g.Go(func() error {
		server := rpc.NewRESTServer(config.Address, config.MaxBodySize, rpc.ChainEndpoints(node, addresses))
		return httpsrv.Run(ctx, *server, httpsrv.ShutdownTimeout(5*time.Second))
	})
	return g.Wait()
}

func openDB(dbFile string) (keyvaluedb.KeyValueDB, error) {
	if dbFile == "" {
		log.Info("chain is kept in memory")
		return memorydb.New(), nil
	}
	if err := os.MkdirAll(filepath.Dir(dbFile), 0700); err != nil { // -rwx------
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := boltdb.New(dbFile)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", dbFile, err)
	}
	log.Info("chain database %s", dbFile)
	return db, nil
}
