package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ledgervm/vm/context"
	_ "github.com/ledgervm/vm/context/dbstore"
	_ "github.com/ledgervm/vm/context/memstore"
	"github.com/ledgervm/vm/hostenv"
	"github.com/ledgervm/vm/wasi"
)

var (
	storeType    string
	dbPath       string
	contractsDir string
)

var rootCmd = &cobra.Command{
	Use:   "vm-cli",
	Short: "Ledger VM command line tool",
	Long: `Ledger VM command line tool for deploying and invoking WebAssembly
contracts against a local state store.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storeType, "store", "db", "State store implementation (memory or db)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", ".vmdata/state.db", "SQLite database path for the db store")
	rootCmd.PersistentFlags().StringVar(&contractsDir, "contracts", ".vmdata/contracts", "Directory holding deployed contract code")

	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(invokeCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(stubsCmd)
}

// newEngine builds the store selected by the persistent flags and an
// execution engine over it.
func newEngine() (*wasi.Engine, *hostenv.Env, error) {
	store, err := context.Get(context.StoreType(storeType), map[string]any{
		"db_path": dbPath,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	env := hostenv.New(store)
	engine, err := wasi.NewEngine(env, contractsDir)
	if err != nil {
		return nil, nil, err
	}
	return engine, env, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
