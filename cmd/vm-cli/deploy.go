package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ledgervm/vm/types"
)

var (
	deployWasmFile     string
	deployManifestFile string
	deployInitKeys     []string
	deploySigner       string
	deployAccessName   string
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy a compiled contract",
	Long: `Deploy a compiled WebAssembly contract to the local store.
Example: vm-cli deploy -f token.wasm -m token.manifest.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := os.ReadFile(deployWasmFile)
		if err != nil {
			return fmt.Errorf("failed to read contract code: %w", err)
		}
		pkg, eps, err := LoadManifest(deployManifestFile)
		if err != nil {
			return err
		}

		initKeys := types.NamedKeys{}
		for _, pair := range deployInitKeys {
			name, value, err := splitKeyBinding(pair)
			if err != nil {
				return err
			}
			initKeys[name] = value
		}

		var signer types.AccountHash
		if deploySigner != "" {
			signer, err = types.ParseAccountHash(deploySigner)
			if err != nil {
				return err
			}
		} else if deployAccessName != "" {
			return fmt.Errorf("--access-name requires --signer")
		}

		engine, _, err := newEngine()
		if err != nil {
			return err
		}

		uref, err := engine.Deploy(code, eps, pkg, initKeys, signer, deployAccessName)
		if err != nil {
			return fmt.Errorf("failed to deploy contract: %w", err)
		}

		slog.Info("contract deployed", "package", pkg)
		fmt.Printf("Contract deployed successfully!\n")
		fmt.Printf("Contract reference: %s\n", uref)
		fmt.Printf("Contract key: %s\n", types.URefKey(uref))
		return nil
	},
}

// splitKeyBinding parses a name=key pair from the command line.
func splitKeyBinding(pair string) (string, types.Key, error) {
	for i := 0; i < len(pair); i++ {
		if pair[i] == '=' {
			key, err := types.ParseKey(pair[i+1:])
			if err != nil {
				return "", types.Key{}, err
			}
			return pair[:i], key, nil
		}
	}
	return "", types.Key{}, fmt.Errorf("key binding %q is not name=key", pair)
}

func init() {
	deployCmd.Flags().StringVarP(&deployWasmFile, "file", "f", "", "Compiled contract module (required)")
	deployCmd.Flags().StringVarP(&deployManifestFile, "manifest", "m", "", "Entry-point manifest (required)")
	deployCmd.Flags().StringArrayVar(&deployInitKeys, "init-key", nil, "Initial named key, name=key (repeatable)")
	deployCmd.Flags().StringVarP(&deploySigner, "signer", "s", "", "Deploying account hash")
	deployCmd.Flags().StringVar(&deployAccessName, "access-name", "", "Bind the contract reference under this name in the signer's namespace")
	deployCmd.MarkFlagRequired("file")
	deployCmd.MarkFlagRequired("manifest")
}
