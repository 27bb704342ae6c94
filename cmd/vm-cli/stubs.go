package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ledgervm/vm/abi"
)

var (
	stubsManifestFile string
	stubsOutFile      string
)

var stubsCmd = &cobra.Command{
	Use:   "stubs",
	Short: "Generate entry-point shims from a manifest",
	Long: `Generate the Go shim file a contract package compiles alongside its
own code. Each shim decodes the declared arguments and returns the user
function's result through the host boundary.
Example: vm-cli stubs -m token.manifest.json -o stubs.go`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pkg, eps, err := LoadManifest(stubsManifestFile)
		if err != nil {
			return err
		}
		code, err := abi.GenerateStubFile(pkg, eps)
		if err != nil {
			return err
		}
		if stubsOutFile == "" {
			fmt.Print(code)
			return nil
		}
		if err := os.WriteFile(stubsOutFile, []byte(code), 0644); err != nil {
			return fmt.Errorf("failed to write shim file: %w", err)
		}
		fmt.Printf("Wrote %s\n", stubsOutFile)
		return nil
	},
}

func init() {
	stubsCmd.Flags().StringVarP(&stubsManifestFile, "manifest", "m", "", "Entry-point manifest (required)")
	stubsCmd.Flags().StringVarP(&stubsOutFile, "out", "o", "", "Output file (stdout when omitted)")
	stubsCmd.MarkFlagRequired("manifest")
}
