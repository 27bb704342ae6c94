package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ledgervm/vm/types"
)

var (
	invokeTarget string
	invokeEntry  string
	invokeArgs   string
	invokeSigner string
	invokePhase  string
)

var invokeCmd = &cobra.Command{
	Use:   "invoke",
	Short: "Invoke a contract entry point",
	Long: `Invoke an entry point of a deployed contract as one atomic deploy.
Example: vm-cli invoke -t uref-<addr>-007 -e transfer -s account-<hash> \
  -a '[{"type":"key","value":"account-<hash>"},{"type":"u64","value":10}]'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := types.ParseKey(invokeTarget)
		if err != nil {
			return err
		}
		signer, err := types.ParseAccountHash(invokeSigner)
		if err != nil {
			return err
		}
		phase, err := types.ParsePhase(invokePhase)
		if err != nil {
			return err
		}
		callArgs, err := ParseArgs(invokeArgs)
		if err != nil {
			return err
		}

		engine, _, err := newEngine()
		if err != nil {
			return err
		}
		if err := engine.Attach(target); err != nil {
			return fmt.Errorf("failed to attach contract: %w", err)
		}

		result, err := engine.Execute(signer, phase, target, invokeEntry, callArgs)
		if err != nil {
			return fmt.Errorf("execution failed: %w", err)
		}

		fmt.Printf("Execution result: %s\n", result.Type)
		fmt.Printf("Payload: %x\n", result.Bytes)
		return nil
	},
}

func init() {
	invokeCmd.Flags().StringVarP(&invokeTarget, "target", "t", "", "Contract key (required)")
	invokeCmd.Flags().StringVarP(&invokeEntry, "entry", "e", "", "Entry point name (required)")
	invokeCmd.Flags().StringVarP(&invokeArgs, "args", "a", "", "JSON argument array")
	invokeCmd.Flags().StringVarP(&invokeSigner, "signer", "s", "", "Signing account hash (required)")
	invokeCmd.Flags().StringVar(&invokePhase, "phase", "session", "Execution phase (system, payment, session, finalize-payment)")
	invokeCmd.MarkFlagRequired("target")
	invokeCmd.MarkFlagRequired("entry")
	invokeCmd.MarkFlagRequired("signer")
}
