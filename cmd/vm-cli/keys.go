package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ledgervm/vm/types"
)

var keysOwner string

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List an owner's named keys",
	Long: `List the named keys bound to an account or contract.
Example: vm-cli keys -o account-<hash>`,
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := types.ParseKey(keysOwner)
		if err != nil {
			return err
		}

		_, env, err := newEngine()
		if err != nil {
			return err
		}

		nk, err := env.Store().NamedKeys(owner)
		if err != nil {
			return fmt.Errorf("failed to load named keys: %w", err)
		}
		if len(nk) == 0 {
			fmt.Println("No named keys.")
			return nil
		}
		for _, name := range nk.Names() {
			fmt.Printf("%s\t%s\n", name, nk[name])
		}
		return nil
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print the committed event log",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, env, err := newEngine()
		if err != nil {
			return err
		}

		events, err := env.Store().Events()
		if err != nil {
			return fmt.Errorf("failed to load events: %w", err)
		}
		if len(events) == 0 {
			fmt.Println("No events.")
			return nil
		}
		for _, ev := range events {
			if len(ev.Payload) > 0 {
				fmt.Printf("%s\t%s\t%x\n", ev.Source, ev.Name, ev.Payload)
				continue
			}
			fmt.Printf("%s\t%s\n", ev.Source, ev.Name)
		}
		return nil
	},
}

func init() {
	keysCmd.Flags().StringVarP(&keysOwner, "owner", "o", "", "Owner key (required)")
	keysCmd.MarkFlagRequired("owner")
}
