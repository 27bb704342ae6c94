package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ledgervm/vm/types"
)

var (
	blockHeight uint64
	blockTime   uint64
)

var blockCmd = &cobra.Command{
	Use:   "block",
	Short: "Set the block info invocations observe",
	Long: `Set the block height and block time the store reports to executing
contracts. The host advances these once per block; this command is the
manual equivalent for a local store.
Example: vm-cli block --height 42 --time 1700000000000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, env, err := newEngine()
		if err != nil {
			return err
		}
		if err := env.Store().SetBlockInfo(blockHeight, types.BlockTime(blockTime)); err != nil {
			return fmt.Errorf("failed to set block info: %w", err)
		}
		fmt.Printf("Block info set: height=%d time=%d\n", blockHeight, blockTime)
		return nil
	},
}

func init() {
	blockCmd.Flags().Uint64Var(&blockHeight, "height", 0, "Block height")
	blockCmd.Flags().Uint64Var(&blockTime, "time", 0, "Block time, milliseconds since the epoch")
	blockCmd.MarkFlagRequired("height")
	blockCmd.MarkFlagRequired("time")
	rootCmd.AddCommand(blockCmd)
}
