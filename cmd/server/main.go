package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Referral earnings ledger",
	Long: `Runs the referral earnings ledger: accounts, an append-only transaction
log and profit runs whose commissions cascade three levels up the referral chain.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config-dir", ".", "Directory holding an optional .env file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
