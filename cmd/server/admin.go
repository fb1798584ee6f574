package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yazan176yazan-ctrl/referral-ledger/internal/config"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(resetCmd)
	resetCmd.Flags().Bool("yes", false, "Confirm wiping all data")
	resetCmd.Flags().Bool("seed-demo", false, "Create a demo account after the wipe")
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the SQL schema for the configured database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.DatabaseDriver == config.DriverMemory {
			return fmt.Errorf("nothing to migrate for the memory driver")
		}
		db, _, err := openDB(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		fmt.Fprintf(cmd.OutOrStdout(), "schema applied (%s)\n", cfg.DatabaseDriver)
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Wipe all accounts, transactions and profit runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return fmt.Errorf("refusing to reset without --yes")
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a, err := buildApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.accounts.Reset(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "all data reset")

		if seed, _ := cmd.Flags().GetBool("seed-demo"); seed {
			account, _, err := a.accounts.SeedDemo(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "demo account %s (code %s)\n", account.ID, account.ReferralCode)
		}
		return nil
	},
}
