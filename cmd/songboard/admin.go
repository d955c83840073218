package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		database, err := openDB(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()

		if err := database.Migrate(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
		return nil
	},
}

var adminPassCmd = &cobra.Command{
	Use:   "admin-pass <passphrase>",
	Short: "Set the passphrase that unlocks admin mode",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if args[0] == "" {
			return fmt.Errorf("passphrase must not be empty")
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hashing passphrase: %w", err)
		}

		database, err := openDB(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()

		if err := database.Migrate(cmd.Context()); err != nil {
			return err
		}
		if err := database.Curated().SetAdminPassHash(cmd.Context(), string(hash)); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "admin passphrase updated")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd, adminPassCmd)
}
