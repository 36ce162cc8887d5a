package cmd

import (
	"fmt"

	"newsnotes/config/database"

	"github.com/spf13/cobra"
)

var checkDBCmd = &cobra.Command{
	Use:   "checkdb",
	Short: "Check the database connection and print the server time",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Connect(cmd.Context(), cfg.Database)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer db.Close()

		now, err := database.ServerTime(cmd.Context(), db)
		if err != nil {
			return fmt.Errorf("query failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Database connection successful. Server time: %s\n", now.Format("2006-01-02T15:04:05Z07:00"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkDBCmd)
}
