package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MagnunAVF/affiliate-tracker/internal/store"
)

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the tracking tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := store.Migrate(e.db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database migrations executed successfully.")
			return nil
		},
	}
}
