package main

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the bantay tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, db, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := db.Migrate(ctx); err != nil {
			return err
		}

		log.Info("schema migrated")
		return nil
	},
}
