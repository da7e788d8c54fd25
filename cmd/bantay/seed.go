package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lborres/bantay/services"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write the bundled content list into the database",
	Long: `seed upserts the content shipped with bantay, the same list served when
the database is unreachable. Running it twice is harmless.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, db, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		items := services.SeedContent()
		for i := range items {
			if err := db.SaveContent(ctx, &items[i]); err != nil {
				return fmt.Errorf("seeding %s: %w", items[i].ID, err)
			}
		}

		log.Info("content seeded", "items", len(items))
		return nil
	},
}
