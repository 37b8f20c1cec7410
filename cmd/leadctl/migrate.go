package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/leadpipe/internal/config"
	"github.com/JonMunkholm/leadpipe/internal/store/postgres"
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down",
		Short:     "Apply or roll back the database schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{postgres.DirectionUp, postgres.DirectionDown},
		RunE: func(cmd *cobra.Command, args []string) error {
			var db config.DatabaseConfig
			if err := config.LoadSection(&db); err != nil {
				return err
			}
			if err := postgres.Migrate(db.URL, args[0]); err != nil {
				root.logger(cmd).Error("migration failed", "direction", args[0], "error", err)
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "migrations %s: done\n", args[0])
			return err
		},
	}
}
