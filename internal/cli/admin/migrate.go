package admin

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/mpedge/internal/database"
)

// MigrateCmd applies pending database migrations
func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  "Apply all pending migrations for the corpus and ask log tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			if !rt.cfg.HasDatabase() {
				return fmt.Errorf("MPEDGE_DATABASE_URL is not set")
			}
			dir, _ := cmd.Flags().GetString("dir")
			if err := database.Migrate(rt.cfg.DatabaseURL, dir, rt.log); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().String("dir", database.DefaultMigrationsDir, "Migrations directory")

	return withConfigEnv(cmd)
}
