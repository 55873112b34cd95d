package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/fatture-rf/internal/infrastructure/postgres"
	"github.com/jhoicas/fatture-rf/pkg/config"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Aplicar o revertir las migraciones de PostgreSQL",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"up", "down"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.DB.Driver != "postgres" {
			return fmt.Errorf("migrate requiere DB_DRIVER=postgres (actual: %s)", cfg.DB.Driver)
		}
		switch args[0] {
		case "up":
			err = postgres.MigrateUp(cfg.DB.ConnectionString())
		case "down":
			err = postgres.MigrateDown(cfg.DB.ConnectionString())
		default:
			return fmt.Errorf("dirección desconocida %q (up | down)", args[0])
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "migraciones %s aplicadas\n", args[0])
		return nil
	},
}
