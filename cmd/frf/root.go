package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jhoicas/fatture-rf/internal/bootstrap"
	"github.com/jhoicas/fatture-rf/pkg/config"
	"github.com/jhoicas/fatture-rf/pkg/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "frf",
	Short: "Fatture RF: libro de facturas forfettario, tiendas WooCommerce y FatturaPA",
	Long: `frf ejecuta desde la terminal las mismas operaciones que la API:
migraciones de la base de datos, sincronización de tiendas,
conversión de pedidos y generación del XML FatturaPA.

La configuración se lee de variables de entorno (y de .env si existe).`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd, syncCmd, convertCmd, xmlCmd, storesCmd, hashPasswordCmd, nextNumberCmd)
}

// session configuración, logger y contenedor de casos de uso de una ejecución.
type session struct {
	cfg       *config.Config
	log       *logger.Logger
	container *bootstrap.Container
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel}).WithComponent("cli")
	container, err := bootstrap.New(cmd.Context(), cfg, log)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, log: log, container: container}, nil
}

func (s *session) Close() { s.container.Close() }

// printJSON escribe v indentado en stdout.
func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("serializar salida: %w", err)
	}
	_, err = fmt.Fprintln(os.Stdout, string(b))
	return err
}
