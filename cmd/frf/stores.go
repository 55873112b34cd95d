package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jhoicas/fatture-rf/internal/application/auth"
)

var storesCmd = &cobra.Command{
	Use:   "stores",
	Short: "Operaciones sobre tiendas WooCommerce",
}

var storesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Listar tiendas registradas",
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		out, err := s.container.StoreUC.List(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(out)
	},
}

var storesTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Probar la conexión REST de una tienda",
	RunE: func(cmd *cobra.Command, _ []string) error {
		storeID, _ := cmd.Flags().GetString("store")
		if storeID == "" {
			return errors.New("indicar --store")
		}
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.container.SyncEngine.TestConnection(cmd.Context(), storeID); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "conexión correcta")
		return nil
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Calcular el hash bcrypt para OPERATOR_PASSWORD_HASH",
	Long:  "Sin argumento la contraseña se lee de stdin.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var password string
		if len(args) == 1 {
			password = args[0]
		} else {
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("leer contraseña: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	storesTestCmd.Flags().String("store", "", "ID de la tienda")
	storesCmd.AddCommand(storesListCmd, storesTestCmd)
}
