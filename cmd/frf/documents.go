package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Crear la factura draft de un pedido sincronizado",
	RunE: func(cmd *cobra.Command, _ []string) error {
		orderID, _ := cmd.Flags().GetString("order")
		if orderID == "" {
			return errors.New("indicar --order")
		}
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := s.container.Converter.Convert(cmd.Context(), orderID, "cli")
		if err != nil {
			return err
		}
		for _, w := range res.Warnings {
			s.log.Warn().Str("order_id", orderID).Msg(w)
		}
		return printJSON(map[string]any{
			"order_id":       orderID,
			"invoice_id":     res.Invoice.ID,
			"invoice_number": res.Invoice.InvoiceNumber,
			"client_id":      res.Client.ID,
			"client_created": res.ClientCreated,
		})
	},
}

var xmlCmd = &cobra.Command{
	Use:     "xml",
	Short:   "Generar y guardar el XML FatturaPA de una factura",
	Example: `  frf xml --invoice 9c1e... --out ./xml`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		invoiceID, _ := cmd.Flags().GetString("invoice")
		dir, _ := cmd.Flags().GetString("out")
		if invoiceID == "" {
			return errors.New("indicar --invoice")
		}
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		doc, err := s.container.DocumentUC.SaveToFile(cmd.Context(), invoiceID, dir)
		if err != nil {
			return err
		}
		if doc.Warning != "" {
			s.log.Warn().Str("invoice_number", doc.Invoice.InvoiceNumber).Msg(doc.Warning)
		}
		return printJSON(map[string]string{
			"invoice_id": invoiceID,
			"path":       doc.Path,
			"digest":     doc.Digest,
		})
	},
}

var nextNumberCmd = &cobra.Command{
	Use:   "next-number",
	Short: "Mostrar el próximo número de factura",
	RunE: func(cmd *cobra.Command, _ []string) error {
		year, _ := cmd.Flags().GetInt("year")
		if year == 0 {
			year = time.Now().Year()
		}
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		n, err := s.container.Ledger.GenerateNextNumber(cmd.Context(), s.cfg.Invoicing.Prefix, year)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), n)
		return nil
	},
}

func init() {
	convertCmd.Flags().String("order", "", "ID del pedido")
	xmlCmd.Flags().String("invoice", "", "ID de la factura")
	xmlCmd.Flags().String("out", "", "Directorio de salida (vacío = INVOICE_XML_DIR)")
	nextNumberCmd.Flags().Int("year", 0, "Año (0 = actual)")
}
