package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shopdesk/catalog-service/internal/db"
	"github.com/shopdesk/catalog-service/internal/logger"
	"github.com/shopdesk/catalog-service/internal/services"
	"github.com/shopdesk/catalog-service/internal/sheets"
)

func newDBCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Create the tables the service needs (idempotent)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := db.Open(cmd.Context(), opts.cfg.Database, logger.WithComponent("db"))
				if err != nil {
					return err
				}
				defer store.Close()

				if err := store.ApplySchema(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
				return nil
			},
		},
		newExportCmd(opts),
		newImportCmd(opts),
	)
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the product catalog to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := db.Open(cmd.Context(), opts.cfg.Database, logger.WithComponent("db"))
			if err != nil {
				return err
			}
			defer store.Close()

			products, err := store.ListProducts(cmd.Context())
			if err != nil {
				return err
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			if err := sheets.WriteProductsXLSX(f, products); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d products to %s\n", len(products), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "products.xlsx", "Output workbook path")
	return cmd
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import (products|contacts) FILE",
		Short: "Import a CSV or XLSX sheet, as the upload endpoints do",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, path := args[0], args[1]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}

			store, err := db.Open(cmd.Context(), opts.cfg.Database, logger.WithComponent("db"))
			if err != nil {
				return err
			}
			defer store.Close()

			intake := services.NewIntakeService(store, nil, nil, logger.WithComponent("catalogctl"))
			switch kind {
			case "products":
				res, err := intake.ImportProductSheet(cmd.Context(), path, data)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), res)
			case "contacts":
				res, err := intake.ImportContactSheet(cmd.Context(), path, data)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), res)
			default:
				return fmt.Errorf("unknown record kind %q (want products or contacts)", kind)
			}
		},
	}
}
