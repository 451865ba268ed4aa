package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/shopdesk/catalog-service/internal/config"
	"github.com/shopdesk/catalog-service/internal/logger"
)

var version = "1.0.0"

type rootOptions struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "catalogctl",
		Short: "Catalog extraction and maintenance CLI",
		Long: `catalogctl runs the same OCR extraction the catalog service uses against
local files, and performs database maintenance.

Configuration is read from config.yaml, .env and the environment, exactly
like the server. Logs go to stderr so command output can be piped.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			cfg.Log.Output = "stderr"
			if opts.logLevel != "" {
				cfg.Log.Level = opts.logLevel
			}
			if _, err := logger.Setup(cfg.Log); err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "Path to the config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level")

	cmd.AddCommand(
		newExtractCmd(opts),
		newParseCmd(opts),
		newDBCmd(opts),
	)
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
