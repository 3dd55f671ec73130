package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quieteye/quieteye-stack/common/logging"
	"github.com/quieteye/quieteye-stack/edge/internal/client"
	"github.com/quieteye/quieteye-stack/edge/internal/config"
	"github.com/quieteye/quieteye-stack/edge/internal/producer"
	"github.com/quieteye/quieteye-stack/edge/internal/siteconfig"
	"github.com/quieteye/quieteye-stack/edge/pkg/output"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "quieteye-edge",
	Short: "QuietEye edge device CLI",
	Long: `quieteye-edge runs on a site's edge device. It turns camera detections
into QuietEye events and delivers them to the backend.

The backend address comes from --backend-url, BACKEND_URL or the config
file, in that order, and defaults to http://localhost:8000.`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
}

// Execute runs the CLI. Errors are printed before being returned.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		output.Error("%v", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./edge.yaml or /etc/quieteye/edge.yaml)")
	rootCmd.PersistentFlags().String("backend-url", "", "backend base URL")
	rootCmd.PersistentFlags().String("site-config", "", "site camera file, YAML or JSON (default: configs/cameras.yaml)")
	rootCmd.PersistentFlags().StringP("output", "o", formatTable, "output format: table, json")
}

func initConfig(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("backend-url") {
		loaded.BackendURL, _ = flags.GetString("backend-url")
	}
	if flags.Changed("site-config") {
		loaded.SiteConfig, _ = flags.GetString("site-config")
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if format, _ := flags.GetString("output"); format != formatTable && format != formatJSON {
		return fmt.Errorf("unknown output format %q (supported: %s, %s)", format, formatTable, formatJSON)
	}

	cfg = loaded
	logger = logging.NewWithWriter(os.Stderr, logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	return nil
}

func outputFormat(cmd *cobra.Command) string {
	format, _ := cmd.Flags().GetString("output")
	return format
}

func newClient() *client.IngestClient {
	return client.NewIngestClient(cfg.BackendURL,
		client.WithTimeout(cfg.Timeout),
		client.WithRetryPolicy(client.RetryPolicy{
			MaxRetries:      cfg.Retry.MaxRetries,
			InitialInterval: cfg.Retry.InitialInterval,
			MaxInterval:     cfg.Retry.MaxInterval,
		}),
		client.WithLogger(logger),
	)
}

func loadSite() (*siteconfig.SiteConfig, error) {
	site, err := siteconfig.LoadFile(cfg.SiteConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.SiteConfig, err)
	}
	return site, nil
}

func newProducer() (*producer.Producer, error) {
	site, err := loadSite()
	if err != nil {
		return nil, err
	}
	return producer.New(site), nil
}
