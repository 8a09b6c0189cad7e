package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tyrion/nucleus-sms-bridge/internal/config"
	"github.com/tyrion/nucleus-sms-bridge/internal/service/bridge"
	"github.com/tyrion/nucleus-sms-bridge/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// listenAddress overrides the HTTP API listen address from config.
	listenAddress string
	// gatewayURL overrides the SMS gateway endpoint from config.
	gatewayURL string
	// testMode forces test mode regardless of configuration.
	testMode bool

	// rootCmd represents the base command for running the bridge.
	rootCmd = &cobra.Command{
		Use:   "sms-bridge",
		Short: "Bridge alarm notifications to SMS through an HTTP gateway.",
		Long: `Runs the SMS notification bridge for one profile.

The bridge accepts alarm notification requests on its HTTP API, formats each
batch into SMS-sized chunks carrying a short acknowledgment code, and sends
them through the configured gateway. It polls the gateway for inbound replies,
matches each reply against the pending code and the sender's registered phone
number, and acknowledges the underlying alarm events. Codes without a matching
reply expire after the configured TTL.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &bridge.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				GatewayURL:    gatewayURL,
				TestMode:      testMode,
			}

			return bridge.Run(ctx, options)
		},
	}
)

// Execute runs the sms-bridge CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&listenAddress, "listen", "l", "", "listen address override for the HTTP API")
	rootCmd.Flags().StringVarP(&gatewayURL, "gateway", "g", "", "gateway URL override")
	rootCmd.Flags().BoolVarP(&testMode, "test-mode", "t", false, "log notifications instead of sending them")
}
