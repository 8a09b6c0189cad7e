package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tyrion/nucleus-sms-bridge/internal/service/simulator"
	"github.com/tyrion/nucleus-sms-bridge/internal/version"
)

var (
	// listenAddress is where the simulated gateway listens.
	listenAddress string

	// rootCmd represents the base command for running the simulator.
	rootCmd = &cobra.Command{
		Use:   "sms-gateway-sim [listen-address]",
		Short: "Run an in-memory SMS gateway simulator.",
		Long: `Starts a simulated SMS gateway speaking the bridge's wire protocol.

Send payloads are recorded in an outbox and reported as successful. The
{"cmd":"read"} command drains the inbound buffer. Device replies are injected
via POST /inbound and sent messages inspected via GET /outbox, which makes
end-to-end testing possible without a real gateway.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise the flag.
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &simulator.Options{
				ListenAddress: listenAddress,
			}

			return simulator.Run(ctx, options)
		},
	}
)

// Execute runs the sms-gateway-sim CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().
		StringVarP(&listenAddress, "listen", "l", simulator.DefaultListenAddress, "listen address for the simulator")
}
