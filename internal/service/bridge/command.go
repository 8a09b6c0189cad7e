package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tyrion/nucleus-sms-bridge/internal/ack"
	"github.com/tyrion/nucleus-sms-bridge/internal/audit"
	"github.com/tyrion/nucleus-sms-bridge/internal/config"
	"github.com/tyrion/nucleus-sms-bridge/internal/gateway"
	"github.com/tyrion/nucleus-sms-bridge/internal/logger"
)

// Options controls the sms-bridge process and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override.
	ListenAddress string
	// GatewayURL provides an optional gateway URL override.
	GatewayURL string
	// TestMode forces test mode regardless of configuration.
	TestMode bool
}

// shutdownTimeout bounds the drain of in-flight HTTP requests on exit.
const shutdownTimeout = 10 * time.Second

// Run starts the bridge and blocks until the context is canceled or the HTTP
// server stops. Both background tasks of the profile are stopped
// deterministically before returning.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "sms-bridge")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	applyOverrides(cfg, opts)

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	renderer, err := NewRenderer(cfg.Message, cfg.ThrottledMessage)
	if err != nil {
		return fmt.Errorf("configure templates: %w", err)
	}

	registry := ack.NewRegistry(ack.WithCountryCode(cfg.CountryCode))
	gatewayClient := gateway.NewClient(cfg.GatewayURL, gateway.WithTimeout(cfg.Timeout))
	service := NewService(registry, gatewayClient, renderer, newAuditSink(cfg), cfg.TestMode)

	manager := ack.NewManager(registry, gatewayClient, newAcknowledger(cfg),
		ack.WithPollInterval(cfg.PollInterval),
		ack.WithSweepInterval(cfg.SweepInterval),
		ack.WithTTL(cfg.PendingTTL))

	manager.Start(ctx)
	defer manager.Stop()

	gin.SetMode(gin.ReleaseMode)

	//nolint:exhaustruct // Remaining server fields keep their zero values.
	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           newRouter(service, registry, cfg.ProfileName),
		ReadHeaderTimeout: cfg.Timeout,
	}

	logger.InfoKV(ctx, "SMS bridge listening",
		"listen_address", cfg.ListenAddress,
		"gateway_url", cfg.GatewayURL,
		"profile", cfg.ProfileName,
		"test_mode", cfg.TestMode)

	// Done channel is closed after Shutdown finishes to ensure we block
	// until in-flight requests drain before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.ErrorKV(ctx, "HTTP server shutdown failed", "error", shutdownErr)
		}

		close(done)
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve HTTP: %w", err)
	}

	<-done
	logger.Info(ctx, "HTTP server stopped")

	return nil
}

// applyOverrides lets command line flags win over the configuration file.
func applyOverrides(cfg *config.Config, opts *Options) {
	if opts.ListenAddress != "" {
		cfg.ListenAddress = opts.ListenAddress
	}

	if opts.GatewayURL != "" {
		cfg.GatewayURL = opts.GatewayURL
	}

	if opts.TestMode {
		cfg.TestMode = true
	}
}

// newAuditSink picks the configured audit destination.
func newAuditSink(cfg *config.Config) audit.Sink {
	if cfg.AuditLog == "" {
		return audit.NopSink{}
	}

	return audit.NewFileSink(cfg.AuditLog)
}

// newAcknowledger picks the alarm framework integration.
func newAcknowledger(cfg *config.Config) ack.Acknowledger {
	if cfg.AckCallbackURL == "" {
		return LogAcknowledger{}
	}

	return NewCallbackAcknowledger(cfg.AckCallbackURL, cfg.Timeout)
}
