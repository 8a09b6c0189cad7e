package simulator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tyrion/nucleus-sms-bridge/internal/logger"
)

// Options controls the sms-gateway-sim process.
type Options struct {
	// ListenAddress is where the simulated gateway listens.
	ListenAddress string
}

const (
	// DefaultListenAddress matches the port of the gateway the original
	// deployment pointed at.
	DefaultListenAddress = ":1880"

	// readHeaderTimeout bounds slow clients on the simulated endpoint.
	readHeaderTimeout = 5 * time.Second

	// shutdownTimeout bounds the drain of in-flight requests on exit.
	shutdownTimeout = 5 * time.Second
)

// Run starts the simulator and blocks until the context is canceled.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "sms-gateway-sim")

	listenAddress := opts.ListenAddress
	if listenAddress == "" {
		listenAddress = DefaultListenAddress
	}

	gin.SetMode(gin.ReleaseMode)

	service := NewService()

	//nolint:exhaustruct // Remaining server fields keep their zero values.
	httpServer := &http.Server{
		Addr:              listenAddress,
		Handler:           service.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	logger.InfoKV(ctx, "Gateway simulator listening", "listen_address", listenAddress)

	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gateway simulator")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.ErrorKV(ctx, "Gateway simulator shutdown failed", "error", shutdownErr)
		}

		close(done)
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve HTTP: %w", err)
	}

	<-done
	logger.Info(ctx, "Gateway simulator stopped")

	return nil
}
