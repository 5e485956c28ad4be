package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/charlesng35/callcache/internal/api"
	"github.com/charlesng35/callcache/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Port int
	// ready receives the bound address once the listener is open. Tests use it to avoid
	// racing the server start.
	ready chan<- string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API with health, metrics, value, replay and page endpoints.
The server shuts down gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := opts.loadConfig(false)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if opts.Port > 0 {
		cfg.Server.Port = opts.Port
	}

	log := logger.WithModule("bootstrap")

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack, err := bootstrapRuntime(ctx, cfg, runtimeOptions{StartMaintenance: true})
	if err != nil {
		return WrapExitError(ExitCommandError, "initialise runtime", err)
	}
	defer func() {
		if err := stack.Shutdown(context.Background()); err != nil {
			log.Warn("runtime shutdown", zap.Error(err))
		}
	}()

	router, err := api.NewRouter(api.Dependencies{
		Config:     cfg,
		Store:      stack.Store,
		Values:     stack.Values,
		Pages:      stack.Pages,
		Monitoring: stack.Monitoring,
	})
	if err != nil {
		return fmt.Errorf("build api router: %w", err)
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.Port))
	if err != nil {
		return WrapExitError(ExitCommandError, "listen", err)
	}

	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("addr", listener.Addr().String()),
			zap.String("store", stack.Backend),
		)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()
	if opts.ready != nil {
		opts.ready <- listener.Addr().String()
	}

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}
