package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rkayurveda/storefront/ai"
	"github.com/rkayurveda/storefront/api"
	"github.com/rkayurveda/storefront/auth"
	"github.com/rkayurveda/storefront/commerce"
	"github.com/rkayurveda/storefront/core"
	"github.com/rkayurveda/storefront/resilience"
	"github.com/rkayurveda/storefront/telemetry"
)

type serveOptions struct {
	*rootOptions
	Port       int
	Address    string
	AdminPhone string
	AIProvider string
	AIModel    string
	MockAI     bool
	RedisURL   string
}

// configOptions adds the serve flags to the shared ones
func (o *serveOptions) configOptions(cmd *cobra.Command) []core.Option {
	opts := o.rootOptions.configOptions(cmd)
	if cmd.Flags().Changed("port") {
		opts = append(opts, core.WithPort(o.Port))
	}
	if o.Address != "" {
		opts = append(opts, core.WithAddress(o.Address))
	}
	if o.AdminPhone != "" {
		opts = append(opts, core.WithAdminPhone(o.AdminPhone))
	}
	if o.AIProvider != "" {
		opts = append(opts, core.WithAIProvider(o.AIProvider))
	}
	if o.AIModel != "" {
		opts = append(opts, core.WithAIModel(o.AIModel))
	}
	if o.MockAI {
		opts = append(opts, core.WithMockAI(true))
	}
	if o.RedisURL != "" {
		opts = append(opts, core.WithRedisURL(o.RedisURL))
	}
	return opts
}

func newServeCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &serveOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the storefront HTTP API",
		Long: `Run the storefront HTTP API until SIGINT or SIGTERM.

Example:
  storefront serve --port 9090 --mock-ai --dev`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := core.NewConfig(opts.configOptions(cmd)...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVarP(&opts.Port, "port", "p", 8080, "HTTP port")
	cmd.Flags().StringVar(&opts.Address, "address", "", "bind address (default all interfaces)")
	cmd.Flags().StringVar(&opts.AdminPhone, "admin-phone", "", "phone number that logs in as admin")
	cmd.Flags().StringVar(&opts.AIProvider, "ai-provider", "", "enable advice with this provider (gemini or mock)")
	cmd.Flags().StringVar(&opts.AIModel, "ai-model", "", "model name for the advice provider")
	cmd.Flags().BoolVar(&opts.MockAI, "mock-ai", false, "answer advice requests with canned responses")
	cmd.Flags().StringVar(&opts.RedisURL, "redis-url", "", "keep login codes in Redis instead of process memory")

	return cmd
}

// app holds everything built from a Config
type app struct {
	handler http.Handler
	memory  core.Memory
	tel     *telemetry.Provider
	logger  core.Logger
}

// close releases the telemetry pipeline and any Redis connection
func (a *app) close(ctx context.Context) error {
	var errs []error
	if closer, ok := a.memory.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	if a.tel != nil {
		errs = append(errs, a.tel.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// newApp builds the service graph: memory, store, login, advice and routes
func newApp(ctx context.Context, cfg *core.Config, logOut io.Writer) (*app, error) {
	logger := core.NewProductionLogger(cfg.Logging, cfg.Name, logOut)
	a := &app{logger: logger}

	var tel core.Telemetry = &core.NoOpTelemetry{}
	if cfg.Telemetry.Enabled {
		provider, err := telemetry.NewProvider(ctx, cfg.Telemetry, telemetry.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to start telemetry: %w", err)
		}
		a.tel = provider
		tel = provider
	}

	memory, err := core.NewMemory(cfg.Memory, logger)
	if err != nil {
		_ = a.close(ctx)
		return nil, fmt.Errorf("failed to create memory backend: %w", err)
	}
	a.memory = memory
	if ms, ok := memory.(*core.MemoryStore); ok {
		ms.StartCleanup(ctx, cfg.Memory.CleanupInterval)
	}

	products, err := commerce.LoadProducts(cfg.Store.SeedFile)
	if err != nil {
		_ = a.close(ctx)
		return nil, err
	}
	store := commerce.NewStore(
		commerce.WithProducts(products),
		commerce.WithLogger(logger),
		commerce.WithTelemetry(tel),
	)

	authService := auth.NewService(memory, cfg.Store, auth.WithLogger(logger))

	advisor, err := newAdvisor(cfg.AI, logger, tel)
	if err != nil {
		_ = a.close(ctx)
		return nil, err
	}

	cors := cfg.HTTP.CORS
	server := api.NewServer(store, authService, advisor,
		api.WithLogger(logger),
		api.WithContactPhone(cfg.Store.ContactPhone),
		api.WithCORS(&cors),
		api.WithDevMode(cfg.Development.Enabled),
		api.WithServiceName(cfg.Name),
	)
	a.handler = server.Handler()

	logger.Info("Storefront ready", map[string]interface{}{
		"operation":       "startup",
		"products":        len(products),
		"memory_provider": cfg.Memory.Provider,
		"ai_enabled":      cfg.AI.Enabled,
		"ai_provider":     cfg.AI.Provider,
		"telemetry":       cfg.Telemetry.Enabled,
	})
	return a, nil
}

// newAdvisor wires the AI client behind a circuit breaker. A disabled AI
// config yields an advisor that always returns the fallback text.
func newAdvisor(cfg core.AIConfig, logger core.Logger, tel core.Telemetry) (*ai.Advisor, error) {
	client, err := ai.NewClient(cfg, ai.WithLogger(logger), ai.WithTelemetry(tel))
	if err != nil {
		return nil, fmt.Errorf("failed to create AI client: %w", err)
	}

	advisorOpts := []ai.AdvisorOption{
		ai.WithAdvisorLogger(logger),
		ai.WithAdvisorTelemetry(tel),
	}
	if client != nil && cfg.CircuitBreaker.Enabled {
		metrics, err := resilience.NewOTelMetricsCollector()
		if err != nil {
			return nil, fmt.Errorf("failed to register circuit breaker metrics: %w", err)
		}
		breaker, err := resilience.NewCircuitBreaker(&resilience.CircuitBreakerConfig{
			Name:             "advisor",
			FailureThreshold: cfg.CircuitBreaker.Threshold,
			OpenTimeout:      cfg.CircuitBreaker.Timeout,
			Logger:           core.ComponentLogger(logger, "resilience"),
			Metrics:          metrics,
		})
		if err != nil {
			return nil, err
		}
		advisorOpts = append(advisorOpts, ai.WithCircuitBreaker(breaker))
	}
	return ai.NewAdvisor(client, advisorOpts...), nil
}

func serve(ctx context.Context, cfg *core.Config, logOut io.Writer) error {
	a, err := newApp(ctx, cfg, logOut)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Address, strconv.Itoa(cfg.Port)),
		Handler:      a.handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening", map[string]interface{}{
			"operation": "listen",
			"address":   srv.Addr,
			"version":   core.Version,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			_ = a.close(context.Background())
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down", map[string]interface{}{
		"operation": "shutdown",
		"timeout":   cfg.HTTP.ShutdownTimeout.String(),
	})
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	return errors.Join(srv.Shutdown(shutdownCtx), a.close(shutdownCtx))
}
