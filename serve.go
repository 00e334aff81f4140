package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Conceptual-Machines/intprep/internal/api"
	"github.com/Conceptual-Machines/intprep/internal/config"
	"github.com/Conceptual-Machines/intprep/internal/credentials"
	"github.com/Conceptual-Machines/intprep/internal/llm"
	"github.com/Conceptual-Machines/intprep/internal/logger"
	"github.com/Conceptual-Machines/intprep/internal/metrics"
	"github.com/Conceptual-Machines/intprep/internal/observability"
	"github.com/Conceptual-Machines/intprep/internal/prompt"
	"github.com/Conceptual-Machines/intprep/internal/services"
	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	sentryFlushTimeout = 2 * time.Second
	shutdownTimeout    = 10 * time.Second
	readHeaderTimeout  = 10 * time.Second
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web form and streaming API",
	RunE:  runServe,
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Print the candidate models in trial order",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		for i, m := range cfg.ModelCandidates {
			fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, m)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (overrides PORT)")
	rootCmd.AddCommand(serveCmd, modelsCmd)
}

func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if cfg.ConfigFile != "" {
		if err := cfg.ApplyFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != "" {
		cfg.Port = servePort
	}
	level, _ := logger.ParseLevel(cfg.LogLevel)
	logger.SetLevel(level)

	if initSentry(cfg) {
		defer sentry.Flush(sentryFlushTimeout)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracer := observability.NewTracer(ctx, cfg)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	recorders := metrics.Multi{metrics.NewSentryMetrics(), metrics.NewPrometheus(registry)}
	cloudwatch := metrics.NewCloudWatch(ctx, cfg.Environment)
	if cloudwatch.Enabled() {
		recorders = append(recorders, cloudwatch)
	}

	var serviceOpts []services.ServiceOption
	if cfg.PromptsDir != "" {
		builder, err := prompt.NewPromptBuilderFromLoader(prompt.NewPromptLoaderDir(cfg.PromptsDir))
		if err != nil {
			return fmt.Errorf("failed to load prompts from %s: %w", cfg.PromptsDir, err)
		}
		log.Printf("📝 Using prompts from %s", cfg.PromptsDir)
		serviceOpts = append(serviceOpts, services.WithPromptBuilder(builder))
	}

	resolver := credentials.NewResolver(cfg.CredentialKey)
	provider := llm.NewGroqProvider(cfg.GroqBaseURL, resolver)
	service := services.NewGenerationService(
		provider,
		cfg.ModelCandidates,
		services.GetLLMParameters(cfg),
		recorders,
		tracer,
		serviceOpts...,
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.SetupRouter(service, registry, GetVersion())

	// No write timeout: generations stream for as long as the model does
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("🚀 Starting server on port %s (%d candidate models)", cfg.Port, len(cfg.ModelCandidates))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sentry.CaptureException(err)
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("🛑 Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return cloudwatch.Close(shutdownCtx)
	})

	return g.Wait()
}

func initSentry(cfg *config.Config) bool {
	if cfg.SentryDSN == "" {
		log.Println("⚠️  Sentry not configured (SENTRY_DSN not set)")
		return false
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		Release:          "intprep@" + releaseVersion,
		EnableTracing:    true,
		TracesSampleRate: 1.0,
		EnableLogs:       true,
		Debug:            !cfg.IsProduction(),
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			if event.Request != nil {
				event.Request.Headers = filterSensitiveHeaders(event.Request.Headers)
			}
			return event
		},
	}); err != nil {
		log.Printf("Failed to initialize Sentry: %v", err)
		return false
	}

	log.Printf("✅ Sentry initialized (environment: %s, release: %s)", cfg.Environment, releaseVersion)
	return true
}

var sensitiveHeaders = map[string]bool{
	"authorization":  true,
	"cookie":         true,
	"x-api-key":      true,
	"x-groq-api-key": true,
}

// filterSensitiveHeaders redacts credential-bearing headers. Header names are
// matched case-insensitively.
func filterSensitiveHeaders(headers map[string]string) map[string]string {
	filtered := make(map[string]string, len(headers))
	for k, v := range headers {
		if sensitiveHeaders[strings.ToLower(k)] {
			filtered[k] = "[REDACTED]"
		} else {
			filtered[k] = v
		}
	}
	return filtered
}
