package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/leadgate/leadgate/internal/api"
	"github.com/leadgate/leadgate/internal/config"
	"github.com/leadgate/leadgate/internal/lead"
	"github.com/leadgate/leadgate/internal/logging"
	"github.com/leadgate/leadgate/internal/mailer"
	"github.com/leadgate/leadgate/internal/metrics"
	"github.com/leadgate/leadgate/internal/notify"
	"github.com/leadgate/leadgate/internal/tokenstore"
	"github.com/leadgate/leadgate/internal/zoho"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s", "server", "run"},
	Short:   "Start the LeadGate server",
	Long: `Start the LeadGate server in main mode.

This command starts the HTTP server that accepts admission enquiries,
creates leads in Zoho CRM, and manages the OAuth token lifecycle.

Example:
  leadgate serve --config config.yaml

The server will start listening on the address configured in the config file.`,
	RunE: runServe,
}

var serveFlags struct {
	Host    string
	Port    int
	Timeout time.Duration
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.Host, "host", "", "Server host (overrides config)")
	serveCmd.Flags().IntVar(&serveFlags.Port, "port", 0, "Server port (overrides config)")
	serveCmd.Flags().DurationVar(&serveFlags.Timeout, "timeout", envDuration("SHUTDOWN_TIMEOUT", 30*time.Second), "Shutdown timeout")

	RootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if globalFlags.Verbose {
		log.Println("Starting LeadGate server...")
		log.Printf("Config path: %s", globalFlags.Config)
	}

	cfg, err := loadServeConfig()
	if err != nil {
		return err
	}

	// Apply CLI flags to config
	if serveFlags.Host != "" {
		cfg.Server.Host = serveFlags.Host
	}
	if serveFlags.Port != 0 {
		cfg.Server.HTTPPort = serveFlags.Port
	}

	logger := logging.NewLogger(
		logging.WithLevel(logging.LogLevel(cfg.Server.LogLevel)),
		logging.WithService("leadgate"),
	)

	if globalFlags.Verbose {
		log.Printf("Configuration loaded successfully")
		log.Printf("Server host: %s, port: %d", cfg.Server.Host, cfg.Server.HTTPPort)
	}

	m := metrics.NewMetrics("leadgate")

	// Token persistence. The directory watcher picks up out-of-band edits
	// to the token file, such as an operator copying one in by hand.
	store := tokenstore.NewFileStore(cfg.Zoho.TokenFile, cfg.Zoho.APIURL, logger.Component("tokens"))
	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()
	if err := store.Watch(watchCtx); err != nil {
		logger.Warn("Token file watcher unavailable", "error", err.Error())
	}

	zohoLogger := logger.Component("zoho")
	tokenManager := zoho.NewTokenManager(store, cfg.Zoho, zohoLogger, m)
	crmClient := zoho.NewClient(tokenManager.APIBaseURL, cfg.Zoho, zohoLogger, m)
	oauthFlow := zoho.NewFlow(cfg.Zoho, store, zohoLogger)

	var sender lead.Mailer
	if cfg.SMTP.Enabled() {
		sender = mailer.NewSender(cfg.SMTP, logger.Component("mailer"), m)
	} else {
		logger.Warn("SMTP not configured, thank-you email disabled")
	}

	var notifier lead.Notifier
	tg := notify.NewTelegram(cfg.Telegram, logger.Component("telegram"))
	if tg.Enabled() {
		notifier = tg
	}

	var audit logging.AuditStore
	if cfg.Audit.Enabled {
		auditStore, err := logging.NewSQLiteAuditStore(cfg.Audit.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open audit store: %w", err)
		}
		audit = auditStore
		if globalFlags.Verbose {
			log.Printf("Audit trail: %s", cfg.Audit.DBPath)
		}
	}

	tokenManager.SetAuditStore(audit)

	pipeline := lead.NewService(tokenManager, crmClient, sender, notifier, audit, logger.Component("lead"), m)
	server := api.NewServer(cfg, pipeline, oauthFlow, store, audit, m, logger.Component("api"))

	setupGracefulShutdown(server, cancelWatch, serveFlags.Timeout)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort)
	log.Printf("Starting LeadGate HTTP server on %s", addr)
	if keys := cfg.API.Auth.APIKeys; len(keys) > 0 {
		log.Printf("Operational endpoints protected by API keys: %v", api.MaskAPIKeys(keys))
	}

	if err := server.Run(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// loadServeConfig loads from the config file when present and falls back
// to plain environment variables, which is how container deployments
// usually run this service.
func loadServeConfig() (*config.Config, error) {
	if _, err := os.Stat(globalFlags.Config); err == nil {
		loader := config.NewLoader(globalFlags.Config)
		cfg, err := loader.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		return cfg, nil
	}

	cfg, err := config.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from environment: %w", err)
	}
	return cfg, nil
}

// setupGracefulShutdown handles graceful shutdown of all components
func setupGracefulShutdown(server *api.Server, cancelWatch context.CancelFunc, timeout time.Duration) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("Received signal: %v", sig)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if cancelWatch != nil {
			cancelWatch()
		}

		log.Println("Shutting down API server...")
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("Error during server shutdown: %v", err)
		}

		log.Println("Graceful shutdown completed")
		os.Exit(0)
	}()
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	return fallback
}
