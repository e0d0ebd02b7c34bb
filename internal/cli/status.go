package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/leadgate/leadgate/internal/config"
	"github.com/leadgate/leadgate/internal/logging"
	"github.com/leadgate/leadgate/internal/mailer"
	"github.com/leadgate/leadgate/internal/tokenstore"
	"github.com/leadgate/leadgate/internal/zoho"
)

// statusCmd reports token and configuration state without starting the server.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show Zoho token and configuration status",
	Long: `Inspect the persisted Zoho token file and report whether the
integration is ready to create leads.

Example:
  leadgate status --config config.yaml
  leadgate status --json`,
	RunE: runStatus,
}

var (
	statusCheckSMTP    bool
	statusForceRefresh bool
)

func init() {
	statusCmd.Flags().BoolVar(&statusCheckSMTP, "smtp", false, "also dial the configured SMTP relay")
	statusCmd.Flags().BoolVar(&statusForceRefresh, "refresh", false, "force a token refresh to prove the refresh token still works")
	RootCmd.AddCommand(statusCmd)
}

type statusReport struct {
	Status          string `json:"status"`
	TokenFile       string `json:"tokenFile"`
	TokenFileExists bool   `json:"tokenFileExists"`
	HasAccessToken  bool   `json:"hasAccessToken"`
	HasRefreshToken bool   `json:"hasRefreshToken"`
	ExpiresAt       string `json:"expiresAt,omitempty"`
	IsExpired       bool   `json:"isExpired"`
	APIDomain       string `json:"apiDomain,omitempty"`
	CreatedAt       string `json:"createdAt,omitempty"`
	SMTP            string `json:"smtp,omitempty"`
	Refresh         string `json:"refresh,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadServeConfig()
	if err != nil {
		return err
	}

	logger := logging.NewLogger(logging.WithLevel(logging.LevelError))
	store := tokenstore.NewFileStore(cfg.Zoho.TokenFile, cfg.Zoho.APIURL, logger)

	report := statusReport{
		Status:    "NOT AUTHENTICATED",
		TokenFile: cfg.Zoho.TokenFile,
	}
	if _, err := os.Stat(cfg.Zoho.TokenFile); err == nil {
		report.TokenFileExists = true
	}

	if rec := store.Read(); rec != nil {
		report.Status = "AUTHENTICATED"
		report.HasAccessToken = rec.AccessToken != ""
		report.HasRefreshToken = rec.RefreshToken != ""
		report.IsExpired = rec.IsExpiredAt(time.Now(), zoho.RefreshBuffer)
		report.APIDomain = rec.APIDomain
		report.CreatedAt = rec.CreatedAt
		if rec.ExpiresAt != 0 {
			report.ExpiresAt = rec.ExpiresAtTime().UTC().Format(time.RFC3339)
		}
	}

	if statusForceRefresh {
		report.Refresh = forceRefresh(cfg, store, logger, &report)
	}

	if statusCheckSMTP {
		report.SMTP = checkSMTP(cfg, logger)
	}

	if globalFlags.JSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Status:         %s\n", report.Status)
	fmt.Printf("Token file:     %s (exists: %v)\n", report.TokenFile, report.TokenFileExists)
	if report.Status == "AUTHENTICATED" {
		fmt.Printf("Access token:   %v\n", report.HasAccessToken)
		fmt.Printf("Refresh token:  %v\n", report.HasRefreshToken)
		if report.ExpiresAt != "" {
			fmt.Printf("Expires at:     %s (expired: %v)\n", report.ExpiresAt, report.IsExpired)
		}
		if report.APIDomain != "" {
			fmt.Printf("API domain:     %s\n", report.APIDomain)
		}
	} else {
		fmt.Println("Run the server and visit /oauth/start to authenticate.")
	}
	if report.Refresh != "" {
		fmt.Printf("Refresh check:  %s\n", report.Refresh)
	}
	if report.SMTP != "" {
		fmt.Printf("SMTP relay:     %s\n", report.SMTP)
	}

	return nil
}

// forceRefresh exchanges the stored refresh token for a new access token and
// folds the result into the report.
func forceRefresh(cfg *config.Config, store tokenstore.Store, logger *logging.Logger, report *statusReport) string {
	tm := zoho.NewTokenManager(store, cfg.Zoho, logger, nil)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Zoho.Timeout)
	defer cancel()

	rec, err := tm.Refresh(ctx)
	if err != nil {
		return fmt.Sprintf("failed: %v", err)
	}

	report.HasAccessToken = rec.AccessToken != ""
	report.IsExpired = rec.IsExpiredAt(time.Now(), zoho.RefreshBuffer)
	if rec.ExpiresAt != 0 {
		report.ExpiresAt = rec.ExpiresAtTime().UTC().Format(time.RFC3339)
	}
	return "ok"
}

// checkSMTP dials the relay without sending mail.
func checkSMTP(cfg *config.Config, logger *logging.Logger) string {
	if !cfg.SMTP.Enabled() {
		return "not configured"
	}

	sender := mailer.NewSender(cfg.SMTP, logger, nil)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.SMTP.Timeout)
	defer cancel()
	if err := sender.VerifyConnection(ctx); err != nil {
		return fmt.Sprintf("unreachable: %v", err)
	}
	return "ok"
}
