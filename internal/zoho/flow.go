package zoho

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"

	"github.com/leadgate/leadgate/internal/config"
	"github.com/leadgate/leadgate/internal/errors"
	"github.com/leadgate/leadgate/internal/logging"
	"github.com/leadgate/leadgate/internal/models"
	"github.com/leadgate/leadgate/internal/tokenstore"
)

// ConfigError reports which OAuth client settings are missing. The setup
// endpoint surfaces the booleans so an operator can see at a glance what is
// left to configure.
type ConfigError struct {
	MissingClientID    bool
	MissingRedirectURI bool
	MissingAccountsURL bool
}

func (e *ConfigError) Error() string {
	var missing []string
	if e.MissingClientID {
		missing = append(missing, "client_id")
	}
	if e.MissingRedirectURI {
		missing = append(missing, "redirect_uri")
	}
	if e.MissingAccountsURL {
		missing = append(missing, "accounts_url")
	}
	return "OAuth configuration incomplete: missing " + strings.Join(missing, ", ")
}

// ProtocolError indicates the provider accepted the exchange but replied
// without the tokens the grant promises. Unlike a rejected code this is a
// server-side fault, not something the operator caused.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string {
	return e.Message
}

// CallbackResult is what a completed authorization produced.
type CallbackResult struct {
	Record      *models.TokenRecord
	AccountsURL string
}

// Flow drives the OAuth authorization-code grant: building the consent URL
// and turning the provider callback into a persisted token record.
type Flow struct {
	cfg    config.ZohoConfig
	store  tokenstore.Store
	logger *logging.Logger
}

// NewFlow creates an authorization flow.
func NewFlow(cfg config.ZohoConfig, store tokenstore.Store, logger *logging.Logger) *Flow {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &Flow{cfg: cfg, store: store, logger: logger}
}

// AuthorizeURL returns the consent URL the operator's browser is redirected
// to. access_type=offline and prompt=consent force Zoho to issue a refresh
// token even when the operator has authorized before.
func (f *Flow) AuthorizeURL() (string, error) {
	cfgErr := &ConfigError{
		MissingClientID:    f.cfg.ClientID == "",
		MissingRedirectURI: f.cfg.RedirectURI == "",
		MissingAccountsURL: f.cfg.AccountsURL == "",
	}
	if cfgErr.MissingClientID || cfgErr.MissingRedirectURI || cfgErr.MissingAccountsURL {
		return "", cfgErr
	}

	oc := f.oauthConfig(f.cfg.AccountsURL)
	return oc.AuthCodeURL("",
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	), nil
}

// HandleCallback exchanges the authorization code and persists the resulting
// tokens. accountsServer and location are the provider's data center hints;
// the accounts-server parameter wins when both are present.
func (f *Flow) HandleCallback(ctx context.Context, code, errParam, accountsServer, location string) (*CallbackResult, error) {
	if errParam != "" {
		return nil, &errors.ErrAuth{Message: "Authorization failed: " + errParam}
	}
	if code == "" {
		return nil, &errors.ErrAuth{Message: "No authorization code received"}
	}

	accountsURL := ResolveAccountsURL(accountsServer, location, f.cfg.AccountsURL)
	detectedAPIURL := APIURLForAccountsURL(accountsURL)
	f.logger.InfoWithContext(ctx, "exchanging authorization code",
		"accounts_url", accountsURL, "api_url", detectedAPIURL)

	oc := f.oauthConfig(accountsURL)
	tok, err := oc.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if stderrors.As(err, &retrieveErr) {
			f.logger.ErrorWithContext(ctx, "token exchange rejected",
				"status", retrieveErr.Response.StatusCode, "body", string(retrieveErr.Body))
			return nil, &errors.ErrAuth{
				Message: "Token exchange failed",
				Status:  retrieveErr.Response.StatusCode,
				Body:    string(retrieveErr.Body),
			}
		}
		return nil, &errors.ErrAuth{Message: "Network error during token exchange: " + err.Error()}
	}

	if tok.AccessToken == "" || tok.RefreshToken == "" {
		return nil, &ProtocolError{Message: "Token response missing access or refresh token"}
	}

	apiDomain := detectedAPIURL
	if domain, ok := tok.Extra("api_domain").(string); ok && domain != "" {
		apiDomain = domain
	}
	if apiDomain == "" {
		apiDomain = f.cfg.APIURL
	}

	rec := &models.TokenRecord{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		APIDomain:    apiDomain,
		TokenType:    tok.TokenType,
	}
	if !tok.Expiry.IsZero() {
		rec.ExpiresAt = tok.Expiry.UnixMilli()
	}

	if err := f.store.Write(rec); err != nil {
		return nil, fmt.Errorf("failed to persist tokens: %w", err)
	}

	f.logger.InfoWithContext(ctx, "authorization complete", "api_domain", apiDomain)
	return &CallbackResult{Record: f.store.Read(), AccountsURL: accountsURL}, nil
}

func (f *Flow) oauthConfig(accountsURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     f.cfg.ClientID,
		ClientSecret: f.cfg.ClientSecret,
		RedirectURL:  f.cfg.RedirectURI,
		// Zoho expects the scope list comma-separated, not space-separated.
		Scopes: []string{strings.Join(f.cfg.Scopes, ",")},
		Endpoint: oauth2.Endpoint{
			AuthURL:   accountsURL + "/oauth/v2/auth",
			TokenURL:  accountsURL + "/oauth/v2/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}
