package zoho

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/leadgate/leadgate/internal/config"
	"github.com/leadgate/leadgate/internal/errors"
	"github.com/leadgate/leadgate/internal/logging"
	"github.com/leadgate/leadgate/internal/metrics"
	"github.com/leadgate/leadgate/internal/models"
	"github.com/leadgate/leadgate/internal/tokenstore"
)

// RefreshBuffer is how long before expiry a token is treated as expired, so
// an access token never runs out mid-request.
const RefreshBuffer = 5 * time.Minute

// reauthHint is appended to auth errors that require the operator to run the
// authorization flow again.
const reauthHint = "Please re-authenticate by visiting /oauth/start"

// tokenResponse is the token endpoint's reply for both the refresh and
// authorization-code grants.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	APIDomain    string `json:"api_domain"`
	TokenType    string `json:"token_type"`
	Error        string `json:"error"`
}

// TokenManager hands out valid access tokens, refreshing through the stored
// refresh token when the access token is expired or about to expire.
// Refreshes are serialized so concurrent submissions trigger at most one.
type TokenManager struct {
	store   tokenstore.Store
	cfg     config.ZohoConfig
	client  *http.Client
	logger  *logging.Logger
	metrics *metrics.Metrics
	audit   logging.AuditStore

	mu  sync.Mutex
	now func() time.Time
}

// NewTokenManager creates a token manager. metrics may be nil.
func NewTokenManager(store tokenstore.Store, cfg config.ZohoConfig, logger *logging.Logger, m *metrics.Metrics) *TokenManager {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &TokenManager{
		store:   store,
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// SetAuditStore enables refresh audit events. audit may be nil.
func (tm *TokenManager) SetAuditStore(audit logging.AuditStore) {
	tm.audit = audit
}

// ValidAccessToken returns an access token that is safe to use, refreshing
// first when the stored one is expired or inside the refresh buffer.
func (tm *TokenManager) ValidAccessToken(ctx context.Context) (string, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	rec := tm.store.Read()
	if rec == nil {
		return "", &errors.ErrAuth{Message: "No tokens found. Please authenticate first by visiting /oauth/start"}
	}
	if rec.AccessToken == "" {
		return "", &errors.ErrAuth{Message: "Invalid token file", Hint: reauthHint}
	}

	if !rec.IsExpiredAt(tm.now(), RefreshBuffer) {
		return rec.AccessToken, nil
	}

	tm.logger.InfoWithContext(ctx, "access token expired, refreshing")
	refreshed, err := tm.refresh(ctx, rec)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// Refresh forces a token refresh regardless of expiry. Used by the status
// command to prove the stored refresh token still works.
func (tm *TokenManager) Refresh(ctx context.Context) (*models.TokenRecord, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	rec := tm.store.Read()
	if rec == nil {
		return nil, &errors.ErrAuth{Message: "No tokens found. Please authenticate first by visiting /oauth/start"}
	}
	return tm.refresh(ctx, rec)
}

// APIBaseURL returns the CRM API base for the data center the tokens were
// issued in, falling back to the configured default.
func (tm *TokenManager) APIBaseURL() string {
	if rec := tm.store.Read(); rec != nil && rec.APIDomain != "" {
		return strings.TrimRight(rec.APIDomain, "/")
	}
	return tm.cfg.APIURL
}

func (tm *TokenManager) refresh(ctx context.Context, rec *models.TokenRecord) (*models.TokenRecord, error) {
	updated, err := tm.doRefresh(ctx, rec)
	if err != nil {
		tm.auditRefresh(logging.NewAuditEvent(logging.TokenRefresh, "token_refresh", logging.StatusFailure).
			WithSeverity(logging.SeverityError).
			WithError(err.Error()))
		return nil, err
	}
	tm.auditRefresh(logging.NewAuditEvent(logging.TokenRefresh, "token_refresh", logging.StatusSuccess))
	return updated, nil
}

func (tm *TokenManager) doRefresh(ctx context.Context, rec *models.TokenRecord) (*models.TokenRecord, error) {
	if rec.RefreshToken == "" {
		return nil, &errors.ErrAuth{Message: "No refresh token available. Please re-authenticate"}
	}

	accountsURL := AccountsURLForAPIDomain(rec.APIDomain, tm.cfg.AccountsURL)

	form := url.Values{}
	form.Set("refresh_token", rec.RefreshToken)
	form.Set("client_id", tm.cfg.ClientID)
	form.Set("client_secret", tm.cfg.ClientSecret)
	form.Set("grant_type", "refresh_token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		accountsURL+"/oauth/v2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := tm.client.Do(req)
	if err != nil {
		tm.recordRefresh("failure")
		return nil, &errors.ErrAuth{Message: "Network error during token refresh: " + err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		tm.recordRefresh("failure")
		return nil, &errors.ErrAuth{Message: "Network error during token refresh: " + err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		tm.recordRefresh("failure")
		tm.logger.ErrorWithContext(ctx, "token refresh failed",
			"status", resp.StatusCode, "body", string(body))

		var payload tokenResponse
		_ = json.Unmarshal(body, &payload)
		msg := payload.Error
		if msg == "" {
			msg = "Unknown error"
		}

		authErr := &errors.ErrAuth{
			Message: "Token refresh failed: " + msg,
			Status:  resp.StatusCode,
			Body:    string(body),
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			authErr.Hint = reauthHint
		}
		return nil, authErr
	}

	var payload tokenResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		tm.recordRefresh("failure")
		return nil, &errors.ErrAuth{Message: "Invalid response from Zoho during token refresh"}
	}
	if payload.AccessToken == "" {
		tm.recordRefresh("failure")
		tm.logger.ErrorWithContext(ctx, "token refresh returned no access token", "body", string(body))
		return nil, &errors.ErrAuth{Message: "Token refresh did not return a valid access token"}
	}

	updated := rec.Clone()
	updated.AccessToken = payload.AccessToken
	// A zero expiry falls through to the store's one-hour default.
	updated.ExpiresAt = 0
	if payload.ExpiresIn > 0 {
		updated.ExpiresAt = tm.now().UnixMilli() + payload.ExpiresIn*1000
	}

	if err := tm.store.Write(updated); err != nil {
		// The refreshed token is still usable for this request even if it
		// could not be persisted.
		tm.logger.WarnWithContext(ctx, "failed to persist refreshed tokens", "error", err.Error())
	} else if saved := tm.store.Read(); saved != nil {
		updated = saved
	}

	tm.recordRefresh("success")
	tm.logger.InfoWithContext(ctx, "access token refreshed",
		"expires_at", updated.ExpiresAt, "accounts_url", accountsURL)
	return updated, nil
}

func (tm *TokenManager) recordRefresh(status string) {
	if tm.metrics != nil {
		tm.metrics.RecordTokenRefresh(status)
	}
}

func (tm *TokenManager) auditRefresh(event *logging.AuditEvent) {
	if tm.audit != nil {
		tm.audit.SaveEventAsync(event)
	}
}
