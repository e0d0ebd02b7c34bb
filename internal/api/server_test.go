package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadgate/leadgate/internal/config"
	"github.com/leadgate/leadgate/internal/errors"
	"github.com/leadgate/leadgate/internal/lead"
	"github.com/leadgate/leadgate/internal/logging"
	"github.com/leadgate/leadgate/internal/models"
	"github.com/leadgate/leadgate/internal/tokenstore"
	"github.com/leadgate/leadgate/internal/zoho"
)

type fakeSubmitter struct {
	result *lead.Result
	err    error
	got    *models.LeadSubmission
}

func (f *fakeSubmitter) Submit(ctx context.Context, sub *models.LeadSubmission, clientIP string) (*lead.Result, error) {
	f.got = sub
	return f.result, f.err
}

type fakeFlow struct {
	authURL string
	authErr error

	callbackResult *zoho.CallbackResult
	callbackErr    error

	gotCode     string
	gotErrParam string
	gotAccounts string
	gotLocation string
}

func (f *fakeFlow) AuthorizeURL() (string, error) {
	return f.authURL, f.authErr
}

func (f *fakeFlow) HandleCallback(ctx context.Context, code, errParam, accountsServer, location string) (*zoho.CallbackResult, error) {
	f.gotCode = code
	f.gotErrParam = errParam
	f.gotAccounts = accountsServer
	f.gotLocation = location
	return f.callbackResult, f.callbackErr
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Version: "1.0",
		Zoho: config.ZohoConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURI:  "https://school.example/oauth/callback",
			TokenFile:    filepath.Join(t.TempDir(), "tokens.json"),
		},
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, leads LeadSubmitter, flow OAuthFlow, tokens tokenstore.Store) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := logging.NewLogger(logging.WithOutput(&bytes.Buffer{}))
	return NewServer(cfg, leads, flow, tokens, nil, nil, logger)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestSubmitLead_Success(t *testing.T) {
	submitter := &fakeSubmitter{result: &lead.Result{LeadID: "5725767000001", Verified: true}}
	srv := newTestServer(t, testConfig(t), submitter, &fakeFlow{}, nil)

	payload := `{
		"parentName": "Anya Sharma",
		"studentName": "Arjun Sharma",
		"email": "anya@example.com",
		"phone": "9876543210",
		"classApplyingFor": "Grade 5"
	}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/submit-lead", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Lead created and verified successfully", body["message"])
	assert.Equal(t, "5725767000001", body["leadId"])
	assert.Equal(t, true, body["verified"])

	require.NotNil(t, submitter.got)
	assert.Equal(t, "Anya Sharma", submitter.got.ParentName)
	assert.Equal(t, "9876543210", submitter.got.Phone)
}

func TestSubmitLead_InvalidJSON(t *testing.T) {
	srv := newTestServer(t, testConfig(t), &fakeSubmitter{}, &fakeFlow{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/submit-lead", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Invalid request format", body["error"])
	assert.Equal(t, "Request body must be valid JSON", body["message"])
}

func TestSubmitLead_BodyTooLarge(t *testing.T) {
	srv := newTestServer(t, testConfig(t), &fakeSubmitter{}, &fakeFlow{}, nil)

	big := `{"parentName":"` + strings.Repeat("a", 2<<20) + `"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/submit-lead", strings.NewReader(big))
	req.Header.Set("Content-Type", "application/json")
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestSubmitLead_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		check      func(t *testing.T, body map[string]interface{})
	}{
		{
			name:       "missing required fields",
			err:        &errors.ErrValidation{Message: "Missing required fields"},
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "Missing required fields", body["error"])
				assert.NotContains(t, body, "validationErrors")
			},
		},
		{
			name: "field validation failures",
			err: &errors.ErrValidation{
				Message: "Please check your information",
				Fields:  map[string]string{"phone": "Enter valid 10-digit mobile number"},
			},
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "Please check your information", body["error"])
				fields := body["validationErrors"].(map[string]interface{})
				assert.Equal(t, "Enter valid 10-digit mobile number", fields["phone"])
			},
		},
		{
			name:       "not authenticated",
			err:        &errors.ErrAuth{Message: "No tokens found. Please authenticate first by visiting /oauth/start"},
			wantStatus: http.StatusUnauthorized,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "Authentication required", body["error"])
				assert.Equal(t, "Please authenticate with Zoho CRM first by visiting /oauth/start", body["message"])
				assert.Contains(t, body["details"], "No tokens found")
			},
		},
		{
			name:       "duplicate phone",
			err:        &errors.ErrDuplicate{Field: "phone"},
			wantStatus: http.StatusConflict,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "This number is already registered", body["error"])
				assert.Equal(t, "phone", body["field"])
			},
		},
		{
			name:       "verification failure",
			err:        &errors.ErrVerification{LeadID: "42", Message: "lead not found after creation"},
			wantStatus: http.StatusInternalServerError,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "Lead creation failed", body["error"])
				assert.Equal(t, "42", body["leadId"])
				assert.Equal(t, false, body["verified"])
			},
		},
		{
			name:       "crm rejection",
			err:        &errors.ErrSubmission{Message: "Lead was not created (HTTP 500)"},
			wantStatus: http.StatusInternalServerError,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "Failed to create lead in Zoho CRM", body["error"])
				assert.Equal(t, "Lead was not created (HTTP 500)", body["message"])
			},
		},
		{
			name:       "unexpected error",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusInternalServerError,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "Internal server error", body["error"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, testConfig(t), &fakeSubmitter{err: tt.err}, &fakeFlow{}, nil)

			w := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/submit-lead", strings.NewReader(`{"parentName":"A"}`))
			req.Header.Set("Content-Type", "application/json")
			srv.Router().ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code)
			tt.check(t, decodeBody(t, w))
		})
	}
}

func TestOAuthStart_Redirect(t *testing.T) {
	flow := &fakeFlow{authURL: "https://accounts.zoho.in/oauth/v2/auth?client_id=client-id"}
	srv := newTestServer(t, testConfig(t), &fakeSubmitter{}, flow, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/oauth/start", nil)
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, flow.authURL, w.Header().Get("Location"))
}

func TestOAuthStart_MissingConfig(t *testing.T) {
	flow := &fakeFlow{authErr: &zoho.ConfigError{MissingClientID: true, MissingAccountsURL: true}}
	srv := newTestServer(t, testConfig(t), &fakeSubmitter{}, flow, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/oauth/start", nil)
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "OAuth configuration incomplete", body["error"])
	missing := body["missing"].(map[string]interface{})
	assert.Equal(t, true, missing["clientId"])
	assert.Equal(t, false, missing["redirectUri"])
	assert.Equal(t, true, missing["accountsUrl"])
}

func TestOAuthCallback_Success(t *testing.T) {
	flow := &fakeFlow{
		callbackResult: &zoho.CallbackResult{
			Record:      &models.TokenRecord{AccessToken: "at", RefreshToken: "rt"},
			AccountsURL: "https://accounts.zoho.in",
		},
	}
	srv := newTestServer(t, testConfig(t), &fakeSubmitter{}, flow, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/oauth/callback?code=abc&accounts-server=https%3A%2F%2Faccounts.zoho.in&location=in", nil)
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Successfully Connected!")
	assert.Equal(t, "abc", flow.gotCode)
	assert.Equal(t, "https://accounts.zoho.in", flow.gotAccounts)
	assert.Equal(t, "in", flow.gotLocation)
}

func TestOAuthCallback_ProviderError(t *testing.T) {
	flow := &fakeFlow{callbackErr: &errors.ErrAuth{Message: "Authorization failed: access_denied"}}
	srv := newTestServer(t, testConfig(t), &fakeSubmitter{}, flow, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/oauth/callback?error=access_denied", nil)
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Authorization failed: access_denied", body["error"])
}

func TestOAuthCallback_ExchangeRejected(t *testing.T) {
	flow := &fakeFlow{callbackErr: &errors.ErrAuth{
		Message: "Token exchange failed",
		Status:  400,
		Body:    `{"error":"invalid_client"}`,
	}}
	srv := newTestServer(t, testConfig(t), &fakeSubmitter{}, flow, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/oauth/callback?code=abc", nil)
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Failed to exchange code for tokens", body["error"])
	assert.Equal(t, float64(400), body["status"])
	details := body["details"].(map[string]interface{})
	assert.Equal(t, "invalid_client", details["error"])
}

func TestOAuthCallback_ProtocolViolation(t *testing.T) {
	flow := &fakeFlow{callbackErr: &zoho.ProtocolError{Message: "Token response missing access or refresh token"}}
	srv := newTestServer(t, testConfig(t), &fakeSubmitter{}, flow, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/oauth/callback?code=abc", nil)
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Invalid token response from Zoho", body["error"])
	assert.Contains(t, body["details"], "missing access or refresh token")
}

func TestHealth(t *testing.T) {
	store := tokenstore.NewMemoryStore()
	srv := newTestServer(t, testConfig(t), &fakeSubmitter{}, &fakeFlow{}, store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, false, body["authenticated"])

	require.NoError(t, store.Write(&models.TokenRecord{AccessToken: "at", RefreshToken: "rt"}))

	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	body = decodeBody(t, w)
	assert.Equal(t, true, body["authenticated"])
}

func TestDebugStatus_RequiresAPIKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.API.Auth.APIKeys = []string{"ops-key"}
	srv := newTestServer(t, cfg, &fakeSubmitter{}, &fakeFlow{}, tokenstore.NewMemoryStore())

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/debug/status", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/debug/status", nil)
	req.Header.Set(DefaultAPIKeyHeader, "ops-key")
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDebugStatus_NotAuthenticated(t *testing.T) {
	srv := newTestServer(t, testConfig(t), &fakeSubmitter{}, &fakeFlow{}, tokenstore.NewMemoryStore())

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/debug/status", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "NOT AUTHENTICATED", body["status"])
	assert.Nil(t, body["tokens"])

	recs := body["recommendations"].([]interface{})
	joined := ""
	for _, r := range recs {
		joined += r.(string) + "\n"
	}
	assert.Contains(t, joined, "Visit /oauth/start")
}

func TestDebugStatus_Authenticated(t *testing.T) {
	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Write(&models.TokenRecord{
		AccessToken:  "at",
		RefreshToken: "rt",
		ExpiresAt:    9999999999999,
		APIDomain:    "https://www.zohoapis.in",
		CreatedAt:    "2025-06-01T12:00:00Z",
	}))
	srv := newTestServer(t, testConfig(t), &fakeSubmitter{}, &fakeFlow{}, store)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/debug/status", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "AUTHENTICATED", body["status"])

	tokens := body["tokens"].(map[string]interface{})
	assert.Equal(t, true, tokens["hasAccessToken"])
	assert.Equal(t, true, tokens["hasRefreshToken"])
	assert.Equal(t, false, tokens["isExpired"])
	assert.Equal(t, "https://www.zohoapis.in", tokens["apiDomain"])

	env := body["environment"].(map[string]interface{})
	assert.Equal(t, true, env["clientId"])
	assert.Equal(t, false, env["smtp"])
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, testConfig(t), &fakeSubmitter{}, &fakeFlow{}, nil)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/submit-lead", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
