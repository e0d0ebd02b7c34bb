package cli

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadgate/leadgate/internal/logging"
	"github.com/leadgate/leadgate/internal/models"
	"github.com/leadgate/leadgate/internal/tokenstore"
)

func writeTestConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "tokens.json")
	configPath := filepath.Join(dir, "config.yaml")
	content := "version: \"1.0\"\nzoho:\n  token_file: " + tokenFile + "\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))
	return configPath, tokenFile
}

func withConfigPath(t *testing.T, path string) {
	t.Helper()
	old := globalFlags.Config
	globalFlags.Config = path
	t.Cleanup(func() { globalFlags.Config = old })
}

func TestLoadServeConfig_FromFile(t *testing.T) {
	configPath, tokenFile := writeTestConfig(t)
	withConfigPath(t, configPath)

	cfg, err := loadServeConfig()
	require.NoError(t, err)
	assert.Equal(t, tokenFile, cfg.Zoho.TokenFile)
	assert.NotZero(t, cfg.Server.HTTPPort, "defaults should be applied")
}

func TestLoadServeConfig_EnvFallback(t *testing.T) {
	withConfigPath(t, filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	t.Setenv("ZOHO_CLIENT_ID", "env-client")

	cfg, err := loadServeConfig()
	require.NoError(t, err)
	assert.Equal(t, "env-client", cfg.Zoho.ClientID)
}

func TestRunStatus_NotAuthenticated(t *testing.T) {
	configPath, _ := writeTestConfig(t)
	withConfigPath(t, configPath)

	require.NoError(t, runStatus(statusCmd, nil))
}

func TestRunStatus_Authenticated(t *testing.T) {
	configPath, tokenFile := writeTestConfig(t)
	withConfigPath(t, configPath)

	store := tokenstore.NewFileStore(tokenFile, "", logging.NewLogger(logging.WithLevel(logging.LevelError)))
	require.NoError(t, store.Write(&models.TokenRecord{
		AccessToken:  "at",
		RefreshToken: "rt",
		ExpiresAt:    time.Now().Add(time.Hour).UnixMilli(),
	}))

	old := globalFlags.JSON
	globalFlags.JSON = true
	t.Cleanup(func() { globalFlags.JSON = old })

	require.NoError(t, runStatus(statusCmd, nil))
}

func TestRunStatus_RefreshCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"renewed","expires_in":3600}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "tokens.json")
	configPath := filepath.Join(dir, "config.yaml")
	content := "version: \"1.0\"\nzoho:\n  token_file: " + tokenFile + "\n  accounts_url: " + server.URL + "\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))
	withConfigPath(t, configPath)

	store := tokenstore.NewFileStore(tokenFile, "", logging.NewLogger(logging.WithLevel(logging.LevelError)))
	require.NoError(t, store.Write(&models.TokenRecord{
		AccessToken:  "stale",
		RefreshToken: "rt",
		ExpiresAt:    1,
	}))

	old := statusForceRefresh
	statusForceRefresh = true
	t.Cleanup(func() { statusForceRefresh = old })

	require.NoError(t, runStatus(statusCmd, nil))

	// The refreshed token was written through to the file.
	fresh := tokenstore.NewFileStore(tokenFile, "", logging.NewLogger(logging.WithLevel(logging.LevelError))).Read()
	require.NotNil(t, fresh)
	assert.Equal(t, "renewed", fresh.AccessToken)
}

func TestEnvDuration(t *testing.T) {
	assert.Equal(t, 30*time.Second, envDuration("LEADGATE_TEST_MISSING", 30*time.Second))

	t.Setenv("LEADGATE_TEST_DURATION", "45s")
	assert.Equal(t, 45*time.Second, envDuration("LEADGATE_TEST_DURATION", time.Second))

	t.Setenv("LEADGATE_TEST_DURATION", "bogus")
	assert.Equal(t, time.Second, envDuration("LEADGATE_TEST_DURATION", time.Second))
}

func TestGetVersionInfo(t *testing.T) {
	info := GetVersionInfo()
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}
