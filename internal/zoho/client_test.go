package zoho

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadgate/leadgate/internal/config"
	"github.com/leadgate/leadgate/internal/errors"
	"github.com/leadgate/leadgate/internal/models"
)

func newTestClient(serverURL string) *Client {
	cfg := config.ZohoConfig{
		Timeout:    5 * time.Second,
		Company:    "BFIS Admission",
		LeadSource: "Website - Admission Form",
	}
	return NewClient(func() string { return serverURL }, cfg, nil, nil)
}

func testLead() *models.LeadSubmission {
	return &models.LeadSubmission{
		ParentName:       "Ravi Kumar",
		StudentName:      "Anya",
		Email:            "ravi@example.com",
		Phone:            "9876543210",
		ClassApplyingFor: "Grade 5",
	}
}

func TestHasLeadWithPhone(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{"match found", 200, `{"data":[{"id":"123"}]}`, true},
		{"empty data array", 200, `{"data":[]}`, false},
		{"no content", 204, ``, false},
		{"upstream error", 500, `{"code":"INTERNAL_ERROR"}`, false},
		{"unparseable body", 200, `garbage`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath, gotCriteria, gotAuth string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotCriteria = r.URL.Query().Get("criteria")
				gotAuth = r.Header.Get("Authorization")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			dup, err := client.HasLeadWithPhone(context.Background(), "tok-1", "9876543210")
			require.NoError(t, err)
			assert.Equal(t, tt.want, dup)
			assert.Equal(t, "/crm/v2/Leads/search", gotPath)
			assert.Equal(t, "(Phone:equals:9876543210)", gotCriteria)
			assert.Equal(t, "Zoho-oauthtoken tok-1", gotAuth)
		})
	}
}

func TestHasLeadWithPhone_NetworkError(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")
	_, err := client.HasLeadWithPhone(context.Background(), "tok", "9876543210")
	require.Error(t, err)
}

func TestCreateLead_Success(t *testing.T) {
	var gotBody map[string]any
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/crm/v2/Leads", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":[{"status":"success","code":"SUCCESS","details":{"id":"5725767000001"}}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result, err := client.CreateLead(context.Background(), "tok-2", testLead())
	require.NoError(t, err)
	assert.Equal(t, "5725767000001", result.LeadID)
	assert.Equal(t, "Zoho-oauthtoken tok-2", gotAuth)

	data := gotBody["data"].([]any)
	require.Len(t, data, 1)
	record := data[0].(map[string]any)
	assert.Equal(t, "Ravi Kumar", record["Last_Name"])
	assert.Equal(t, "BFIS Admission", record["Company"])
	assert.Equal(t, "ravi@example.com", record["Email"])
	assert.Equal(t, "9876543210", record["Phone"])
	assert.Equal(t, "Website - Admission Form", record["Lead_Source"])
	assert.Contains(t, record["Description"], "Student Name: Anya")

	trigger := gotBody["trigger"].([]any)
	assert.Equal(t, []any{"approval", "workflow", "blueprint"}, trigger)
}

func TestCreateLead_UTMSourceOverridesLeadSource(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"data":[{"status":"success","details":{"id":"1"}}]}`))
	}))
	defer server.Close()

	lead := testLead()
	lead.UTMSource = "google"

	client := newTestClient(server.URL)
	_, err := client.CreateLead(context.Background(), "tok", lead)
	require.NoError(t, err)

	record := gotBody["data"].([]any)[0].(map[string]any)
	assert.Equal(t, "google", record["Lead_Source"])
}

func TestCreateLead_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{
			name:    "error status in record",
			status:  200,
			body:    `{"data":[{"status":"error","code":"MANDATORY_NOT_FOUND","message":"Last Name is required"}]}`,
			wantMsg: "Last Name is required",
		},
		{
			name:    "success status without id",
			status:  200,
			body:    `{"data":[{"status":"success","code":"SUCCESS","details":{}}]}`,
			wantMsg: "Lead was not created",
		},
		{
			name:    "missing data array",
			status:  200,
			body:    `{"info":{}}`,
			wantMsg: "missing data array",
		},
		{
			name:    "http error",
			status:  401,
			body:    `{"code":"INVALID_TOKEN"}`,
			wantMsg: "HTTP 401",
		},
		{
			name:    "unparseable body",
			status:  200,
			body:    `garbage`,
			wantMsg: "Invalid response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			_, err := client.CreateLead(context.Background(), "tok", testLead())

			var subErr *errors.ErrSubmission
			require.ErrorAs(t, err, &subErr)
			assert.Contains(t, subErr.Message, tt.wantMsg)
		})
	}
}

func TestLeadExists(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{"found", 200, `{"data":[{"id":"5725767000001"}]}`, true},
		{"empty data", 200, `{"data":[]}`, false},
		{"not found", 404, `{"code":"RESOURCE_NOT_FOUND"}`, false},
		{"no content", 204, ``, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			exists, err := client.LeadExists(context.Background(), "tok", "5725767000001")
			require.NoError(t, err)
			assert.Equal(t, tt.want, exists)
			assert.Equal(t, "/crm/v2/Leads/5725767000001", gotPath)
		})
	}
}
