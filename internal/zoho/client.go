package zoho

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/leadgate/leadgate/internal/config"
	"github.com/leadgate/leadgate/internal/errors"
	"github.com/leadgate/leadgate/internal/logging"
	"github.com/leadgate/leadgate/internal/metrics"
	"github.com/leadgate/leadgate/internal/models"
)

// authHeaderPrefix is Zoho's non-standard bearer scheme.
const authHeaderPrefix = "Zoho-oauthtoken "

// Client talks to the Zoho CRM v2 API. The base URL is resolved per call so
// a token refresh that lands in a different data center takes effect
// immediately.
type Client struct {
	baseURL func() string
	client  *http.Client
	logger  *logging.Logger
	metrics *metrics.Metrics

	company           string
	defaultLeadSource string
}

// NewClient creates a CRM client. baseURL is called per request; metrics may
// be nil.
func NewClient(baseURL func() string, cfg config.ZohoConfig, logger *logging.Logger, m *metrics.Metrics) *Client {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &Client{
		baseURL:           baseURL,
		client:            &http.Client{Timeout: cfg.Timeout},
		logger:            logger,
		metrics:           m,
		company:           cfg.Company,
		defaultLeadSource: cfg.LeadSource,
	}
}

// CreateResult reports a successful lead creation.
type CreateResult struct {
	LeadID string
	Raw    string
}

type leadRecord struct {
	LastName    string `json:"Last_Name"`
	Company     string `json:"Company"`
	Email       string `json:"Email"`
	Phone       string `json:"Phone"`
	LeadSource  string `json:"Lead_Source"`
	Description string `json:"Description"`
}

type leadPayload struct {
	Data    []leadRecord `json:"data"`
	Trigger []string     `json:"trigger"`
}

type crmRecord struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details struct {
		ID string `json:"id"`
	} `json:"details"`
}

type crmResponse struct {
	Data []crmRecord `json:"data"`
}

// HasLeadWithPhone reports whether a lead with this phone number already
// exists. Any non-200 reply means "no duplicate found"; network failures
// return an error so the caller can decide to fail open.
func (c *Client) HasLeadWithPhone(ctx context.Context, accessToken, phone string) (bool, error) {
	searchURL := c.baseURL() + "/crm/v2/Leads/search?criteria=" +
		url.QueryEscape("(Phone:equals:"+phone+")")

	status, body, err := c.do(ctx, "search_leads", http.MethodGet, searchURL, accessToken, nil)
	if err != nil {
		return false, err
	}
	if status != http.StatusOK {
		return false, nil
	}

	var resp crmResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, nil
	}
	return len(resp.Data) > 0, nil
}

// CreateLead submits the lead and returns the created record's ID. A reply
// without a success status AND a record ID is a failure, whatever the HTTP
// code says.
func (c *Client) CreateLead(ctx context.Context, accessToken string, lead *models.LeadSubmission) (*CreateResult, error) {
	source := lead.UTMSource
	if source == "" {
		source = c.defaultLeadSource
	}

	payload := leadPayload{
		Data: []leadRecord{{
			LastName:    lead.ParentName,
			Company:     c.company,
			Email:       lead.Email,
			Phone:       lead.Phone,
			LeadSource:  source,
			Description: lead.Description(),
		}},
		Trigger: []string{"approval", "workflow", "blueprint"},
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	status, body, err := c.do(ctx, "create_lead", http.MethodPost,
		c.baseURL()+"/crm/v2/Leads", accessToken, encoded)
	if err != nil {
		return nil, &errors.ErrSubmission{Message: "Failed to connect to Zoho CRM: " + err.Error()}
	}

	var resp crmResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &errors.ErrSubmission{
			Message:  "Invalid response from Zoho CRM",
			Response: truncate(string(body), 500),
		}
	}

	if status != http.StatusOK && status != http.StatusCreated {
		c.logger.ErrorWithContext(ctx, "lead creation rejected",
			"status", status, "body", truncate(string(body), 500))
		return nil, &errors.ErrSubmission{
			Message:  fmt.Sprintf("Lead was not created (HTTP %d)", status),
			Response: string(body),
		}
	}

	if len(resp.Data) == 0 {
		return nil, &errors.ErrSubmission{
			Message:  "Zoho CRM response missing data array",
			Response: string(body),
		}
	}

	first := resp.Data[0]
	hasSuccessStatus := strings.EqualFold(first.Status, "success")
	hasSuccessCode := strings.EqualFold(first.Code, "SUCCESS")
	leadID := first.Details.ID

	if (!hasSuccessStatus && !hasSuccessCode) || leadID == "" {
		msg := first.Message
		if msg == "" {
			msg = "Lead was not created. Please check Zoho CRM configuration."
		}
		c.logger.ErrorWithContext(ctx, "lead creation reported failure",
			"status", first.Status, "code", first.Code, "message", first.Message)
		return nil, &errors.ErrSubmission{Message: msg, Response: string(body)}
	}

	c.logger.InfoWithContext(ctx, "lead created", "lead_id", leadID)
	return &CreateResult{LeadID: leadID, Raw: string(body)}, nil
}

// LeadExists fetches a lead back by ID to prove it was actually created.
func (c *Client) LeadExists(ctx context.Context, accessToken, leadID string) (bool, error) {
	status, body, err := c.do(ctx, "verify_lead", http.MethodGet,
		c.baseURL()+"/crm/v2/Leads/"+url.PathEscape(leadID), accessToken, nil)
	if err != nil {
		return false, err
	}
	if status != http.StatusOK {
		c.logger.WarnWithContext(ctx, "lead verification fetch failed",
			"lead_id", leadID, "status", status, "body", truncate(string(body), 200))
		return false, nil
	}

	var resp crmResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, nil
	}
	return len(resp.Data) > 0, nil
}

func (c *Client) do(ctx context.Context, operation, method, rawURL, accessToken string, payload []byte) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", authHeaderPrefix+accessToken)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.recordRequest(operation, "error", time.Since(start))
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordRequest(operation, "error", time.Since(start))
		return 0, nil, err
	}

	c.recordRequest(operation, strconv.Itoa(resp.StatusCode), time.Since(start))
	return resp.StatusCode, body, nil
}

func (c *Client) recordRequest(operation, status string, elapsed time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordCRMRequest(operation, status)
	c.metrics.RecordCRMRequestLatency(operation, elapsed.Seconds())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
