package api

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/leadgate/leadgate/internal/errors"
	"github.com/leadgate/leadgate/internal/logging"
	"github.com/leadgate/leadgate/internal/models"
	"github.com/leadgate/leadgate/internal/zoho"
)

const oauthSuccessPage = `<!DOCTYPE html>
<html>
  <head>
    <title>Zoho CRM Connected</title>
    <style>
      body { font-family: -apple-system, "Segoe UI", Roboto, Arial, sans-serif; display: flex; justify-content: center; align-items: center; min-height: 100vh; margin: 0; background: #f3f4f6; }
      .container { background: white; padding: 3rem; border-radius: 1rem; box-shadow: 0 10px 30px rgba(0,0,0,0.15); text-align: center; max-width: 500px; }
      h1 { color: #10b981; margin-bottom: 1rem; }
      p { color: #6b7280; line-height: 1.6; }
    </style>
  </head>
  <body>
    <div class="container">
      <h1>Successfully Connected!</h1>
      <p>Your Zoho CRM integration is now active. Your lead form will automatically create leads in Zoho CRM.</p>
      <p>You can close this window and test your form submission.</p>
    </div>
  </body>
</html>`

// handleSubmitLead accepts an enquiry from the website form and runs the
// submission pipeline.
func (s *Server) handleSubmitLead(c *gin.Context) {
	var sub models.LeadSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error":   "request body too large",
				"message": "Request body exceeds maximum allowed size.",
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request format",
			"message": "Request body must be valid JSON",
		})
		return
	}

	result, err := s.leads.Submit(c.Request.Context(), &sub, c.ClientIP())
	if err != nil {
		s.writeSubmitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Lead created and verified successfully",
		"leadId":   result.LeadID,
		"verified": result.Verified,
	})
}

// writeSubmitError maps pipeline errors to the response contract the
// website form depends on.
func (s *Server) writeSubmitError(c *gin.Context, err error) {
	var validationErr *errors.ErrValidation
	if stderrors.As(err, &validationErr) {
		if len(validationErr.Fields) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Message})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":            validationErr.Message,
			"validationErrors": validationErr.Fields,
		})
		return
	}

	var authErr *errors.ErrAuth
	if stderrors.As(err, &authErr) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Authentication required",
			"message": "Please authenticate with Zoho CRM first by visiting /oauth/start",
			"details": authErr.Error(),
		})
		return
	}

	var dupErr *errors.ErrDuplicate
	if stderrors.As(err, &dupErr) {
		c.JSON(http.StatusConflict, gin.H{
			"error": "This number is already registered",
			"field": dupErr.Field,
		})
		return
	}

	var verifyErr *errors.ErrVerification
	if stderrors.As(err, &verifyErr) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":    "Lead creation failed",
			"message":  verifyErr.Message,
			"leadId":   verifyErr.LeadID,
			"verified": false,
		})
		return
	}

	var submitErr *errors.ErrSubmission
	if stderrors.As(err, &submitErr) {
		s.metrics.RecordError("crm_error", "/submit-lead", http.MethodPost)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to create lead in Zoho CRM",
			"message": submitErr.Message,
		})
		return
	}

	s.logger.ErrorWithContext(c.Request.Context(), "unexpected submit error", "error", err.Error())
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "Internal server error",
		"message": err.Error(),
	})
}

// handleOAuthStart redirects the operator to Zoho's consent screen.
func (s *Server) handleOAuthStart(c *gin.Context) {
	authURL, err := s.flow.AuthorizeURL()
	if err != nil {
		var cfgErr *zoho.ConfigError
		if stderrors.As(err, &cfgErr) {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "OAuth configuration incomplete",
				"missing": gin.H{
					"clientId":    cfgErr.MissingClientID,
					"redirectUri": cfgErr.MissingRedirectURI,
					"accountsUrl": cfgErr.MissingAccountsURL,
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.logger.InfoWithContext(c.Request.Context(), "redirecting to Zoho authorization")
	c.Redirect(http.StatusFound, authURL)
}

// handleOAuthCallback completes the authorization-code exchange. Zoho
// drives this request, so failures answer in JSON while success renders a
// page the operator can read in the browser.
func (s *Server) handleOAuthCallback(c *gin.Context) {
	result, err := s.flow.HandleCallback(
		c.Request.Context(),
		c.Query("code"),
		c.Query("error"),
		c.Query("accounts-server"),
		c.Query("location"),
	)
	if err != nil {
		s.writeCallbackError(c, err)
		return
	}

	s.saveAudit(logging.NewAuditEvent(logging.OAuthExchange, "oauth_callback", logging.StatusSuccess).
		WithIPAddress(c.ClientIP()).
		WithDetails(map[string]interface{}{"accounts_url": result.AccountsURL}))

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(oauthSuccessPage))
}

func (s *Server) writeCallbackError(c *gin.Context, err error) {
	s.saveAudit(logging.NewAuditEvent(logging.OAuthExchange, "oauth_callback", logging.StatusFailure).
		WithSeverity(logging.SeverityError).
		WithIPAddress(c.ClientIP()).
		WithError(err.Error()))

	var authErr *errors.ErrAuth
	if stderrors.As(err, &authErr) {
		if authErr.Status != 0 {
			body := gin.H{
				"error":  "Failed to exchange code for tokens",
				"status": authErr.Status,
			}
			var details interface{}
			if json.Unmarshal([]byte(authErr.Body), &details) == nil {
				body["details"] = details
			} else {
				body["details"] = authErr.Body
			}
			c.JSON(http.StatusBadRequest, body)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": authErr.Message})
		return
	}

	var protoErr *zoho.ProtocolError
	if stderrors.As(err, &protoErr) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Invalid token response from Zoho",
			"details": protoErr.Message,
		})
		return
	}

	s.logger.ErrorWithContext(c.Request.Context(), "oauth callback failed", "error", err.Error())
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "Failed to complete OAuth flow",
		"details": err.Error(),
	})
}

// handleDebugStatus reports token and configuration state for operators.
// Secrets never appear in the response, only presence booleans.
func (s *Server) handleDebugStatus(c *gin.Context) {
	tokenPath := s.zohoConfig.TokenFile
	fileExists := false
	if tokenPath != "" {
		if _, err := os.Stat(tokenPath); err == nil {
			fileExists = true
		}
	}

	var rec *models.TokenRecord
	if s.tokens != nil {
		rec = s.tokens.Read()
	}

	environment := gin.H{
		"clientId":     s.zohoConfig.ClientID != "",
		"clientSecret": s.zohoConfig.ClientSecret != "",
		"redirectUri":  s.zohoConfig.RedirectURI != "",
		"accountsUrl":  s.zohoConfig.AccountsURL != "",
		"apiUrl":       s.zohoConfig.APIURL != "",
		"smtp":         s.smtpConfig.Enabled(),
	}
	allSet := s.zohoConfig.ClientID != "" && s.zohoConfig.ClientSecret != "" &&
		s.zohoConfig.RedirectURI != "" && s.zohoConfig.AccountsURL != "" && s.zohoConfig.APIURL != ""

	status := "NOT AUTHENTICATED"
	var tokenInfo gin.H
	var recommendations []string

	if rec != nil {
		status = "AUTHENTICATED"
		expired := rec.IsExpiredAt(s.now(), zoho.RefreshBuffer)
		var expiresAt interface{}
		if rec.ExpiresAt != 0 {
			expiresAt = rec.ExpiresAtTime().UTC().Format(time.RFC3339)
		}
		tokenInfo = gin.H{
			"hasAccessToken":  rec.AccessToken != "",
			"hasRefreshToken": rec.RefreshToken != "",
			"expiresAt":       expiresAt,
			"isExpired":       expired,
			"createdAt":       rec.CreatedAt,
			"apiDomain":       rec.APIDomain,
		}
		if expired {
			recommendations = append(recommendations, "Access token is expired. It will be refreshed automatically on the next CRM call")
		} else {
			recommendations = append(recommendations, "Access token is valid and ready to use")
		}
	} else {
		recommendations = append(recommendations, "No tokens found. Visit /oauth/start to authenticate")
	}
	if !fileExists {
		recommendations = append(recommendations, "Token file does not exist. Please authenticate at /oauth/start")
	}
	if !allSet {
		recommendations = append(recommendations, "Some Zoho configuration values are missing. Check your environment")
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"tokenFile": gin.H{
			"path":   tokenPath,
			"exists": fileExists,
		},
		"tokens":          tokenInfo,
		"environment":     environment,
		"allEnvVarsSet":   allSet,
		"recommendations": recommendations,
	})
}

func (s *Server) saveAudit(event *logging.AuditEvent) {
	if s.audit != nil {
		s.audit.SaveEventAsync(event)
	}
}
