// Package lead orchestrates the admission enquiry pipeline: validation,
// duplicate screening, CRM record creation, read-back verification, and
// the thank-you notification.
package lead

import (
	"context"
	"fmt"

	"github.com/leadgate/leadgate/internal/errors"
	"github.com/leadgate/leadgate/internal/logging"
	"github.com/leadgate/leadgate/internal/metrics"
	"github.com/leadgate/leadgate/internal/models"
	"github.com/leadgate/leadgate/internal/zoho"
)

// TokenSource supplies a CRM access token, refreshing it when needed.
type TokenSource interface {
	ValidAccessToken(ctx context.Context) (string, error)
}

// CRM is the subset of the Zoho client the pipeline depends on.
type CRM interface {
	HasLeadWithPhone(ctx context.Context, accessToken, phone string) (bool, error)
	CreateLead(ctx context.Context, accessToken string, lead *models.LeadSubmission) (*zoho.CreateResult, error)
	LeadExists(ctx context.Context, accessToken, leadID string) (bool, error)
}

// Mailer sends the post-submission thank-you email.
type Mailer interface {
	Enabled() bool
	SendThankYou(ctx context.Context, toEmail, parentName, studentName string) error
}

// Notifier delivers ops alerts. Implementations must not block callers
// for long; the service invokes it from a goroutine.
type Notifier interface {
	LeadCreated(leadID, parentName, phone, class string)
	LeadVerificationFailed(leadID, phone string)
	AuthenticationLost(detail string)
}

// Result is the outcome of a successful submission.
type Result struct {
	LeadID   string
	Verified bool
}

// Service runs the full submission pipeline. Every submission either ends
// with a verified CRM record or a typed error describing which stage failed.
type Service struct {
	tokens   TokenSource
	crm      CRM
	mailer   Mailer
	notifier Notifier
	audit    logging.AuditStore
	logger   *logging.Logger
	metrics  *metrics.Metrics
}

// NewService wires the pipeline. mailer, notifier, audit and metrics may be
// nil; the corresponding stages become no-ops.
func NewService(tokens TokenSource, crm CRM, mailer Mailer, notifier Notifier, audit logging.AuditStore, logger *logging.Logger, m *metrics.Metrics) *Service {
	return &Service{
		tokens:   tokens,
		crm:      crm,
		mailer:   mailer,
		notifier: notifier,
		audit:    audit,
		logger:   logger,
		metrics:  m,
	}
}

// Submit runs the pipeline for one enquiry. clientIP is recorded on audit
// events only.
//
// The duplicate check fails open: if the CRM search errors, the submission
// proceeds rather than turning a transient outage into lost enquiries.
// Read-back verification is the opposite: a record we cannot fetch back is
// treated as not created, and the caller sees a hard failure.
func (s *Service) Submit(ctx context.Context, sub *models.LeadSubmission, clientIP string) (*Result, error) {
	if sub == nil || !sub.HasRequired() {
		s.recordOutcome("invalid")
		return nil, &errors.ErrValidation{Message: "Missing required fields"}
	}

	if err := sub.Validate(); err != nil {
		s.recordOutcome("invalid")
		return nil, err
	}

	token, err := s.tokens.ValidAccessToken(ctx)
	if err != nil {
		s.logger.ErrorWithContext(ctx, "Cannot submit lead without a valid token", "error", err.Error())
		s.saveAudit(logging.NewAuditEvent(logging.AuthFailure, "lead_submission", logging.StatusFailure).
			WithSeverity(logging.SeverityError).
			WithIPAddress(clientIP).
			WithError(err.Error()))
		s.recordOutcome("auth_failure")
		if s.notifier != nil {
			go s.notifier.AuthenticationLost(err.Error())
		}
		return nil, err
	}

	dup, err := s.crm.HasLeadWithPhone(ctx, token, sub.Phone)
	if err != nil {
		// Fail open: a search outage must not block new enquiries.
		s.logger.WarnWithContext(ctx, "Duplicate check failed, proceeding with submission",
			"error", err.Error())
	} else if dup {
		s.logger.InfoWithContext(ctx, "Duplicate submission rejected", "phone", sub.Phone)
		s.saveAudit(logging.NewAuditEvent(logging.LeadDuplicate, "lead_submission", logging.StatusFailure).
			WithSeverity(logging.SeverityWarning).
			WithIPAddress(clientIP).
			WithDetails(map[string]interface{}{"phone": sub.Phone}))
		s.recordOutcome("duplicate")
		return nil, &errors.ErrDuplicate{Field: "phone"}
	}

	created, err := s.crm.CreateLead(ctx, token, sub)
	if err != nil {
		s.logger.ErrorWithContext(ctx, "Lead creation failed", "error", err.Error())
		s.saveAudit(logging.NewAuditEvent(logging.LeadCreate, "lead_submission", logging.StatusFailure).
			WithSeverity(logging.SeverityError).
			WithIPAddress(clientIP).
			WithError(err.Error()))
		s.recordOutcome("crm_failure")
		return nil, err
	}

	s.saveAudit(logging.NewAuditEvent(logging.LeadCreate, "lead_submission", logging.StatusSuccess).
		WithIPAddress(clientIP).
		WithResource(created.LeadID).
		WithDetails(map[string]interface{}{"phone": sub.Phone}))

	if err := s.verify(ctx, token, created.LeadID, clientIP); err != nil {
		s.recordOutcome("verification_failure")
		if s.notifier != nil {
			go s.notifier.LeadVerificationFailed(created.LeadID, sub.Phone)
		}
		return nil, err
	}

	s.sendThankYou(ctx, sub, created.LeadID, clientIP)

	if s.notifier != nil {
		go s.notifier.LeadCreated(created.LeadID, sub.ParentName, sub.Phone, sub.ClassApplyingFor)
	}

	s.logger.InfoWithContext(ctx, "Lead created and verified",
		"lead_id", created.LeadID)
	s.recordOutcome("success")
	return &Result{LeadID: created.LeadID, Verified: true}, nil
}

// verify fetches the freshly created record back. A record Zoho claims to
// have created but will not return is reported as a fatal failure so
// operators investigate instead of silently losing the enquiry.
func (s *Service) verify(ctx context.Context, token, leadID, clientIP string) error {
	exists, err := s.crm.LeadExists(ctx, token, leadID)
	if err == nil && exists {
		s.saveAudit(logging.NewAuditEvent(logging.LeadVerify, "lead_submission", logging.StatusSuccess).
			WithIPAddress(clientIP).
			WithResource(leadID))
		return nil
	}

	message := "lead not found after creation"
	if err != nil {
		message = fmt.Sprintf("verification request failed: %v", err)
	}
	s.logger.ErrorWithContext(ctx, "Lead verification failed",
		"lead_id", leadID, "reason", message)
	s.saveAudit(logging.NewAuditEvent(logging.LeadVerify, "lead_submission", logging.StatusFailure).
		WithSeverity(logging.SeverityCritical).
		WithIPAddress(clientIP).
		WithResource(leadID).
		WithError(message))
	return &errors.ErrVerification{LeadID: leadID, Message: message}
}

// sendThankYou delivers the confirmation email. Failures are logged and
// audited but never surfaced: by this point the lead exists in the CRM and
// the submission has succeeded.
func (s *Service) sendThankYou(ctx context.Context, sub *models.LeadSubmission, leadID, clientIP string) {
	if s.mailer == nil || !s.mailer.Enabled() {
		return
	}

	if err := s.mailer.SendThankYou(ctx, sub.Email, sub.ParentName, sub.StudentName); err != nil {
		s.logger.WarnWithContext(ctx, "Thank-you email failed",
			"lead_id", leadID, "error", err.Error())
		s.saveAudit(logging.NewAuditEvent(logging.EmailSend, "thank_you_email", logging.StatusFailure).
			WithSeverity(logging.SeverityWarning).
			WithIPAddress(clientIP).
			WithResource(leadID).
			WithError(err.Error()))
		return
	}

	s.saveAudit(logging.NewAuditEvent(logging.EmailSend, "thank_you_email", logging.StatusSuccess).
		WithIPAddress(clientIP).
		WithResource(leadID))
}

func (s *Service) saveAudit(event *logging.AuditEvent) {
	if s.audit != nil {
		s.audit.SaveEventAsync(event)
	}
}

func (s *Service) recordOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordLeadSubmission(outcome)
	}
}
