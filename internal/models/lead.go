package models

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/leadgate/leadgate/internal/errors"
)

var (
	nameRe  = regexp.MustCompile(`^[A-Za-z\s]+$`)
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^[6-9]\d{9}$`)
)

// LeadSubmission represents an admission enquiry submitted from the website.
type LeadSubmission struct {
	ParentName       string `json:"parentName"`
	StudentName      string `json:"studentName"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	ClassApplyingFor string `json:"classApplyingFor"`
	Enquiry          string `json:"enquiry"`
	UTMSource        string `json:"utm_source"`
	UTMMedium        string `json:"utm_medium"`
	UTMCampaign      string `json:"utm_campaign"`
	UTMTerm          string `json:"utm_term"`
	UTMContent       string `json:"utm_content"`
}

// leadSubmissionWire accepts both key formats the website forms send: the
// landing page posts parentName/email/phone, the main site contact form posts
// contact-parent-name/contact-email and so on.
type leadSubmissionWire struct {
	ParentName       string `json:"parentName"`
	StudentName      string `json:"studentName"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	ClassApplyingFor string `json:"classApplyingFor"`
	Enquiry          string `json:"enquiry"`

	ContactParentName  string `json:"contact-parent-name"`
	ContactStudentName string `json:"contact-student-name"`
	ContactEmail       string `json:"contact-email"`
	ContactPhone       string `json:"contact-phone"`
	ContactClass       string `json:"contact-class"`
	ContactEnquiry     string `json:"contact-enquiry"`

	UTMSource   string `json:"utm_source"`
	UTMMedium   string `json:"utm_medium"`
	UTMCampaign string `json:"utm_campaign"`
	UTMTerm     string `json:"utm_term"`
	UTMContent  string `json:"utm_content"`
}

// UnmarshalJSON decodes a submission, falling back to the contact-* keys when
// the primary keys are absent.
func (l *LeadSubmission) UnmarshalJSON(data []byte) error {
	var w leadSubmissionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	l.ParentName = firstNonEmpty(w.ParentName, w.ContactParentName)
	l.StudentName = firstNonEmpty(w.StudentName, w.ContactStudentName)
	l.Email = firstNonEmpty(w.Email, w.ContactEmail)
	l.Phone = firstNonEmpty(w.Phone, w.ContactPhone)
	l.ClassApplyingFor = firstNonEmpty(w.ClassApplyingFor, w.ContactClass)
	l.Enquiry = firstNonEmpty(w.Enquiry, w.ContactEnquiry)
	l.UTMSource = w.UTMSource
	l.UTMMedium = w.UTMMedium
	l.UTMCampaign = w.UTMCampaign
	l.UTMTerm = w.UTMTerm
	l.UTMContent = w.UTMContent
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// HasRequired reports whether every mandatory field is present. Missing
// required fields are rejected before field-level validation runs.
func (l *LeadSubmission) HasRequired() bool {
	return l.ParentName != "" && l.Email != "" && l.Phone != "" && l.ClassApplyingFor != ""
}

// Validate checks every field and collects all failures, so a reply can show
// the submitter everything wrong at once. Returns nil when the submission is
// valid. The student name is optional but validated when present.
func (l *LeadSubmission) Validate() error {
	fields := make(map[string]string)

	if msg := validateName(l.ParentName); msg != "" {
		fields["parentName"] = msg
	}
	if l.StudentName != "" {
		if msg := validateName(l.StudentName); msg != "" {
			fields["studentName"] = msg
		}
	}
	if msg := validateEmail(l.Email); msg != "" {
		fields["email"] = msg
	}
	if msg := validatePhone(l.Phone); msg != "" {
		fields["phone"] = msg
	}

	if len(fields) > 0 {
		return &errors.ErrValidation{Message: "Please check your information", Fields: fields}
	}
	return nil
}

func validateName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Name is required"
	}
	if !nameRe.MatchString(name) {
		return "Only letters and spaces allowed"
	}
	if len(strings.TrimSpace(name)) < 2 {
		return "Name too short (min 2 letters)"
	}
	return ""
}

func validateEmail(email string) string {
	if strings.TrimSpace(email) == "" {
		return "Email is required"
	}
	if !emailRe.MatchString(email) {
		return "Invalid email format"
	}
	return ""
}

func validatePhone(phone string) string {
	if strings.TrimSpace(phone) == "" {
		return "Phone number is required"
	}
	if !phoneRe.MatchString(phone) {
		return "Enter valid 10-digit mobile number"
	}
	return ""
}

// Description assembles the CRM lead description from the submission. The
// enquiry message and campaign tracking sections are only emitted when they
// carry content.
func (l *LeadSubmission) Description() string {
	var b strings.Builder

	b.WriteString("Student Name: " + valueOr(l.StudentName, "Not provided") + "\n")
	b.WriteString("Class Applying For: " + valueOr(l.ClassApplyingFor, "Not specified") + "\n")

	if l.Enquiry != "" {
		b.WriteString("\n--- Enquiry Message ---\n" + l.Enquiry)
	}

	// Any UTM field opens the tracking block, term/content included.
	if l.UTMSource != "" || l.UTMMedium != "" || l.UTMCampaign != "" || l.UTMTerm != "" || l.UTMContent != "" {
		b.WriteString("\n\n--- Campaign Tracking ---")
		if l.UTMSource != "" {
			b.WriteString("\nSource: " + l.UTMSource)
		}
		if l.UTMMedium != "" {
			b.WriteString("\nMedium: " + l.UTMMedium)
		}
		if l.UTMCampaign != "" {
			b.WriteString("\nCampaign: " + l.UTMCampaign)
		}
		if l.UTMTerm != "" {
			b.WriteString("\nTerm: " + l.UTMTerm)
		}
		if l.UTMContent != "" {
			b.WriteString("\nContent: " + l.UTMContent)
		}
	}

	return b.String()
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
