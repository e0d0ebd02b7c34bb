package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadgate/leadgate/internal/errors"
)

func validSubmission() LeadSubmission {
	return LeadSubmission{
		ParentName:       "Ravi Kumar",
		StudentName:      "Anya Kumar",
		Email:            "ravi@example.com",
		Phone:            "9876543210",
		ClassApplyingFor: "Grade 5",
	}
}

func TestLeadSubmission_HasRequired(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*LeadSubmission)
		want   bool
	}{
		{"all present", func(l *LeadSubmission) {}, true},
		{"missing parent name", func(l *LeadSubmission) { l.ParentName = "" }, false},
		{"missing email", func(l *LeadSubmission) { l.Email = "" }, false},
		{"missing phone", func(l *LeadSubmission) { l.Phone = "" }, false},
		{"missing class", func(l *LeadSubmission) { l.ClassApplyingFor = "" }, false},
		{"student name optional", func(l *LeadSubmission) { l.StudentName = "" }, true},
		{"enquiry optional", func(l *LeadSubmission) { l.Enquiry = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lead := validSubmission()
			tt.mutate(&lead)
			assert.Equal(t, tt.want, lead.HasRequired())
		})
	}
}

func TestLeadSubmission_Validate_Names(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantMsg string
	}{
		{"two letters pass", "Jo", ""},
		{"one letter fails", "J", "Name too short (min 2 letters)"},
		{"digits fail", "Jo3", "Only letters and spaces allowed"},
		{"padded short name passes", "  Jo  ", ""},
		{"spaces only fails", "   ", "Name is required"},
		{"punctuation fails", "O'Brien", "Only letters and spaces allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lead := validSubmission()
			lead.ParentName = tt.value

			err := lead.Validate()
			if tt.wantMsg == "" {
				require.NoError(t, err)
				return
			}
			var verr *errors.ErrValidation
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantMsg, verr.Fields["parentName"])
		})
	}
}

func TestLeadSubmission_Validate_Phone(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantMsg string
	}{
		{"valid mobile", "9876543210", ""},
		{"starts with 6", "6876543210", ""},
		{"bad leading digit", "5876543210", "Enter valid 10-digit mobile number"},
		{"too long", "98765432100", "Enter valid 10-digit mobile number"},
		{"too short", "987654321", "Enter valid 10-digit mobile number"},
		{"empty", "", "Phone number is required"},
		{"with spaces", "98765 43210", "Enter valid 10-digit mobile number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lead := validSubmission()
			lead.Phone = tt.value

			err := lead.Validate()
			if tt.wantMsg == "" {
				require.NoError(t, err)
				return
			}
			var verr *errors.ErrValidation
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantMsg, verr.Fields["phone"])
		})
	}
}

func TestLeadSubmission_Validate_Email(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantMsg string
	}{
		{"valid", "a@b.co", ""},
		{"empty", "", "Email is required"},
		{"no at sign", "ab.co", "Invalid email format"},
		{"no domain dot", "a@bco", "Invalid email format"},
		{"spaces", "a b@c.co", "Invalid email format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lead := validSubmission()
			lead.Email = tt.value

			err := lead.Validate()
			if tt.wantMsg == "" {
				require.NoError(t, err)
				return
			}
			var verr *errors.ErrValidation
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantMsg, verr.Fields["email"])
		})
	}
}

func TestLeadSubmission_Validate_CollectsAllErrors(t *testing.T) {
	lead := LeadSubmission{
		ParentName:       "J",
		StudentName:      "A1",
		Email:            "not-an-email",
		Phone:            "123",
		ClassApplyingFor: "Grade 1",
	}

	err := lead.Validate()
	var verr *errors.ErrValidation
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 4)
	assert.Equal(t, "Name too short (min 2 letters)", verr.Fields["parentName"])
	assert.Equal(t, "Only letters and spaces allowed", verr.Fields["studentName"])
	assert.Equal(t, "Invalid email format", verr.Fields["email"])
	assert.Equal(t, "Enter valid 10-digit mobile number", verr.Fields["phone"])
}

func TestLeadSubmission_Validate_StudentNameOptional(t *testing.T) {
	lead := validSubmission()
	lead.StudentName = ""
	require.NoError(t, lead.Validate())
}

func TestLeadSubmission_UnmarshalJSON(t *testing.T) {
	t.Run("landing page keys", func(t *testing.T) {
		body := `{"parentName":"Ravi Kumar","studentName":"Anya","email":"r@e.com","phone":"9876543210","classApplyingFor":"Grade 5","enquiry":"hello","utm_source":"google"}`
		var lead LeadSubmission
		require.NoError(t, json.Unmarshal([]byte(body), &lead))
		assert.Equal(t, "Ravi Kumar", lead.ParentName)
		assert.Equal(t, "Grade 5", lead.ClassApplyingFor)
		assert.Equal(t, "hello", lead.Enquiry)
		assert.Equal(t, "google", lead.UTMSource)
	})

	t.Run("contact form keys", func(t *testing.T) {
		body := `{"contact-parent-name":"Ravi Kumar","contact-student-name":"Anya","contact-email":"r@e.com","contact-phone":"9876543210","contact-class":"Grade 5","contact-enquiry":"hello"}`
		var lead LeadSubmission
		require.NoError(t, json.Unmarshal([]byte(body), &lead))
		assert.Equal(t, "Ravi Kumar", lead.ParentName)
		assert.Equal(t, "Anya", lead.StudentName)
		assert.Equal(t, "r@e.com", lead.Email)
		assert.Equal(t, "9876543210", lead.Phone)
		assert.Equal(t, "Grade 5", lead.ClassApplyingFor)
		assert.Equal(t, "hello", lead.Enquiry)
	})

	t.Run("primary keys win", func(t *testing.T) {
		body := `{"parentName":"Primary","contact-parent-name":"Secondary"}`
		var lead LeadSubmission
		require.NoError(t, json.Unmarshal([]byte(body), &lead))
		assert.Equal(t, "Primary", lead.ParentName)
	})
}

func TestLeadSubmission_Description(t *testing.T) {
	t.Run("minimal", func(t *testing.T) {
		lead := LeadSubmission{ClassApplyingFor: "Grade 5"}
		want := "Student Name: Not provided\nClass Applying For: Grade 5\n"
		assert.Equal(t, want, lead.Description())
	})

	t.Run("missing class", func(t *testing.T) {
		lead := LeadSubmission{StudentName: "Anya"}
		want := "Student Name: Anya\nClass Applying For: Not specified\n"
		assert.Equal(t, want, lead.Description())
	})

	t.Run("with enquiry", func(t *testing.T) {
		lead := LeadSubmission{StudentName: "Anya", ClassApplyingFor: "Grade 5", Enquiry: "When does admission open?"}
		want := "Student Name: Anya\nClass Applying For: Grade 5\n\n--- Enquiry Message ---\nWhen does admission open?"
		assert.Equal(t, want, lead.Description())
	})

	t.Run("with campaign tracking", func(t *testing.T) {
		lead := LeadSubmission{
			StudentName:      "Anya",
			ClassApplyingFor: "Grade 5",
			UTMSource:        "google",
			UTMCampaign:      "spring",
			UTMTerm:          "school",
		}
		want := "Student Name: Anya\nClass Applying For: Grade 5\n" +
			"\n\n--- Campaign Tracking ---\nSource: google\nCampaign: spring\nTerm: school"
		assert.Equal(t, want, lead.Description())
	})

	t.Run("term alone opens tracking section", func(t *testing.T) {
		lead := LeadSubmission{ClassApplyingFor: "Grade 5", UTMTerm: "school"}
		want := "Student Name: Not provided\nClass Applying For: Grade 5\n" +
			"\n\n--- Campaign Tracking ---\nTerm: school"
		assert.Equal(t, want, lead.Description())
	})

	t.Run("content alone opens tracking section", func(t *testing.T) {
		lead := LeadSubmission{ClassApplyingFor: "Grade 5", UTMContent: "banner-a"}
		want := "Student Name: Not provided\nClass Applying For: Grade 5\n" +
			"\n\n--- Campaign Tracking ---\nContent: banner-a"
		assert.Equal(t, want, lead.Description())
	})

	t.Run("enquiry and tracking together", func(t *testing.T) {
		lead := LeadSubmission{
			ClassApplyingFor: "Grade 5",
			Enquiry:          "hello",
			UTMMedium:        "cpc",
		}
		want := "Student Name: Not provided\nClass Applying For: Grade 5\n" +
			"\n--- Enquiry Message ---\nhello" +
			"\n\n--- Campaign Tracking ---\nMedium: cpc"
		assert.Equal(t, want, lead.Description())
	})
}
