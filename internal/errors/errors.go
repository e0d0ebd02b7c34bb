package errors

import (
	"fmt"
	"sort"
	"strings"
)

// Config errors

type ErrConfigNotFound struct {
	Path string
}

func (e *ErrConfigNotFound) Error() string {
	return fmt.Sprintf("config file not found: %s", e.Path)
}

type ErrConfigParse struct {
	Err error
}

func (e *ErrConfigParse) Error() string {
	return fmt.Sprintf("failed to parse YAML: %v", e.Err)
}

func (e *ErrConfigParse) Unwrap() error {
	return e.Err
}

type ErrConfigValidation struct {
	Err error
}

func (e *ErrConfigValidation) Error() string {
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ErrConfigValidation) Unwrap() error {
	return e.Err
}

// Filesystem errors

type ErrFileRead struct {
	Path string
	Err  error
}

func (e *ErrFileRead) Error() string {
	return fmt.Sprintf("failed to read file %s: %v", e.Path, e.Err)
}

func (e *ErrFileRead) Unwrap() error {
	return e.Err
}

// Database errors

type ErrDatabaseOpen struct {
	Path string
	Err  error
}

func (e *ErrDatabaseOpen) Error() string {
	return fmt.Sprintf("failed to open database %s: %v", e.Path, e.Err)
}

func (e *ErrDatabaseOpen) Unwrap() error {
	return e.Err
}

// Server errors

type ErrServerStart struct {
	Addr string
	Err  error
}

func (e *ErrServerStart) Error() string {
	return fmt.Sprintf("failed to start server on %s: %v", e.Addr, e.Err)
}

func (e *ErrServerStart) Unwrap() error {
	return e.Err
}

type ErrServerShutdown struct {
	Err error
}

func (e *ErrServerShutdown) Error() string {
	return fmt.Sprintf("server shutdown failed: %v", e.Err)
}

func (e *ErrServerShutdown) Unwrap() error {
	return e.Err
}

// Validation errors

// ErrValidation carries per-field validation messages for a lead submission.
// Fields maps the submitted field name to a human-readable message; all
// failing fields are reported together, never just the first.
type ErrValidation struct {
	Message string
	Fields  map[string]string
}

func (e *ErrValidation) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, "; "))
}

// Auth errors

// ErrAuth indicates the token is missing, expired, or rejected by the OAuth
// provider. Hint carries the re-authentication instruction surfaced to
// operators when the refresh token itself has been revoked.
type ErrAuth struct {
	Message string
	Status  int
	Body    string
	Hint    string
}

func (e *ErrAuth) Error() string {
	msg := e.Message
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Hint != "" {
		msg = msg + ". " + e.Hint
	}
	return msg
}

// Business-rule errors

// ErrDuplicate indicates the CRM already holds a record matching the named field.
type ErrDuplicate struct {
	Field string
}

func (e *ErrDuplicate) Error() string {
	return fmt.Sprintf("duplicate record for field %s", e.Field)
}

// ErrSubmission indicates the CRM rejected the write or reported nominal
// success without a created-record identifier. Response retains the raw
// provider payload for operator diagnosis.
type ErrSubmission struct {
	Message  string
	Response string
}

func (e *ErrSubmission) Error() string {
	return e.Message
}

// ErrVerification indicates the CRM returned a record identifier but the
// record could not be fetched back. Treated as fatal, never auto-retried.
type ErrVerification struct {
	LeadID  string
	Message string
}

func (e *ErrVerification) Error() string {
	return fmt.Sprintf("lead %s unverified: %s", e.LeadID, e.Message)
}

// ErrEmail wraps an SMTP failure. Kind distinguishes auth, connection and
// timeout failures in logs; callers past lead creation always swallow it.
type ErrEmail struct {
	Kind string
	Err  error
}

func (e *ErrEmail) Error() string {
	return fmt.Sprintf("email send failed (%s): %v", e.Kind, e.Err)
}

func (e *ErrEmail) Unwrap() error {
	return e.Err
}
