// Package validate turns parsed emails and campaign requirements into
// per-link and per-field validation records.
package validate

import (
	"time"

	"emailqa/internal/detect"
	"emailqa/internal/email"
)

// Per-link roll-up verdicts
const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
)

// ProductTableCheck carries the arbitrated detection verdict for one link.
// Checked is false when the check was skipped, either because it was not
// requested or because the link never answered with a success status.
type ProductTableCheck struct {
	detect.Result
	Checked bool `json:"checked"`
}

// LinkValidation is the complete outcome for one extracted link. The
// product-table section is informational only; Status derives from the HTTP
// status and the UTM comparison alone.
type LinkValidation struct {
	Href          string             `json:"href"`
	SourceContext string             `json:"source"`
	HTTPStatus    int                `json:"httpStatus,omitempty"`
	StatusError   string             `json:"statusError,omitempty"`
	UTMIssues     []string           `json:"utmIssues"`
	ProductTable  *ProductTableCheck `json:"productTable,omitempty"`
	RedirectedTo  string             `json:"redirectedTo,omitempty"`
	Status        string             `json:"status"`
}

// MetadataIssue is one discrepancy between an expected metadata field and
// the value extracted from the email.
type MetadataIssue struct {
	Field    string `json:"field"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Message  string `json:"message"`
}

// Report is the assembled outcome of one validation session. A session that
// hits an error still returns whatever it completed, so Links or
// MetadataIssues may be partial.
type Report struct {
	Template       string           `json:"template"`
	Mode           string           `json:"mode"`
	Metadata       email.Metadata   `json:"metadata"`
	MetadataIssues []MetadataIssue  `json:"metadataIssues"`
	Links          []LinkValidation `json:"links"`
	GeneratedAt    time.Time        `json:"generatedAt"`
	Duration       time.Duration    `json:"duration"`
}

// PassedLinks counts links whose roll-up verdict is PASS
func (r *Report) PassedLinks() int {
	n := 0
	for _, l := range r.Links {
		if l.Status == StatusPass {
			n++
		}
	}
	return n
}

// FailedLinks counts links whose roll-up verdict is FAIL
func (r *Report) FailedLinks() int {
	return len(r.Links) - r.PassedLinks()
}
