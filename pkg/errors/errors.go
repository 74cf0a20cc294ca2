package errors

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"
)

// Kind classifies a detection or validation failure
type Kind string

const (
	// KindNetworkTimeout represents a request that exceeded its deadline
	KindNetworkTimeout Kind = "network_timeout"
	// KindConnection represents a refused or dropped connection
	KindConnection Kind = "connection_error"
	// KindTLS represents a TLS handshake or certificate failure
	KindTLS Kind = "tls_error"
	// KindHTTPStatus represents a non-success HTTP status
	KindHTTPStatus Kind = "http_error_status"
	// KindBotProtection represents detected anti-automation countermeasures
	KindBotProtection Kind = "bot_protection_detected"
	// KindClassifierUnavailable represents a missing browser runtime or cloud API key
	KindClassifierUnavailable Kind = "classifier_unavailable"
	// KindMalformedResponse represents an upstream body that could not be parsed
	KindMalformedResponse Kind = "malformed_upstream_response"
	// KindClassifierTimeout represents a classifier cut short by its time budget
	KindClassifierTimeout Kind = "classifier_timeout"
	// KindInconclusive represents a check that could not reach a verdict
	KindInconclusive Kind = "unknown_inconclusive"
)

// QAError represents a classified error raised by a detector or validator
type QAError struct {
	Kind     Kind
	Detector string
	Message  string
	Err      error
	Time     time.Time
}

// Error implements the error interface
func (e *QAError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Kind, e.Detector, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Detector, e.Message)
}

// Unwrap returns the underlying error
func (e *QAError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if a retry could plausibly succeed
func (e *QAError) IsRetryable() bool {
	switch e.Kind {
	case KindNetworkTimeout, KindConnection:
		return true
	default:
		return false
	}
}

// New creates a new QAError
func New(kind Kind, detector, message string, err error) *QAError {
	return &QAError{
		Kind:     kind,
		Detector: detector,
		Message:  message,
		Err:      err,
		Time:     time.Now(),
	}
}

// NewTimeout creates a network timeout error
func NewTimeout(detector, message string, err error) *QAError {
	return New(KindNetworkTimeout, detector, message, err)
}

// NewConnection creates a connection error
func NewConnection(detector, message string, err error) *QAError {
	return New(KindConnection, detector, message, err)
}

// NewTLS creates a TLS error
func NewTLS(detector, message string, err error) *QAError {
	return New(KindTLS, detector, message, err)
}

// NewHTTPStatus creates an error for a non-success status code
func NewHTTPStatus(detector string, status int) *QAError {
	return New(KindHTTPStatus, detector, fmt.Sprintf("unexpected status code: %d", status), nil)
}

// NewBotProtection creates a bot protection error
func NewBotProtection(detector, message string) *QAError {
	return New(KindBotProtection, detector, message, nil)
}

// NewUnavailable creates a classifier unavailable error
func NewUnavailable(detector, message string) *QAError {
	return New(KindClassifierUnavailable, detector, message, nil)
}

// NewMalformed creates a malformed upstream response error
func NewMalformed(detector, message string, err error) *QAError {
	return New(KindMalformedResponse, detector, message, err)
}

// NewClassifierTimeout creates a classifier timeout error
func NewClassifierTimeout(detector string, budget time.Duration) *QAError {
	return New(KindClassifierTimeout, detector, fmt.Sprintf("classifier timed out after %v", budget), nil)
}

// NewInconclusive creates an inconclusive error
func NewInconclusive(detector, message string) *QAError {
	return New(KindInconclusive, detector, message, nil)
}

// Classify maps a raw transport error onto one of the taxonomy kinds.
// Every request failure passes through here exactly once, so no error
// reaches a report without a kind attached.
func Classify(detector string, err error) *QAError {
	var qaErr *QAError
	if errors.As(err, &qaErr) {
		return qaErr
	}

	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return NewTLS(detector, "certificate verification failed", err)
	}
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return NewTLS(detector, "TLS handshake failed", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeout(detector, "request timed out", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeout(detector, "request deadline exceeded", err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return NewTimeout(detector, "request timed out", err)
		}
		return NewConnection(detector, "failed to connect", err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return NewConnection(detector, "failed to connect", err)
	}

	return NewConnection(detector, "request failed", err)
}

// KindOf returns the kind of a classified error, or KindInconclusive when
// the error carries no classification.
func KindOf(err error) Kind {
	var qaErr *QAError
	if errors.As(err, &qaErr) {
		return qaErr.Kind
	}
	return KindInconclusive
}
