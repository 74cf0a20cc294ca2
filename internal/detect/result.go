// Package detect implements the product-table detection strategies and the
// arbitrator that reconciles their verdicts.
package detect

import "encoding/json"

// Tristate is a detection verdict that distinguishes "could not determine"
// from a confident negative.
type Tristate int

const (
	// Unknown means the page could not be evaluated; manual check needed
	Unknown Tristate = iota
	// Found means a product table class was located
	Found
	// NotFound means the page was evaluated and no product table exists
	NotFound
)

// String returns the wire representation used in reports
func (t Tristate) String() string {
	switch t {
	case Found:
		return "true"
	case NotFound:
		return "false"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes Found/NotFound as booleans and Unknown as null, the
// shape the reporting layer expects.
func (t Tristate) MarshalJSON() ([]byte, error) {
	switch t {
	case Found:
		return json.Marshal(true)
	case NotFound:
		return json.Marshal(false)
	default:
		return json.Marshal(nil)
	}
}

// UnmarshalJSON decodes the boolean-or-null wire form
func (t *Tristate) UnmarshalJSON(data []byte) error {
	var b *bool
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	switch {
	case b == nil:
		*t = Unknown
	case *b:
		*t = Found
	default:
		*t = NotFound
	}
	return nil
}

// Method identifies the strategy that produced a DetectionResult
type Method string

const (
	MethodDirectHTTP  Method = "direct_http"
	MethodBrowser     Method = "browser"
	MethodCloudAPI    Method = "cloud_api"
	MethodCloudHTML   Method = "cloud_html_fallback"
	MethodHeuristic   Method = "heuristic"
	MethodSimulated   Method = "simulated"
	MethodTimeout     Method = "timeout"
	MethodUnavailable Method = "unavailable"
	MethodError       Method = "error"
)

// Result is the outcome of one classifier run against one URL
type Result struct {
	Found        Tristate `json:"found"`
	ClassName    string   `json:"class_name,omitempty"`
	Method       Method   `json:"method"`
	BotBlocked   bool     `json:"bot_blocked,omitempty"`
	IsTestDomain bool     `json:"is_test_domain,omitempty"`
	// Confidence is only populated by the probabilistic heuristic classifier
	Confidence int    `json:"confidence,omitempty"`
	Error      string `json:"error,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Conclusive reports whether the result can terminate arbitration:
// a clean positive or negative verdict with no error. Bot-blocked results
// are terminal too but are handled separately so the flag is preserved.
func (r Result) Conclusive() bool {
	return r.Error == "" && !r.BotBlocked && r.Found != Unknown
}

// unknownResult builds the standard "needs manual check" result.
// Invariant: an Unknown verdict never carries a class name.
func unknownResult(method Method, message string) Result {
	return Result{
		Found:   Unknown,
		Method:  method,
		Message: message,
	}
}

// errorResult builds a negative result annotated with a failure diagnostic
func errorResult(method Method, err error) Result {
	return Result{
		Found:  NotFound,
		Method: method,
		Error:  err.Error(),
	}
}
