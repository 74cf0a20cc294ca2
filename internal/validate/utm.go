package validate

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// webtrendsParam is legacy tracking that older campaigns still specify.
// Its absence from a link is not a discrepancy; a present value must match.
const webtrendsParam = "webtrends"

// CompareUTM reports discrepancies between the expected tracking parameters
// and the query parameters actually carried by the link. The utm_campaign
// value compares only the portion after the first underscore, since the
// prefix is a non-semantic identifier that varies between sends.
func CompareUTM(rawURL string, expected map[string]string) []string {
	issues := []string{}
	if len(expected) == 0 {
		return issues
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return append(issues, fmt.Sprintf("link URL could not be parsed: %v", err))
	}
	query := parsed.Query()

	// Deterministic issue ordering regardless of map iteration
	names := make([]string, 0, len(expected))
	for name := range expected {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		want := strings.TrimSpace(expected[name])
		if want == "" {
			continue
		}

		actual := query.Get(name)
		if actual == "" {
			if name == webtrendsParam {
				continue
			}
			issues = append(issues, fmt.Sprintf("%s missing (expected %q)", name, want))
			continue
		}

		if name == "utm_campaign" {
			if campaignSuffix(actual) != campaignSuffix(want) {
				issues = append(issues, fmt.Sprintf("%s mismatch: expected %q, got %q", name, want, actual))
			}
			continue
		}

		if actual != want {
			issues = append(issues, fmt.Sprintf("%s mismatch: expected %q, got %q", name, want, actual))
		}
	}
	return issues
}

// campaignSuffix strips the variable prefix before the first underscore
func campaignSuffix(value string) string {
	if i := strings.Index(value, "_"); i >= 0 {
		return value[i+1:]
	}
	return value
}
