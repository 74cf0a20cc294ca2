package validate

import (
	"sort"
	"strings"

	"emailqa/internal/email"
)

// CompareMetadata checks each expected metadata field against the value
// extracted from the email. Empty expectations are not enforced. The
// preheader compares by prefix in either direction because email clients
// and templates truncate it at different lengths.
func CompareMetadata(meta email.Metadata, expected map[string]string) []MetadataIssue {
	issues := []MetadataIssue{}

	fields := make([]string, 0, len(expected))
	for field := range expected {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		want := strings.TrimSpace(expected[field])
		if want == "" {
			continue
		}

		got, known := meta.Field(field)
		if !known {
			issues = append(issues, MetadataIssue{
				Field:    field,
				Expected: want,
				Message:  "unrecognized metadata field in requirements",
			})
			continue
		}
		if got == email.NotFound {
			issues = append(issues, MetadataIssue{
				Field:    field,
				Expected: want,
				Actual:   got,
				Message:  "field not present in email",
			})
			continue
		}

		got = strings.TrimSpace(got)
		if !fieldMatches(field, want, got) {
			issues = append(issues, MetadataIssue{
				Field:    field,
				Expected: want,
				Actual:   got,
				Message:  "value does not match expectation",
			})
		}
	}
	return issues
}

func fieldMatches(field, want, got string) bool {
	if field == "preheader" {
		return strings.HasPrefix(got, want) || strings.HasPrefix(want, got)
	}
	return got == want
}

// CompareCampaignCode checks the footer campaign code against the
// requirements document. Returns nil when they agree or no code is expected.
func CompareCampaignCode(meta email.Metadata, expectedCode string) *MetadataIssue {
	expectedCode = strings.TrimSpace(expectedCode)
	if expectedCode == "" {
		return nil
	}
	if meta.FooterCampaignCode == email.NotFound {
		return &MetadataIssue{
			Field:    "footer_campaign_code",
			Expected: expectedCode,
			Actual:   meta.FooterCampaignCode,
			Message:  "campaign code not present in email footer",
		}
	}
	if !strings.EqualFold(meta.FooterCampaignCode, expectedCode) {
		return &MetadataIssue{
			Field:    "footer_campaign_code",
			Expected: expectedCode,
			Actual:   meta.FooterCampaignCode,
			Message:  "campaign code does not match requirements",
		}
	}
	return nil
}
