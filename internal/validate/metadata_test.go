package validate

import (
	"testing"

	"emailqa/internal/email"

	"github.com/stretchr/testify/assert"
)

func TestCompareMetadataMatch(t *testing.T) {
	meta := email.Metadata{
		Sender:  "promo@example.com",
		Subject: "Spring Promotion",
	}
	issues := CompareMetadata(meta, map[string]string{
		"sender":  "promo@example.com",
		"subject": "Spring Promotion",
	})
	assert.Empty(t, issues)
}

func TestCompareMetadataMismatch(t *testing.T) {
	meta := email.Metadata{Subject: "Wrong subject"}
	issues := CompareMetadata(meta, map[string]string{"subject": "Spring Promotion"})

	assert.Len(t, issues, 1)
	assert.Equal(t, "subject", issues[0].Field)
	assert.Equal(t, "Spring Promotion", issues[0].Expected)
	assert.Equal(t, "Wrong subject", issues[0].Actual)
}

func TestCompareMetadataNotFound(t *testing.T) {
	meta := email.Metadata{Sender: email.NotFound}
	issues := CompareMetadata(meta, map[string]string{"sender": "promo@example.com"})

	assert.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "not present")
}

func TestCompareMetadataEmptyExpectationSkipped(t *testing.T) {
	meta := email.Metadata{Sender: email.NotFound}
	issues := CompareMetadata(meta, map[string]string{"sender": "", "reply_to": "  "})
	assert.Empty(t, issues)
}

func TestCompareMetadataUnknownField(t *testing.T) {
	issues := CompareMetadata(email.Metadata{}, map[string]string{"banner_color": "blue"})
	assert.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "unrecognized")
}

func TestCompareMetadataPreheaderPrefix(t *testing.T) {
	// Clients truncate preheaders, so prefix agreement in either direction passes
	meta := email.Metadata{Preheader: "Save 20% this week"}
	assert.Empty(t, CompareMetadata(meta, map[string]string{"preheader": "Save 20%"}))
	assert.Empty(t, CompareMetadata(meta, map[string]string{"preheader": "Save 20% this week on everything"}))

	issues := CompareMetadata(meta, map[string]string{"preheader": "Different text"})
	assert.Len(t, issues, 1)
}

func TestCompareCampaignCode(t *testing.T) {
	meta := email.Metadata{FooterCampaignCode: "ABC2505"}

	assert.Nil(t, CompareCampaignCode(meta, "ABC2505"))
	assert.Nil(t, CompareCampaignCode(meta, "abc2505"))
	assert.Nil(t, CompareCampaignCode(meta, ""))

	issue := CompareCampaignCode(meta, "XYZ999")
	assert.NotNil(t, issue)
	assert.Equal(t, "footer_campaign_code", issue.Field)

	issue = CompareCampaignCode(email.Metadata{FooterCampaignCode: email.NotFound}, "ABC2505")
	assert.NotNil(t, issue)
	assert.Contains(t, issue.Message, "not present")
}
