package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareUTMCompliant(t *testing.T) {
	issues := CompareUTM(
		"https://shop.example.com/products?utm_source=email&utm_medium=newsletter",
		map[string]string{"utm_source": "email", "utm_medium": "newsletter"},
	)
	assert.Empty(t, issues)
}

func TestCompareUTMMismatch(t *testing.T) {
	issues := CompareUTM(
		"https://shop.example.com/products?utm_source=x",
		map[string]string{"utm_source": "y"},
	)
	assert.Len(t, issues, 1)
	assert.Contains(t, issues[0], "utm_source mismatch")
}

func TestCompareUTMMissing(t *testing.T) {
	issues := CompareUTM(
		"https://shop.example.com/products",
		map[string]string{"utm_source": "email"},
	)
	assert.Len(t, issues, 1)
	assert.Contains(t, issues[0], "utm_source missing")
}

func TestCompareUTMCampaignSuffix(t *testing.T) {
	// The prefix before the first underscore legitimately varies
	issues := CompareUTM(
		"https://shop.example.com/p?utm_campaign=other_ABC2505",
		map[string]string{"utm_campaign": "promo_ABC2505"},
	)
	assert.Empty(t, issues)

	issues = CompareUTM(
		"https://shop.example.com/p?utm_campaign=promo_XYZ999",
		map[string]string{"utm_campaign": "promo_ABC2505"},
	)
	assert.Len(t, issues, 1)
	assert.Contains(t, issues[0], "utm_campaign mismatch")
}

func TestCompareUTMCampaignNoUnderscore(t *testing.T) {
	// Without an underscore the whole value is the comparable part
	issues := CompareUTM(
		"https://shop.example.com/p?utm_campaign=ABC2505",
		map[string]string{"utm_campaign": "promo_ABC2505"},
	)
	assert.Empty(t, issues)
}

func TestCompareUTMWebtrendsOptional(t *testing.T) {
	// Absent webtrends is tolerated
	issues := CompareUTM(
		"https://shop.example.com/p?utm_source=email",
		map[string]string{"utm_source": "email", "webtrends": "wt-123"},
	)
	assert.Empty(t, issues)

	// A present value must still match
	issues = CompareUTM(
		"https://shop.example.com/p?utm_source=email&webtrends=wt-999",
		map[string]string{"utm_source": "email", "webtrends": "wt-123"},
	)
	assert.Len(t, issues, 1)
	assert.Contains(t, issues[0], "webtrends mismatch")
}

func TestCompareUTMEmptyExpectations(t *testing.T) {
	assert.Empty(t, CompareUTM("https://shop.example.com/p", nil))
	assert.Empty(t, CompareUTM("https://shop.example.com/p", map[string]string{"utm_source": ""}))
}

func TestCompareUTMDeterministicOrder(t *testing.T) {
	expected := map[string]string{"utm_source": "a", "utm_medium": "b", "utm_campaign": "c_d"}
	issues := CompareUTM("https://shop.example.com/p", expected)
	assert.Len(t, issues, 3)
	assert.Contains(t, issues[0], "utm_campaign")
	assert.Contains(t, issues[1], "utm_medium")
	assert.Contains(t, issues[2], "utm_source")
}
