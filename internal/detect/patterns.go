package detect

import (
	"regexp"
	"strings"
)

// Target widget classes. The destination pages expose no structured API, so
// the only reliable signal is the class naming convention of the listing
// widget: classes starting with "product-table" or ending with
// "productListContainer".
const (
	productTablePrefix   = "product-table"
	productListSuffix    = "productListContainer"
	noProductsMarkerName = "noPartsPhrase"
)

// classAttrPattern captures the full class attribute value of any element
var classAttrPattern = regexp.MustCompile(`class=["']([^"']+)["']`)

// Primary patterns, checked in order; first match wins
var primaryClassPatterns = []*regexp.Regexp{
	regexp.MustCompile(`class=["']([^"']*product-table[^"']*)["']`),
	regexp.MustCompile(`class=["']([^"']*productListContainer[^"']*)["']`),
}

// Secondary, looser e-commerce patterns for id attributes and known synonyms
var secondaryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`id=["']([^"']*product-(?:table|list|grid)[^"']*)["']`),
	regexp.MustCompile(`class=["']([^"']*(?:productGrid|product-grid|product-listing|itemsContainer)[^"']*)["']`),
}

// Anti-automation phrases. Presence of any of these in a fetched body means
// the page served a challenge instead of real content.
var botProtectionPhrases = []string{
	"captcha",
	"recaptcha",
	"h-captcha",
	"cf-chl-widget",
	"challenges.cloudflare.com",
	"checking your browser",
	"verify you are human",
	"access denied",
	"rate limit exceeded",
	"too many requests",
	"data-sitekey",
}

// Root container ids used by single-page-application frameworks. When one
// of these is present the DOM may still be filling in after initial load.
var spaRootMarkers = []string{
	`id="root"`,
	`id="app"`,
	"data-reactroot",
	"__next",
}

// FirstProductClass scans raw HTML for the target widget classes. It returns
// the matched class attribute value, the method-agnostic pattern label, and
// whether anything matched. The exact product-table/productListContainer
// patterns out-rank the looser secondary list.
func FirstProductClass(html string) (string, string, bool) {
	for _, re := range primaryClassPatterns {
		if m := re.FindStringSubmatch(html); m != nil {
			return matchingClassToken(m[1]), "primary", true
		}
	}
	for _, re := range secondaryPatterns {
		if m := re.FindStringSubmatch(html); m != nil {
			return strings.TrimSpace(m[1]), "secondary", true
		}
	}
	return "", "", false
}

// matchingClassToken narrows a full class attribute value down to the token
// that actually matched the widget convention.
func matchingClassToken(classAttr string) string {
	for _, token := range strings.Fields(classAttr) {
		if strings.HasPrefix(token, productTablePrefix) || strings.HasSuffix(token, productListSuffix) {
			return token
		}
	}
	return strings.TrimSpace(classAttr)
}

// HasNoProductsMarker reports whether the page explicitly declares an empty
// listing. This out-ranks any positive pattern match.
func HasNoProductsMarker(html string) bool {
	for _, m := range classAttrPattern.FindAllStringSubmatch(html, -1) {
		for _, token := range strings.Fields(m[1]) {
			if token == noProductsMarkerName {
				return true
			}
		}
	}
	return false
}

// HasBotProtectionMarkers reports whether the body contains explicit
// anti-automation countermeasures.
func HasBotProtectionMarkers(html string) bool {
	lower := strings.ToLower(html)
	for _, phrase := range botProtectionPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// HasSPARoot reports whether the markup carries a single-page-application
// root container, meaning content may render after initial load.
func HasSPARoot(html string) bool {
	for _, marker := range spaRootMarkers {
		if strings.Contains(html, marker) {
			return true
		}
	}
	return false
}

// ClassTokenMatches reports whether a single class token matches the widget
// convention. Used by the live-DOM classifiers when iterating class lists.
func ClassTokenMatches(token string) bool {
	return strings.HasPrefix(token, productTablePrefix) || strings.HasSuffix(token, productListSuffix)
}
