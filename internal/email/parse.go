// Package email parses campaign email HTML into the metadata fields and
// link inventory the validators consume.
package email

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"strings"

	"emailqa/logger"

	"github.com/PuerkitoBio/goquery"
)

// NotFound is the sentinel for a metadata field the email does not carry
const NotFound = "Not found"

// LinkRecord is one link extracted from the email. Created once during
// extraction and never mutated.
type LinkRecord struct {
	Href          string `json:"href"`
	SourceContext string `json:"source"`
	UTMContent    string `json:"utm_content,omitempty"`
}

// Metadata holds the header/footer fields extracted from the email
type Metadata struct {
	Sender             string `json:"sender"`
	SenderName         string `json:"sender_name"`
	ReplyTo            string `json:"reply_to"`
	Subject            string `json:"subject"`
	Preheader          string `json:"preheader"`
	FooterCampaignCode string `json:"footer_campaign_code"`
}

// Field returns a metadata field by its requirements-document key
func (m Metadata) Field(key string) (string, bool) {
	switch key {
	case "sender":
		return m.Sender, true
	case "sender_name":
		return m.SenderName, true
	case "reply_to":
		return m.ReplyTo, true
	case "subject":
		return m.Subject, true
	case "preheader":
		return m.Preheader, true
	case "footer_campaign_code":
		return m.FooterCampaignCode, true
	default:
		return "", false
	}
}

// Email is the parsed form the validation session works from
type Email struct {
	Metadata Metadata
	Links    []LinkRecord
}

// extractor tries one way of locating a metadata value. Extractors are
// tried in order; the first non-empty result wins.
type extractor func(doc *goquery.Document) string

func metaContent(name string) extractor {
	return func(doc *goquery.Document) string {
		val, _ := doc.Find(fmt.Sprintf(`meta[name=%q]`, name)).Attr("content")
		return strings.TrimSpace(val)
	}
}

func elementText(selector string) extractor {
	return func(doc *goquery.Document) string {
		return strings.TrimSpace(doc.Find(selector).First().Text())
	}
}

// Field precedence: email templates are inconsistent about dashed vs.
// underscored meta names and legacy custom elements.
var (
	senderExtractors = []extractor{
		metaContent("sender"),
		metaContent("sender_address"),
		metaContent("sender-address"),
		elementText("from"),
	}
	senderNameExtractors = []extractor{
		metaContent("sender-name"),
		metaContent("sender_name"),
		elementText("from-name"),
	}
	replyToExtractors = []extractor{
		metaContent("reply-to"),
		metaContent("reply_to"),
		metaContent("reply_address"),
		metaContent("reply-address"),
		elementText("reply-to"),
	}
	subjectExtractors = []extractor{
		metaContent("subject"),
		elementText("title"),
	}
)

// Preheader class names seen across template generations
var preheaderClasses = []string{"preheader", "preview-text", "preview", "hidden-preheader"}

// invisibleChars matches the zero-width and directional characters email
// templates pad preheaders with to control client preview rendering.
// Everything from the first such character on is invisible filler.
var invisibleChars = regexp.MustCompile(`[\x{00A0}\x{00AD}\x{034F}\x{061C}\x{200B}-\x{200F}\x{2011}\x{202A}-\x{202E}\x{2060}-\x{2064}\x{FEFF}].*`)

// footerCodePattern matches the campaign code line in the email footer
var footerCodePattern = regexp.MustCompile(`(?i)campaign\s*(?:code|id)?\s*[:#]\s*([A-Z0-9_-]+)`)

// ParseFile parses an email HTML file
func ParseFile(path string) (*Email, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open email file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse parses email HTML into metadata and the link inventory
func Parse(r io.Reader) (*Email, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse email HTML: %w", err)
	}

	return &Email{
		Metadata: extractMetadata(doc),
		Links:    extractLinks(doc),
	}, nil
}

func extractMetadata(doc *goquery.Document) Metadata {
	return Metadata{
		Sender:             firstOf(doc, senderExtractors),
		SenderName:         firstOf(doc, senderNameExtractors),
		ReplyTo:            firstOf(doc, replyToExtractors),
		Subject:            firstOf(doc, subjectExtractors),
		Preheader:          extractPreheader(doc),
		FooterCampaignCode: extractFooterCode(doc),
	}
}

func firstOf(doc *goquery.Document, extractors []extractor) string {
	for _, extract := range extractors {
		if val := extract(doc); val != "" {
			return val
		}
	}
	return NotFound
}

func extractPreheader(doc *goquery.Document) string {
	var text string
	for _, cls := range preheaderClasses {
		sel := doc.Find("div." + cls + ", span." + cls).First()
		if sel.Length() > 0 {
			text = strings.TrimSpace(sel.Text())
			break
		}
	}
	if text == "" {
		logger.Debug("Preheader not found, attempted classes: %s", strings.Join(preheaderClasses, ", "))
		return NotFound
	}

	visible := strings.TrimSpace(invisibleChars.ReplaceAllString(text, ""))
	if visible == "" {
		// The whole string was filler-wrapped; keep a readable prefix
		runes := []rune(text)
		if len(runes) > 100 {
			runes = runes[:100]
		}
		visible = strings.TrimSpace(string(runes))
	}
	return visible
}

func extractFooterCode(doc *goquery.Document) string {
	footer := doc.Find("footer, .footer, #footer").First()
	text := footer.Text()
	if text == "" {
		text = doc.Find("body").Text()
	}
	if m := footerCodePattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return NotFound
}

// extractLinks collects every anchor with its presentation context. Image
// links carry the alt text; text links carry the visible text.
func extractLinks(doc *goquery.Document) []LinkRecord {
	var links []LinkRecord

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "#") {
			return
		}

		var context string
		if img := a.Find("img").First(); img.Length() > 0 {
			alt, _ := img.Attr("alt")
			if alt != "" {
				context = "Image: " + truncate(alt, 50)
			} else {
				context = "Image link"
			}
		} else if text := strings.TrimSpace(a.Text()); text != "" {
			context = "Text: " + truncate(text, 50)
		} else {
			context = "Empty link"
		}

		links = append(links, LinkRecord{
			Href:          href,
			SourceContext: context,
			UTMContent:    queryParam(href, "utm_content"),
		})
	})

	return links
}

func queryParam(rawURL, name string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Query().Get(name)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
