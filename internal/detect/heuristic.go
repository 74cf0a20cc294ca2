package detect

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"emailqa/helpers"
	"emailqa/logger"
	qaerrors "emailqa/pkg/errors"

	"github.com/PuerkitoBio/goquery"
)

// Scoring weights and threshold. Structure is weighted over wording because
// listing widgets keep their markup shape even when copy is localized.
const (
	textualWeight    = 0.4
	structuralWeight = 0.6
	foundThreshold   = 35
)

// E-commerce vocabulary counted in the page's readable text
var productVocabulary = []string{
	"price", "add to cart", "buy now", "in stock", "out of stock",
	"sku", "quantity", "shipping", "catalog", "inventory",
	"manufacturer", "part number", "specifications", "model",
	"sort by", "filter by", "search results", "products found",
}

// Structural indicator groups scanned against container class attributes
var structuralIndicators = map[string][]string{
	"grid":      {"product-grid", "products-grid", "item-grid", "grid-view"},
	"list":      {"product-list", "products-list", "item-list", "listing"},
	"table":     {"product-table", "products-table", "data-table"},
	"container": {"productListContainer", "products-container", "catalog-container"},
	"card":      {"product-card", "item-card", "product-tile"},
	"row":       {"product-row", "item-row"},
	"pricing":   {"price", "pricing", "cost"},
}

var (
	currencyPattern   = regexp.MustCompile(`[$€£¥]\s?\d+(?:[.,]\d{2})?`)
	productImgPattern = regexp.MustCompile(`(?i)product|item|sku|part`)
)

// HeuristicClassifier is the probabilistic fallback of last resort. It never
// returns Unknown: it always produces a verdict with a 0-100 confidence.
type HeuristicClassifier struct {
	timeout time.Duration
	log     *logger.Logger
}

// NewHeuristicClassifier creates a heuristic classifier
func NewHeuristicClassifier(timeout time.Duration) *HeuristicClassifier {
	return &HeuristicClassifier{
		timeout: timeout,
		log:     logger.ForDetector(string(MethodHeuristic)),
	}
}

// Method identifies this strategy
func (c *HeuristicClassifier) Method() Method {
	return MethodHeuristic
}

// Classify downloads the page once and scores product-ness from its text
// and its structure.
func (c *HeuristicClassifier) Classify(ctx context.Context, url string, _ time.Duration) Result {
	page, err := helpers.FetchPage(ctx, url, c.timeout)
	if err != nil {
		res := errorResult(MethodHeuristic, qaerrors.Classify(string(MethodHeuristic), err))
		res.Message = "Heuristic analysis could not download the page"
		return res
	}
	if page.StatusCode != 200 {
		res := errorResult(MethodHeuristic, qaerrors.NewHTTPStatus(string(MethodHeuristic), page.StatusCode))
		return res
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return errorResult(MethodHeuristic, qaerrors.NewMalformed(string(MethodHeuristic), "failed to parse HTML", err))
	}

	textScore := c.textualScore(doc)
	structScore, topClass := c.structuralScore(doc)

	confidence := int(textualWeight*float64(textScore) + structuralWeight*float64(structScore))
	found := confidence >= foundThreshold

	c.log.Debug().
		Str("url", url).
		Int("textual", textScore).
		Int("structural", structScore).
		Int("confidence", confidence).
		Msg("Heuristic scores computed")

	result := Result{
		Method:     MethodHeuristic,
		Confidence: confidence,
		Message:    fmt.Sprintf("Probabilistic verdict: %d%% confidence (textual %d, structural %d)", confidence, textScore, structScore),
	}
	if found {
		result.Found = Found
		result.ClassName = topClass
	} else {
		result.Found = NotFound
	}
	return result
}

// textualScore counts vocabulary hits in the readable text, ignoring
// script and style content.
func (c *HeuristicClassifier) textualScore(doc *goquery.Document) int {
	clone := doc.Clone()
	clone.Find("script, style, noscript").Remove()
	text := strings.ToLower(clone.Find("body").Text())

	matched := 0
	for _, term := range productVocabulary {
		matched += strings.Count(text, term)
	}

	score := matched * 100 / (2 * len(productVocabulary))
	if score > 100 {
		score = 100
	}
	return score
}

// structuralScore scans container elements' class attributes against the
// indicator groups, with bonuses for currency-formatted prices and
// product-flavored images.
func (c *HeuristicClassifier) structuralScore(doc *goquery.Document) (int, string) {
	structures := 0
	topClass := ""

	doc.Find("div, ul, table, section, article").Each(func(_ int, s *goquery.Selection) {
		classAttr, exists := s.Attr("class")
		if !exists {
			return
		}
		lower := strings.ToLower(classAttr)
		for _, patterns := range structuralIndicators {
			for _, p := range patterns {
				if strings.Contains(lower, strings.ToLower(p)) {
					structures++
					if topClass == "" {
						topClass = strings.Fields(classAttr)[0]
					}
					return
				}
			}
		}
	})

	bonus := 0
	if currencyPattern.MatchString(doc.Text()) {
		bonus += 15
	}
	doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		alt, _ := s.Attr("alt")
		src, _ := s.Attr("src")
		if productImgPattern.MatchString(alt) || productImgPattern.MatchString(src) {
			bonus += 10
			return false
		}
		return true
	})

	score := 10*structures + bonus
	if score > 100 {
		score = 100
	}
	return score, topClass
}
