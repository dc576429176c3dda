package services

import (
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Extraction caps keep the combined extract inside a fixed prompt budget
// for the reasoning oracle.
const (
	extractMaxTotalChars     = 4000
	extractMaxFormChars      = 1000
	extractMaxContainerChars = 500
	extractMaxElements       = 50
)

// Default keyword sets. They are configuration, not contract: callers may
// override them through NewElementExtractorWithKeywords.
var (
	defaultClickableKeywords = []string{
		"apply", "submit", "job", "application", "continue", "next",
	}
	defaultContainerKeywords = []string{
		"job", "apply", "application", "form", "career",
	}
)

// ElementExtractor reduces raw page markup to a bounded, relevance-ranked
// set of element snippets: forms first, then candidate buttons, then input
// fields, then keyword-matched containers. Document order is preserved
// within each group.
type ElementExtractor struct {
	clickableKeywords []string
	containerKeywords []string
}

func NewElementExtractor() *ElementExtractor {
	return NewElementExtractorWithKeywords(defaultClickableKeywords, defaultContainerKeywords)
}

func NewElementExtractorWithKeywords(clickable, container []string) *ElementExtractor {
	return &ElementExtractor{
		clickableKeywords: clickable,
		containerKeywords: container,
	}
}

// Extract returns serialized snippets of the page's relevant elements.
// It never fails on malformed markup; unparseable input yields an empty
// result and a log line.
func (e *ElementExtractor) Extract(markup string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		log.Printf("Element extraction failed, returning empty result: %v", err)
		return nil
	}

	doc.Find("script, style, noscript, head, iframe").Remove()

	var snippets []string
	total := 0

	appendSnippet := func(snippet string, limit int) bool {
		if len(snippets) >= extractMaxElements {
			return false
		}
		snippet = strings.TrimSpace(snippet)
		if snippet == "" {
			return true
		}
		if limit > 0 && len(snippet) > limit {
			snippet = snippet[:limit]
		}
		if total+len(snippet) > extractMaxTotalChars {
			remaining := extractMaxTotalChars - total
			if remaining <= 0 {
				return false
			}
			snippet = snippet[:remaining]
		}
		snippets = append(snippets, snippet)
		total += len(snippet)
		return total < extractMaxTotalChars
	}

	// Forms carry the highest signal for an application flow.
	doc.Find("form").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		html, err := goquery.OuterHtml(s)
		if err != nil {
			return true
		}
		return appendSnippet(html, extractMaxFormChars)
	})

	// Clickables whose text or attributes look job related.
	doc.Find("button, a, [role='button']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Closest("form").Length() > 0 {
			return true
		}
		if !e.matchesAny(clickableHaystack(s), e.clickableKeywords) {
			return true
		}
		html, err := goquery.OuterHtml(s)
		if err != nil {
			return true
		}
		return appendSnippet(html, extractMaxContainerChars)
	})

	// All fillable fields, wherever they live.
	doc.Find("input, textarea, select").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Closest("form").Length() > 0 {
			return true
		}
		html, err := goquery.OuterHtml(s)
		if err != nil {
			return true
		}
		return appendSnippet(html, extractMaxContainerChars)
	})

	// Containers whose class or id hints at job content.
	doc.Find("div, section, span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		id, _ := s.Attr("id")
		if !e.matchesAny(strings.ToLower(class+" "+id), e.containerKeywords) {
			return true
		}
		html, err := goquery.OuterHtml(s)
		if err != nil {
			return true
		}
		return appendSnippet(html, extractMaxContainerChars)
	})

	return snippets
}

// ExtractCombined joins the snippets into one oracle-ready block, bounded
// by the total extraction cap.
func (e *ElementExtractor) ExtractCombined(markup string) string {
	snippets := e.Extract(markup)
	combined := strings.Join(snippets, "\n")
	if len(combined) > extractMaxTotalChars {
		combined = combined[:extractMaxTotalChars]
	}
	return combined
}

func (e *ElementExtractor) matchesAny(haystack string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(haystack, keyword) {
			return true
		}
	}
	return false
}

func clickableHaystack(s *goquery.Selection) string {
	class, _ := s.Attr("class")
	id, _ := s.Attr("id")
	aria, _ := s.Attr("aria-label")
	return strings.ToLower(strings.Join([]string{s.Text(), class, id, aria}, " "))
}
