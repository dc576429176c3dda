package services

import (
	"log"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageType labels what kind of page the session is currently looking at.
type PageType string

const (
	PageApplicationForm PageType = "application_form"
	PageJobListing      PageType = "job_listing"
	PageCareers         PageType = "careers_page"
	PageCompany         PageType = "company_page"
	PageLogin           PageType = "login_page"
	PageSuccess         PageType = "success_page"
	PageError           PageType = "error_page"
	PageBotDetection    PageType = "bot_detection"
	PageCaptcha         PageType = "captcha"
	PageUnknown         PageType = "unknown"
)

// Obstacle is a detected condition that blocks or complicates progress.
type Obstacle string

const (
	ObstacleLoginRequired  Obstacle = "login_required"
	ObstacleCaptcha        Obstacle = "captcha"
	ObstacleBotDetection   Obstacle = "bot_detection"
	ObstaclePremium        Obstacle = "premium_required"
	ObstacleComplexForm    Obstacle = "complex_form"
	ObstacleAnalysisFailed Obstacle = "analysis_failed"
)

// ElementCategory classifies a detected element's role.
type ElementCategory string

const (
	CategoryApplyButton    ElementCategory = "apply_button"
	CategoryFormField      ElementCategory = "form_field"
	CategoryNavigationLink ElementCategory = "navigation_link"
	CategoryUnknown        ElementCategory = "unknown"
)

// PageElement describes one detected element. Recomputed every iteration
// from current markup, never carried across iterations.
type PageElement struct {
	Tag        string            `json:"tag"`
	Selector   string            `json:"selector"`
	Text       string            `json:"text"`
	Attributes map[string]string `json:"attributes"`
	Category   ElementCategory   `json:"category"`
	FieldType  string            `json:"field_type,omitempty"`
	Confidence float64           `json:"confidence"`
}

// PageAnalysis is the classifier's verdict for one loop iteration.
type PageAnalysis struct {
	PageType     PageType      `json:"page_type"`
	ApplyButtons []PageElement `json:"apply_buttons"`
	FormFields   []PageElement `json:"form_fields"`
	NavLinks     []PageElement `json:"navigation_links"`
	Obstacles    []Obstacle    `json:"obstacles"`
	Confidence   float64       `json:"confidence_score"`
}

func (a *PageAnalysis) HasObstacle(o Obstacle) bool {
	for _, candidate := range a.Obstacles {
		if candidate == o {
			return true
		}
	}
	return false
}

const complexFormFieldThreshold = 10

var applyButtonPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)apply\s*(now|for|to|online)?`),
	regexp.MustCompile(`(?i)submit\s*application`),
	regexp.MustCompile(`(?i)(quick|easy|one\s*click)\s*apply`),
}

var navigationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)careers?`),
	regexp.MustCompile(`(?i)jobs?`),
	regexp.MustCompile(`(?i)employment`),
	regexp.MustCompile(`(?i)opportunities`),
	regexp.MustCompile(`(?i)work\s*with\s*us`),
	regexp.MustCompile(`(?i)join\s*(us|our\s*team)`),
	regexp.MustCompile(`(?i)hiring`),
}

// Evaluated in order; the first matching group wins so classification is
// deterministic for ambiguous fields.
var formFieldPatterns = []struct {
	fieldType string
	patterns  []*regexp.Regexp
}{
	{"email", compilePatterns(`e.?mail`)},
	{"phone", compilePatterns(`phone`, `telephone`, `mobile`)},
	{"resume", compilePatterns(`resume`, `\bcv\b`, `upload`)},
	{"cover_letter", compilePatterns(`cover.?letter`, `message`, `additional.?info`)},
	{"salary", compilePatterns(`salary`, `compensation`, `\bpay\b`, `wage`)},
	{"experience", compilePatterns(`experience`, `years`, `background`)},
	{"name", compilePatterns(`full.?name`, `first.?name`, `last.?name`, `name`)},
}

func compilePatterns(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(`(?i)`+p))
	}
	return compiled
}

// PageClassifier assigns a page type, detects elements and obstacles, and
// scores its own confidence. Purely heuristic; the oracle path refines its
// output but never replaces the fixed rule order.
type PageClassifier struct{}

func NewPageClassifier() *PageClassifier {
	return &PageClassifier{}
}

// Classify analyzes raw markup. Malformed markup degrades to an unknown
// page with an analysis_failed obstacle rather than an error.
func (c *PageClassifier) Classify(markup string) *PageAnalysis {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		log.Printf("Page classification failed: %v", err)
		return FallbackAnalysis()
	}

	doc.Find("script, style, noscript").Remove()
	pageText := strings.ToLower(doc.Text())

	analysis := &PageAnalysis{
		PageType:     c.detectPageType(doc, pageText),
		ApplyButtons: c.findApplyButtons(doc),
		FormFields:   c.findFormFields(doc),
		NavLinks:     c.findNavigationLinks(doc),
		Obstacles:    c.detectObstacles(doc, pageText),
	}
	analysis.Confidence = c.scoreAnalysis(analysis)
	return analysis
}

// FallbackAnalysis is the documented shape used when classification or
// oracle parsing fails outright.
func FallbackAnalysis() *PageAnalysis {
	return &PageAnalysis{
		PageType:   PageUnknown,
		Obstacles:  []Obstacle{ObstacleAnalysisFailed},
		Confidence: 10,
	}
}

// detectPageType applies the fixed first-match-wins rule order. An
// application form beats every other signal on the page.
func (c *PageClassifier) detectPageType(doc *goquery.Document, pageText string) PageType {
	formIsApplication := false
	doc.Find("form").EachWithBreak(func(_ int, form *goquery.Selection) bool {
		formText := strings.ToLower(form.Text())
		attrs := strings.ToLower(attrString(form, "id") + " " + attrString(form, "class") + " " + attrString(form, "action"))
		haystack := formText + " " + attrs
		for _, keyword := range []string{"resume", "apply", "application", "cv"} {
			if strings.Contains(haystack, keyword) {
				formIsApplication = true
				return false
			}
		}
		return true
	})
	if formIsApplication {
		return PageApplicationForm
	}

	if containsAny(pageText, "job description", "responsibilities", "requirements", "qualifications") {
		return PageJobListing
	}
	if containsAny(pageText, "careers", "employment opportunities", "open positions") {
		return PageCareers
	}
	if containsAny(pageText, "about us", "our team", "our company") {
		return PageCompany
	}
	if containsAny(pageText, "login", "sign in", "create account") {
		return PageLogin
	}
	if containsAny(pageText, "thank you", "application submitted", "successfully submitted") {
		return PageSuccess
	}
	if containsAny(pageText, "page not found", "404 error", "something went wrong") {
		return PageError
	}
	return PageUnknown
}

func (c *PageClassifier) findApplyButtons(doc *goquery.Document) []PageElement {
	var buttons []PageElement
	doc.Find("button, a, input[type='submit'], input[type='button']").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			text = attrString(s, "value")
		}
		haystack := strings.ToLower(text)
		attrHaystack := strings.ToLower(strings.Join([]string{
			attrString(s, "class"),
			attrString(s, "id"),
			attrString(s, "data-testid"),
			attrString(s, "aria-label"),
		}, " "))

		matched := matchesAnyPattern(haystack, applyButtonPatterns) ||
			matchesAnyPattern(attrHaystack, applyButtonPatterns)
		if !matched {
			return
		}

		buttons = append(buttons, PageElement{
			Tag:        goquery.NodeName(s),
			Selector:   GenerateSelector(s),
			Text:       text,
			Attributes: attributeMap(s),
			Category:   CategoryApplyButton,
			Confidence: scoreElement(s, CategoryApplyButton),
		})
	})

	sort.SliceStable(buttons, func(i, j int) bool {
		return buttons[i].Confidence > buttons[j].Confidence
	})
	if len(buttons) > 10 {
		buttons = buttons[:10]
	}
	return buttons
}

func (c *PageClassifier) findFormFields(doc *goquery.Document) []PageElement {
	var fields []PageElement
	doc.Find("input, textarea, select").Each(func(_ int, s *goquery.Selection) {
		inputType := strings.ToLower(attrString(s, "type"))
		if inputType == "hidden" || inputType == "submit" || inputType == "button" {
			return
		}

		fieldType := classifyFormField(s, inputType)
		fields = append(fields, PageElement{
			Tag:        goquery.NodeName(s),
			Selector:   GenerateSelector(s),
			Text:       strings.TrimSpace(s.Text()),
			Attributes: attributeMap(s),
			Category:   CategoryFormField,
			FieldType:  fieldType,
			Confidence: scoreElement(s, CategoryFormField),
		})
	})
	return fields
}

func (c *PageClassifier) findNavigationLinks(doc *goquery.Document) []PageElement {
	var links []PageElement
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		text := strings.ToLower(strings.TrimSpace(s.Text()))
		if text == "" || !matchesAnyPattern(text, navigationPatterns) {
			return
		}
		links = append(links, PageElement{
			Tag:        "a",
			Selector:   GenerateSelector(s),
			Text:       text,
			Attributes: attributeMap(s),
			Category:   CategoryNavigationLink,
			Confidence: scoreElement(s, CategoryNavigationLink),
		})
	})
	return links
}

func (c *PageClassifier) detectObstacles(doc *goquery.Document, pageText string) []Obstacle {
	var obstacles []Obstacle

	if containsAny(pageText, "sign in", "login", "account required") {
		obstacles = append(obstacles, ObstacleLoginRequired)
	}
	if containsAny(pageText, "captcha", "recaptcha", "hcaptcha", "verify you are human") {
		obstacles = append(obstacles, ObstacleCaptcha)
	}
	if containsAny(pageText, "access denied", "blocked", "suspicious activity") {
		obstacles = append(obstacles, ObstacleBotDetection)
	}
	if containsAny(pageText, "premium", "subscription", "upgrade required") {
		obstacles = append(obstacles, ObstaclePremium)
	}

	doc.Find("form").EachWithBreak(func(_ int, form *goquery.Selection) bool {
		if form.Find("input, textarea, select").Length() > complexFormFieldThreshold {
			obstacles = append(obstacles, ObstacleComplexForm)
			return false
		}
		return true
	})

	return obstacles
}

// scoreAnalysis combines page type, button confidence and field count into
// a single [0,100] score. More matching evidence never lowers the result.
func (c *PageClassifier) scoreAnalysis(analysis *PageAnalysis) float64 {
	score := 30.0

	switch analysis.PageType {
	case PageApplicationForm, PageJobListing:
		score += 30
	case PageCareers:
		score += 20
	}

	if len(analysis.ApplyButtons) > 0 {
		var sum float64
		for _, button := range analysis.ApplyButtons {
			sum += button.Confidence
		}
		score += (sum / float64(len(analysis.ApplyButtons))) * 0.3
	}

	if count := len(analysis.FormFields); count > 0 {
		bonus := float64(count) * 2
		if bonus > 20 {
			bonus = 20
		}
		score += bonus
	}

	return clampScore(score)
}

// GenerateSelector derives an advisory selector hint for an element. The
// precedence is fixed: id, then compound class, then data-testid, then tag
// plus name/type filters. The executor re-resolves these hints with its
// own fallback chain, so uniqueness is not guaranteed.
func GenerateSelector(s *goquery.Selection) string {
	if id, ok := s.Attr("id"); ok && id != "" {
		return "#" + id
	}
	if class, ok := s.Attr("class"); ok && strings.TrimSpace(class) != "" {
		return "." + strings.Join(strings.Fields(class), ".")
	}
	if testID, ok := s.Attr("data-testid"); ok && testID != "" {
		return "[data-testid='" + testID + "']"
	}

	selector := goquery.NodeName(s)
	if name, ok := s.Attr("name"); ok && name != "" {
		selector += "[name='" + name + "']"
	}
	if inputType, ok := s.Attr("type"); ok && inputType != "" {
		selector += "[type='" + inputType + "']"
	}
	return selector
}

// scoreElement starts at a base value and adds fixed bonuses for
// addressable attributes and relevant text, clamped to [0,100].
func scoreElement(s *goquery.Selection, category ElementCategory) float64 {
	score := 50.0

	if attrString(s, "id") != "" {
		score += 20
	}
	if attrString(s, "class") != "" {
		score += 15
	}
	if attrString(s, "data-testid") != "" {
		score += 25
	}

	text := strings.ToLower(s.Text())
	switch category {
	case CategoryApplyButton:
		if strings.Contains(text, "apply") {
			score += 30
		}
		if strings.Contains(text, "now") || strings.Contains(text, "quick") {
			score += 10
		}
	case CategoryFormField:
		if _, required := s.Attr("required"); required {
			score += 15
		}
		if attrString(s, "placeholder") != "" {
			score += 10
		}
	}

	return clampScore(score)
}

func classifyFormField(s *goquery.Selection, inputType string) string {
	haystack := strings.ToLower(strings.Join([]string{
		attrString(s, "name"),
		attrString(s, "id"),
		attrString(s, "placeholder"),
		attrString(s, "aria-label"),
		attrString(s, "class"),
	}, " "))
	if parent := s.Parent(); parent.Length() > 0 {
		haystack += " " + strings.ToLower(parent.Text())
	}

	for _, group := range formFieldPatterns {
		if matchesAnyPattern(haystack, group.patterns) {
			return group.fieldType
		}
	}

	switch inputType {
	case "email":
		return "email"
	case "tel":
		return "phone"
	case "file":
		return "resume"
	}
	return "unknown"
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func containsAny(haystack string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}

func matchesAnyPattern(haystack string, patterns []*regexp.Regexp) bool {
	for _, pattern := range patterns {
		if pattern.MatchString(haystack) {
			return true
		}
	}
	return false
}

func attrString(s *goquery.Selection, name string) string {
	value, _ := s.Attr(name)
	return value
}

func attributeMap(s *goquery.Selection) map[string]string {
	attrs := make(map[string]string)
	for _, node := range s.Nodes {
		for _, attr := range node.Attr {
			attrs[attr.Key] = attr.Val
		}
		break
	}
	return attrs
}
