package services

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
)

const applicationFormPage = `
<html><body>
<h1>Software Engineer</h1>
<form id="application-form" action="/apply">
	<input type="text" id="full-name" name="full_name" placeholder="Full Name" required>
	<input type="email" id="email" name="email" required>
	<input type="file" id="resume" name="resume">
	<button id="apply-btn" type="submit">Apply Now</button>
</form>
</body></html>`

func TestClassifyApplicationForm(t *testing.T) {
	classifier := NewPageClassifier()
	analysis := classifier.Classify(applicationFormPage)

	assert.Equal(t, PageApplicationForm, analysis.PageType)
	assert.NotEmpty(t, analysis.ApplyButtons)
	assert.NotEmpty(t, analysis.FormFields)
}

func TestApplicationFormBeatsCareersSignals(t *testing.T) {
	// A careers page that also carries an application form must classify
	// as an application form.
	page := `
	<html><body>
	<h1>Careers</h1>
	<p>Browse our open positions and employment opportunities.</p>
	<form action="/apply"><input type="email" name="email"></form>
	</body></html>`

	analysis := NewPageClassifier().Classify(page)
	assert.Equal(t, PageApplicationForm, analysis.PageType)
}

func TestJobListingBeatsCareers(t *testing.T) {
	page := `<html><body>
	<p>Careers at Acme. Job description: build things.
	Responsibilities include coding. Requirements: Go.</p>
	</body></html>`

	analysis := NewPageClassifier().Classify(page)
	assert.Equal(t, PageJobListing, analysis.PageType)
}

func TestClassifyPageTypes(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected PageType
	}{
		{"careers", "<p>Browse open positions in engineering</p>", PageCareers},
		{"company", "<p>About us and our team of dreamers</p>", PageCompany},
		{"login", "<p>Please sign in to continue</p>", PageLogin},
		{"success", "<p>Thank you! Application submitted.</p>", PageSuccess},
		{"error", "<p>404 error. That link is broken.</p>", PageError},
		{"unknown", "<p>lorem ipsum dolor sit amet</p>", PageUnknown},
	}

	classifier := NewPageClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := classifier.Classify("<html><body>" + tt.body + "</body></html>")
			assert.Equal(t, tt.expected, analysis.PageType)
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	classifier := NewPageClassifier()
	first := classifier.Classify(applicationFormPage)
	for i := 0; i < 5; i++ {
		again := classifier.Classify(applicationFormPage)
		assert.Equal(t, first, again)
	}
}

func TestDetectObstacles(t *testing.T) {
	page := `<html><body>
	<p>Please verify you are human (reCAPTCHA). Premium subscription required.</p>
	</body></html>`

	analysis := NewPageClassifier().Classify(page)
	assert.True(t, analysis.HasObstacle(ObstacleCaptcha))
	assert.True(t, analysis.HasObstacle(ObstaclePremium))
	assert.False(t, analysis.HasObstacle(ObstacleLoginRequired))
}

func TestComplexFormObstacle(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body><form action='/apply'>")
	for i := 0; i < 12; i++ {
		b.WriteString(`<input type="text" name="q` + string(rune('a'+i)) + `">`)
	}
	b.WriteString("</form></body></html>")

	analysis := NewPageClassifier().Classify(b.String())
	assert.True(t, analysis.HasObstacle(ObstacleComplexForm))
}

func TestFallbackAnalysisShape(t *testing.T) {
	analysis := FallbackAnalysis()
	assert.Equal(t, PageUnknown, analysis.PageType)
	assert.True(t, analysis.HasObstacle(ObstacleAnalysisFailed))
	assert.Equal(t, 10.0, analysis.Confidence)
}

func selectionFor(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	assert.NoError(t, err)
	return doc.Find("body").Children().First()
}

func TestGenerateSelectorPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{"id wins over class", `<button id="apply" class="btn primary">Apply</button>`, "#apply"},
		{"compound class", `<button class="btn apply-now">Apply</button>`, ".btn.apply-now"},
		{"data-testid", `<button data-testid="apply-button">Apply</button>`, "[data-testid='apply-button']"},
		{"tag with name and type", `<input name="email" type="email">`, "input[name='email'][type='email']"},
		{"bare tag", `<button>Apply</button>`, "button"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GenerateSelector(selectionFor(t, "<html><body>"+tt.html+"</body></html>")))
		})
	}
}

func TestScoreElementBonuses(t *testing.T) {
	rich := selectionFor(t, `<html><body><button id="a" class="b" data-testid="c">Apply now</button></body></html>`)
	bare := selectionFor(t, `<html><body><button>Continue</button></body></html>`)

	richScore := scoreElement(rich, CategoryApplyButton)
	bareScore := scoreElement(bare, CategoryApplyButton)

	assert.Greater(t, richScore, bareScore)
	assert.Equal(t, 100.0, richScore) // 50+20+15+25+30+10 clamps to 100
	assert.Equal(t, 50.0, bareScore)
}

func TestFormFieldClassification(t *testing.T) {
	page := `<html><body><form action="/apply">
	<input type="text" name="work_email">
	<input type="text" name="mobile_number" placeholder="Phone">
	<input type="file" name="cv_upload">
	<textarea name="cover_letter"></textarea>
	<input type="text" name="candidate_name">
	</form></body></html>`

	analysis := NewPageClassifier().Classify(page)

	byName := map[string]string{}
	for _, field := range analysis.FormFields {
		byName[field.Attributes["name"]] = field.FieldType
	}
	assert.Equal(t, "email", byName["work_email"])
	assert.Equal(t, "phone", byName["mobile_number"])
	assert.Equal(t, "resume", byName["cv_upload"])
	assert.Equal(t, "cover_letter", byName["cover_letter"])
	assert.Equal(t, "name", byName["candidate_name"])
}

func TestApplyButtonsSortedAndCapped(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	b.WriteString(`<button id="strong" data-testid="apply">Apply now</button>`)
	for i := 0; i < 15; i++ {
		b.WriteString("<a>apply here</a>")
	}
	b.WriteString("</body></html>")

	analysis := NewPageClassifier().Classify(b.String())
	assert.LessOrEqual(t, len(analysis.ApplyButtons), 10)
	assert.Equal(t, "#strong", analysis.ApplyButtons[0].Selector)
	for i := 1; i < len(analysis.ApplyButtons); i++ {
		assert.GreaterOrEqual(t, analysis.ApplyButtons[i-1].Confidence, analysis.ApplyButtons[i].Confidence)
	}
}
