package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOracleAnalysisWithSurroundingProse(t *testing.T) {
	response := `Sure! Here is my analysis of the page:
	{
		"page_type": "application_form",
		"suggested_actions": [
			{"action_type": "fill", "selector": "#email", "value": "email", "description": "Fill email", "confidence": 85},
			{"action_type": "click", "selector": ".apply-btn", "description": "Submit", "confidence": 90}
		],
		"obstacles": ["captcha"],
		"confidence_score": 85
	}
	Let me know if you need anything else.`

	analysis := ParseOracleAnalysis(response)

	assert.Equal(t, PageApplicationForm, analysis.PageType)
	assert.Equal(t, 85.0, analysis.Confidence)
	assert.Len(t, analysis.Actions, 2)
	assert.Equal(t, ActionFill, analysis.Actions[0].Type)
	assert.Equal(t, "email", analysis.Actions[0].Value)
	assert.Equal(t, []Obstacle{ObstacleCaptcha}, analysis.Obstacles)
}

func TestParseOracleAnalysisMalformedFallsBack(t *testing.T) {
	for _, response := range []string{
		"",
		"no json here at all",
		"{ broken json",
		"{\"page_type\": }",
	} {
		analysis := ParseOracleAnalysis(response)
		assert.Equal(t, PageUnknown, analysis.PageType, "response %q", response)
		assert.Contains(t, analysis.Obstacles, ObstacleAnalysisFailed)
		assert.Equal(t, 10.0, analysis.Confidence)
		assert.Empty(t, analysis.Actions)
	}
}

func TestParseOracleAnalysisSkipsUnknownActionTypes(t *testing.T) {
	response := `{
		"page_type": "job_listing",
		"suggested_actions": [
			{"action_type": "teleport", "selector": "#x", "confidence": 99},
			{"action_type": "click", "selector": "#apply", "confidence": 80}
		],
		"confidence_score": 70
	}`

	analysis := ParseOracleAnalysis(response)
	assert.Len(t, analysis.Actions, 1)
	assert.Equal(t, ActionClick, analysis.Actions[0].Type)
}

func TestParseOracleAnalysisDefaultsConfidence(t *testing.T) {
	response := `{"page_type": "unknown", "suggested_actions": [{"action_type": "wait", "selector": ""}]}`
	analysis := ParseOracleAnalysis(response)
	assert.Len(t, analysis.Actions, 1)
	assert.Equal(t, 70.0, analysis.Actions[0].Confidence)
}

func TestBuildAnalysisPromptWindowsHistory(t *testing.T) {
	profile := &ApplicantProfile{FullName: "Jane Roe", Email: "jane@example.com"}

	var history []ActionOutcome
	for i := 0; i < 6; i++ {
		history = append(history, ActionOutcome{
			Action:    NavigationAction{Type: ActionClick, Selector: fmt.Sprintf("#step-%d", i)},
			Succeeded: true,
		})
	}

	prompt := BuildAnalysisPrompt("<form></form>", profile, 7, history)

	assert.Contains(t, prompt, "Current Iteration: 7")
	assert.Contains(t, prompt, "jane@example.com")
	assert.Contains(t, prompt, "#step-5")
	assert.Contains(t, prompt, "#step-3")
	assert.NotContains(t, prompt, "#step-2")
}

func TestParseActionType(t *testing.T) {
	for raw, expected := range map[string]ActionType{
		"click": ActionClick, " FILL ": ActionFill, "Select": ActionSelect,
		"upload": ActionUpload, "wait": ActionWait, "scroll": ActionScroll,
	} {
		parsed, ok := ParseActionType(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, expected, parsed)
	}

	for _, raw := range []string{"", "hover", "drag"} {
		_, ok := ParseActionType(raw)
		assert.False(t, ok, raw)
	}
}

func TestNewOracleFactory(t *testing.T) {
	assert.Nil(t, NewOracle("openai", "", ""))
	assert.Nil(t, NewOracle("unknown-provider", "key", ""))
	assert.NotNil(t, NewOracle("openai", "test-key", ""))
	assert.NotNil(t, NewOracle("gemini", "test-key", ""))
}

func TestPromptStaysBounded(t *testing.T) {
	profile := &ApplicantProfile{FullName: "Jane Roe", Skills: strings.Split(strings.Repeat("go,", 30), ",")}
	prompt := BuildAnalysisPrompt(strings.Repeat("x", extractMaxTotalChars), profile, 1, nil)
	// Extract is already capped upstream; the prompt adds fixed scaffolding.
	assert.Less(t, len(prompt), extractMaxTotalChars+2500)
}
