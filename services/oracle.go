package services

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

// Oracle is the external reasoning service consulted for page
// understanding. It is an opaque text-in/text-out dependency; everything
// downstream must tolerate free-form responses.
type Oracle interface {
	Call(prompt string) (string, error)
}

// OracleAnalysis is the structured form of an oracle response: a page
// verdict plus suggested actions.
type OracleAnalysis struct {
	PageType   PageType           `json:"page_type"`
	Actions    []NavigationAction `json:"suggested_actions"`
	Obstacles  []Obstacle         `json:"obstacles"`
	Confidence float64            `json:"confidence_score"`
}

// oracleResponsePayload mirrors the JSON shape the prompt asks for.
type oracleResponsePayload struct {
	PageType         string  `json:"page_type"`
	SuggestedActions []struct {
		ActionType  string  `json:"action_type"`
		Selector    string  `json:"selector"`
		Value       string  `json:"value"`
		Description string  `json:"description"`
		Confidence  float64 `json:"confidence"`
	} `json:"suggested_actions"`
	Obstacles       []string `json:"obstacles"`
	ConfidenceScore float64  `json:"confidence_score"`
}

// BuildAnalysisPrompt assembles the bounded prompt sent to the oracle:
// iteration number, a trailing window of navigation history, the extracted
// element snippets and an applicant summary.
func BuildAnalysisPrompt(extracted string, profile *ApplicantProfile, iteration int, history []ActionOutcome) string {
	var historyLines []string
	start := 0
	if len(history) > 3 {
		start = len(history) - 3
	}
	for _, outcome := range history[start:] {
		historyLines = append(historyLines, fmt.Sprintf("- %s %s (succeeded=%t)",
			outcome.Action.Type, outcome.Action.Selector, outcome.Succeeded))
	}
	historyBlock := "None"
	if len(historyLines) > 0 {
		historyBlock = strings.Join(historyLines, "\n")
	}

	return fmt.Sprintf(`You are an expert web automation agent analyzing a job application website.

CONTEXT:
- Current Iteration: %d
- Recent Navigation History:
%s

CURRENT PAGE (relevant elements):
%s

CANDIDATE DATA:
%s

ANALYZE THE PAGE AND PROVIDE:
1. Page Type: job_listing, application_form, careers_page, company_page, login_page, success_page, error_page, bot_detection, captcha, or unknown
2. Suggested Actions: step-by-step actions to apply for the job
3. Obstacles: any detected obstacles (bot_detection, captcha, login_required)
4. Confidence Score: 0-100

RESPONSE FORMAT (JSON only):
{
    "page_type": "application_form",
    "suggested_actions": [
        {"action_type": "fill", "selector": "#email", "value": "email", "description": "Fill email field", "confidence": 85},
        {"action_type": "click", "selector": ".apply-btn", "description": "Submit application", "confidence": 90}
    ],
    "obstacles": [],
    "confidence_score": 85
}

Action types: click, fill, select, upload, wait, scroll. For fill actions,
use symbolic value names (email, first_name, last_name, phone, cover_letter)
so they can be resolved against the candidate data.`, iteration, historyBlock, extracted, profile.PromptSummary())
}

// ParseOracleAnalysis extracts exactly one JSON object from a free-form
// oracle response (first '{' to last '}', prose tolerated on both sides).
// Any parse failure yields the documented low-confidence fallback instead
// of an error.
func ParseOracleAnalysis(response string) *OracleAnalysis {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end <= start {
		log.Printf("Oracle response contained no JSON object, using fallback analysis")
		return fallbackOracleAnalysis()
	}

	var payload oracleResponsePayload
	if err := json.Unmarshal([]byte(response[start:end+1]), &payload); err != nil {
		log.Printf("Could not parse oracle response: %v", err)
		return fallbackOracleAnalysis()
	}

	analysis := &OracleAnalysis{
		PageType:   PageType(payload.PageType),
		Confidence: clampScore(payload.ConfidenceScore),
	}
	if analysis.PageType == "" {
		analysis.PageType = PageUnknown
	}
	for _, obstacle := range payload.Obstacles {
		analysis.Obstacles = append(analysis.Obstacles, Obstacle(obstacle))
	}
	for _, action := range payload.SuggestedActions {
		actionType, ok := ParseActionType(action.ActionType)
		if !ok {
			continue
		}
		confidence := action.Confidence
		if confidence == 0 {
			confidence = 70
		}
		analysis.Actions = append(analysis.Actions, NavigationAction{
			Type:        actionType,
			Selector:    action.Selector,
			Value:       action.Value,
			Description: action.Description,
			Confidence:  clampScore(confidence),
		})
	}
	return analysis
}

func fallbackOracleAnalysis() *OracleAnalysis {
	return &OracleAnalysis{
		PageType:   PageUnknown,
		Obstacles:  []Obstacle{ObstacleAnalysisFailed},
		Confidence: 10,
	}
}
