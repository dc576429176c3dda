package services

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
)

// ActionType enumerates the navigation actions the executor understands.
type ActionType string

const (
	ActionClick  ActionType = "click"
	ActionFill   ActionType = "fill"
	ActionSelect ActionType = "select"
	ActionUpload ActionType = "upload"
	ActionWait   ActionType = "wait"
	ActionScroll ActionType = "scroll"
)

// ParseActionType validates a raw action type string. Unknown types are
// rejected rather than partially trusted.
func ParseActionType(raw string) (ActionType, bool) {
	switch ActionType(strings.ToLower(strings.TrimSpace(raw))) {
	case ActionClick:
		return ActionClick, true
	case ActionFill:
		return ActionFill, true
	case ActionSelect:
		return ActionSelect, true
	case ActionUpload:
		return ActionUpload, true
	case ActionWait:
		return ActionWait, true
	case ActionScroll:
		return ActionScroll, true
	default:
		return "", false
	}
}

// NavigationAction is one recommended step. Value may be a literal or a
// symbolic field name resolved against the applicant profile at execution
// time.
type NavigationAction struct {
	Type        ActionType `json:"action_type"`
	Selector    string     `json:"selector"`
	Value       string     `json:"value,omitempty"`
	Description string     `json:"description"`
	Confidence  float64    `json:"confidence"`
}

// ActionOutcome records one executed action in the attempt's navigation
// history. The history is append-only for the lifetime of the attempt.
type ActionOutcome struct {
	Action    NavigationAction `json:"action"`
	Succeeded bool             `json:"succeeded"`
	Error     string           `json:"error,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Per-iteration step caps.
const (
	maxStepsPerPath      = 8
	maxStepsPerIteration = 10
)

// ActionRecommender turns a page analysis into an ordered action list.
// With an oracle configured it merges heuristic and oracle suggestions;
// without one it runs purely on heuristics.
type ActionRecommender struct {
	oracle    Oracle
	extractor *ElementExtractor
}

func NewActionRecommender(oracle Oracle, extractor *ElementExtractor) *ActionRecommender {
	if extractor == nil {
		extractor = NewElementExtractor()
	}
	return &ActionRecommender{oracle: oracle, extractor: extractor}
}

// Recommend produces the ordered candidate actions for this iteration.
func (r *ActionRecommender) Recommend(analysis *PageAnalysis, profile *ApplicantProfile, markup string, iteration int, history []ActionOutcome) []NavigationAction {
	heuristic := r.heuristicActions(analysis)

	if r.oracle == nil {
		return capActions(heuristic, maxStepsPerIteration)
	}

	oracleActions := r.oracleActions(profile, markup, iteration, history)
	merged := mergeActions(heuristic, oracleActions)
	return capActions(merged, maxStepsPerIteration)
}

// heuristicActions builds candidate navigation paths from detected
// elements: a direct-apply path from each strong apply button plus its
// form fields, and a navigate-then-apply path through careers links. The
// paths are flattened in confidence order with duplicates removed.
func (r *ActionRecommender) heuristicActions(analysis *PageAnalysis) []NavigationAction {
	type path struct {
		steps      []NavigationAction
		confidence float64
	}
	var paths []path

	fillSteps := func(limit int) []NavigationAction {
		var steps []NavigationAction
		for _, field := range analysis.FormFields {
			if len(steps) >= limit {
				break
			}
			steps = append(steps, fieldAction(field))
		}
		return steps
	}

	applyButtons := analysis.ApplyButtons
	if len(applyButtons) > 3 {
		applyButtons = applyButtons[:3]
	}
	for _, button := range applyButtons {
		steps := []NavigationAction{{
			Type:        ActionClick,
			Selector:    button.Selector,
			Description: fmt.Sprintf("Click apply button %q", button.Text),
			Confidence:  button.Confidence,
		}}
		steps = append(steps, fillSteps(maxStepsPerPath-1)...)
		paths = append(paths, path{steps: steps, confidence: button.Confidence})
	}

	// On a bare form page there may be no apply button at all; filling the
	// form is the whole path.
	if len(applyButtons) == 0 && len(analysis.FormFields) > 0 {
		steps := fillSteps(maxStepsPerPath)
		paths = append(paths, path{steps: steps, confidence: 60})
	}

	navLinks := analysis.NavLinks
	if len(navLinks) > 2 {
		navLinks = navLinks[:2]
	}
	for _, link := range navLinks {
		confidence := link.Confidence
		if len(applyButtons) > 0 {
			confidence = (link.Confidence + applyButtons[0].Confidence) / 2
		}
		paths = append(paths, path{
			steps: []NavigationAction{{
				Type:        ActionClick,
				Selector:    link.Selector,
				Description: fmt.Sprintf("Navigate via %q", link.Text),
				Confidence:  link.Confidence,
			}},
			confidence: confidence,
		})
	}

	sort.SliceStable(paths, func(i, j int) bool {
		return paths[i].confidence > paths[j].confidence
	})

	var actions []NavigationAction
	for _, p := range paths {
		actions = append(actions, p.steps...)
	}
	return dedupeActions(actions)
}

func fieldAction(field PageElement) NavigationAction {
	switch {
	case field.FieldType == "resume" || strings.EqualFold(field.Attributes["type"], "file"):
		return NavigationAction{
			Type:        ActionUpload,
			Selector:    field.Selector,
			Description: "Upload resume",
			Confidence:  field.Confidence,
		}
	case field.Tag == "select":
		return NavigationAction{
			Type:        ActionSelect,
			Selector:    field.Selector,
			Value:       field.FieldType,
			Description: fmt.Sprintf("Select %s option", field.FieldType),
			Confidence:  field.Confidence,
		}
	default:
		return NavigationAction{
			Type:        ActionFill,
			Selector:    field.Selector,
			Value:       field.FieldType,
			Description: fmt.Sprintf("Fill %s field", field.FieldType),
			Confidence:  field.Confidence,
		}
	}
}

func (r *ActionRecommender) oracleActions(profile *ApplicantProfile, markup string, iteration int, history []ActionOutcome) []NavigationAction {
	extracted := r.extractor.ExtractCombined(markup)
	prompt := BuildAnalysisPrompt(extracted, profile, iteration, history)

	response, err := r.oracle.Call(prompt)
	if err != nil {
		log.Printf("Oracle call failed, continuing with heuristics only: %v", err)
		return nil
	}

	return ParseOracleAnalysis(response).Actions
}

// mergeActions combines both sources, deduplicating on (type, selector)
// and keeping the higher-confidence duplicate. Oracle actions come first
// in ties because they see more page context.
func mergeActions(heuristic, oracle []NavigationAction) []NavigationAction {
	combined := append(append([]NavigationAction{}, oracle...), heuristic...)
	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].Confidence > combined[j].Confidence
	})
	return dedupeActions(combined)
}

func dedupeActions(actions []NavigationAction) []NavigationAction {
	seen := make(map[string]bool)
	var result []NavigationAction
	for _, action := range actions {
		key := string(action.Type) + "|" + action.Selector
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, action)
	}
	return result
}

func capActions(actions []NavigationAction, limit int) []NavigationAction {
	if len(actions) > limit {
		return actions[:limit]
	}
	return actions
}
