package services

import (
	"fmt"
	"log"
	"math/rand"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// resolutionStrategy is one way of turning a selector hint into a live
// element. Strategies are tried in a fixed order until one resolves.
type resolutionStrategy interface {
	Name() string
	TryResolve(browser Browser, hint string) (Element, error)
}

type cssStrategy struct{}

func (cssStrategy) Name() string { return "css" }
func (cssStrategy) TryResolve(browser Browser, hint string) (Element, error) {
	return browser.FindCSS(hint)
}

type xpathStrategy struct{}

func (xpathStrategy) Name() string { return "xpath" }
func (xpathStrategy) TryResolve(browser Browser, hint string) (Element, error) {
	return browser.FindXPath(hint)
}

// strippedPrefixStrategy reinterprets "#id" and ".class" hints as direct
// id/class lookups for drivers where the CSS engine rejected them.
type strippedPrefixStrategy struct{}

func (strippedPrefixStrategy) Name() string { return "stripped-prefix" }
func (strippedPrefixStrategy) TryResolve(browser Browser, hint string) (Element, error) {
	switch {
	case strings.HasPrefix(hint, "#"):
		return browser.FindByID(strings.TrimPrefix(hint, "#"))
	case strings.HasPrefix(hint, "."):
		return browser.FindByClass(strings.TrimPrefix(hint, "."))
	default:
		return nil, fmt.Errorf("hint has no strippable prefix")
	}
}

// textStrategy treats the hint as visible link or button text.
type textStrategy struct{}

func (textStrategy) Name() string { return "text" }
func (textStrategy) TryResolve(browser Browser, hint string) (Element, error) {
	if element, err := browser.FindByText(hint, true); err == nil {
		return element, nil
	}
	return browser.FindByText(hint, false)
}

// synthesizedStrategy fabricates alternates from a bare hint: id, class
// and attribute-contains selectors.
type synthesizedStrategy struct{}

func (synthesizedStrategy) Name() string { return "synthesized" }
func (synthesizedStrategy) TryResolve(browser Browser, hint string) (Element, error) {
	bare := strings.TrimLeft(hint, "#.")
	if bare == "" {
		return nil, fmt.Errorf("empty hint")
	}
	alternates := []string{
		"#" + bare,
		"." + bare,
		fmt.Sprintf("[id*='%s']", bare),
		fmt.Sprintf("[class*='%s']", bare),
		fmt.Sprintf("[name*='%s']", bare),
		fmt.Sprintf("[data-testid*='%s']", bare),
	}
	for _, alternate := range alternates {
		if alternate == hint {
			continue
		}
		if element, err := browser.FindCSS(alternate); err == nil {
			return element, nil
		}
	}
	return nil, fmt.Errorf("no synthesized alternate matched %q", hint)
}

func defaultResolutionChain() []resolutionStrategy {
	return []resolutionStrategy{
		cssStrategy{},
		xpathStrategy{},
		strippedPrefixStrategy{},
		textStrategy{},
		synthesizedStrategy{},
	}
}

const (
	typeDelayMinMs = 50
	typeDelayMaxMs = 150
	defaultWaitSec = 2.0
)

// ActionExecutor resolves and performs navigation actions against the
// browser. Failures are reported, never raised: an exhausted resolution
// chain or a rejected interaction degrades to a failed outcome.
type ActionExecutor struct {
	browser    Browser
	profile    *ApplicantProfile
	strategies []resolutionStrategy
	rng        *rand.Rand
	resumeDir  string

	// humanPacing disables the per-character typing jitter when false so
	// tests run without wall-clock delays.
	humanPacing bool
}

func NewActionExecutor(browser Browser, profile *ApplicantProfile, resumeDir string) *ActionExecutor {
	return &ActionExecutor{
		browser:     browser,
		profile:     profile,
		strategies:  defaultResolutionChain(),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		resumeDir:   resumeDir,
		humanPacing: true,
	}
}

// Execute performs one action and returns its recorded outcome.
func (e *ActionExecutor) Execute(action NavigationAction) ActionOutcome {
	outcome := ActionOutcome{
		Action:    action,
		Timestamp: time.Now(),
	}

	err := e.perform(action)
	if err != nil {
		outcome.Error = err.Error()
		log.Printf("Action %s %s failed: %v", action.Type, action.Selector, err)
	} else {
		outcome.Succeeded = true
	}
	return outcome
}

func (e *ActionExecutor) perform(action NavigationAction) error {
	switch action.Type {
	case ActionClick:
		return e.click(action.Selector)
	case ActionFill:
		return e.fill(action.Selector, e.profile.ResolveFieldValue(action.Value))
	case ActionSelect:
		return e.selectOption(action.Selector, e.profile.ResolveFieldValue(action.Value))
	case ActionUpload:
		return e.upload(action.Selector)
	case ActionWait:
		e.wait(action.Value)
		return nil
	case ActionScroll:
		return e.scroll(action.Selector)
	default:
		return fmt.Errorf("unknown action type: %s", action.Type)
	}
}

// resolve walks the strategy chain until one produces an element.
func (e *ActionExecutor) resolve(hint string) (Element, error) {
	if strings.TrimSpace(hint) == "" {
		return nil, fmt.Errorf("empty selector hint")
	}
	for _, strategy := range e.strategies {
		element, err := strategy.TryResolve(e.browser, hint)
		if err == nil && element != nil {
			return element, nil
		}
	}
	return nil, fmt.Errorf("could not resolve element for %q", hint)
}

func (e *ActionExecutor) click(selector string) error {
	element, err := e.resolve(selector)
	if err != nil {
		return err
	}

	if err := element.ScrollIntoView(); err != nil {
		log.Printf("Could not scroll %s into view: %v", selector, err)
	}

	if err := element.Click(); err == nil {
		return nil
	}
	if err := element.ClickViaScript(); err == nil {
		return nil
	}

	// Last resort: simulate a pointer click at the element's center.
	x, y, w, h, err := element.BoundingBox()
	if err != nil {
		return fmt.Errorf("click failed and element position unknown: %v", err)
	}
	if err := e.browser.MoveMouse(x+w/2, y+h/2); err != nil {
		return fmt.Errorf("pointer move failed: %v", err)
	}
	if err := e.browser.ClickAt(x+w/2, y+h/2); err != nil {
		return fmt.Errorf("pointer click failed: %v", err)
	}
	return nil
}

func (e *ActionExecutor) fill(selector, value string) error {
	element, err := e.resolve(selector)
	if err != nil {
		return err
	}

	// Clear prior content before typing.
	if err := element.SetValue(""); err != nil {
		log.Printf("Could not clear %s before fill: %v", selector, err)
	}

	typed := true
	for _, r := range value {
		if err := element.Type(string(r)); err != nil {
			typed = false
			break
		}
		e.typeDelay()
	}
	if typed {
		return nil
	}

	// Element rejected keystrokes; assign the value directly and fire a
	// synthetic input event instead.
	if err := element.SetValue(value); err != nil {
		return fmt.Errorf("fill failed for %s: %v", selector, err)
	}
	return nil
}

func (e *ActionExecutor) selectOption(selector, value string) error {
	element, err := e.resolve(selector)
	if err != nil {
		return err
	}
	if err := element.SelectByText(value, true); err == nil {
		return nil
	}
	if err := element.SelectByText(value, false); err != nil {
		return fmt.Errorf("no option matching %q in %s: %v", value, selector, err)
	}
	return nil
}

func (e *ActionExecutor) upload(selector string) error {
	element, err := e.resolve(selector)
	if err != nil {
		return err
	}

	path := e.profile.ResumePath
	if path == "" {
		path, err = e.profile.WriteSurrogateResume(e.resumeDir)
		if err != nil {
			return fmt.Errorf("no resume configured and surrogate failed: %v", err)
		}
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("could not resolve resume path: %v", err)
	}

	if err := element.SetFile(absPath); err != nil {
		return fmt.Errorf("upload failed for %s: %v", selector, err)
	}
	return nil
}

func (e *ActionExecutor) wait(value string) {
	seconds := defaultWaitSec
	if value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil && parsed > 0 {
			seconds = parsed
		}
	}
	if e.humanPacing {
		time.Sleep(time.Duration(seconds * float64(time.Second)))
	}
}

func (e *ActionExecutor) scroll(selector string) error {
	element, err := e.resolve(selector)
	if err != nil {
		return err
	}
	return element.ScrollIntoView()
}

func (e *ActionExecutor) typeDelay() {
	if !e.humanPacing {
		return
	}
	jitter := typeDelayMinMs + e.rng.Intn(typeDelayMaxMs-typeDelayMinMs)
	time.Sleep(time.Duration(jitter) * time.Millisecond)
}
