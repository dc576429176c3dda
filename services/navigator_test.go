package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testJobURL = "https://jobs.example.com/postings/42"

const successPage = `<html><body>
<h1>Thank you!</h1><p>Your application submitted successfully.</p>
</body></html>`

const unknownPage = `<html><body><p>lorem ipsum dolor sit amet</p></body></html>`

func testNavigatorConfig(maxIterations int) NavigatorConfig {
	return NavigatorConfig{
		MaxIterations:     maxIterations,
		MaxAttemptRetries: 1,
	}
}

func newTestNavigator(browser *fakeBrowser, config NavigatorConfig) *Navigator {
	factory := func() (Browser, error) { return browser, nil }
	navigator := NewNavigator(factory, NewActionRecommender(nil, nil), nil, nil, config)
	navigator.disablePacing = true
	return navigator
}

func TestNavigatorFillsFormAndSucceeds(t *testing.T) {
	browser := newFakeBrowser(applicationFormPage, successPage)

	emailField := &fakeElement{}
	resumeField := &fakeElement{}
	nameField := &fakeElement{}
	applyButton := &fakeElement{onClick: browser.advance}
	browser.css["#email"] = emailField
	browser.css["#resume"] = resumeField
	browser.css["#full-name"] = nameField
	browser.css["#apply-btn"] = applyButton

	profile := testProfile()
	profile.ResumePath = "/tmp/resume.pdf"

	navigator := newTestNavigator(browser, testNavigatorConfig(5))
	result, err := navigator.Apply(context.Background(), testJobURL, profile)

	assert.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assert.Equal(t, 2, result.Iterations)
	assert.Equal(t, []string{testJobURL}, browser.navigated)
	assert.GreaterOrEqual(t, applyButton.clicks+applyButton.scriptClicks, 1)
	assert.Equal(t, "john@example.com", emailField.typed.String())
	assert.Equal(t, []string{"/tmp/resume.pdf"}, resumeField.files)
	assert.True(t, browser.closed)
	assert.NotEmpty(t, result.History)
	assert.Equal(t, len(result.History), result.NavigationSteps)
}

func TestNavigatorStopsAtIterationCap(t *testing.T) {
	browser := newFakeBrowser(unknownPage)

	navigator := newTestNavigator(browser, testNavigatorConfig(4))
	result, err := navigator.Apply(context.Background(), testJobURL, testProfile())

	assert.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, OutcomeFailure, result.Outcome)
	assert.Equal(t, "max iterations exceeded", result.Message)
	assert.Equal(t, 4, result.Iterations)
	assert.True(t, browser.closed)
}

func TestNavigatorRecordsFallbackAttempts(t *testing.T) {
	// No recommended actions on an unknown page: every iteration tries
	// the generic apply selectors and records each failure.
	browser := newFakeBrowser(unknownPage)

	navigator := newTestNavigator(browser, testNavigatorConfig(2))
	result, _ := navigator.Apply(context.Background(), testJobURL, testProfile())

	assert.Equal(t, 2*len(fallbackApplySelectors), len(result.History))
	for _, outcome := range result.History {
		assert.False(t, outcome.Succeeded)
		assert.Equal(t, ActionClick, outcome.Action.Type)
	}
}

func TestNavigatorGenericFallbackCanRescue(t *testing.T) {
	browser := newFakeBrowser(unknownPage, successPage)
	browser.css["button[type='submit']"] = &fakeElement{onClick: browser.advance}

	navigator := newTestNavigator(browser, testNavigatorConfig(5))
	result, err := navigator.Apply(context.Background(), testJobURL, testProfile())

	assert.NoError(t, err)
	assert.True(t, result.Success)
}

func TestNavigatorCaptchaMitigationIsNotTerminal(t *testing.T) {
	captchaPage := `<html><body><p>Please verify you are human. reCAPTCHA challenge.</p></body></html>`
	browser := newFakeBrowser(captchaPage)

	navigator := newTestNavigator(browser, testNavigatorConfig(3))
	result, err := navigator.Apply(context.Background(), testJobURL, testProfile())

	assert.NoError(t, err)
	// The mitigation always reports success, so the loop keeps going
	// until the iteration cap, never into obstacle_blocked.
	assert.Equal(t, OutcomeFailure, result.Outcome)
	assert.Equal(t, 3, result.Iterations)
	assert.Contains(t, result.Obstacles, ObstacleCaptcha)
	assert.Empty(t, result.History)
}

func TestNavigatorBotMitigationRotatesIdentity(t *testing.T) {
	blockedPage := `<html><body><p>Access denied. Suspicious activity detected.</p></body></html>`
	browser := newFakeBrowser(blockedPage)

	navigator := newTestNavigator(browser, testNavigatorConfig(2))
	result, _ := navigator.Apply(context.Background(), testJobURL, testProfile())

	assert.Equal(t, OutcomeFailure, result.Outcome)
	assert.Contains(t, result.Obstacles, ObstacleBotDetection)
	assert.NotEmpty(t, browser.userAgents)
	assert.Greater(t, browser.mouseMoves, 0)
}

func TestNavigatorLoginBlocksWithoutCredentials(t *testing.T) {
	loginPage := `<html><body><p>Please sign in to view this job.</p></body></html>`
	browser := newFakeBrowser(loginPage)

	navigator := newTestNavigator(browser, testNavigatorConfig(5))
	result, err := navigator.Apply(context.Background(), testJobURL, testProfile())

	assert.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, OutcomeObstacleBlocked, result.Outcome)
	assert.Contains(t, result.Message, string(ObstacleLoginRequired))
	assert.Equal(t, 1, result.Iterations)
	// Login gating happens before any form interaction.
	assert.Empty(t, result.History)
}

func TestNavigatorLoginMitigationWithCredentials(t *testing.T) {
	loginPage := `<html><body><p>Please sign in to view this job.</p></body></html>`
	browser := newFakeBrowser(loginPage, successPage)

	userField := &fakeElement{}
	passwordField := &fakeElement{}
	submitButton := &fakeElement{onClick: browser.advance}
	browser.css["input[type='email'], input[name*='email'], input[name*='user'], input[id*='email']"] = userField
	browser.css["input[type='password']"] = passwordField
	browser.css["button[type='submit'], input[type='submit']"] = submitButton

	config := testNavigatorConfig(5)
	config.Credentials = SiteCredentials{Email: "bot@example.com", Password: "hunter2"}

	navigator := newTestNavigator(browser, config)
	result, err := navigator.Apply(context.Background(), testJobURL, testProfile())

	assert.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"bot@example.com"}, userField.setValues)
	assert.Equal(t, []string{"hunter2"}, passwordField.setValues)
	assert.Contains(t, result.Obstacles, ObstacleLoginRequired)
}

func TestNavigatorRetriesFatalErrors(t *testing.T) {
	attempts := 0
	factory := func() (Browser, error) {
		attempts++
		return nil, fmt.Errorf("browser launch failed")
	}

	config := testNavigatorConfig(5)
	config.MaxAttemptRetries = 3
	navigator := NewNavigator(factory, NewActionRecommender(nil, nil), nil, nil, config)

	result, err := navigator.Apply(context.Background(), testJobURL, testProfile())

	assert.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.False(t, result.Success)
	assert.Equal(t, OutcomeFailure, result.Outcome)
}

func TestNavigatorStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	browser := newFakeBrowser(unknownPage)
	navigator := newTestNavigator(browser, testNavigatorConfig(10))
	result, err := navigator.Apply(ctx, testJobURL, testProfile())

	assert.NoError(t, err)
	assert.Equal(t, OutcomeFailure, result.Outcome)
	assert.Equal(t, "attempt cancelled", result.Message)
	assert.Equal(t, 0, result.Iterations)
}

func TestNavigatorSavesAndRestoresCookies(t *testing.T) {
	store := NewCookieStore(t.TempDir())
	saved := []Cookie{{Name: "session", Value: "abc", Domain: "jobs.example.com"}}
	assert.NoError(t, store.Save(testJobURL, saved))

	browser := newFakeBrowser(applicationFormPage, successPage)
	browser.css["#apply-btn"] = &fakeElement{onClick: browser.advance}
	browser.css["#email"] = &fakeElement{}
	browser.css["#full-name"] = &fakeElement{}
	browser.css["#resume"] = &fakeElement{}

	factory := func() (Browser, error) { return browser, nil }
	navigator := NewNavigator(factory, NewActionRecommender(nil, nil), store, nil, testNavigatorConfig(5))
	navigator.disablePacing = true

	profile := testProfile()
	profile.ResumePath = "/tmp/resume.pdf"
	result, err := navigator.Apply(context.Background(), testJobURL, profile)

	assert.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, saved, browser.cookies)
	// Restored before the first page load, not after: an authenticated
	// session has to count for the initial request.
	assert.Equal(t, saved, browser.cookiesAtNavigate)
}

func TestNavigatorRecordsPatterns(t *testing.T) {
	patterns := NewPatternStore(t.TempDir())
	browser := newFakeBrowser(successPage)

	factory := func() (Browser, error) { return browser, nil }
	navigator := NewNavigator(factory, NewActionRecommender(nil, nil), nil, patterns, testNavigatorConfig(5))
	navigator.disablePacing = true

	result, err := navigator.Apply(context.Background(), testJobURL, testProfile())

	assert.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, patterns.Count(testJobURL))
}

func TestSessionOutcomeWrittenOnce(t *testing.T) {
	state := newSessionState(testJobURL)
	assert.Equal(t, OutcomeInProgress, state.Outcome)

	state.finish(OutcomeSuccess)
	state.finish(OutcomeFailure)
	assert.Equal(t, OutcomeSuccess, state.Outcome)
	assert.False(t, state.FinishedAt.IsZero())
}

func TestRunStatsRecord(t *testing.T) {
	stats := RunStats{}
	stats.Record(&AttemptResult{Outcome: OutcomeSuccess})
	stats.Record(&AttemptResult{Outcome: OutcomeFailure})
	stats.Record(&AttemptResult{Outcome: OutcomeObstacleBlocked})
	stats.Record(&AttemptResult{Outcome: OutcomeSuccess})

	assert.Equal(t, RunStats{Submitted: 2, Failed: 1, Blocked: 1}, stats)
}
