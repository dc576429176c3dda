package services

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// SessionOutcome is the terminal state of one application attempt.
type SessionOutcome string

const (
	OutcomeInProgress      SessionOutcome = "in_progress"
	OutcomeSuccess         SessionOutcome = "success"
	OutcomeFailure         SessionOutcome = "failure"
	OutcomeObstacleBlocked SessionOutcome = "obstacle_blocked"
)

// SessionState tracks one attempt: the iteration counter is monotonically
// increasing and bounded, the history is append-only, and the outcome is
// written exactly once.
type SessionState struct {
	SessionID  string          `json:"session_id"`
	JobURL     string          `json:"job_url"`
	Iteration  int             `json:"iteration"`
	History    []ActionOutcome `json:"navigation_history"`
	Obstacles  []Obstacle      `json:"obstacles_encountered"`
	Outcome    SessionOutcome  `json:"outcome"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at,omitempty"`
}

func newSessionState(jobURL string) *SessionState {
	return &SessionState{
		SessionID: uuid.NewString()[:8],
		JobURL:    jobURL,
		Outcome:   OutcomeInProgress,
		StartedAt: time.Now(),
	}
}

func (s *SessionState) finish(outcome SessionOutcome) {
	if s.Outcome != OutcomeInProgress {
		return
	}
	s.Outcome = outcome
	s.FinishedAt = time.Now()
}

func (s *SessionState) recordObstacle(obstacle Obstacle) {
	for _, seen := range s.Obstacles {
		if seen == obstacle {
			return
		}
	}
	s.Obstacles = append(s.Obstacles, obstacle)
}

// AttemptResult is the record handed back to the caller when an attempt
// concludes. Partial progress is always included, even on failure.
type AttemptResult struct {
	Success         bool            `json:"success"`
	Outcome         SessionOutcome  `json:"outcome"`
	Message         string          `json:"message"`
	SessionID       string          `json:"session_id"`
	Iterations      int             `json:"iterations"`
	NavigationSteps int             `json:"navigation_steps"`
	History         []ActionOutcome `json:"navigation_pattern"`
	Obstacles       []Obstacle      `json:"obstacles"`
}

// RunStats aggregates outcomes across attempts. Passed through
// explicitly; there is no process-wide counter state.
type RunStats struct {
	Submitted int `json:"submitted"`
	Failed    int `json:"failed"`
	Blocked   int `json:"blocked"`
}

func (s *RunStats) Record(result *AttemptResult) {
	switch result.Outcome {
	case OutcomeSuccess:
		s.Submitted++
	case OutcomeObstacleBlocked:
		s.Blocked++
	default:
		s.Failed++
	}
}

// SiteCredentials are out-of-band login credentials. Login mitigation
// fails closed when they are absent; the loop never guesses.
type SiteCredentials struct {
	Email    string
	Password string
}

// NavigatorConfig tunes the navigation loop.
type NavigatorConfig struct {
	MaxIterations     int
	MaxAttemptRetries int
	ResumeDir         string
	CookieDir         string
	Credentials       SiteCredentials

	// Delay bounds in milliseconds. Zero disables the delay, which tests
	// rely on.
	IterationDelayMinMs int
	IterationDelayMaxMs int
	BotMitigationWaitMs int
	CaptchaWaitMs       int
}

func DefaultNavigatorConfig() NavigatorConfig {
	return NavigatorConfig{
		MaxIterations:       15,
		MaxAttemptRetries:   3,
		IterationDelayMinMs: 1000,
		IterationDelayMaxMs: 3000,
		BotMitigationWaitMs: 5000,
		CaptchaWaitMs:       30000,
	}
}

var rotatingUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// Generic apply-button guesses tried when a full recommended step
// sequence fails.
var fallbackApplySelectors = []string{
	".apply-button",
	"#apply-btn",
	"[data-testid*='apply']",
	".job-apply-button",
	"button[type='submit']",
}

// BrowserFactory opens a fresh browser session. Each attempt retry gets
// its own session with no carried-over state.
type BrowserFactory func() (Browser, error)

// Navigator drives repeated extract-classify-recommend-execute cycles for
// one job URL until a terminal outcome.
type Navigator struct {
	newBrowser  BrowserFactory
	classifier  *PageClassifier
	recommender *ActionRecommender
	cookies     *CookieStore
	patterns    *PatternStore
	config      NavigatorConfig
	rng         *rand.Rand

	// disablePacing turns off keystroke jitter in the executors this
	// navigator creates. Tests use it to run without wall-clock delays.
	disablePacing bool
}

func NewNavigator(newBrowser BrowserFactory, recommender *ActionRecommender, cookies *CookieStore, patterns *PatternStore, config NavigatorConfig) *Navigator {
	if config.MaxIterations <= 0 {
		config.MaxIterations = DefaultNavigatorConfig().MaxIterations
	}
	if config.MaxAttemptRetries <= 0 {
		config.MaxAttemptRetries = 1
	}
	return &Navigator{
		newBrowser:  newBrowser,
		classifier:  NewPageClassifier(),
		recommender: recommender,
		cookies:     cookies,
		patterns:    patterns,
		config:      config,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Apply runs the full attempt-with-retries policy for one job URL. Fatal
// errors escaping an attempt trigger a retry with a fresh browser session;
// normal failures (max iterations, blocked obstacles) do not.
func (n *Navigator) Apply(ctx context.Context, jobURL string, profile *ApplicantProfile) (*AttemptResult, error) {
	var lastErr error
	for attempt := 1; attempt <= n.config.MaxAttemptRetries; attempt++ {
		result, err := n.runAttempt(ctx, jobURL, profile)
		if err == nil {
			return result, nil
		}
		lastErr = err
		log.Printf("Attempt %d/%d for %s failed with fatal error: %v",
			attempt, n.config.MaxAttemptRetries, jobURL, err)
		if ctx.Err() != nil {
			break
		}
	}
	return &AttemptResult{
		Success: false,
		Outcome: OutcomeFailure,
		Message: fmt.Sprintf("all attempts failed: %v", lastErr),
	}, lastErr
}

// runAttempt executes one pass of the state machine. The browser handle is
// released on every exit path.
func (n *Navigator) runAttempt(ctx context.Context, jobURL string, profile *ApplicantProfile) (result *AttemptResult, err error) {
	browser, err := n.newBrowser()
	if err != nil {
		return nil, fmt.Errorf("browser initialization failed: %v", err)
	}
	defer browser.Close()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("attempt panicked: %v", r)
		}
	}()

	state := newSessionState(jobURL)
	executor := NewActionExecutor(browser, profile, n.config.ResumeDir)
	if n.disablePacing {
		executor.humanPacing = false
	}
	log.Printf("Starting application attempt %s for %s", state.SessionID, jobURL)

	// Stored session cookies must be in place before the first load so an
	// already-authenticated site skips its login wall.
	n.restoreCookies(browser, jobURL)
	if err := browser.Navigate(jobURL); err != nil {
		return nil, fmt.Errorf("could not load job page: %v", err)
	}

	for state.Iteration < n.config.MaxIterations {
		if ctx.Err() != nil {
			state.finish(OutcomeFailure)
			return n.resultFromState(state, "attempt cancelled"), nil
		}
		state.Iteration++
		log.Printf("[%s] Navigation iteration %d/%d", state.SessionID, state.Iteration, n.config.MaxIterations)

		markup, err := browser.PageSource()
		if err != nil {
			log.Printf("[%s] Could not read page source: %v", state.SessionID, err)
			continue
		}

		analysis := n.classifier.Classify(markup)
		log.Printf("[%s] Page classified as %s (confidence %.0f)", state.SessionID, analysis.PageType, analysis.Confidence)

		if analysis.PageType == PageSuccess {
			state.finish(OutcomeSuccess)
			n.recordPattern(jobURL, state, true)
			return n.resultFromState(state, "application submitted"), nil
		}
		if analysis.PageType == PageError {
			state.finish(OutcomeFailure)
			n.recordPattern(jobURL, state, false)
			return n.resultFromState(state, fmt.Sprintf("error page encountered: %v", analysis.Obstacles)), nil
		}

		// Obstacles gate action execution for this cycle. A mitigation
		// that cannot clear the obstacle ends the attempt.
		if blocked, obstacle := n.handleObstacles(browser, profile, analysis, state); blocked {
			state.finish(OutcomeObstacleBlocked)
			n.recordPattern(jobURL, state, false)
			return n.resultFromState(state, fmt.Sprintf("blocked by obstacle: %s", obstacle)), nil
		} else if obstacle != "" {
			// Mitigated; re-evaluate the page before acting.
			continue
		}

		actions := n.recommender.Recommend(analysis, profile, markup, state.Iteration, state.History)
		if len(actions) == 0 {
			log.Printf("[%s] No actions recommended, trying generic fallbacks", state.SessionID)
			n.tryFallbackActions(executor, state)
			n.iterationDelay()
			continue
		}

		succeeded := 0
		for _, action := range actions {
			outcome := executor.Execute(action)
			state.History = append(state.History, outcome)
			if outcome.Succeeded {
				succeeded++
			}
		}
		if succeeded == 0 {
			log.Printf("[%s] All %d recommended steps failed, trying generic fallbacks", state.SessionID, len(actions))
			n.tryFallbackActions(executor, state)
		}

		n.saveCookies(browser, jobURL)
		n.iterationDelay()
	}

	state.finish(OutcomeFailure)
	n.recordPattern(jobURL, state, false)
	return n.resultFromState(state, "max iterations exceeded"), nil
}

// handleObstacles runs the mitigation matching the highest-priority
// detected obstacle. It returns (true, obstacle) when the attempt must
// stop, (false, obstacle) when a mitigation ran and the loop should
// re-evaluate, and (false, "") when nothing needed handling.
func (n *Navigator) handleObstacles(browser Browser, profile *ApplicantProfile, analysis *PageAnalysis, state *SessionState) (bool, Obstacle) {
	switch {
	case analysis.HasObstacle(ObstacleBotDetection):
		state.recordObstacle(ObstacleBotDetection)
		n.mitigateBotDetection(browser, state)
		return false, ObstacleBotDetection
	case analysis.HasObstacle(ObstacleCaptcha):
		state.recordObstacle(ObstacleCaptcha)
		n.mitigateCaptcha(state)
		return false, ObstacleCaptcha
	case analysis.HasObstacle(ObstacleLoginRequired):
		state.recordObstacle(ObstacleLoginRequired)
		if !n.mitigateLogin(browser, state) {
			return true, ObstacleLoginRequired
		}
		return false, ObstacleLoginRequired
	default:
		return false, ""
	}
}

// mitigateBotDetection rotates the client identity and produces pointer
// noise. Best effort; it never blocks the attempt by itself.
func (n *Navigator) mitigateBotDetection(browser Browser, state *SessionState) {
	log.Printf("[%s] Bot detection suspected, rotating identity", state.SessionID)

	userAgent := rotatingUserAgents[n.rng.Intn(len(rotatingUserAgents))]
	if err := browser.SetUserAgent(userAgent); err != nil {
		log.Printf("[%s] Could not rotate user agent: %v", state.SessionID, err)
	}

	for i := 0; i < 5; i++ {
		x := float64(100 + n.rng.Intn(700))
		y := float64(100 + n.rng.Intn(500))
		if err := browser.MoveMouse(x, y); err != nil {
			break
		}
	}

	n.sleepMs(n.config.BotMitigationWaitMs)
}

// mitigateCaptcha waits out the challenge. There is no solving capability;
// this is a documented weak spot, not a real counter.
func (n *Navigator) mitigateCaptcha(state *SessionState) {
	log.Printf("[%s] CAPTCHA detected, waiting it out", state.SessionID)
	n.sleepMs(n.config.CaptchaWaitMs)
}

// mitigateLogin submits configured credentials. Without credentials it
// fails closed.
func (n *Navigator) mitigateLogin(browser Browser, state *SessionState) bool {
	creds := n.config.Credentials
	if creds.Email == "" || creds.Password == "" {
		log.Printf("[%s] Login required but no credentials configured", state.SessionID)
		return false
	}

	log.Printf("[%s] Login required, submitting configured credentials", state.SessionID)
	userField, err := browser.FindCSS("input[type='email'], input[name*='email'], input[name*='user'], input[id*='email']")
	if err != nil {
		return false
	}
	passwordField, err := browser.FindCSS("input[type='password']")
	if err != nil {
		return false
	}
	if err := userField.SetValue(creds.Email); err != nil {
		return false
	}
	if err := passwordField.SetValue(creds.Password); err != nil {
		return false
	}

	submit, err := browser.FindCSS("button[type='submit'], input[type='submit']")
	if err != nil {
		return false
	}
	if err := submit.Click(); err != nil {
		if err := submit.ClickViaScript(); err != nil {
			return false
		}
	}
	return true
}

func (n *Navigator) tryFallbackActions(executor *ActionExecutor, state *SessionState) {
	for _, selector := range fallbackApplySelectors {
		outcome := executor.Execute(NavigationAction{
			Type:        ActionClick,
			Selector:    selector,
			Description: "Generic apply-button fallback",
			Confidence:  30,
		})
		state.History = append(state.History, outcome)
		if outcome.Succeeded {
			return
		}
	}
}

func (n *Navigator) restoreCookies(browser Browser, jobURL string) {
	if n.cookies == nil {
		return
	}
	cookies, err := n.cookies.Load(jobURL)
	if err != nil {
		log.Printf("Could not load cookies for %s: %v", jobURL, err)
		return
	}
	if len(cookies) == 0 {
		return
	}
	if err := browser.SetCookies(cookies); err != nil {
		log.Printf("Could not restore cookies for %s: %v", jobURL, err)
	}
}

func (n *Navigator) saveCookies(browser Browser, jobURL string) {
	if n.cookies == nil {
		return
	}
	cookies, err := browser.Cookies()
	if err != nil {
		return
	}
	if err := n.cookies.Save(jobURL, cookies); err != nil {
		log.Printf("Could not save cookies for %s: %v", jobURL, err)
	}
}

func (n *Navigator) recordPattern(jobURL string, state *SessionState, success bool) {
	if n.patterns == nil {
		return
	}
	n.patterns.Record(jobURL, state, success)
}

func (n *Navigator) resultFromState(state *SessionState, message string) *AttemptResult {
	return &AttemptResult{
		Success:         state.Outcome == OutcomeSuccess,
		Outcome:         state.Outcome,
		Message:         message,
		SessionID:       state.SessionID,
		Iterations:      state.Iteration,
		NavigationSteps: len(state.History),
		History:         state.History,
		Obstacles:       state.Obstacles,
	}
}

func (n *Navigator) iterationDelay() {
	if n.config.IterationDelayMaxMs <= 0 {
		return
	}
	min := n.config.IterationDelayMinMs
	span := n.config.IterationDelayMaxMs - min
	if span <= 0 {
		n.sleepMs(min)
		return
	}
	n.sleepMs(min + n.rng.Intn(span))
}

func (n *Navigator) sleepMs(ms int) {
	if ms <= 0 {
		return
	}
	time.Sleep(time.Duration(ms) * time.Millisecond)
}
