package services

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// NavigationPattern is one recorded attempt fingerprint: which action
// sequence was taken on a site and whether it led to a submission.
type NavigationPattern struct {
	SessionID  string     `json:"session_id"`
	Success    bool       `json:"success"`
	Iterations int        `json:"iterations"`
	Steps      []string   `json:"steps"`
	Obstacles  []Obstacle `json:"obstacles,omitempty"`
	RecordedAt time.Time  `json:"recorded_at"`
}

// PatternStore accumulates per-domain navigation fingerprints. Patterns
// are recorded for later offline analysis; nothing reads them back to
// influence a live attempt.
type PatternStore struct {
	dir string

	mu       sync.Mutex
	byDomain map[string][]NavigationPattern
}

func NewPatternStore(dir string) *PatternStore {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "autoapply-patterns")
	}
	return &PatternStore{
		dir:      dir,
		byDomain: make(map[string][]NavigationPattern),
	}
}

// Record appends the attempt's fingerprint for the job URL's domain and
// flushes the domain file. Recording failures are logged, never returned;
// telemetry must not affect attempt outcomes.
func (s *PatternStore) Record(jobURL string, state *SessionState, success bool) {
	domain, err := cookieDomain(jobURL)
	if err != nil {
		log.Printf("Could not record pattern for %s: %v", jobURL, err)
		return
	}

	steps := make([]string, 0, len(state.History))
	for _, outcome := range state.History {
		status := "ok"
		if !outcome.Succeeded {
			status = "failed"
		}
		steps = append(steps, fmt.Sprintf("%s %s [%s]", outcome.Action.Type, outcome.Action.Selector, status))
	}

	pattern := NavigationPattern{
		SessionID:  state.SessionID,
		Success:    success,
		Iterations: state.Iteration,
		Steps:      steps,
		Obstacles:  state.Obstacles,
		RecordedAt: time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byDomain[domain] = append(s.byDomain[domain], pattern)
	if err := s.flushLocked(domain); err != nil {
		log.Printf("Could not persist patterns for %s: %v", domain, err)
	}
}

// Count reports how many patterns are recorded for the domain of rawURL.
func (s *PatternStore) Count(rawURL string) int {
	domain, err := cookieDomain(rawURL)
	if err != nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byDomain[domain])
}

func (s *PatternStore) flushLocked(domain string) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.byDomain[domain], "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, domain+".json"), data, 0644)
}
