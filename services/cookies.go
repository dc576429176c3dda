package services

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// CookieStore persists browser cookies per site as JSON files, so a later
// attempt against the same domain can resume an authenticated session.
type CookieStore struct {
	dir string
	mu  sync.Mutex
}

func NewCookieStore(dir string) *CookieStore {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "autoapply-cookies")
	}
	return &CookieStore{dir: dir}
}

// Save writes the cookie set for the domain of rawURL, replacing any
// previous set.
func (s *CookieStore) Save(rawURL string, cookies []Cookie) error {
	domain, err := cookieDomain(rawURL)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("could not create cookie directory: %v", err)
	}
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode cookies: %v", err)
	}
	if err := os.WriteFile(s.path(domain), data, 0644); err != nil {
		return fmt.Errorf("could not write cookie file: %v", err)
	}
	return nil
}

// Load returns the stored cookie set for the domain of rawURL. A missing
// file is not an error; it returns an empty set.
func (s *CookieStore) Load(rawURL string) ([]Cookie, error) {
	domain, err := cookieDomain(rawURL)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(domain))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read cookie file: %v", err)
	}
	var cookies []Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("could not decode cookie file: %v", err)
	}
	return cookies, nil
}

func (s *CookieStore) path(domain string) string {
	return filepath.Join(s.dir, domain+".json")
}

func cookieDomain(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return "", fmt.Errorf("invalid URL %q", rawURL)
	}
	domain := strings.TrimPrefix(parsed.Hostname(), "www.")
	return strings.ToLower(domain), nil
}
