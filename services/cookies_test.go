package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCookieStoreRoundTrip(t *testing.T) {
	store := NewCookieStore(t.TempDir())
	cookies := []Cookie{
		{Name: "session", Value: "abc123", Domain: ".example.com", Path: "/", Secure: true},
		{Name: "seen", Value: "1", Domain: "example.com", HTTPOnly: true},
	}

	assert.NoError(t, store.Save("https://example.com/jobs/1", cookies))

	loaded, err := store.Load("https://example.com/jobs/2")
	assert.NoError(t, err)
	assert.Equal(t, cookies, loaded)
}

func TestCookieStoreKeyedByDomainNotURL(t *testing.T) {
	store := NewCookieStore(t.TempDir())
	cookies := []Cookie{{Name: "a", Value: "1"}}

	assert.NoError(t, store.Save("https://www.acme.com/careers/apply", cookies))

	// www is stripped, path ignored.
	loaded, err := store.Load("https://acme.com/other/path")
	assert.NoError(t, err)
	assert.Equal(t, cookies, loaded)

	other, err := store.Load("https://different.com/")
	assert.NoError(t, err)
	assert.Empty(t, other)
}

func TestCookieStoreInvalidURL(t *testing.T) {
	store := NewCookieStore(t.TempDir())
	_, err := store.Load("not a url")
	assert.Error(t, err)
	assert.Error(t, store.Save("", nil))
}

func TestCookieStoreOverwrites(t *testing.T) {
	store := NewCookieStore(t.TempDir())
	assert.NoError(t, store.Save("https://example.com", []Cookie{{Name: "old", Value: "1"}}))
	assert.NoError(t, store.Save("https://example.com", []Cookie{{Name: "new", Value: "2"}}))

	loaded, err := store.Load("https://example.com")
	assert.NoError(t, err)
	assert.Len(t, loaded, 1)
	assert.Equal(t, "new", loaded[0].Name)
}

func TestPatternStorePersistsPerDomain(t *testing.T) {
	dir := t.TempDir()
	store := NewPatternStore(dir)

	state := newSessionState("https://example.com/jobs/1")
	state.Iteration = 3
	state.History = append(state.History, ActionOutcome{
		Action:    NavigationAction{Type: ActionClick, Selector: "#apply"},
		Succeeded: true,
	})
	state.recordObstacle(ObstacleCaptcha)

	store.Record("https://example.com/jobs/1", state, true)
	store.Record("https://example.com/jobs/2", newSessionState("https://example.com/jobs/2"), false)
	store.Record("https://other.com/x", newSessionState("https://other.com/x"), false)

	assert.Equal(t, 2, store.Count("https://example.com/anything"))
	assert.Equal(t, 1, store.Count("https://other.com/"))
	assert.Equal(t, 0, store.Count("https://nothing.com/"))

	data, err := os.ReadFile(filepath.Join(dir, "example.com.json"))
	assert.NoError(t, err)
	assert.Contains(t, string(data), "#apply")
	assert.Contains(t, string(data), "captcha")
}

func TestSessionStateObstaclesDeduplicated(t *testing.T) {
	state := newSessionState("https://example.com")
	state.recordObstacle(ObstacleCaptcha)
	state.recordObstacle(ObstacleCaptcha)
	state.recordObstacle(ObstacleLoginRequired)

	assert.Equal(t, []Obstacle{ObstacleCaptcha, ObstacleLoginRequired}, state.Obstacles)
}
