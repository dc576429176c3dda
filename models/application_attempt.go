package models

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"strings"
	"time"
)

type ApplicationAttempt struct {
	ID              int       `json:"id"`
	AttemptCode     string    `json:"attempt_code"` // 8-character unique code
	UserID          int       `json:"user_id"`
	JobURL          string    `json:"job_url"`
	CompanyName     string    `json:"company_name"`
	Outcome         string    `json:"outcome"`
	Message         string    `json:"message"`
	Iterations      int       `json:"iterations"`
	NavigationSteps int       `json:"navigation_steps"`
	NavigationLog   string    `json:"navigation_log,omitempty"`
	Obstacles       string    `json:"obstacles,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type ApplicationAttemptModel struct {
	DB *sql.DB
}

func NewApplicationAttemptModel(db *sql.DB) *ApplicationAttemptModel {
	return &ApplicationAttemptModel{DB: db}
}

// generateAttemptCode generates a unique 8-character alphanumeric code
func generateAttemptCode() string {
	bytes := make([]byte, 4) // 4 bytes = 8 hex characters
	rand.Read(bytes)
	return strings.ToUpper(hex.EncodeToString(bytes))
}

func (m *ApplicationAttemptModel) Create(userID int, jobURL, companyName string) (*ApplicationAttempt, error) {
	attempt := &ApplicationAttempt{}

	attemptCode := generateAttemptCode()
	for {
		var exists bool
		err := m.DB.QueryRow("SELECT EXISTS(SELECT 1 FROM application_attempts WHERE attempt_code = $1)", attemptCode).Scan(&exists)
		if err != nil || !exists {
			break
		}
		attemptCode = generateAttemptCode()
	}

	query := `
		INSERT INTO application_attempts (attempt_code, user_id, job_url, company_name, outcome, started_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'in_progress', $5, $5, $5)
		RETURNING id, attempt_code, user_id, job_url, company_name, outcome, started_at, created_at, updated_at
	`
	err := m.DB.QueryRow(query, attemptCode, userID, jobURL, companyName, time.Now()).Scan(
		&attempt.ID, &attempt.AttemptCode, &attempt.UserID, &attempt.JobURL,
		&attempt.CompanyName, &attempt.Outcome, &attempt.StartedAt, &attempt.CreatedAt, &attempt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return attempt, nil
}

// RecordOutcome writes the terminal result of a finished attempt.
func (m *ApplicationAttemptModel) RecordOutcome(id int, outcome, message string, iterations, steps int, navigationLog, obstacles string) error {
	query := `
		UPDATE application_attempts
		SET outcome = $1, message = $2, iterations = $3, navigation_steps = $4,
		    navigation_log = $5, obstacles = $6, updated_at = $7
		WHERE id = $8
	`
	_, err := m.DB.Exec(query, outcome, message, iterations, steps, navigationLog, obstacles, time.Now(), id)
	return err
}

func (m *ApplicationAttemptModel) GetByUserID(userID int, limit, offset int) ([]ApplicationAttempt, error) {
	attempts := []ApplicationAttempt{}
	query := `
		SELECT id, attempt_code, user_id, job_url, company_name, outcome, message,
		       iterations, navigation_steps, navigation_log, obstacles, started_at, created_at, updated_at
		FROM application_attempts
		WHERE user_id = $1
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := m.DB.Query(query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *attempt)
	}
	return attempts, nil
}

func (m *ApplicationAttemptModel) GetByAttemptCode(attemptCode string) (*ApplicationAttempt, error) {
	query := `
		SELECT id, attempt_code, user_id, job_url, company_name, outcome, message,
		       iterations, navigation_steps, navigation_log, obstacles, started_at, created_at, updated_at
		FROM application_attempts WHERE attempt_code = $1
	`
	row := m.DB.QueryRow(query, attemptCode)
	return scanAttempt(row)
}

func (m *ApplicationAttemptModel) Delete(id int) error {
	query := `DELETE FROM application_attempts WHERE id = $1`
	_, err := m.DB.Exec(query, id)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAttempt(row rowScanner) (*ApplicationAttempt, error) {
	attempt := &ApplicationAttempt{}
	var message, navigationLog, obstacles sql.NullString
	err := row.Scan(
		&attempt.ID, &attempt.AttemptCode, &attempt.UserID, &attempt.JobURL,
		&attempt.CompanyName, &attempt.Outcome, &message,
		&attempt.Iterations, &attempt.NavigationSteps, &navigationLog, &obstacles,
		&attempt.StartedAt, &attempt.CreatedAt, &attempt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	attempt.Message = message.String
	attempt.NavigationLog = navigationLog.String
	attempt.Obstacles = obstacles.String
	return attempt, nil
}
