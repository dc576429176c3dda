package models

import (
	"database/sql"
	"time"
)

// ApplicantProfileRecord is the stored answer set used to fill
// application forms on behalf of a user.
type ApplicantProfileRecord struct {
	ID              int       `json:"id"`
	UserID          int       `json:"user_id"`
	FullName        string    `json:"full_name"`
	Email           string    `json:"email"`
	PhoneNumber     string    `json:"phone_number"`
	Country         string    `json:"country"`
	City            string    `json:"city"`
	State           string    `json:"state"`
	ZipCode         string    `json:"zip_code"`
	Address         string    `json:"address"`
	LinkedInURL     string    `json:"linkedin_url"`
	PortfolioURL    string    `json:"portfolio_url"`
	CoverLetter     string    `json:"cover_letter"`
	Summary         string    `json:"summary"`
	Skills          string    `json:"skills"` // comma separated
	YearsExperience int       `json:"years_of_experience"`
	ExpectedSalary  string    `json:"expected_salary"`
	ResumeS3Path    string    `json:"resume_s3_path"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type ApplicantProfileModel struct {
	DB *sql.DB
}

func NewApplicantProfileModel(db *sql.DB) *ApplicantProfileModel {
	return &ApplicantProfileModel{DB: db}
}

func (m *ApplicantProfileModel) GetByUserID(userID int) (*ApplicantProfileRecord, error) {
	profile := &ApplicantProfileRecord{}
	query := `
		SELECT id, user_id,
		       COALESCE(full_name, '') as full_name,
		       COALESCE(email, '') as email,
		       COALESCE(phone_number, '') as phone_number,
		       COALESCE(country, 'United States') as country,
		       COALESCE(city, '') as city,
		       COALESCE(state, '') as state,
		       COALESCE(zip_code, '') as zip_code,
		       COALESCE(address, '') as address,
		       COALESCE(linkedin_url, '') as linkedin_url,
		       COALESCE(portfolio_url, '') as portfolio_url,
		       COALESCE(cover_letter, '') as cover_letter,
		       COALESCE(summary, '') as summary,
		       COALESCE(skills, '') as skills,
		       COALESCE(years_of_experience, 0) as years_of_experience,
		       COALESCE(expected_salary, '') as expected_salary,
		       COALESCE(resume_s3_path, '') as resume_s3_path,
		       created_at, updated_at
		FROM applicant_profiles WHERE user_id = $1
	`
	err := m.DB.QueryRow(query, userID).Scan(
		&profile.ID, &profile.UserID,
		&profile.FullName, &profile.Email, &profile.PhoneNumber,
		&profile.Country, &profile.City, &profile.State, &profile.ZipCode, &profile.Address,
		&profile.LinkedInURL, &profile.PortfolioURL,
		&profile.CoverLetter, &profile.Summary, &profile.Skills,
		&profile.YearsExperience, &profile.ExpectedSalary, &profile.ResumeS3Path,
		&profile.CreatedAt, &profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (m *ApplicantProfileModel) CreateOrUpdate(userID int, profile *ApplicantProfileRecord) error {
	var existingID int
	err := m.DB.QueryRow("SELECT id FROM applicant_profiles WHERE user_id = $1", userID).Scan(&existingID)

	if err == sql.ErrNoRows {
		if profile.Country == "" {
			profile.Country = "United States"
		}
		query := `
			INSERT INTO applicant_profiles (
				user_id, full_name, email, phone_number, country, city, state, zip_code, address,
				linkedin_url, portfolio_url, cover_letter, summary, skills,
				years_of_experience, expected_salary, resume_s3_path, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW(), NOW())
		`
		_, err = m.DB.Exec(query, userID, profile.FullName, profile.Email, profile.PhoneNumber,
			profile.Country, profile.City, profile.State, profile.ZipCode, profile.Address,
			profile.LinkedInURL, profile.PortfolioURL, profile.CoverLetter, profile.Summary,
			profile.Skills, profile.YearsExperience, profile.ExpectedSalary, profile.ResumeS3Path)
		return err
	}
	if err != nil {
		return err
	}

	query := `
		UPDATE applicant_profiles SET
			full_name = $2, email = $3, phone_number = $4, country = $5, city = $6,
			state = $7, zip_code = $8, address = $9, linkedin_url = $10, portfolio_url = $11,
			cover_letter = $12, summary = $13, skills = $14, years_of_experience = $15,
			expected_salary = $16, resume_s3_path = $17, updated_at = NOW()
		WHERE user_id = $1
	`
	_, err = m.DB.Exec(query, userID, profile.FullName, profile.Email, profile.PhoneNumber,
		profile.Country, profile.City, profile.State, profile.ZipCode, profile.Address,
		profile.LinkedInURL, profile.PortfolioURL, profile.CoverLetter, profile.Summary,
		profile.Skills, profile.YearsExperience, profile.ExpectedSalary, profile.ResumeS3Path)
	return err
}
