package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ApplicantProfile is the read-only input to an application attempt. It is
// supplied once per attempt and never mutated by the automation core.
type ApplicantProfile struct {
	FullName       string   `json:"full_name"`
	FirstName      string   `json:"first_name"`
	LastName       string   `json:"last_name"`
	Email          string   `json:"email"`
	Phone          string   `json:"phone"`
	Address        string   `json:"address"`
	City           string   `json:"city"`
	State          string   `json:"state"`
	ZipCode        string   `json:"zip_code"`
	Country        string   `json:"country"`
	LinkedIn       string   `json:"linkedin"`
	Website        string   `json:"website"`
	CoverLetter    string   `json:"cover_letter"`
	Summary        string   `json:"summary"`
	Skills         []string `json:"skills"`
	ExperienceYrs  string   `json:"experience_years"`
	ExpectedSalary string   `json:"expected_salary"`
	ResumePath     string   `json:"resume_path"`
}

func (p *ApplicantProfile) firstName() string {
	if p.FirstName != "" {
		return p.FirstName
	}
	parts := strings.Fields(p.FullName)
	if len(parts) > 0 {
		return parts[0]
	}
	return ""
}

func (p *ApplicantProfile) lastName() string {
	if p.LastName != "" {
		return p.LastName
	}
	parts := strings.Fields(p.FullName)
	if len(parts) > 1 {
		return parts[len(parts)-1]
	}
	return ""
}

// ResolveFieldValue maps a symbolic field name from the recommender onto
// profile data. Unknown names come back unchanged so a literal value in a
// fill action passes straight through; this never errors and never returns
// a meaningless empty marker for an unrecognized key.
func (p *ApplicantProfile) ResolveFieldValue(fieldName string) string {
	switch strings.ToLower(strings.TrimSpace(fieldName)) {
	case "name", "full_name":
		return p.FullName
	case "first_name":
		return p.firstName()
	case "last_name":
		return p.lastName()
	case "email":
		return p.Email
	case "phone":
		return p.Phone
	case "address":
		return p.Address
	case "city":
		return p.City
	case "state":
		return p.State
	case "zip", "zip_code", "postal_code":
		return p.ZipCode
	case "country":
		return p.Country
	case "linkedin":
		return p.LinkedIn
	case "website", "portfolio":
		return p.Website
	case "cover_letter":
		return p.CoverLetter
	case "summary":
		return p.Summary
	case "experience", "experience_years":
		return p.ExperienceYrs
	case "salary", "expected_salary":
		return p.ExpectedSalary
	default:
		return fieldName
	}
}

// Summary block for oracle prompts. Skills are capped to keep the prompt
// budget stable.
func (p *ApplicantProfile) PromptSummary() string {
	skills := p.Skills
	if len(skills) > 10 {
		skills = skills[:10]
	}
	return fmt.Sprintf("Name: %s\nEmail: %s\nPhone: %s\nSkills: %s\nExperience: %s",
		p.FullName, p.Email, p.Phone, strings.Join(skills, ", "), p.ExperienceYrs)
}

// WriteSurrogateResume produces a minimal plain-text resume so an upload
// step does not hard-fail when no resume artifact is configured. Returns
// the absolute path of the written file.
func (p *ApplicantProfile) WriteSurrogateResume(dir string) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("could not create resume directory: %v", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s | %s\n\n", p.FullName, p.Email, p.Phone)
	if p.Summary != "" {
		fmt.Fprintf(&b, "SUMMARY\n%s\n\n", p.Summary)
	}
	if len(p.Skills) > 0 {
		fmt.Fprintf(&b, "SKILLS\n%s\n\n", strings.Join(p.Skills, ", "))
	}
	if p.ExperienceYrs != "" {
		fmt.Fprintf(&b, "EXPERIENCE\n%s\n", p.ExperienceYrs)
	}

	path := filepath.Join(dir, "resume_surrogate.txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("could not write surrogate resume: %v", err)
	}
	return filepath.Abs(path)
}
