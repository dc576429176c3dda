package controllers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"autoapply/models"
	"autoapply/services"
	"autoapply/utils"
)

// ApplicationController exposes the navigation engine over HTTP. Attempts
// run synchronously; the response carries the terminal outcome and the
// full navigation log.
type ApplicationController struct {
	attemptModel *models.ApplicationAttemptModel
	profileModel *models.ApplicantProfileModel
	navigator    *services.Navigator
	artifacts    *services.ResumeArtifactService
}

func NewApplicationController(attemptModel *models.ApplicationAttemptModel, profileModel *models.ApplicantProfileModel, navigator *services.Navigator, artifacts *services.ResumeArtifactService) *ApplicationController {
	return &ApplicationController{
		attemptModel: attemptModel,
		profileModel: profileModel,
		navigator:    navigator,
		artifacts:    artifacts,
	}
}

type ApplyRequest struct {
	JobURL string `json:"job_url" binding:"required,url"`
}

type BatchApplyRequest struct {
	JobURLs []string `json:"job_urls" binding:"required,min=1,max=10,dive,url"`
}

// Apply runs one application attempt against the given job URL using the
// caller's stored profile.
func (c *ApplicationController) Apply(ctx *gin.Context) {
	var req ApplyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.BadRequestError(ctx, "Invalid request data", err)
		return
	}

	userID := ctx.GetInt("user_id")
	profile, err := c.loadProfile(userID)
	if err != nil {
		utils.BadRequestError(ctx, "Applicant profile not found; save a profile before applying", err)
		return
	}

	attempt, err := c.attemptModel.Create(userID, req.JobURL, companyNameFromURL(req.JobURL))
	if err != nil {
		utils.InternalServerError(ctx, "Failed to record application attempt", err)
		return
	}

	result, err := c.navigator.Apply(ctx.Request.Context(), req.JobURL, profile)
	if err != nil {
		utils.LogError("Application attempt ended with fatal error", err, gin.H{"attempt_code": attempt.AttemptCode})
	} else {
		utils.LogInfo("Application attempt finished", gin.H{"attempt_code": attempt.AttemptCode, "outcome": result.Outcome})
	}
	c.persistOutcome(attempt.ID, result)

	ctx.JSON(http.StatusOK, gin.H{
		"attempt_code": attempt.AttemptCode,
		"result":       result,
	})
}

// ApplyBatch runs attempts for up to ten job URLs sequentially and
// reports aggregate stats.
func (c *ApplicationController) ApplyBatch(ctx *gin.Context) {
	var req BatchApplyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.BadRequestError(ctx, "Invalid request data", err)
		return
	}

	userID := ctx.GetInt("user_id")
	profile, err := c.loadProfile(userID)
	if err != nil {
		utils.BadRequestError(ctx, "Applicant profile not found; save a profile before applying", err)
		return
	}

	stats := services.RunStats{}
	results := make([]gin.H, 0, len(req.JobURLs))
	for _, jobURL := range req.JobURLs {
		if ctx.Request.Context().Err() != nil {
			break
		}

		attempt, err := c.attemptModel.Create(userID, jobURL, companyNameFromURL(jobURL))
		if err != nil {
			utils.InternalServerError(ctx, "Failed to record application attempt", err)
			return
		}

		result, err := c.navigator.Apply(ctx.Request.Context(), jobURL, profile)
		if err != nil {
			utils.LogError("Application attempt ended with fatal error", err, gin.H{"attempt_code": attempt.AttemptCode})
		}
		c.persistOutcome(attempt.ID, result)
		stats.Record(result)
		results = append(results, gin.H{
			"attempt_code": attempt.AttemptCode,
			"job_url":      jobURL,
			"result":       result,
		})
	}

	ctx.JSON(http.StatusOK, gin.H{
		"stats":   stats,
		"results": results,
	})
}

// GetByCode returns a past attempt by its 8-character code.
func (c *ApplicationController) GetByCode(ctx *gin.Context) {
	code := strings.ToUpper(ctx.Param("code"))
	attempt, err := c.attemptModel.GetByAttemptCode(code)
	if err == sql.ErrNoRows {
		utils.NotFoundError(ctx, "Application attempt not found")
		return
	}
	if err != nil {
		utils.InternalServerError(ctx, "Failed to load application attempt", err)
		return
	}
	if attempt.UserID != ctx.GetInt("user_id") {
		utils.NotFoundError(ctx, "Application attempt not found")
		return
	}
	utils.SuccessResponse(ctx, http.StatusOK, "Application attempt", attempt)
}

// List returns the caller's attempt history, newest first.
func (c *ApplicationController) List(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(ctx.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	attempts, err := c.attemptModel.GetByUserID(ctx.GetInt("user_id"), limit, offset)
	if err != nil {
		utils.InternalServerError(ctx, "Failed to load application attempts", err)
		return
	}
	utils.SuccessResponse(ctx, http.StatusOK, "Application attempts", attempts)
}

// GetProfile returns the caller's stored applicant profile.
func (c *ApplicationController) GetProfile(ctx *gin.Context) {
	record, err := c.profileModel.GetByUserID(ctx.GetInt("user_id"))
	if err == sql.ErrNoRows {
		utils.NotFoundError(ctx, "No applicant profile saved yet")
		return
	}
	if err != nil {
		utils.InternalServerError(ctx, "Failed to load applicant profile", err)
		return
	}
	utils.SuccessResponse(ctx, http.StatusOK, "Applicant profile", record)
}

// SaveProfile creates or replaces the caller's applicant profile.
func (c *ApplicationController) SaveProfile(ctx *gin.Context) {
	var record models.ApplicantProfileRecord
	if err := ctx.ShouldBindJSON(&record); err != nil {
		utils.BadRequestError(ctx, "Invalid profile data", err)
		return
	}

	userID := ctx.GetInt("user_id")
	if err := c.profileModel.CreateOrUpdate(userID, &record); err != nil {
		utils.InternalServerError(ctx, "Failed to save applicant profile", err)
		return
	}
	utils.SuccessResponse(ctx, http.StatusOK, "Applicant profile saved", nil)
}

// UploadResume stores the caller's resume in S3 and records its location
// on the applicant profile, creating the profile if none exists yet.
func (c *ApplicationController) UploadResume(ctx *gin.Context) {
	if c.artifacts == nil {
		utils.BadRequestError(ctx, "Resume storage is not configured", nil)
		return
	}

	file, err := ctx.FormFile("resume")
	if err != nil {
		utils.BadRequestError(ctx, "A resume file is required", err)
		return
	}

	userID := ctx.GetInt("user_id")
	tmpPath := filepath.Join(os.TempDir(), fmt.Sprintf("resume_upload_%d_%s", userID, filepath.Base(file.Filename)))
	if err := ctx.SaveUploadedFile(file, tmpPath); err != nil {
		utils.InternalServerError(ctx, "Failed to read uploaded resume", err)
		return
	}
	defer os.Remove(tmpPath)

	fileName := fmt.Sprintf("%d_%s", userID, filepath.Base(file.Filename))
	location, err := c.artifacts.Upload(tmpPath, fileName)
	if err != nil {
		utils.InternalServerError(ctx, "Failed to store resume", err)
		return
	}

	record, err := c.profileModel.GetByUserID(userID)
	if err == sql.ErrNoRows {
		record = &models.ApplicantProfileRecord{}
	} else if err != nil {
		utils.InternalServerError(ctx, "Failed to load applicant profile", err)
		return
	}
	record.ResumeS3Path = location
	if err := c.profileModel.CreateOrUpdate(userID, record); err != nil {
		utils.InternalServerError(ctx, "Failed to save applicant profile", err)
		return
	}

	utils.SuccessResponse(ctx, http.StatusOK, "Resume uploaded", gin.H{
		"resume_url":   location,
		"display_name": services.DisplayName(fileName),
	})
}

// ResumeDownloadURL returns a short-lived presigned link to the caller's
// stored resume.
func (c *ApplicationController) ResumeDownloadURL(ctx *gin.Context) {
	if c.artifacts == nil {
		utils.BadRequestError(ctx, "Resume storage is not configured", nil)
		return
	}

	record, err := c.profileModel.GetByUserID(ctx.GetInt("user_id"))
	if err == sql.ErrNoRows {
		utils.NotFoundError(ctx, "No resume on file")
		return
	}
	if err != nil {
		utils.InternalServerError(ctx, "Failed to load applicant profile", err)
		return
	}
	if record.ResumeS3Path == "" {
		utils.NotFoundError(ctx, "No resume on file")
		return
	}

	fileName := filepath.Base(record.ResumeS3Path)
	downloadURL, err := c.artifacts.GeneratePresignedURL(fileName)
	if err != nil {
		utils.InternalServerError(ctx, "Failed to generate download link", err)
		return
	}
	utils.SuccessResponse(ctx, http.StatusOK, "Resume download link", gin.H{
		"url":          downloadURL,
		"display_name": services.DisplayName(fileName),
	})
}

// loadProfile converts the stored record into the in-memory profile the
// engine fills forms from, resolving the resume to a local file when an
// artifact service is configured.
func (c *ApplicationController) loadProfile(userID int) (*services.ApplicantProfile, error) {
	record, err := c.profileModel.GetByUserID(userID)
	if err != nil {
		return nil, err
	}

	profile := &services.ApplicantProfile{
		FullName:       record.FullName,
		Email:          record.Email,
		Phone:          record.PhoneNumber,
		Address:        record.Address,
		City:           record.City,
		State:          record.State,
		ZipCode:        record.ZipCode,
		Country:        record.Country,
		LinkedIn:       record.LinkedInURL,
		Website:        record.PortfolioURL,
		CoverLetter:    record.CoverLetter,
		Summary:        record.Summary,
		ExperienceYrs:  strconv.Itoa(record.YearsExperience),
		ExpectedSalary: record.ExpectedSalary,
	}
	if record.Skills != "" {
		for _, skill := range strings.Split(record.Skills, ",") {
			if trimmed := strings.TrimSpace(skill); trimmed != "" {
				profile.Skills = append(profile.Skills, trimmed)
			}
		}
	}

	if record.ResumeS3Path != "" && c.artifacts != nil {
		localPath, err := c.artifacts.Resolve(record.ResumeS3Path)
		if err != nil {
			utils.LogWarn("Could not resolve stored resume, falling back to surrogate", gin.H{"reference": record.ResumeS3Path, "error": err.Error()})
		} else {
			profile.ResumePath = localPath
		}
	}
	return profile, nil
}

func (c *ApplicationController) persistOutcome(attemptID int, result *services.AttemptResult) {
	if result == nil {
		return
	}
	navigationLog, _ := json.Marshal(result.History)
	obstacles, _ := json.Marshal(result.Obstacles)
	if err := c.attemptModel.RecordOutcome(attemptID, string(result.Outcome), result.Message,
		result.Iterations, result.NavigationSteps, string(navigationLog), string(obstacles)); err != nil {
		utils.LogError("Failed to persist attempt outcome", err, nil)
	}
}

// companyNameFromURL guesses a display name from the job URL's domain.
func companyNameFromURL(jobURL string) string {
	parsed, err := url.Parse(jobURL)
	if err != nil || parsed.Hostname() == "" {
		return ""
	}
	host := strings.TrimPrefix(parsed.Hostname(), "www.")
	parts := strings.Split(host, ".")
	if len(parts) < 2 {
		return cases.Title(language.English).String(host)
	}
	name := parts[len(parts)-2]
	// Job boards host postings under subdomains like acme.greenhouse.io.
	for _, board := range []string{"greenhouse", "lever", "workday", "myworkdayjobs", "ashbyhq", "smartrecruiters"} {
		if name == board && len(parts) >= 3 {
			name = parts[0]
			break
		}
	}
	return cases.Title(language.English).String(strings.ReplaceAll(name, "-", " "))
}
