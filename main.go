package main

import (
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"autoapply/config"
	"autoapply/controllers"
	"autoapply/database"
	"autoapply/middleware"
	"autoapply/models"
	"autoapply/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.GetAppConfig()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer db.Close()

	userModel := models.NewUserModel(db)
	attemptModel := models.NewApplicationAttemptModel(db)
	profileModel := models.NewApplicantProfileModel(db)

	jwtService := services.NewJWTService(cfg.JWTSecret)

	artifacts, err := services.NewResumeArtifactService()
	if err != nil {
		log.Printf("Resume artifact service disabled: %v", err)
		artifacts = nil
	}

	auto := cfg.Automation
	oracle := services.NewOracle(auto.OracleProvider, auto.OracleAPIKey, auto.OracleModel)
	if oracle == nil {
		log.Println("No oracle configured, running on heuristic recommendations only")
	}
	recommender := services.NewActionRecommender(oracle, services.NewElementExtractor())

	newBrowser := func() (services.Browser, error) {
		browser, err := services.NewPlaywrightBrowser(services.PlaywrightOptions{
			Headless:          auto.Headless,
			PageLoadTimeoutMs: float64(auto.PageLoadTimeoutMs),
			ElementTimeoutMs:  float64(auto.ElementTimeoutMs),
		})
		if err != nil {
			return nil, err
		}
		return browser, nil
	}

	navigator := services.NewNavigator(
		newBrowser,
		recommender,
		services.NewCookieStore(auto.CookieDir),
		services.NewPatternStore(auto.PatternDir),
		services.NavigatorConfig{
			MaxIterations:       auto.MaxIterations,
			MaxAttemptRetries:   auto.MaxAttemptRetries,
			ResumeDir:           auto.ResumeDir,
			Credentials:         services.SiteCredentials{Email: auto.SiteEmail, Password: auto.SitePassword},
			IterationDelayMinMs: auto.IterationDelayMinMs,
			IterationDelayMaxMs: auto.IterationDelayMaxMs,
			BotMitigationWaitMs: auto.BotMitigationWaitMs,
			CaptchaWaitMs:       auto.CaptchaWaitMs,
		},
	)

	authController := controllers.NewAuthController(userModel, jwtService)
	applicationController := controllers.NewApplicationController(attemptModel, profileModel, navigator, artifacts)

	limiters := middleware.CreateRateLimiters()

	r := gin.Default()
	r.Use(cors.Default())
	r.Use(middleware.MaxRequestSize(1 << 20))

	api := r.Group("/api")
	api.Use(limiters["general"].Limit())
	api.Use(middleware.SanitizeInput())

	auth := api.Group("/auth")
	auth.Use(limiters["auth"].Limit())
	auth.Use(middleware.ValidateJSON())
	auth.POST("/register", authController.Register)
	auth.POST("/login", authController.Login)

	protected := api.Group("")
	protected.Use(middleware.RequireAuth(jwtService))
	protected.GET("/profile", applicationController.GetProfile)
	protected.PUT("/profile", applicationController.SaveProfile)
	protected.GET("/applications", applicationController.List)
	protected.GET("/applications/:code", applicationController.GetByCode)
	protected.POST("/resume", applicationController.UploadResume)
	protected.GET("/resume/link", applicationController.ResumeDownloadURL)

	apply := protected.Group("/applications")
	apply.Use(limiters["automation"].Limit())
	apply.Use(middleware.ValidateJSON())
	apply.POST("/apply", applicationController.Apply)
	apply.POST("/apply-batch", applicationController.ApplyBatch)

	log.Printf("Starting autoapply API on port %s (%s)", cfg.Port, cfg.Environment)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server exited: %v", err)
	}
}
