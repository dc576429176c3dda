package config

import (
	"fmt"
	"os"
	"strconv"
)

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// AutomationConfig tunes the navigation engine. Everything comes from
// environment variables so deployments can adjust pacing and limits
// without a rebuild.
type AutomationConfig struct {
	MaxIterations       int
	MaxAttemptRetries   int
	Headless            bool
	PageLoadTimeoutMs   int
	ElementTimeoutMs    int
	IterationDelayMinMs int
	IterationDelayMaxMs int
	BotMitigationWaitMs int
	CaptchaWaitMs       int
	CookieDir           string
	PatternDir          string
	ResumeDir           string

	OracleProvider string
	OracleAPIKey   string
	OracleModel    string

	SiteEmail    string
	SitePassword string
}

type AppConfig struct {
	Port        string
	Database    DatabaseConfig
	Automation  AutomationConfig
	JWTSecret   string
	Environment string
}

func GetDatabaseConfig() DatabaseConfig {
	port, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	password := getEnv("DB_PASSWORD", "")

	if password == "" {
		fmt.Println("⚠️  Warning: DB_PASSWORD environment variable is not set.")
	}

	return DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     port,
		User:     getEnv("DB_USER", "postgres"),
		Password: password,
		DBName:   getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}
}

func GetAutomationConfig() AutomationConfig {
	return AutomationConfig{
		MaxIterations:       getEnvInt("MAX_NAV_ITERATIONS", 15),
		MaxAttemptRetries:   getEnvInt("MAX_ATTEMPT_RETRIES", 3),
		Headless:            getEnv("BROWSER_HEADLESS", "true") == "true",
		PageLoadTimeoutMs:   getEnvInt("PAGE_LOAD_TIMEOUT_MS", 30000),
		ElementTimeoutMs:    getEnvInt("ELEMENT_TIMEOUT_MS", 5000),
		IterationDelayMinMs: getEnvInt("ITERATION_DELAY_MIN_MS", 1000),
		IterationDelayMaxMs: getEnvInt("ITERATION_DELAY_MAX_MS", 3000),
		BotMitigationWaitMs: getEnvInt("BOT_MITIGATION_WAIT_MS", 5000),
		CaptchaWaitMs:       getEnvInt("CAPTCHA_WAIT_MS", 30000),
		CookieDir:           getEnv("COOKIE_DIR", ""),
		PatternDir:          getEnv("PATTERN_DIR", ""),
		ResumeDir:           getEnv("RESUME_DIR", ""),

		OracleProvider: getEnv("ORACLE_PROVIDER", "openai"),
		OracleAPIKey:   getEnv("ORACLE_API_KEY", ""),
		OracleModel:    getEnv("ORACLE_MODEL", ""),

		SiteEmail:    getEnv("SITE_LOGIN_EMAIL", ""),
		SitePassword: getEnv("SITE_LOGIN_PASSWORD", ""),
	}
}

func GetAppConfig() AppConfig {
	return AppConfig{
		Port:        getEnv("PORT", "8081"),
		Database:    GetDatabaseConfig(),
		Automation:  GetAutomationConfig(),
		JWTSecret:   getEnv("JWT_SECRET", "your-secret-key"),
		Environment: getEnv("ENVIRONMENT", "development"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
