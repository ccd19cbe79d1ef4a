package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the orchestrator. It is built
// once in Load and handed to constructors; nothing reads the environment
// after startup.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	LLM      LLMConfig
	Jira     JiraConfig
	Slack    SlackConfig
	Email    EmailConfig
	Batch    BatchConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// LLMConfig points at the chat-completion endpoint used for classification
// and email drafting.
type LLMConfig struct {
	BaseURL                string
	APIKey                 string
	Model                  string
	ClassifyTimeoutSeconds int
	DraftTimeoutSeconds    int
	RetryAttempts          int
	RetryDelaySeconds      int
}

// JiraConfig holds issue-tracker credentials. Missing values degrade the
// client to its sentinel mode instead of failing startup.
type JiraConfig struct {
	BaseURL        string
	UserEmail      string
	APIToken       string
	ProjectKey     string
	TimeoutSeconds int
}

// SlackConfig holds the team-channel webhook endpoint.
type SlackConfig struct {
	WebhookURL     string
	TimeoutSeconds int
}

// EmailConfig holds outbound mail relay settings.
type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// BatchConfig controls the batch pipeline driver.
type BatchConfig struct {
	QueryCSVPath      string
	CRMCSVPath        string
	RunTTLMinutes     int
	RetryAttempts     int
	RetryDelaySeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "support-orchestrator"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 120),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		LLM: LLMConfig{
			BaseURL:                getEnv("LLM_BASE_URL", "https://api.deepseek.com"),
			APIKey:                 os.Getenv("LLM_API_KEY"),
			Model:                  getEnv("LLM_MODEL", "deepseek-chat"),
			ClassifyTimeoutSeconds: getEnvAsInt("LLM_CLASSIFY_TIMEOUT_SECONDS", 20),
			DraftTimeoutSeconds:    getEnvAsInt("LLM_DRAFT_TIMEOUT_SECONDS", 15),
			RetryAttempts:          getEnvAsInt("LLM_RETRY_ATTEMPTS", 3),
			RetryDelaySeconds:      getEnvAsInt("LLM_RETRY_DELAY_SECONDS", 2),
		},
		Jira: JiraConfig{
			BaseURL:        os.Getenv("JIRA_BASE_URL"),
			UserEmail:      os.Getenv("JIRA_USER_EMAIL"),
			APIToken:       os.Getenv("JIRA_API_TOKEN"),
			ProjectKey:     getEnv("JIRA_PROJECT_KEY", "CUS"),
			TimeoutSeconds: getEnvAsInt("JIRA_TIMEOUT_SECONDS", 10),
		},
		Slack: SlackConfig{
			WebhookURL:     os.Getenv("SLACK_WEBHOOK_URL"),
			TimeoutSeconds: getEnvAsInt("SLACK_TIMEOUT_SECONDS", 5),
		},
		Email: EmailConfig{
			Host:     os.Getenv("EMAIL_HOST"),
			Port:     getEnvAsInt("EMAIL_PORT", 587),
			User:     os.Getenv("EMAIL_USER"),
			Password: os.Getenv("EMAIL_PASSWORD"),
			From:     os.Getenv("EMAIL_FROM"),
		},
		Batch: BatchConfig{
			QueryCSVPath:      getEnv("CUSTOMER_QUERY_CSV", "data/customer_query.csv"),
			CRMCSVPath:        getEnv("CRM_CSV", "data/CRM.csv"),
			RunTTLMinutes:     getEnvAsInt("BATCH_RUN_TTL_MINUTES", 1440),
			RetryAttempts:     getEnvAsInt("BATCH_RETRY_ATTEMPTS", 3),
			RetryDelaySeconds: getEnvAsInt("BATCH_RETRY_DELAY_SECONDS", 2),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// ClassifyTimeout returns the classification call deadline.
func (l LLMConfig) ClassifyTimeout() time.Duration {
	return time.Duration(l.ClassifyTimeoutSeconds) * time.Second
}

// DraftTimeout returns the drafting call deadline.
func (l LLMConfig) DraftTimeout() time.Duration {
	return time.Duration(l.DraftTimeoutSeconds) * time.Second
}

// Timeout returns the issue-tracker call deadline.
func (j JiraConfig) Timeout() time.Duration {
	return time.Duration(j.TimeoutSeconds) * time.Second
}

// Timeout returns the webhook call deadline.
func (s SlackConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// RunTTL returns how long batch run summaries are retained.
func (b BatchConfig) RunTTL() time.Duration {
	return time.Duration(b.RunTTLMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
