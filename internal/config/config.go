package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Ai       AIConfig
	Chat     ChatConfig
	Admin    AdminConfig
	Notify   NotifyConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	HandoverRateLimit  int // requests per minute per client IP
	OtelEnabled        bool
}

type DatabaseConfig struct {
	Connection string
	LogLevel   string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

type AIConfig struct {
	LLMProvider       string // "mock", "ollama", "openai"
	LLMModel          string
	LLMBaseURL        string
	LLMAPIKey         string
	Timeout           time.Duration
	EmbeddingProvider string // "ollama" or "" to disable
	OllamaBaseURL     string
	EmbeddingModel    string
	EmbedTopic        string
}

type ChatConfig struct {
	KBFile     string
	ExactLimit int
	SessionTTL time.Duration // 0 keeps sessions for the process lifetime
}

type AdminConfig struct {
	Token     string
	JWTSecret string
}

type NotifyConfig struct {
	OnEscalation     bool
	EscalationEmail  string
	HandoverEmail    string
	WebhookURL       string
	AgentConsoleChan string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			HandoverRateLimit:  getEnvAsInt("HANDOVER_RATE_LIMIT", 5),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
			LogLevel:   getEnv("DB_LOG_LEVEL", "warn"),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "Bank Support"),
		},
		Ai: AIConfig{
			LLMProvider:       getEnv("LLM_PROVIDER", "mock"),
			LLMModel:          getEnv("LLM_MODEL", ""),
			LLMBaseURL:        getEnv("LLM_BASE_URL", ""),
			LLMAPIKey:         getEnv("OPENAI_API_KEY", ""),
			Timeout:           getEnvAsDuration("LLM_TIMEOUT", 20*time.Second),
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", ""),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			EmbeddingModel:    getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			EmbedTopic:        getEnv("EMBED_KB_ENTRY_TOPIC_NAME", "EMBED_KB_ENTRY"),
		},
		Chat: ChatConfig{
			KBFile:     getEnv("KB_FILE", ""),
			ExactLimit: getEnvAsInt("KB_EXACT_LIMIT", 6),
			SessionTTL: getEnvAsDuration("SESSION_TTL", 0),
		},
		Admin: AdminConfig{
			Token:     getEnv("ADMIN_TOKEN", ""),
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Notify: NotifyConfig{
			OnEscalation:     getEnvAsBool("NOTIFY_ON_ESCALATION", false),
			EscalationEmail:  getEnv("ESCALATION_EMAIL", ""),
			HandoverEmail:    getEnv("HANDOVER_EMAIL", ""),
			WebhookURL:       getEnv("NOTIFY_WEBHOOK_URL", ""),
			AgentConsoleChan: getEnv("AGENT_CONSOLE_CHANNEL", "agent_console"),
		},
	}
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Environment, "production")
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("30s") or a bare number of seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
