package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	AppPort         string
	AppBaseURL      string
	FrontendBaseURL string
	CORSOrigins     string

	DBDriver string
	DBDSN    string

	JWTSecret     string
	JWTExpiresMin int

	UploadDir   string
	UploadMaxMB int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Mail MailConfig

	LogLevel  string
	LogFormat string

	RateLimitRPS   int
	RateLimitBurst int

	NotifyQueueSize int

	GoogleClientID string
	GoogleSecret   string
	GoogleRedirect string
}

// MailConfig is empty-host safe: the mail sink only logs when SMTPHost is "".
type MailConfig struct {
	From     string
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
}

func Load() Config {
	return Config{
		AppPort:         get("APP_PORT", "8080"),
		AppBaseURL:      strings.TrimRight(get("APP_BASE_URL", ""), "/"),
		FrontendBaseURL: get("FRONTEND_BASE_URL", "http://localhost:3000"),
		CORSOrigins:     get("CORS_ORIGINS", "http://127.0.0.1:3000, http://localhost:3000"),

		DBDriver: strings.ToLower(get("DB_DRIVER", "postgres")),
		DBDSN:    must("DB_DSN"),

		JWTSecret:     must("JWT_SECRET"),
		JWTExpiresMin: getInt("JWT_EXPIRES_MIN", 10080),

		UploadDir:   get("UPLOAD_DIR", "./uploads"),
		UploadMaxMB: getInt("UPLOAD_MAX_MB", 25),

		RedisAddr:     get("REDIS_ADDR", ""),
		RedisPassword: get("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),

		Mail: MailConfig{
			From:     get("MAIL_FROM", "Marketplace <no-reply@localhost>"),
			SMTPHost: get("SMTP_HOST", ""),
			SMTPPort: get("SMTP_PORT", "587"),
			SMTPUser: get("SMTP_USER", ""),
			SMTPPass: get("SMTP_PASS", ""),
		},

		LogLevel:  get("LOG_LEVEL", "info"),
		LogFormat: get("LOG_FORMAT", "text"),

		RateLimitRPS:   getInt("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getInt("RATE_LIMIT_BURST", 40),

		NotifyQueueSize: getInt("NOTIFY_QUEUE_SIZE", 256),

		GoogleClientID: get("GOOGLE_CLIENT_ID", ""),
		GoogleSecret:   get("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirect: get("GOOGLE_REDIRECT_URL", ""),
	}
}

// GoogleEnabled reports whether Google sign-in routes should be mounted.
func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleSecret != ""
}

func (c Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

func get(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

func getInt(k string, def int) int {
	n, err := strconv.Atoi(get(k, ""))
	if err != nil {
		return def
	}
	return n
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
