package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultEnv                      = "development"
	DefaultPort                     = "8080"
	DefaultAPIVersion               = "v1"
	DefaultRedisAddr                = "localhost:6379"
	DefaultAccessTokenExpiryMin     = 1440
	DefaultSessionTTLMinutes        = 30
	DefaultOtpExpirySeconds         = 60
	DefaultOtpResendIntervalSeconds = 60
	DefaultOtpRetentionHours        = 24
	DefaultTimezone                 = "Local"
	DefaultSMTPPort                 = "465"
)

type Config struct {
	Env        string
	Port       string
	APIVersion string

	DBURL         string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AccessTokenSecret string
	AccessExpiryMin   int
	CookieKey         string
	SessionTTLMinutes int

	OtpExpirySeconds         int
	OtpResendIntervalSeconds int
	OtpRequireRecord         bool
	OtpRetentionHours        int
	Timezone                 string

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	FirebaseCredentialsFile string
}

// Load reads config/.env.dev or config/.env.prod depending on ENV. Real environment
// variables win over file values. Missing required keys are fatal.
func Load() *Config {
	env := getEnv("ENV", DefaultEnv)
	file := ".env.dev"
	if env == "production" {
		file = ".env.prod"
	}
	if err := godotenv.Load(filepath.Join("config", file)); err != nil && !os.IsNotExist(err) {
		log.Printf("Could not read %s: %v", file, err)
	}

	return &Config{
		Env:        env,
		Port:       getEnv("PORT", DefaultPort),
		APIVersion: getEnv("API_VERSION", DefaultAPIVersion),

		DBURL:         mustGetEnv("DB_URL"),
		RedisAddr:     getEnv("REDIS_ADDR", DefaultRedisAddr),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		AccessTokenSecret: mustGetEnv("ACCESS_TOKEN_SECRET"),
		AccessExpiryMin:   getEnvAsInt("ACCESS_TOKEN_EXPIRY", DefaultAccessTokenExpiryMin),
		CookieKey:         mustGetEnv("COOKIE_KEY"),
		SessionTTLMinutes: getEnvAsInt("SESSION_TTL_MINUTES", DefaultSessionTTLMinutes),

		OtpExpirySeconds:         getEnvAsInt("OTP_EXPIRY_SECONDS", DefaultOtpExpirySeconds),
		OtpResendIntervalSeconds: getEnvAsInt("OTP_RESEND_INTERVAL_SECONDS", DefaultOtpResendIntervalSeconds),
		OtpRequireRecord:         getEnvAsBool("OTP_REQUIRE_RECORD", false),
		OtpRetentionHours:        getEnvAsInt("OTP_RETENTION_HOURS", DefaultOtpRetentionHours),
		Timezone:                 getEnv("TIMEZONE", DefaultTimezone),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", DefaultSMTPPort),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),

		FirebaseCredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Location resolves TIMEZONE, falling back to the host zone.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == DefaultTimezone {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("Invalid TIMEZONE %q, using Local", c.Timezone)
		return time.Local
	}
	return loc
}

func getEnv(key string, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func mustGetEnv(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	log.Fatalf("Missing required config: %s", key)
	return ""
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Printf("Invalid value for %s, using default %d", key, defaultVal)
		return defaultVal
	}
	return val
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := strings.TrimSpace(os.Getenv(key))
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Invalid value for %s, using default %t", key, defaultVal)
		return defaultVal
	}
	return val
}
