package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"career-quest/gamification"
)

// R2Config is only complete when every field is set; otherwise icon uploads are disabled.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicURL       string
}

func (r R2Config) Enabled() bool {
	return r.AccountID != "" && r.AccessKeyID != "" && r.SecretAccessKey != "" && r.Bucket != ""
}

type Config struct {
	Port            string
	DatabaseURL     string
	LogLevel        string
	DayPolicy       gamification.DayPolicy
	AllowedOrigins  []string
	AdminToken      string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	R2              R2Config
	CatchUpInterval time.Duration
	// LockTTL is the redis lease; holders renew it, so it only bounds recovery after a crash.
	LockTTL         time.Duration
}

// Load reads .env when present, then the environment, with defaults.
// The second return value is false when no .env file was found.
func Load() (*Config, bool) {
	found := godotenv.Load() == nil

	return &Config{
		Port:            getEnv("PORT", "5200"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DayPolicy:       gamification.ParseDayPolicy(getEnv("CHALLENGE_DAY_POLICY", "utc")),
		AllowedOrigins:  splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		AdminToken:      os.Getenv("ADMIN_TOKEN"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         getInt("REDIS_DB", 0),
		CatchUpInterval: getDuration("CATCHUP_INTERVAL", 15*time.Minute),
		LockTTL:         getDuration("USER_LOCK_TTL", 10*time.Second),
		R2: R2Config{
			AccountID:       os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
			Bucket:          os.Getenv("R2_BUCKET_NAME"),
			PublicURL:       os.Getenv("R2_PUBLIC_URL"),
		},
	}, found
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
