// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds every setting the server and the historian read from the environment.
type Config struct {
	Addr           string
	LogLevel       logrus.Level
	AllowedOrigins []string // WebSocket origin patterns; empty => same host only

	RedisAddr string
	RedisDB   int

	LockExpiry     time.Duration
	LockTries      int
	LockRetryDelay time.Duration
	GameTTL        time.Duration
	PresenceTTL    time.Duration
	SchedulerPoll  time.Duration

	PacksFile string

	TokenExpire    time.Duration // 0 => tokens never expire
	PrivateKeyPath string
	PublicKeyPath  string

	HistorianQueue     string
	HistorianBatchSize int
	HistorianFlush     time.Duration
	HistorianBacklog   int
	GameInactivity     time.Duration
	DatabaseURL        string
}

// Load reads the configuration from the environment, falling back to defaults for unset keys.
func Load() Config {
	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = logrus.InfoLevel
	}

	addr := getEnv("SERVER_ADDR", ":8080")
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	return Config{
		Addr:           addr,
		LogLevel:       level,
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS"),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:   getEnvInt("REDIS_DB", 0),

		LockExpiry:     getEnvDuration("GAME_LOCK_EXPIRY", 3*time.Second),
		LockTries:      getEnvInt("GAME_LOCK_TRIES", 32),
		LockRetryDelay: getEnvDuration("GAME_LOCK_RETRY_DELAY", 100*time.Millisecond),
		GameTTL:        getEnvDuration("GAME_TTL", 24*time.Hour),
		PresenceTTL:    getEnvDuration("PRESENCE_TTL", 30*time.Second),
		SchedulerPoll:  getEnvDuration("SCHEDULER_POLL", 250*time.Millisecond),

		PacksFile: getEnv("PACKS_FILE", "packs.json"),

		TokenExpire:    getEnvDuration("TOKEN_EXPIRE_TIME", 0),
		PrivateKeyPath: os.Getenv("JWT_PRIVATE_KEY"),
		PublicKeyPath:  os.Getenv("JWT_PUBLIC_KEY"),

		HistorianQueue:     getEnv("HISTORIAN_QUEUE_NAME", "promptparty_actions"),
		HistorianBatchSize: getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		HistorianFlush:     time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		HistorianBacklog:   getEnvInt("HISTORIAN_MAX_PENDING", 1000),
		GameInactivity:     time.Duration(getEnvInt("GAME_INACTIVITY_TIMEOUT_SEC", 600)) * time.Second,
		DatabaseURL:        getEnv("DATABASE_URL", postgresURL()),
	}
}

// postgresURL builds a connection string from the discrete PG_* variables.
func postgresURL() string {
	return "postgres://" + os.Getenv("POSTGRES_USER") + ":" + os.Getenv("POSTGRES_PASSWORD") +
		"@" + getEnv("PG_HOST", "localhost") + ":" + getEnv("PG_PORT", "5432") + "/" + os.Getenv("PG_DATABASE")
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// getEnvList splits a comma separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getEnvDuration accepts Go durations ("3s") and treats "never" as zero.
func getEnvDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	switch s {
	case "":
		return def
	case "never":
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
