package config

import (
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment variables.
// It is built once at startup and passed down to every component.
type Config struct {
	ServerPort  string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	SwaggerHost string

	// FolderPath is the content root where file bytes and thumbnails are stored.
	FolderPath string
	SessionTTL time.Duration
	PageSize   int
	BcryptCost int

	// ThumbnailWidths is sorted in descending order.
	ThumbnailWidths   []int
	ThumbnailQueue    string
	WelcomeQueue      string
	WorkerConcurrency int
	JobMaxAttempts    int
	WorkerMetricsPort string

	LogLevel string
	LogJSON  bool
}

const defaultFolderName = "files_manager"

// Load builds Config from environment with sensible defaults.
// Variables found in the file named by ENV_FILE (".env" by default) are loaded first;
// variables already present in the environment win.
func Load() *Config {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err == nil {
		log.Printf("loaded environment from %s", envFile)
	}

	return &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		MySQLDSN:          getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/files_manager?charset=utf8mb4&parseTime=True&loc=Local"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		RedisPass:         os.Getenv("REDIS_PASSWORD"),
		SwaggerHost:       os.Getenv("SWAGGER_HOST"),
		FolderPath:        getEnv("FOLDER_PATH", filepath.Join(os.TempDir(), defaultFolderName)),
		SessionTTL:        getEnvDuration("SESSION_TTL", 24*time.Hour),
		PageSize:          getEnvInt("PAGE_SIZE", 20),
		BcryptCost:        getEnvInt("BCRYPT_COST", 10),
		ThumbnailWidths:   getEnvInts("THUMBNAIL_WIDTHS", []int{500, 250, 100}),
		ThumbnailQueue:    getEnv("THUMBNAIL_QUEUE", "fileQueue"),
		WelcomeQueue:      getEnv("WELCOME_QUEUE", "userQueue"),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 1),
		JobMaxAttempts:    getEnvInt("JOB_MAX_ATTEMPTS", 3),
		WorkerMetricsPort: getEnv("WORKER_METRICS_PORT", "9100"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogJSON:           getEnvBool("LOG_JSON", false),
	}
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}

// getEnvInts parses a comma separated list of positive integers.
// Duplicates are removed and the result is sorted in descending order.
// Any malformed entry makes the whole value fall back to def.
func getEnvInts(key string, def []int) []int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	seen := make(map[int]bool)
	var out []int
	for _, part := range strings.Split(v, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n <= 0 {
			return def
		}
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}
