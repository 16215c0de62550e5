package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	Port   string
	Env    string
	APIUrl string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Security
	RateLimitRequests int
	RateLimitDuration time.Duration

	// CORS
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string

	// Uploads
	UploadMaxImageSize   int64
	UploadMaxFiles       int
	UploadMaxPixels      int // width*height; 0 disables the check
	UploadDailyLimit     int // 0 disables the daily quota
	SessionIdleTTL       time.Duration
	SessionSweepInterval time.Duration

	// Export
	ExportScale     float64
	ExportWorkers   int
	ExportMaxPixels int // raster canvas limit in output pixels
	ExportWatermark string
	ExportTitle     string

	// Share: "local", "s3" or "none"
	ShareBackend   string
	ShareLocalPath string
	SharePublicURL string
	ShareTTL       time.Duration
	ShareTimeout   time.Duration
	// Signs local share links; empty leaves them unsigned
	ShareLinkSecret string

	// Share S3
	ShareS3Endpoint        string
	ShareS3Region          string
	ShareS3AccessKeyID     string
	ShareS3SecretAccessKey string
	ShareS3UsePathStyle    bool
	ShareS3Bucket          string

	// Interaction tuning, in display pixels and milliseconds
	MarkerRadius     float64
	DragThreshold    float64
	TapMoveThreshold float64
	TapMaxDuration   time.Duration
	DoubleTapWindow  time.Duration
	DoubleTapRadius  float64
}

func New() *Config {
	return &Config{
		// Server
		Port:   getEnv("PORT", "8080"),
		Env:    getEnv("ENV", "development"),
		APIUrl: getEnv("API_URL", "http://localhost:8080"),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// Security
		RateLimitRequests: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitDuration: getEnvAsDuration("RATE_LIMIT_DURATION", "1m"),

		// CORS
		AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		AllowedMethods: getEnvAsSlice("ALLOWED_METHODS", []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}),
		AllowedHeaders: getEnvAsSlice("ALLOWED_HEADERS", []string{"Content-Type"}),

		// Uploads
		UploadMaxImageSize:   int64(getEnvAsInt("UPLOAD_MAX_IMAGE_SIZE", 20*1024*1024)),
		UploadMaxFiles:       getEnvAsInt("UPLOAD_MAX_FILES", 20),
		UploadMaxPixels:      getEnvAsInt("UPLOAD_MAX_PIXELS", 25_000_000),
		UploadDailyLimit:     getEnvAsInt("UPLOAD_DAILY_LIMIT", 0),
		SessionIdleTTL:       getEnvAsDuration("SESSION_IDLE_TTL", "2h"),
		SessionSweepInterval: getEnvAsDuration("SESSION_SWEEP_INTERVAL", "5m"),

		// Export
		ExportScale:     getEnvAsFloat("EXPORT_SCALE", 2),
		ExportWorkers:   getEnvAsInt("EXPORT_WORKERS", 4),
		ExportMaxPixels: getEnvAsInt("EXPORT_MAX_PIXELS", 150_000_000),
		ExportWatermark: getEnv("EXPORT_WATERMARK", ""),
		ExportTitle:     getEnv("EXPORT_TITLE", "PLSFIX-THX"),

		// Share
		ShareBackend:    strings.ToLower(getEnv("SHARE_BACKEND", "local")),
		ShareLocalPath:  getEnv("SHARE_LOCAL_PATH", "/data/shared"),
		SharePublicURL:  getEnv("SHARE_PUBLIC_URL", "http://localhost:8080/shared"),
		ShareTTL:        getEnvAsDuration("SHARE_TTL", "168h"),
		ShareTimeout:    getEnvAsDuration("SHARE_TIMEOUT", "60s"),
		ShareLinkSecret: getEnv("SHARE_LINK_SECRET", ""),

		// Share S3
		ShareS3Endpoint:        getEnv("SHARE_S3_ENDPOINT", ""),
		ShareS3Region:          getEnv("SHARE_S3_REGION", "us-east-1"),
		ShareS3AccessKeyID:     getEnv("SHARE_S3_ACCESS_KEY_ID", ""),
		ShareS3SecretAccessKey: getEnv("SHARE_S3_SECRET_ACCESS_KEY", ""),
		ShareS3UsePathStyle:    getEnv("SHARE_S3_USE_PATH_STYLE", "true") == "true",
		ShareS3Bucket:          getEnv("SHARE_S3_BUCKET", "plsfix-exports"),

		// Interaction tuning
		MarkerRadius:     getEnvAsFloat("MARKER_RADIUS", 12),
		DragThreshold:    getEnvAsFloat("DRAG_THRESHOLD", 3),
		TapMoveThreshold: getEnvAsFloat("TAP_MOVE_THRESHOLD", 10),
		TapMaxDuration:   getEnvAsDuration("TAP_MAX_DURATION", "300ms"),
		DoubleTapWindow:  getEnvAsDuration("DOUBLE_TAP_WINDOW", "300ms"),
		DoubleTapRadius:  getEnvAsFloat("DOUBLE_TAP_RADIUS", 30),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	if duration, err := time.ParseDuration(defaultValue); err == nil {
		return duration
	}
	return time.Hour
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return strings.Split(valueStr, ",")
}
