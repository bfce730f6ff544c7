package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	// Server
	Port    string
	Env     string
	BaseURL string

	// MongoDB
	MongoURI      string
	MongoDatabase string

	// Object storage (S3-compatible)
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Secure    bool
	S3Region    string

	BucketMedia      string
	BucketThumbnails string
	BucketArchives   string

	// Thumbnails
	ThumbnailWidth   int
	ThumbnailHeight  int
	ThumbnailQuality int

	// Security
	BcryptCost int

	// CORS
	AllowedOrigins []string

	// Logging
	LogLevel string
}

func New() *Config {
	return &Config{
		// Server
		Port:    getEnv("PORT", "8080"),
		Env:     getEnv("ENV", "development"),
		BaseURL: getEnv("BASE_URL", "http://localhost:8080"),

		// MongoDB
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "lazygallery"),

		// Object storage
		S3Endpoint:  getEnv("S3_ENDPOINT", "localhost:9000"),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
		S3Secure:    getEnv("S3_SECURE", "false") == "true",
		S3Region:    getEnv("S3_REGION", ""),

		BucketMedia:      getEnv("BUCKET_MEDIA", "lazygallery-media"),
		BucketThumbnails: getEnv("BUCKET_THUMBNAILS", "lazygallery-thumbnails"),
		BucketArchives:   getEnv("BUCKET_ARCHIVES", "lazygallery-archives"),

		// Thumbnails
		ThumbnailWidth:   getEnvAsInt("THUMBNAIL_WIDTH", 512),
		ThumbnailHeight:  getEnvAsInt("THUMBNAIL_HEIGHT", 512),
		ThumbnailQuality: getEnvAsInt("THUMBNAIL_QUALITY", 80),

		// Security
		BcryptCost: getEnvAsInt("BCRYPT_COST", 12),

		// CORS
		AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),
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

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return strings.Split(valueStr, ",")
}
