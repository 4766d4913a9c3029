package config

import (
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
// 上传目录等配置通过这里显式注入，不使用全局可变状态。
type Config struct {
	ServerAddr string // e.g., ":8080"
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	UploadDir  string // Local directory backing the /uploads/img/ URL prefix
	JWTSecret  string
	LogLevel   string
	LogPath    string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // no hardcoded default for the password
		DBName:     getEnv("DB_NAME", "secondhand"),
		UploadDir:  getEnv("UPLOAD_DIR", filepath.Join("uploads", "img")),
		JWTSecret:  getEnv("JWT_SECRET", "campustrade-dev-secret"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogPath:    getEnv("LOG_PATH", filepath.Join("logs", "campustrade.log")),
	}
}
