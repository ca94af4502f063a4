package utils

import (
	"os"

	"github.com/joho/godotenv"
)

// LoadEnv loads variables from .env files into the process environment.
// Variables already set in the environment win; missing files are ignored.
func LoadEnv(files ...string) {
	_ = godotenv.Load(files...)
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}
