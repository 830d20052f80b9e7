package config

import (
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Environment variables most deployments set. Every Config field has one;
// see the env tags on Config.
const (
	EnvSecretKey    = "USERSVC_SECRET_KEY"
	EnvDatabaseDSN  = "USERSVC_DATABASE_DSN"
	EnvSMTPPassword = "USERSVC_SMTP_PASSWORD"
	EnvStoreTimeout = "USERSVC_STORE_TIMEOUT"

	// EnvFile names a dotenv file loaded before the environment is read.
	// Variables already present in the process environment win.
	EnvFile = "USERSVC_ENV_FILE"
)

// parseEnv overlays Config fields from USERSVC_* variables. Unset variables
// leave the field untouched. A malformed value or an unreadable env file
// panics, the same as a broken JSON file.
func parseEnv(config *Config) {
	if path, ok := os.LookupEnv(EnvFile); ok && path != "" {
		if err := godotenv.Load(path); err != nil {
			panic(err)
		}
	}

	if err := cleanenv.ReadEnv(config); err != nil {
		panic(err)
	}
}
