package config

import (
	"errors"
	"io/fs"
	"net"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/dmitrijs2005/eventhub/internal/flagx"
)

const defaultEnvFile = ".env"

// envBindings maps viper keys to the environment variables that feed them.
var envBindings = map[string]string{
	"http_address":                    "HTTP_ADDRESS",
	"port":                            "PORT",
	"grpc_address":                    "GRPC_ADDRESS",
	"database_dsn":                    "DATABASE_URL",
	"shutdown_timeout":                "SHUTDOWN_TIMEOUT",
	"jwt_secret":                      "JWT_SECRET",
	"jwt_refresh_secret":              "JWT_REFRESH_SECRET",
	"access_token_validity_duration":  "ACCESS_TOKEN_TTL",
	"refresh_token_validity_duration": "REFRESH_TOKEN_TTL",
	"bcrypt_cost":                     "BCRYPT_COST",
	"lockout_attempts":                "LOCKOUT_ATTEMPTS",
	"lockout_duration":                "LOCKOUT_DURATION",
	"auth_rate_limit":                 "AUTH_RATE_LIMIT",
	"allowed_origins":                 "CORS_ORIGINS",
	"cleanup_interval":                "CLEANUP_INTERVAL",
	"log_level":                       "LOG_LEVEL",
	"log_format":                      "LOG_FORMAT",
	"storage_backend":                 "STORAGE_BACKEND",
	"upload_dir":                      "UPLOAD_DIR",
	"max_upload_size":                 "MAX_UPLOAD_SIZE",
	"s3_root_user":                    "S3_ROOT_USER",
	"s3_root_password":                "S3_ROOT_PASSWORD",
	"s3_bucket":                       "S3_BUCKET",
	"s3_region":                       "S3_REGION",
	"s3_base_endpoint":                "S3_BASE_ENDPOINT",
}

// loadDotenv is swapped in tests.
var loadDotenv = godotenv.Load

// parseEnv loads a dotenv file into the process environment (existing
// variables win) and overlays every bound variable that is set.
// An explicitly requested env file that cannot be read panics; a missing
// default ./.env is ignored.
func parseEnv(config *Config) {
	if file := flagx.EnvFileFlags(); file != "" {
		if err := loadDotenv(file); err != nil {
			panic(err)
		}
	} else if err := loadDotenv(defaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	v := viper.New()
	v.AllowEmptyEnv(true)
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	str("http_address", &config.HTTPAddress)
	if !v.IsSet("http_address") && v.IsSet("port") {
		config.HTTPAddress = net.JoinHostPort("", v.GetString("port"))
	}
	str("grpc_address", &config.GRPCAddress)
	str("database_dsn", &config.DatabaseDSN)
	str("jwt_secret", &config.JWTSecret)
	str("jwt_refresh_secret", &config.JWTRefreshSecret)
	str("auth_rate_limit", &config.AuthRateLimit)
	str("log_level", &config.LogLevel)
	str("log_format", &config.LogFormat)
	str("storage_backend", &config.StorageBackend)
	str("upload_dir", &config.UploadDir)
	str("s3_root_user", &config.S3RootUser)
	str("s3_root_password", &config.S3RootPassword)
	str("s3_bucket", &config.S3Bucket)
	str("s3_region", &config.S3Region)
	str("s3_base_endpoint", &config.S3BaseEndpoint)

	for key, dst := range map[string]*time.Duration{
		"shutdown_timeout":                &config.ShutdownTimeout,
		"access_token_validity_duration":  &config.AccessTokenValidityDuration,
		"refresh_token_validity_duration": &config.RefreshTokenValidityDuration,
		"lockout_duration":                &config.LockoutDuration,
		"cleanup_interval":                &config.CleanupInterval,
	} {
		if v.IsSet(key) {
			*dst = v.GetDuration(key)
		}
	}

	if v.IsSet("bcrypt_cost") {
		config.BcryptCost = v.GetInt("bcrypt_cost")
	}
	if v.IsSet("lockout_attempts") {
		config.LockoutAttempts = v.GetInt("lockout_attempts")
	}
	if v.IsSet("max_upload_size") {
		config.MaxUploadSize = v.GetInt64("max_upload_size")
	}
	if v.IsSet("allowed_origins") {
		config.AllowedOrigins = splitList(strings.TrimSpace(v.GetString("allowed_origins")))
	}
}
