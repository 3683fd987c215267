package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/eventhub/internal/flagx"
	"github.com/dmitrijs2005/eventhub/internal/timex"
)

// JsonConfig is the on-disk shape of the server config file. Durations accept
// "15m"-style strings or integer nanoseconds.
type JsonConfig struct {
	HTTPAddress     string         `json:"http_address"`
	GRPCAddress     string         `json:"grpc_address"`
	DatabaseDSN     string         `json:"database_dsn"`
	ShutdownTimeout timex.Duration `json:"shutdown_timeout"`

	JWTSecret                    string         `json:"jwt_secret"`
	JWTRefreshSecret             string         `json:"jwt_refresh_secret"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	BcryptCost                   int            `json:"bcrypt_cost"`

	LockoutAttempts *int           `json:"lockout_attempts"`
	LockoutDuration timex.Duration `json:"lockout_duration"`
	AuthRateLimit   *string        `json:"auth_rate_limit"`
	AllowedOrigins  []string       `json:"allowed_origins"`
	CleanupInterval timex.Duration `json:"cleanup_interval"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`

	StorageBackend string `json:"storage_backend"`
	UploadDir      string `json:"upload_dir"`
	MaxUploadSize  int64  `json:"max_upload_size"`

	S3RootUser     string `json:"s3_root_user"`
	S3RootPassword string `json:"s3_root_password"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`
}

// parseJson overlays values from the file named by -c/-config. Absent keys
// keep their current value. Unreadable or invalid files panic.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.HTTPAddress, c.HTTPAddress)
	setString(&config.GRPCAddress, c.GRPCAddress)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setDuration(&config.ShutdownTimeout, c.ShutdownTimeout)

	setString(&config.JWTSecret, c.JWTSecret)
	setString(&config.JWTRefreshSecret, c.JWTRefreshSecret)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	if c.BcryptCost != 0 {
		config.BcryptCost = c.BcryptCost
	}

	if c.LockoutAttempts != nil {
		config.LockoutAttempts = *c.LockoutAttempts
	}
	setDuration(&config.LockoutDuration, c.LockoutDuration)
	if c.AuthRateLimit != nil {
		config.AuthRateLimit = *c.AuthRateLimit
	}
	if c.AllowedOrigins != nil {
		config.AllowedOrigins = c.AllowedOrigins
	}
	setDuration(&config.CleanupInterval, c.CleanupInterval)

	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)

	setString(&config.StorageBackend, c.StorageBackend)
	setString(&config.UploadDir, c.UploadDir)
	if c.MaxUploadSize != 0 {
		config.MaxUploadSize = c.MaxUploadSize
	}

	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
