// Package config defines the top-level configuration for the easybet ledger
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by EASYBET_* environment
// variables.
type Config struct {
	Ledger   LedgerConfig   `toml:"ledger"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// LedgerConfig holds the ledger instance parameters.
type LedgerConfig struct {
	// OwnerAddress is the hex address allowed to create and resolve
	// activities.
	OwnerAddress string `toml:"owner_address"`

	// OwnerKey is the hex-encoded owner private key, used when the service
	// itself submits owner operations. Alternatively point
	// EncryptedKeyPath + KeyPassword at an encrypted keyfile.
	OwnerKey         string `toml:"owner_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`

	// EscrowAddress is the account holding pooled stakes. Defaults to a
	// service-reserved address.
	EscrowAddress string `toml:"escrow_address"`

	// RequireEnded rejects resolution before an activity's deadline.
	RequireEnded bool `toml:"require_ended"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for the settlement
// archive. Leave the bucket empty to disable archiving.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`

	// RequireSignature enables secp256k1 request-signature authentication.
	// When false, callers are identified by the unverified address header
	// (development only).
	RequireSignature bool `toml:"require_signature"`

	// SignatureMaxSkew bounds how stale a signed request timestamp may be,
	// in seconds.
	SignatureMaxSkew int `toml:"signature_max_skew"`
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Ledger: LedgerConfig{
			EscrowAddress: "0x00000000000000000000000000000000ea5bE700",
			RequireEnded:  true,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "easybet",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Port:             8000,
			CORSOrigins:      []string{"http://localhost:3000", "http://localhost:5173"},
			RequireSignature: true,
			SignatureMaxSkew: 300,
		},
		Mode:     "server",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server":  true,
	"migrate": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, migrate)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Ledger
	if c.Ledger.OwnerAddress == "" {
		errs = append(errs, "ledger: owner_address must be set")
	} else if !common.IsHexAddress(c.Ledger.OwnerAddress) {
		errs = append(errs, fmt.Sprintf("ledger: owner_address %q is not a valid hex address", c.Ledger.OwnerAddress))
	}
	if c.Ledger.EscrowAddress == "" {
		errs = append(errs, "ledger: escrow_address must be set")
	} else if !common.IsHexAddress(c.Ledger.EscrowAddress) {
		errs = append(errs, fmt.Sprintf("ledger: escrow_address %q is not a valid hex address", c.Ledger.EscrowAddress))
	}
	if common.IsHexAddress(c.Ledger.OwnerAddress) && common.IsHexAddress(c.Ledger.EscrowAddress) &&
		common.HexToAddress(c.Ledger.OwnerAddress) == common.HexToAddress(c.Ledger.EscrowAddress) {
		errs = append(errs, "ledger: owner_address and escrow_address must differ")
	}
	if c.Ledger.EncryptedKeyPath != "" && c.Ledger.KeyPassword == "" {
		errs = append(errs, "ledger: key_password is required when encrypted_key_path is set")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 — only validated when archiving is enabled.
	if c.S3.Bucket != "" {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when bucket is set")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when bucket is set")
		}
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.SignatureMaxSkew <= 0 {
		errs = append(errs, "server: signature_max_skew must be > 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// SignatureMaxSkew returns the signature freshness window as a duration.
func (c *Config) SignatureMaxSkew() time.Duration {
	return time.Duration(c.Server.SignatureMaxSkew) * time.Second
}

// OwnerAddr returns the parsed owner address. Call after Validate.
func (c *Config) OwnerAddr() common.Address {
	return common.HexToAddress(c.Ledger.OwnerAddress)
}

// EscrowAddr returns the parsed escrow address. Call after Validate.
func (c *Config) EscrowAddr() common.Address {
	return common.HexToAddress(c.Ledger.EscrowAddress)
}
