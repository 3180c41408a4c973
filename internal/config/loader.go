package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies EASYBET_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known EASYBET_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Ledger ──
	setStr(&cfg.Ledger.OwnerAddress, "EASYBET_LEDGER_OWNER_ADDRESS")
	setStr(&cfg.Ledger.OwnerKey, "EASYBET_LEDGER_OWNER_KEY")
	setStr(&cfg.Ledger.EncryptedKeyPath, "EASYBET_LEDGER_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Ledger.KeyPassword, "EASYBET_LEDGER_KEY_PASSWORD")
	setStr(&cfg.Ledger.EscrowAddress, "EASYBET_LEDGER_ESCROW_ADDRESS")
	setBool(&cfg.Ledger.RequireEnded, "EASYBET_LEDGER_REQUIRE_ENDED")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "EASYBET_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "EASYBET_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "EASYBET_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "EASYBET_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "EASYBET_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "EASYBET_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "EASYBET_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "EASYBET_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "EASYBET_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "EASYBET_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "EASYBET_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "EASYBET_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "EASYBET_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "EASYBET_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "EASYBET_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "EASYBET_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "EASYBET_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "EASYBET_S3_REGION")
	setStr(&cfg.S3.Bucket, "EASYBET_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "EASYBET_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "EASYBET_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "EASYBET_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "EASYBET_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setInt(&cfg.Server.Port, "EASYBET_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "EASYBET_SERVER_CORS_ORIGINS")
	setBool(&cfg.Server.RequireSignature, "EASYBET_SERVER_REQUIRE_SIGNATURE")
	setInt(&cfg.Server.SignatureMaxSkew, "EASYBET_SERVER_SIGNATURE_MAX_SKEW")

	// ── Top-level ──
	setStr(&cfg.Mode, "EASYBET_MODE")
	setStr(&cfg.LogLevel, "EASYBET_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
