package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MERCHANTPAY_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
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

// applyEnvOverrides reads well-known MERCHANTPAY_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Custodian ──
	setStr(&cfg.Custodian.PrivateKey, "MERCHANTPAY_CUSTODIAN_PRIVATE_KEY")
	setStr(&cfg.Custodian.EncryptedKeyPath, "MERCHANTPAY_CUSTODIAN_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Custodian.KeyPassword, "MERCHANTPAY_CUSTODIAN_KEY_PASSWORD")
	setStr(&cfg.Custodian.Address, "MERCHANTPAY_CUSTODIAN_ADDRESS")

	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "MERCHANTPAY_CHAIN_RPC_URL")
	setInt64(&cfg.Chain.ChainID, "MERCHANTPAY_CHAIN_ID")
	setStr(&cfg.Chain.AssetContract, "MERCHANTPAY_CHAIN_ASSET_CONTRACT")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "MERCHANTPAY_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "MERCHANTPAY_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "MERCHANTPAY_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "MERCHANTPAY_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "MERCHANTPAY_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "MERCHANTPAY_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "MERCHANTPAY_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "MERCHANTPAY_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "MERCHANTPAY_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "MERCHANTPAY_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "MERCHANTPAY_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MERCHANTPAY_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MERCHANTPAY_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MERCHANTPAY_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MERCHANTPAY_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MERCHANTPAY_REDIS_TLS_ENABLED")
	setInt(&cfg.Redis.StreamMaxLen, "MERCHANTPAY_REDIS_STREAM_MAX_LEN")

	// ── Server ──
	setInt(&cfg.Server.Port, "MERCHANTPAY_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "MERCHANTPAY_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "MERCHANTPAY_SERVER_API_KEY")

	// ── Top-level ──
	setStr(&cfg.Mode, "MERCHANTPAY_MODE")
	setStr(&cfg.LogLevel, "MERCHANTPAY_LOG_LEVEL")
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

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
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
