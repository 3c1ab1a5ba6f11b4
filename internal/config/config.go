// Package config defines the top-level configuration for the merchantpay
// service and provides validation helpers.
package config

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by MERCHANTPAY_* environment
// variables.
type Config struct {
	Custodian CustodianConfig `toml:"custodian"`
	Chain     ChainConfig     `toml:"chain"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	Server    ServerConfig    `toml:"server"`
	Paper     PaperConfig     `toml:"paper"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// CustodianConfig holds the settlement system's own identity: the account
// that signs transfer transactions and collects platform fees.
type CustodianConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
	// Address is used directly in paper mode, where no signing key exists.
	Address string `toml:"address"`
}

// ChainConfig holds the EVM endpoint and asset contract parameters.
type ChainConfig struct {
	RPCURL        string `toml:"rpc_url"`
	ChainID       int64  `toml:"chain_id"`
	AssetContract string `toml:"asset_contract"`
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

// RedisConfig holds Redis connection parameters for the event bus.
type RedisConfig struct {
	Addr         string `toml:"addr"`
	Password     string `toml:"password"`
	DB           int    `toml:"db"`
	PoolSize     int    `toml:"pool_size"`
	MaxRetries   int    `toml:"max_retries"`
	TLSEnabled   bool   `toml:"tls_enabled"`
	StreamMaxLen int    `toml:"stream_max_len"`
}

// PaperConfig holds paper-mode parameters. Balances seeds the in-memory
// balance book at startup, mapping a hex buyer address to a decimal amount,
// so settlements can be exercised without a chain.
type PaperConfig struct {
	Balances map[string]string `toml:"balances"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Chain: ChainConfig{
			RPCURL:  "http://localhost:8545",
			ChainID: 42161,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "merchantpay",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			DB:           0,
			PoolSize:     20,
			MaxRetries:   3,
			StreamMaxLen: 100_000,
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"full":  true,
	"paper": true,
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
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: full, paper)", c.Mode))
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	full := strings.ToLower(c.Mode) == "full"

	// Custodian — full mode signs transfers, so a key source is required.
	if full {
		if c.Custodian.PrivateKey == "" && c.Custodian.EncryptedKeyPath == "" {
			errs = append(errs, "custodian: either private_key or encrypted_key_path must be set for mode full")
		}
		if c.Custodian.EncryptedKeyPath != "" && c.Custodian.KeyPassword == "" {
			errs = append(errs, "custodian: key_password is required when encrypted_key_path is set")
		}
	} else if c.Custodian.Address != "" && !common.IsHexAddress(c.Custodian.Address) {
		errs = append(errs, fmt.Sprintf("custodian: address %q is not a valid hex address", c.Custodian.Address))
	}

	// Paper balances are only consumed in paper mode.
	if !full {
		for addr, amount := range c.Paper.Balances {
			if !common.IsHexAddress(addr) {
				errs = append(errs, fmt.Sprintf("paper: balance key %q is not a valid hex address", addr))
			}
			n, ok := new(big.Int).SetString(amount, 10)
			if !ok || n.Sign() < 0 {
				errs = append(errs, fmt.Sprintf("paper: balance for %s must be a non-negative decimal integer, got %q", addr, amount))
			}
		}
	}

	// Chain
	if full {
		if c.Chain.RPCURL == "" {
			errs = append(errs, "chain: rpc_url must not be empty")
		}
		if c.Chain.ChainID <= 0 {
			errs = append(errs, fmt.Sprintf("chain: chain_id must be positive, got %d", c.Chain.ChainID))
		}
	}
	if c.Chain.AssetContract != "" && !common.IsHexAddress(c.Chain.AssetContract) {
		errs = append(errs, fmt.Sprintf("chain: asset_contract %q is not a valid hex address", c.Chain.AssetContract))
	}

	// Postgres — only full mode persists to a database.
	if full {
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
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
