// Package snowflake reads driver usage and support metadata from a
// Snowflake account and exposes Snowflake Cortex as a model completer.
package snowflake

import (
	"crypto/rsa"
	"crypto/x509"
	"database/sql"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	"github.com/snowflakedb/gosnowflake"

	"github.com/blackwell-systems/drivercheck/internal/config"
)

// DSN builds a gosnowflake connection string from the config.
func DSN(cfg config.SnowflakeConfig) (string, error) {
	c := &gosnowflake.Config{
		Account:     cfg.Account,
		User:        cfg.User,
		Password:    cfg.Password,
		Role:        cfg.Role,
		Warehouse:   cfg.Warehouse,
		Application: "drivercheck",
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Authenticator)) {
	case "", "snowflake":
		c.Authenticator = gosnowflake.AuthTypeSnowflake
	case "externalbrowser":
		c.Authenticator = gosnowflake.AuthTypeExternalBrowser
	case "snowflake_jwt", "jwt":
		if cfg.PrivateKeyPath == "" {
			return "", fmt.Errorf("key-pair authentication needs snowflake.private_key_path")
		}
		key, err := loadPrivateKey(cfg.PrivateKeyPath)
		if err != nil {
			return "", err
		}
		c.Authenticator = gosnowflake.AuthTypeJwt
		c.PrivateKey = key
	default:
		return "", fmt.Errorf("unsupported authenticator %q (valid: snowflake, externalbrowser, snowflake_jwt)", cfg.Authenticator)
	}

	dsn, err := gosnowflake.DSN(c)
	if err != nil {
		return "", fmt.Errorf("failed to build snowflake DSN: %w", err)
	}
	return dsn, nil
}

// Open opens a database handle for the configured account. The connection
// is established lazily on first query.
func Open(cfg config.SnowflakeConfig) (*sql.DB, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open snowflake connection: %w", err)
	}
	return db, nil
}

// loadPrivateKey reads an unencrypted PKCS#8 (or PKCS#1) RSA key in PEM form.
func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("private key %s: no PEM block found", path)
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("private key %s: not an RSA key", path)
		}
		return rsaKey, nil
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("private key %s: %w", path, err)
	}
	return key, nil
}
