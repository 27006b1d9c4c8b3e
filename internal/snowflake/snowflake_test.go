package snowflake

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/drivercheck/internal/config"
)

func TestDSN_Password(t *testing.T) {
	dsn, err := DSN(config.SnowflakeConfig{
		Account:   "acme-prod",
		User:      "auditor",
		Password:  "hunter2",
		Warehouse: "COMPUTE_WH",
	})
	require.NoError(t, err)
	assert.Contains(t, dsn, "acme-prod")
	assert.Contains(t, dsn, "auditor")
}

func TestDSN_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.SnowflakeConfig
	}{
		{"unknown authenticator", config.SnowflakeConfig{Account: "a", User: "u", Authenticator: "kerberos"}},
		{"jwt without key", config.SnowflakeConfig{Account: "a", User: "u", Authenticator: "snowflake_jwt"}},
		{"jwt missing key file", config.SnowflakeConfig{Account: "a", User: "u", Authenticator: "snowflake_jwt",
			PrivateKeyPath: filepath.Join(os.TempDir(), "drivercheck-no-such-key.p8")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DSN(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func writeKey(t *testing.T, pkcs8 bool) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	var block *pem.Block
	if pkcs8 {
		der, err := x509.MarshalPKCS8PrivateKey(key)
		require.NoError(t, err)
		block = &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	} else {
		block = &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	}

	path := filepath.Join(t.TempDir(), "rsa_key.p8")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0600))
	return path
}

func TestLoadPrivateKey(t *testing.T) {
	for _, pkcs8 := range []bool{true, false} {
		key, err := loadPrivateKey(writeKey(t, pkcs8))
		require.NoError(t, err, "pkcs8=%v", pkcs8)
		assert.NotNil(t, key)
	}

	garbage := filepath.Join(t.TempDir(), "garbage.p8")
	require.NoError(t, os.WriteFile(garbage, []byte("not a key"), 0600))
	_, err := loadPrivateKey(garbage)
	assert.Error(t, err)
}

func TestDSN_KeyPair(t *testing.T) {
	dsn, err := DSN(config.SnowflakeConfig{
		Account:        "acme-prod",
		User:           "auditor",
		Authenticator:  "SNOWFLAKE_JWT",
		PrivateKeyPath: writeKey(t, true),
	})
	require.NoError(t, err)
	assert.True(t, strings.Contains(strings.ToLower(dsn), "snowflake_jwt"), "dsn should select key-pair auth: %s", dsn)
}

func TestDefaultQueries(t *testing.T) {
	q := DefaultQueries.Usage
	assert.Contains(t, q, "SNOWFLAKE.ACCOUNT_USAGE.SESSIONS")
	assert.Contains(t, q, "ILIKE '%SNOWFLAKE%UI%'")
	assert.Contains(t, q, "ILIKE '%SNOWSIGHT%'")
	assert.Contains(t, q, "GROUP BY CLIENT_APPLICATION_ID, USER_NAME")
	assert.Equal(t, 1, strings.Count(q, "?"), "lookback is the only bound parameter")
	assert.Equal(t, 2, strings.Count(DefaultQueries.Complete, "?"))
}
