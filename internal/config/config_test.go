// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-seal.
//
// go-seal is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/ibe"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func b64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().KeyServer.Port, cfg.KeyServer.Port)
}

func TestLoad(t *testing.T) {
	_, pk, err := ibe.GenerateKeyPair(nil)
	require.NoError(t, err)

	path := writeConfig(t, `
logging:
  level: debug
  format: json
client:
  threshold: 2
  variant: hmac-256-ctr
  request_timeout: 3s
  retry_max: 0
  key_servers:
    - name: a
      object_id: "0x1"
      url: http://a.example
    - name: b
      object_id: "0x2"
      public_key: "`+b64(pk.Bytes())+`"
keyserver:
  object_id: "0xabc"
  port: 9000
  storage:
    backend: file
    path: /var/lib/seal
  policy:
    type: package_allowlist
    packages: ["0x2"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 2, cfg.Client.Threshold)
	assert.Equal(t, 3*time.Second, cfg.Client.RequestTimeout)
	assert.Zero(t, cfg.Client.RetryMax)
	require.Len(t, cfg.Client.KeyServers, 2)

	parsed, err := cfg.Client.KeyServers[1].ParsePublicKey()
	require.NoError(t, err)
	assert.True(t, pk.Equal(parsed))

	assert.Equal(t, StorageFile, cfg.KeyServer.Storage.Backend)
	assert.Equal(t, "127.0.0.1:9000", cfg.KeyServer.Addr())
	// Unset fields keep their defaults.
	assert.Equal(t, 600, cfg.KeyServer.RateLimit.RequestsPerMin)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = Load(writeConfig(t, "logging: [oops"))
	assert.ErrorContains(t, err, "failed to parse config file")

	_, err = Load(writeConfig(t, "keyserver:\n  port: 0\n"))
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestEnvOverrides(t *testing.T) {
	env := map[string]string{
		"SEAL_LOG_LEVEL":                   "warn",
		"SEAL_VARIANT":                     "hmac-256-ctr",
		"SEAL_REQUEST_TIMEOUT":             "250ms",
		"SEAL_KEYSERVER_PORT":              "9999",
		"SEAL_KEYSERVER_PACKAGES":          "0x1, 0x2,",
		"SEAL_KEYSERVER_POLICY":            "package_allowlist",
		"SEAL_KEYSERVER_RATELIMIT_ENABLED": "false",
		"SEAL_KEYSERVER_STORAGE_BACKEND":   "vault",
		"SEAL_VAULT_ADDR":                  "http://127.0.0.1:8200",
		"SEAL_VAULT_TOKEN":                 "s.token",
	}
	cfg := Default()
	require.NoError(t, applyEnvOverrides(cfg, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "hmac-256-ctr", cfg.Client.Variant)
	assert.Equal(t, 250*time.Millisecond, cfg.Client.RequestTimeout)
	assert.Equal(t, 9999, cfg.KeyServer.Port)
	assert.Equal(t, []string{"0x1", "0x2"}, cfg.KeyServer.Policy.Packages)
	assert.False(t, cfg.KeyServer.RateLimit.Enabled)
	assert.Equal(t, StorageVault, cfg.KeyServer.Storage.Backend)
	assert.Equal(t, "s.token", cfg.KeyServer.Storage.Vault.Token)
	require.NoError(t, cfg.Validate())
}

func TestEnvOverridesRejectGarbage(t *testing.T) {
	cfg := Default()
	err := applyEnvOverrides(cfg, func(k string) (string, bool) {
		switch k {
		case "SEAL_KEYSERVER_PORT":
			return "eighty", true
		case "SEAL_REQUEST_TIMEOUT":
			return "soon", true
		}
		return "", false
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, "SEAL_KEYSERVER_PORT")
	assert.ErrorContains(t, err, "SEAL_REQUEST_TIMEOUT")
}

func TestLoadAppliesEnv(t *testing.T) {
	t.Setenv("SEAL_KEYSERVER_PORT", "7000")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.KeyServer.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "unknown log level"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "invalid log format"},
		{"variant", func(c *Config) { c.Client.Variant = "rot13" }, "client"},
		{"threshold above servers", func(c *Config) { c.Client.Threshold = 1 }, "threshold 1 with 0"},
		{"timeout", func(c *Config) { c.Client.RequestTimeout = 0 }, "request_timeout"},
		{"bad server id", func(c *Config) {
			c.Client.KeyServers = []KeyServerEntry{{ObjectID: "0xzz", URL: "http://x"}}
		}, "key_servers[0]"},
		{"duplicate server", func(c *Config) {
			c.Client.KeyServers = []KeyServerEntry{{ObjectID: "0x1", URL: "http://x"}, {ObjectID: "0x01", URL: "http://y"}}
		}, "duplicate object id"},
		{"server without url or key", func(c *Config) {
			c.Client.KeyServers = []KeyServerEntry{{ObjectID: "0x1"}}
		}, "url or public_key"},
		{"bad public key", func(c *Config) {
			c.Client.KeyServers = []KeyServerEntry{{ObjectID: "0x1", PublicKey: "AAAA"}}
		}, "key_servers[0]"},
		{"object id", func(c *Config) { c.KeyServer.ObjectID = "" }, "object_id"},
		{"port", func(c *Config) { c.KeyServer.Port = 70000 }, "invalid port"},
		{"max ids", func(c *Config) { c.KeyServer.MaxIDs = 0 }, "max_ids"},
		{"file without path", func(c *Config) { c.KeyServer.Storage.Backend = StorageFile }, "storage path"},
		{"storage backend", func(c *Config) { c.KeyServer.Storage.Backend = "s3" }, "unknown storage backend"},
		{"vault without address", func(c *Config) { c.KeyServer.Storage.Backend = StorageVault }, "vault address"},
		{"vault without token", func(c *Config) {
			c.KeyServer.Storage = StorageConfig{Backend: StorageVault, Vault: VaultStorageConfig{Address: "http://127.0.0.1:8200"}}
		}, "vault token"},
		{"empty allowlist", func(c *Config) { c.KeyServer.Policy.Type = PolicyPackageAllowlist }, "at least one package"},
		{"policy", func(c *Config) { c.KeyServer.Policy.Type = "deny" }, "unknown policy"},
		{"rate", func(c *Config) { c.KeyServer.RateLimit.RequestsPerMin = 0 }, "requests_per_min"},
		{"metrics path", func(c *Config) { c.KeyServer.Metrics.Path = "metrics" }, "metrics path"},
		{"tls cert", func(c *Config) { c.KeyServer.TLS.Enabled = true }, "cert_file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	data, err := Default().Marshal()
	require.NoError(t, err)

	path := writeConfig(t, string(data))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestTLSConfig(t *testing.T) {
	disabled := &TLSConfig{}
	tc, err := disabled.LoadTLSConfig()
	require.NoError(t, err)
	assert.Nil(t, tc)

	missing := &TLSConfig{Enabled: true, CertFile: "/nonexistent.pem", KeyFile: "/nonexistent.key"}
	_, err = missing.LoadTLSConfig()
	assert.ErrorContains(t, err, "failed to load server certificate")

	_, err = parseTLSVersion("TLS1.0")
	assert.Error(t, err)
	v, err := parseTLSVersion("TLS1.3")
	require.NoError(t, err)
	assert.NotZero(t, v)
}
