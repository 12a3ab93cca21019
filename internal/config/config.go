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

// Package config loads the YAML configuration shared by the seal CLI and the
// key server, applies SEAL_* environment overrides and validates the result.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/dem"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/pairing"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/logging"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/seal"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SEAL_"

// Storage backends
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageVault  = "vault"
)

// Policy types
const (
	PolicyAllowAll         = "allow_all"
	PolicyPackageAllowlist = "package_allowlist"
)

// Config represents the complete configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Client    ClientConfig    `yaml:"client"`
	KeyServer KeyServerConfig `yaml:"keyserver"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ClientConfig configures encryption defaults and key fetching.
type ClientConfig struct {
	Threshold      int              `yaml:"threshold"`
	Variant        string           `yaml:"variant"`
	RequestTimeout time.Duration    `yaml:"request_timeout"`
	RetryMax       int              `yaml:"retry_max"`
	RetryWaitMin   time.Duration    `yaml:"retry_wait_min"`
	RetryWaitMax   time.Duration    `yaml:"retry_wait_max"`
	KeyServers     []KeyServerEntry `yaml:"key_servers,omitempty"`
}

// KeyServerEntry names one key server. PublicKey is base64 of the
// compressed G2 point; when empty the key is discovered from the server.
type KeyServerEntry struct {
	Name      string `yaml:"name"`
	ObjectID  string `yaml:"object_id"`
	URL       string `yaml:"url"`
	PublicKey string `yaml:"public_key"`
}

// KeyServerConfig configures the key server process.
type KeyServerConfig struct {
	ObjectID        string          `yaml:"object_id"`
	Host            string          `yaml:"host"`
	Port            int             `yaml:"port"`
	MaxIDs          int             `yaml:"max_ids"`
	ReadTimeout     time.Duration   `yaml:"read_timeout"`
	WriteTimeout    time.Duration   `yaml:"write_timeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout"`
	Storage         StorageConfig   `yaml:"storage"`
	Policy          PolicyConfig    `yaml:"policy"`
	RateLimit       RateLimitConfig `yaml:"ratelimit"`
	Metrics         MetricsConfig   `yaml:"metrics"`
	TLS             TLSConfig       `yaml:"tls"`
}

// StorageConfig selects where the master key lives.
type StorageConfig struct {
	Backend string             `yaml:"backend"`
	Path    string             `yaml:"path"`
	Vault   VaultStorageConfig `yaml:"vault"`
}

// VaultStorageConfig locates a Vault KV v2 mount. The token is normally
// supplied through SEAL_VAULT_TOKEN rather than the file.
type VaultStorageConfig struct {
	Address       string `yaml:"address"`
	Token         string `yaml:"token"`
	Mount         string `yaml:"mount"`
	Prefix        string `yaml:"prefix"`
	Namespace     string `yaml:"namespace"`
	TLSSkipVerify bool   `yaml:"tls_skip_verify"`
}

// PolicyConfig selects the key release policy.
type PolicyConfig struct {
	Type     string   `yaml:"type"`
	Packages []string `yaml:"packages,omitempty"`
}

// RateLimitConfig controls rate limiting
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMin    int  `yaml:"requests_per_min"`
	Burst             int  `yaml:"burst"`
	TrustProxyHeaders bool `yaml:"trust_proxy_headers"`
}

// MetricsConfig controls the metrics endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns a configuration for a local development setup.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Client: ClientConfig{
			Variant:        dem.AES256GCM.String(),
			RequestTimeout: 10 * time.Second,
			RetryMax:       2,
			RetryWaitMin:   100 * time.Millisecond,
			RetryWaitMax:   2 * time.Second,
		},
		KeyServer: KeyServerConfig{
			ObjectID:        "0x1",
			Host:            "127.0.0.1",
			Port:            8480,
			MaxIDs:          32,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Storage:         StorageConfig{Backend: StorageMemory},
			Policy:          PolicyConfig{Type: PolicyAllowAll},
			RateLimit:       RateLimitConfig{Enabled: true, RequestsPerMin: 600, Burst: 50},
			Metrics:         MetricsConfig{Enabled: true, Path: "/metrics"},
		},
	}
}

// Load reads path over Default, applies environment overrides and
// validates. An empty path loads the defaults only.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		// #nosec G304 - config file path is provided by the operator
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Marshal renders cfg as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func applyEnvOverrides(cfg *Config, lookup func(string) (string, bool)) error {
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	flag := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	str("LOG_LEVEL", &cfg.Logging.Level)
	str("LOG_FORMAT", &cfg.Logging.Format)

	num("THRESHOLD", &cfg.Client.Threshold)
	str("VARIANT", &cfg.Client.Variant)
	dur("REQUEST_TIMEOUT", &cfg.Client.RequestTimeout)
	num("RETRY_MAX", &cfg.Client.RetryMax)

	ks := &cfg.KeyServer
	str("KEYSERVER_OBJECT_ID", &ks.ObjectID)
	str("KEYSERVER_HOST", &ks.Host)
	num("KEYSERVER_PORT", &ks.Port)
	str("KEYSERVER_STORAGE_BACKEND", &ks.Storage.Backend)
	str("KEYSERVER_STORAGE_PATH", &ks.Storage.Path)
	str("VAULT_ADDR", &ks.Storage.Vault.Address)
	str("VAULT_TOKEN", &ks.Storage.Vault.Token)
	str("VAULT_NAMESPACE", &ks.Storage.Vault.Namespace)
	str("KEYSERVER_POLICY", &ks.Policy.Type)
	if v, ok := lookup(EnvPrefix + "KEYSERVER_PACKAGES"); ok && v != "" {
		ks.Policy.Packages = splitList(v)
	}
	flag("KEYSERVER_RATELIMIT_ENABLED", &ks.RateLimit.Enabled)
	num("KEYSERVER_RATELIMIT_RPM", &ks.RateLimit.RequestsPerMin)
	flag("KEYSERVER_METRICS_ENABLED", &ks.Metrics.Enabled)
	flag("KEYSERVER_TLS_ENABLED", &ks.TLS.Enabled)
	str("KEYSERVER_TLS_CERT_FILE", &ks.TLS.CertFile)
	str("KEYSERVER_TLS_KEY_FILE", &ks.TLS.KeyFile)

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid environment override: %w", err)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Logging.Format)
	}

	if err := c.Client.Validate(); err != nil {
		return fmt.Errorf("client: %w", err)
	}
	if err := c.KeyServer.Validate(); err != nil {
		return fmt.Errorf("keyserver: %w", err)
	}
	return nil
}

// Validate checks the client section. An empty server list is allowed so
// that commands which do not encrypt can run without one.
func (c *ClientConfig) Validate() error {
	if _, err := dem.ParseVariant(c.Variant); err != nil {
		return err
	}
	if c.Threshold < 0 || c.Threshold > len(c.KeyServers) {
		return fmt.Errorf("threshold %d with %d key servers", c.Threshold, len(c.KeyServers))
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.RetryMax < 0 {
		return fmt.Errorf("retry_max must not be negative")
	}
	seen := make(map[seal.ObjectID]struct{}, len(c.KeyServers))
	for i, e := range c.KeyServers {
		id, err := seal.ParseObjectID(e.ObjectID)
		if err != nil {
			return fmt.Errorf("key_servers[%d]: %w", i, err)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("key_servers[%d]: duplicate object id %s", i, id)
		}
		seen[id] = struct{}{}
		if e.URL == "" && e.PublicKey == "" {
			return fmt.Errorf("key_servers[%d]: url or public_key is required", i)
		}
		if e.PublicKey != "" {
			if _, err := e.ParsePublicKey(); err != nil {
				return fmt.Errorf("key_servers[%d]: %w", i, err)
			}
		}
	}
	return nil
}

// ParsePublicKey decodes the configured public key.
func (e *KeyServerEntry) ParsePublicKey() (*pairing.G2, error) {
	raw, err := base64.StdEncoding.DecodeString(e.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("public_key: %w", err)
	}
	return pairing.G2FromBytes(raw)
}

// Validate checks the key server section.
func (c *KeyServerConfig) Validate() error {
	if _, err := seal.ParseObjectID(c.ObjectID); err != nil {
		return fmt.Errorf("object_id: %w", err)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.MaxIDs < 1 {
		return fmt.Errorf("max_ids must be positive")
	}

	switch c.Storage.Backend {
	case StorageMemory:
	case StorageFile:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage path is required for the file backend")
		}
	case StorageVault:
		if c.Storage.Vault.Address == "" {
			return fmt.Errorf("vault address is required for the vault backend")
		}
		if c.Storage.Vault.Token == "" {
			return fmt.Errorf("vault token is required for the vault backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q (must be %s, %s or %s)", c.Storage.Backend, StorageMemory, StorageFile, StorageVault)
	}

	switch c.Policy.Type {
	case PolicyAllowAll:
	case PolicyPackageAllowlist:
		if len(c.Policy.Packages) == 0 {
			return fmt.Errorf("package_allowlist policy needs at least one package")
		}
		for _, p := range c.Policy.Packages {
			if _, err := seal.ParseObjectID(p); err != nil {
				return fmt.Errorf("policy package: %w", err)
			}
		}
	default:
		return fmt.Errorf("unknown policy %q (must be %s or %s)", c.Policy.Type, PolicyAllowAll, PolicyPackageAllowlist)
	}

	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMin < 1 {
		return fmt.Errorf("ratelimit requests_per_min must be positive when enabled")
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics path must start with /")
	}
	if c.TLS.Enabled {
		if c.TLS.CertFile == "" {
			return fmt.Errorf("TLS cert_file is required when TLS is enabled")
		}
		if c.TLS.KeyFile == "" {
			return fmt.Errorf("TLS key_file is required when TLS is enabled")
		}
	}
	return nil
}

// Addr returns host:port.
func (c *KeyServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
