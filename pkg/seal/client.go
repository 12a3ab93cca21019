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

package seal

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/dem"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/logging"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/metrics"
)

// ClientConfig configures a Client.
type ClientConfig struct {
	// KeyServers is the default server set for Encrypt and the lookup table
	// for Servers.
	KeyServers []KeyServer

	// Threshold is the default threshold for Encrypt.
	Threshold int

	// Variant is the default DEM for Encrypt.
	Variant dem.Variant

	Logger logging.Logger

	// Cache receives fetched keys. A new cache is created when nil.
	Cache *KeyCache

	// DisableKeyGuard turns off the per-process data-key reuse check.
	DisableKeyGuard bool

	// Rand defaults to crypto/rand.
	Rand io.Reader
}

// Client wraps Encrypt and Decrypt with a fixed key-server set, logging,
// metrics and a KeyGuard.
type Client struct {
	servers   []KeyServer
	byID      map[ObjectID]KeyServer
	threshold int
	variant   dem.Variant
	logger    logging.Logger
	cache     *KeyCache
	guard     *dem.KeyGuard
	rand      io.Reader
}

// EncryptRequest overrides the client defaults for one encryption. Zero
// values fall back to the client configuration.
type EncryptRequest struct {
	PackageID ObjectID
	ID        []byte
	Threshold int
	Variant   *dem.Variant
	AAD       []byte
}

// NewClient validates cfg and creates a client.
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil client config", ErrInvalidConfiguration)
	}
	if len(cfg.KeyServers) == 0 {
		return nil, fmt.Errorf("%w: no key servers configured", ErrInvalidConfiguration)
	}

	byID := make(map[ObjectID]KeyServer, len(cfg.KeyServers))
	for _, ks := range cfg.KeyServers {
		if _, dup := byID[ks.ObjectID]; dup {
			return nil, fmt.Errorf("%w: duplicate key server %s", ErrInvalidConfiguration, ks.ObjectID)
		}
		byID[ks.ObjectID] = ks
	}

	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = len(cfg.KeyServers)
	}
	if threshold < 1 || threshold > len(cfg.KeyServers) {
		return nil, fmt.Errorf("%w: threshold %d with %d key servers", ErrInvalidConfiguration, threshold, len(cfg.KeyServers))
	}
	if !cfg.Variant.Valid() {
		return nil, fmt.Errorf("%w: %w: %s", ErrInvalidConfiguration, ErrUnsupportedVariant, cfg.Variant)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	cache := cfg.Cache
	if cache == nil {
		cache = NewKeyCache()
	}

	return &Client{
		servers:   cfg.KeyServers,
		byID:      byID,
		threshold: threshold,
		variant:   cfg.Variant,
		logger:    logger.With(logging.String("component", "seal")),
		cache:     cache,
		guard:     dem.NewKeyGuard(!cfg.DisableKeyGuard),
		rand:      cfg.Rand,
	}, nil
}

// Cache returns the key cache consulted by Decrypt.
func (c *Client) Cache() *KeyCache {
	return c.cache
}

// KeyServers returns the configured server set.
func (c *Client) KeyServers() []KeyServer {
	return c.servers
}

// Servers resolves the services of obj against the configured key servers,
// one entry per service. A server listed twice appears twice so that it
// carries both shares toward the threshold. Services whose server is
// unknown are skipped; the result may therefore hold fewer than threshold
// entries.
func (c *Client) Servers(obj *EncryptedObject) []KeyServer {
	out := make([]KeyServer, 0, len(obj.Services))
	for _, s := range obj.Services {
		if ks, ok := c.byID[s.ObjectID]; ok {
			out = append(out, ks)
		}
	}
	return out
}

// Encrypt seals plaintext to the configured key servers.
func (c *Client) Encrypt(ctx context.Context, plaintext []byte, req *EncryptRequest) ([]byte, *EncryptedObject, error) {
	if req == nil {
		return nil, nil, fmt.Errorf("%w: nil encrypt request", ErrInvalidConfiguration)
	}
	params := &EncryptParams{
		PackageID:  req.PackageID,
		ID:         req.ID,
		KeyServers: c.servers,
		Threshold:  c.threshold,
		Variant:    c.variant,
		AAD:        req.AAD,
		Rand:       c.rand,
	}
	if req.Threshold != 0 {
		params.Threshold = req.Threshold
	}
	if req.Variant != nil {
		params.Variant = *req.Variant
	}

	start := time.Now()
	dataKey, obj, err := encrypt(plaintext, params, c.guard)
	c.record(ctx, metrics.OpEncrypt, params.Variant, start, err,
		logging.String("package_id", params.PackageID.String()),
		logging.Int("threshold", params.Threshold),
		logging.Int("servers", len(params.KeyServers)),
		logging.Int("plaintext_bytes", len(plaintext)))
	if err != nil {
		return nil, nil, err
	}
	return dataKey, obj, nil
}

// Decrypt opens obj with the keys already in the client cache.
func (c *Client) Decrypt(ctx context.Context, obj *EncryptedObject) ([]byte, error) {
	variant := dem.Variant(0xff)
	if obj != nil && obj.Ciphertext != nil {
		variant = obj.Ciphertext.Variant()
	}

	start := time.Now()
	plaintext, err := Decrypt(obj, c.cache)
	fields := []logging.Field{}
	if obj != nil {
		fields = append(fields,
			logging.String("package_id", obj.PackageID.String()),
			logging.Int("threshold", int(obj.Threshold)),
			logging.Int("available", c.cache.Available(obj)))
	}
	c.record(ctx, metrics.OpDecrypt, variant, start, err, fields...)
	return plaintext, err
}

func (c *Client) record(ctx context.Context, op string, variant dem.Variant, start time.Time, err error, fields ...logging.Field) {
	elapsed := time.Since(start)
	fields = append(fields,
		logging.String("variant", variant.String()),
		logging.Int64("duration_ms", elapsed.Milliseconds()))

	if err != nil {
		metrics.RecordOperation(op, variant.String(), metrics.StatusError, elapsed.Seconds())
		metrics.RecordError(op, ErrorType(err))
		c.logger.WarnContext(ctx, op+" failed", append(fields, logging.Error(err))...)
		return
	}
	metrics.RecordOperation(op, variant.String(), metrics.StatusSuccess, elapsed.Seconds())
	c.logger.DebugContext(ctx, op+" succeeded", fields...)
}
