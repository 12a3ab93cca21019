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

// Package keyserver implements both sides of partial-key release: a Client
// that fetches user secret keys from a threshold of key servers in
// parallel, and a Service that releases them subject to a PolicyChecker.
//
// Keys travel ElGamal-encrypted to an ephemeral key chosen per fetch, and
// every key is verified against the server's public key before it reaches
// the seal.KeyCache.
package keyserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/errgroup"

	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/correlation"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/elgamal"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/ibe"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/pairing"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/logging"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/metrics"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/seal"
)

const (
	// DefaultRequestTimeout bounds a single key-server request, retries
	// included.
	DefaultRequestTimeout = 10 * time.Second

	// DefaultRetryMax is the retry count used by the CLI configuration.
	DefaultRetryMax = 2

	maxResponseBytes = 1 << 20
)

// ClientConfig configures a Client.
type ClientConfig struct {
	// RequestTimeout bounds each server request. Defaults to
	// DefaultRequestTimeout.
	RequestTimeout time.Duration

	// RetryMax is the number of transport retries. Zero disables retries.
	RetryMax int

	// RetryWaitMin and RetryWaitMax bound the retry backoff.
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// MaxConcurrency limits parallel requests. Zero means one per server.
	MaxConcurrency int

	// HTTPClient is the underlying transport. Defaults to a pooled client.
	HTTPClient *http.Client

	Logger logging.Logger

	// Rand defaults to crypto/rand.
	Rand io.Reader
}

// KeyRequest names the identity to fetch keys for and carries the opaque
// authorization material forwarded to every server.
type KeyRequest struct {
	PackageID        seal.ObjectID
	ID               []byte
	PTB              []byte
	Certificate      *Certificate
	RequestSignature []byte
}

// Client fetches user secret keys from key servers.
type Client struct {
	http        *http.Client
	timeout     time.Duration
	concurrency int
	logger      logging.Logger
	rand        io.Reader
}

// NewClient creates a client. A nil config selects the defaults.
func NewClient(cfg *ClientConfig) *Client {
	if cfg == nil {
		cfg = &ClientConfig{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With(logging.String("component", "keyserver-client"))

	rc := retryablehttp.NewClient()
	rc.RetryMax = max(cfg.RetryMax, 0)
	if cfg.RetryWaitMin > 0 {
		rc.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		rc.RetryWaitMax = cfg.RetryWaitMax
	}
	if cfg.HTTPClient != nil {
		rc.HTTPClient = cfg.HTTPClient
	}
	rc.Logger = &leveledLogger{logger: logger}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Client{
		http:        rc.StandardClient(),
		timeout:     timeout,
		concurrency: cfg.MaxConcurrency,
		logger:      logger,
		rand:        cfg.Rand,
	}
}

// ServiceInfo queries GET /v1/service on baseURL.
func (c *Client) ServiceInfo(ctx context.Context, baseURL string) (*ServiceInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var info ServiceInfo
	if err := c.do(ctx, http.MethodGet, baseURL+ServicePath, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Discover builds a seal.KeyServer from the service endpoint at baseURL.
func (c *Client) Discover(ctx context.Context, name, baseURL string) (seal.KeyServer, error) {
	baseURL = strings.TrimSuffix(baseURL, "/")
	info, err := c.ServiceInfo(ctx, baseURL)
	if err != nil {
		return seal.KeyServer{}, err
	}
	pk, err := pairing.G2FromBytes(info.PublicKey)
	if err != nil {
		return seal.KeyServer{}, fmt.Errorf("%w: public key of %s: %w", ErrInvalidKey, baseURL, err)
	}
	return seal.KeyServer{ObjectID: info.ServiceID, PublicKey: pk, Name: name, URL: baseURL}, nil
}

// FetchKeys obtains user secret keys for req's identity from servers and
// stores them in cache. Servers already present in the cache are skipped.
// A server listed more than once is contacted once and counts once per
// listing, matching how Decrypt counts services. It returns nil once
// threshold is reached and cancels the requests still in flight. When too many servers fail it
// returns a *seal.InsufficientSharesError joined with every per-server
// error.
func (c *Client) FetchKeys(ctx context.Context, servers []seal.KeyServer, req *KeyRequest, cache *seal.KeyCache, threshold int) error {
	if req == nil || cache == nil {
		return fmt.Errorf("%w: request and cache are required", seal.ErrInvalidConfiguration)
	}
	if threshold < 1 || threshold > len(servers) {
		return fmt.Errorf("%w: threshold %d with %d key servers", seal.ErrInvalidConfiguration, threshold, len(servers))
	}

	fullID := seal.FullIdentity(req.PackageID, req.ID)
	weights := make(map[seal.ObjectID]int, len(servers))
	have := 0
	var pending []seal.KeyServer
	for _, ks := range servers {
		weights[ks.ObjectID]++
		if cache.Has(fullID, ks.ObjectID) {
			have++
			continue
		}
		if weights[ks.ObjectID] == 1 {
			pending = append(pending, ks)
		}
	}
	if have >= threshold {
		return nil
	}

	sk, pk, vk, err := elgamal.GenerateKey(c.rand)
	if err != nil {
		return err
	}
	body, err := json.Marshal(&FetchKeyRequest{
		PTB:                req.PTB,
		EncKey:             pk.P.Bytes(),
		EncVerificationKey: vk.P.Bytes(),
		RequestSignature:   req.RequestSignature,
		Certificate:        req.Certificate,
		IDs:                [][]byte{fullID},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal fetch request: %w", err)
	}

	ctx = correlation.Ensure(ctx)
	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}
	for _, ks := range pending {
		g.Go(func() error {
			if fetchCtx.Err() != nil {
				return nil
			}
			usk, err := c.fetchOne(fetchCtx, ks, body, sk, fullID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if have < threshold {
					errs = append(errs, fmt.Errorf("key server %s: %w", ks.ObjectID, err))
				}
				return nil
			}
			cache.Put(fullID, ks.ObjectID, usk)
			have += weights[ks.ObjectID]
			if have >= threshold {
				cancel()
			}
			return nil
		})
	}
	_ = g.Wait()

	if have >= threshold {
		c.logger.DebugContext(ctx, "fetched threshold keys",
			logging.Int("have", have), logging.Int("threshold", threshold))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.logger.WarnContext(ctx, "key fetch below threshold",
		logging.Int("have", have), logging.Int("threshold", threshold), logging.Int("failures", len(errs)))
	return errors.Join(append([]error{&seal.InsufficientSharesError{Have: have, Threshold: threshold}}, errs...)...)
}

func (c *Client) fetchOne(ctx context.Context, ks seal.KeyServer, body []byte, sk *elgamal.SecretKey, fullID []byte) (*pairing.G1, error) {
	start := time.Now()
	usk, err := c.fetchAndVerify(ctx, ks, body, sk, fullID)
	elapsed := time.Since(start)

	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
		metrics.RecordError(metrics.OpFetchKey, errorType(err))
		if ctx.Err() == nil {
			c.logger.WarnContext(ctx, "key server request failed",
				logging.String("server", ks.ObjectID.String()),
				logging.String("url", ks.URL),
				logging.Error(err))
		}
	}
	metrics.RecordKeyFetch(ks.ObjectID.String(), status, elapsed.Seconds())
	return usk, err
}

func (c *Client) fetchAndVerify(ctx context.Context, ks seal.KeyServer, body []byte, sk *elgamal.SecretKey, fullID []byte) (*pairing.G1, error) {
	if ks.URL == "" {
		return nil, fmt.Errorf("%w: key server %s has no URL", seal.ErrInvalidConfiguration, ks.ObjectID)
	}
	if ks.PublicKey == nil {
		return nil, fmt.Errorf("%w: key server %s has no public key", seal.ErrInvalidConfiguration, ks.ObjectID)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var resp FetchKeyResponse
	if err := c.do(ctx, http.MethodPost, strings.TrimSuffix(ks.URL, "/")+FetchKeyPath, body, &resp); err != nil {
		return nil, err
	}

	for _, dk := range resp.DecryptionKeys {
		if !bytes.Equal(dk.ID, fullID) {
			continue
		}
		ct, err := decodeCiphertext(dk.EncryptedKey)
		if err != nil {
			return nil, err
		}
		usk, err := elgamal.Decrypt(sk, ct)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
		}
		if !ibe.VerifyUserSecretKey(usk, fullID, ks.PublicKey) {
			return nil, ErrInvalidKey
		}
		return usk, nil
	}
	return nil, ErrMissingKey
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, out any) error {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	correlation.SetHeader(ctx, req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		serr := &ServerError{StatusCode: resp.StatusCode}
		var errResp ErrorResponse
		if json.Unmarshal(data, &errResp) == nil {
			serr.Code = errResp.Error
			serr.Message = errResp.Message
		}
		return serr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// leveledLogger adapts logging.Logger to retryablehttp.LeveledLogger.
type leveledLogger struct {
	logger logging.Logger
}

var _ retryablehttp.LeveledLogger = (*leveledLogger)(nil)

func (l *leveledLogger) Error(msg string, kv ...interface{}) { l.logger.Error(msg, fields(kv)...) }
func (l *leveledLogger) Info(msg string, kv ...interface{})  { l.logger.Debug(msg, fields(kv)...) }
func (l *leveledLogger) Debug(msg string, kv ...interface{}) { l.logger.Debug(msg, fields(kv)...) }
func (l *leveledLogger) Warn(msg string, kv ...interface{})  { l.logger.Warn(msg, fields(kv)...) }

func fields(kv []interface{}) []logging.Field {
	out := make([]logging.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		out = append(out, logging.Any(key, kv[i+1]))
	}
	return out
}
