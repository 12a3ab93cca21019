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

package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/dem"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/elgamal"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/ibe"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/health"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/keyserver"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/ratelimit"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/seal"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/storage/memory"
)

var testPackage = seal.ObjectID{31: 0x42}

func newService(t *testing.T, id byte, policy keyserver.PolicyChecker) *keyserver.Service {
	t.Helper()
	msk, _, err := ibe.GenerateKeyPair(nil)
	require.NoError(t, err)
	if policy == nil {
		policy = keyserver.AllowAll{}
	}
	svc, err := keyserver.NewService(&keyserver.ServiceConfig{
		ObjectID:  seal.ObjectID{31: id},
		MasterKey: msk,
		Policy:    policy,
	})
	require.NoError(t, err)
	return svc
}

func newTestServer(t *testing.T, cfg *Config) (*Server, *httptest.Server) {
	t.Helper()
	if cfg.Service == nil {
		cfg.Service = newService(t, 1, nil)
	}
	s, err := NewServer(cfg)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func fetchBody(t *testing.T, ids ...[]byte) []byte {
	t.Helper()
	_, pk, vk, err := elgamal.GenerateKey(nil)
	require.NoError(t, err)
	body, err := json.Marshal(&keyserver.FetchKeyRequest{
		PTB:                []byte("ptb"),
		EncKey:             pk.P.Bytes(),
		EncVerificationKey: vk.P.Bytes(),
		IDs:                ids,
	})
	require.NoError(t, err)
	return body
}

func post(t *testing.T, url string, body []byte) *http.Response {
	t.Helper()
	resp, err := http.Post(url+keyserver.FetchKeyPath, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeError(t *testing.T, resp *http.Response) keyserver.ErrorResponse {
	t.Helper()
	var e keyserver.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	return e
}

func TestNewServerRequiresService(t *testing.T) {
	_, err := NewServer(nil)
	assert.Error(t, err)
	_, err = NewServer(&Config{})
	assert.Error(t, err)
}

func TestEndToEndDecrypt(t *testing.T) {
	var servers []seal.KeyServer
	for i := range 3 {
		svc := newService(t, byte(i+1), nil)
		_, ts := newTestServer(t, &Config{Service: svc})
		servers = append(servers, svc.KeyServer("ks", ts.URL))
	}

	_, obj, err := seal.Encrypt([]byte("over the wire"), &seal.EncryptParams{
		PackageID:  testPackage,
		ID:         []byte("file-7"),
		KeyServers: servers,
		Threshold:  2,
		Variant:    dem.AES256GCM,
	})
	require.NoError(t, err)

	wire, err := obj.MarshalBinary()
	require.NoError(t, err)
	parsed, err := seal.ParseEncryptedObject(wire)
	require.NoError(t, err)

	client := keyserver.NewClient(&keyserver.ClientConfig{RequestTimeout: 2 * time.Second})
	cache := seal.NewKeyCache()
	req := &keyserver.KeyRequest{PackageID: parsed.PackageID, ID: parsed.ID, PTB: []byte("ptb")}
	require.NoError(t, client.FetchKeys(context.Background(), servers, req, cache, int(parsed.Threshold)))

	plaintext, err := seal.Decrypt(parsed, cache)
	require.NoError(t, err)
	assert.Equal(t, []byte("over the wire"), plaintext)
}

func TestServiceEndpoint(t *testing.T) {
	svc := newService(t, 9, nil)
	_, ts := newTestServer(t, &Config{Service: svc})

	client := keyserver.NewClient(nil)
	ks, err := client.Discover(context.Background(), "nine", ts.URL)
	require.NoError(t, err)
	assert.Equal(t, svc.ObjectID(), ks.ObjectID)
	assert.True(t, svc.PublicKey().Equal(ks.PublicKey))
}

func TestFetchKeyErrors(t *testing.T) {
	allow := keyserver.NewPackageAllowlist(testPackage)
	_, ts := newTestServer(t, &Config{Service: newService(t, 1, allow)})

	t.Run("malformed json", func(t *testing.T) {
		resp := post(t, ts.URL, []byte("{"))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		e := decodeError(t, resp)
		assert.Equal(t, ErrInvalidRequest.Error(), e.Error)
		assert.Equal(t, http.StatusBadRequest, e.Code)
	})

	t.Run("invalid key pair", func(t *testing.T) {
		body := fetchBody(t, seal.FullIdentity(testPackage, []byte("a")))
		var req keyserver.FetchKeyRequest
		require.NoError(t, json.Unmarshal(body, &req))
		req.EncKey = []byte{0}
		body, err := json.Marshal(&req)
		require.NoError(t, err)

		resp := post(t, ts.URL, body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("policy denied", func(t *testing.T) {
		resp := post(t, ts.URL, fetchBody(t, seal.FullIdentity(seal.ObjectID{1: 1}, []byte("a"))))
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		e := decodeError(t, resp)
		assert.Equal(t, ErrForbidden.Error(), e.Error)
		assert.Contains(t, e.Message, "not allowed")
	})

	t.Run("wrong content type", func(t *testing.T) {
		resp, err := http.Post(ts.URL+keyserver.FetchKeyPath, "text/plain", strings.NewReader("x"))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
	})

	t.Run("body too large", func(t *testing.T) {
		big := bytes.Repeat([]byte("a"), maxBodyBytes+10)
		resp := post(t, ts.URL, append(append([]byte(`{"ptb":"`), big...), '"', '}'))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("ok", func(t *testing.T) {
		resp := post(t, ts.URL, fetchBody(t, seal.FullIdentity(testPackage, []byte("a"))))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var out keyserver.FetchKeyResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Len(t, out.DecryptionKeys, 1)
	})
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.New(&ratelimit.Config{Enabled: true, RequestsPerMinute: 60, Burst: 2})
	defer limiter.Stop()
	_, ts := newTestServer(t, &Config{RateLimiter: limiter})

	for range 2 {
		resp, err := http.Get(ts.URL + keyserver.ServicePath)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, err := http.Get(ts.URL + keyserver.ServicePath)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.Equal(t, ErrRateLimited.Error(), decodeError(t, resp).Error)

	// Health probes are not throttled.
	live, err := http.Get(ts.URL + "/health/live")
	require.NoError(t, err)
	live.Body.Close()
	assert.Equal(t, http.StatusOK, live.StatusCode)

	// The client reports throttling as ErrRateLimited.
	err = keyserver.NewClient(nil).FetchKeys(context.Background(),
		[]seal.KeyServer{newService(t, 1, nil).KeyServer("x", ts.URL)},
		&keyserver.KeyRequest{PackageID: testPackage, ID: []byte("a")}, seal.NewKeyCache(), 1)
	assert.ErrorIs(t, err, keyserver.ErrRateLimited)
}

func TestHealthEndpoints(t *testing.T) {
	backend := memory.New()
	checker := health.NewChecker()
	checker.RegisterCheck("master_key", health.StorageKeyCheck("master_key", backend, "keyserver/master/x"))
	_, ts := newTestServer(t, &Config{Health: checker})

	get := func(path string) (int, HealthCheckResponse) {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		var body HealthCheckResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return resp.StatusCode, body
	}

	code, _ := get("/health/live")
	assert.Equal(t, http.StatusOK, code)

	code, _ = get("/health/startup")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	checker.MarkStarted()
	code, _ = get("/health/startup")
	assert.Equal(t, http.StatusOK, code)

	code, body := get("/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	require.Len(t, body.Checks, 1)
	assert.Equal(t, "master_key", body.Checks[0].Name)

	require.NoError(t, backend.Put("keyserver/master/x", []byte("k"), nil))
	code, body = get("/health/ready")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, health.StatusHealthy, body.Status)
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, &Config{MetricsPath: "/metrics"})

	resp, err := http.Get(ts.URL + keyserver.ServicePath)
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "seal_http_requests_total")
}

func TestMetricsDisabledByDefault(t *testing.T) {
	_, ts := newTestServer(t, &Config{})
	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, ErrNotFound.Error(), decodeError(t, resp).Error)
}

func TestMethodNotAllowed(t *testing.T) {
	_, ts := newTestServer(t, &Config{})
	resp, err := http.Get(ts.URL + keyserver.FetchKeyPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
