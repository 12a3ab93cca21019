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

package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viol3/Sui-Unity-SDK-sub000/internal/config"
	"github.com/viol3/Sui-Unity-SDK-sub000/internal/rest"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/ibe"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/keyserver"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/logging"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/seal"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := runWithLog(t, args...)
	return out, err
}

// runWithLog also returns what the command logged.
func runWithLog(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

type testKeyServer struct {
	svc *keyserver.Service
	ts  *httptest.Server
}

func startKeyServers(t *testing.T, n int) []*testKeyServer {
	t.Helper()
	out := make([]*testKeyServer, n)
	for i := range out {
		msk, _, err := ibe.GenerateKeyPair(nil)
		require.NoError(t, err)
		svc, err := keyserver.NewService(&keyserver.ServiceConfig{
			ObjectID:  seal.ObjectID{31: byte(i + 1)},
			MasterKey: msk,
			Policy:    keyserver.AllowAll{},
		})
		require.NoError(t, err)
		srv, err := rest.NewServer(&rest.Config{Service: svc})
		require.NoError(t, err)
		ts := httptest.NewServer(srv.Handler())
		t.Cleanup(ts.Close)
		out[i] = &testKeyServer{svc: svc, ts: ts}
	}
	return out
}

// writeConfig writes a client config. The first server carries its public
// key, the others are discovered.
func writeConfig(t *testing.T, servers []*testKeyServer, threshold int) string {
	t.Helper()
	cfg := config.Default()
	cfg.Client.Threshold = threshold
	cfg.Client.RetryMax = 0
	cfg.Client.RequestTimeout = 2 * time.Second
	for i, s := range servers {
		e := config.KeyServerEntry{
			Name:     fmt.Sprintf("ks%d", i+1),
			ObjectID: s.svc.ObjectID().String(),
			URL:      s.ts.URL,
		}
		if i == 0 {
			e.PublicKey = base64.StdEncoding.EncodeToString(s.svc.PublicKey().Bytes())
		}
		cfg.Client.KeyServers = append(cfg.Client.KeyServers, e)
	}
	data, err := cfg.Marshal()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "seal.yaml")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "seal version "+Version)

	out, err = run(t, "version", "-o", "json")
	require.NoError(t, err)
	var v map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, Version, v["version"])
}

func TestUnknownOutputFormat(t *testing.T) {
	_, err := run(t, "inspect", "-o", "yaml")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestKeygenPersistsMasterKey(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, "keygen", "--storage-path", dir, "--object-id", "0x5", "-o", "json")
	require.NoError(t, err)
	var first KeygenResult
	require.NoError(t, json.Unmarshal([]byte(out), &first))
	assert.True(t, first.Created)
	assert.Equal(t, seal.ObjectID{31: 5}.String(), first.ObjectID)

	out, err = run(t, "keygen", "--storage-path", dir, "--object-id", "0x5", "-o", "json")
	require.NoError(t, err)
	var second KeygenResult
	require.NoError(t, json.Unmarshal([]byte(out), &second))
	assert.False(t, second.Created)
	assert.Equal(t, first.PublicKey, second.PublicKey)
}

func TestKeygenLogsRedactedMasterKey(t *testing.T) {
	dir := t.TempDir()

	_, logs, err := runWithLog(t, "keygen", "--storage-path", dir, "--object-id", "0x6")
	require.NoError(t, err)
	assert.Contains(t, logs, "redacted:32:")

	raw, err := os.ReadFile(filepath.Join(dir, keyserver.MasterKeyPath(seal.ObjectID{31: 6})))
	require.NoError(t, err)
	assert.NotContains(t, logs, hex.EncodeToString(raw))
	assert.NotContains(t, logs, base64.StdEncoding.EncodeToString(raw))
}

func TestEncryptDecrypt(t *testing.T) {
	servers := startKeyServers(t, 3)
	cfgPath := writeConfig(t, servers, 2)
	dir := t.TempDir()

	plain := filepath.Join(dir, "plain.txt")
	sealed := filepath.Join(dir, "plain.seal")
	opened := filepath.Join(dir, "plain.out")
	dataKey := filepath.Join(dir, "data.key")
	require.NoError(t, os.WriteFile(plain, []byte("attack at dawn"), 0600))

	out, err := run(t, "--config", cfgPath, "encrypt",
		"--package", "0x42", "--id", "0x0102",
		"--in", plain, "--out", sealed,
		"--variant", "hmac-256-ctr", "--aad", "hdr",
		"--data-key-out", dataKey)
	require.NoError(t, err)
	assert.Contains(t, out, "Threshold: 2 of 3")

	out, err = run(t, "inspect", "--in", sealed, "-o", "json")
	require.NoError(t, err)
	var header map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &header))
	assert.Equal(t, "0102", header["id"])
	assert.Equal(t, "hmac-256-ctr", header["variant"])
	assert.Equal(t, true, header["aad"])
	assert.Len(t, header["services"], 3)

	// One server down is tolerated. The first server is configured with
	// its public key, so it needs no discovery.
	servers[0].ts.Close()
	_, err = run(t, "--config", cfgPath, "decrypt", "--in", sealed, "--out", opened)
	require.NoError(t, err)
	got, err := os.ReadFile(opened)
	require.NoError(t, err)
	assert.Equal(t, "attack at dawn", string(got))

	out, err = run(t, "decrypt", "--in", sealed, "--data-key", dataKey)
	require.NoError(t, err)
	assert.Equal(t, "attack at dawn", out)
}

func TestDecryptInsufficientServers(t *testing.T) {
	servers := startKeyServers(t, 2)
	cfgPath := writeConfig(t, servers, 2)
	dir := t.TempDir()
	sealed := filepath.Join(dir, "obj.seal")

	var out, errOut bytes.Buffer
	cmd := NewRootCmd(&out, &errOut)
	cmd.SetIn(strings.NewReader("secret"))
	cmd.SetArgs([]string{"--config", cfgPath, "encrypt", "--package", "0x1", "--id", "doc", "--out", sealed})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	servers[0].ts.Close()
	_, err := run(t, "--config", cfgPath, "decrypt", "--in", sealed)
	assert.ErrorIs(t, err, seal.ErrInsufficientShares)
}

func TestEncryptRequiresKeyServers(t *testing.T) {
	_, err := run(t, "encrypt", "--package", "0x1", "--id", "x", "--in", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	in := filepath.Join(t.TempDir(), "in")
	require.NoError(t, os.WriteFile(in, []byte("x"), 0600))
	_, err = run(t, "encrypt", "--package", "0x1", "--id", "x", "--in", in)
	assert.ErrorIs(t, err, seal.ErrInvalidConfiguration)
}

func TestResolveKeyServersRejectsMismatchedID(t *testing.T) {
	servers := startKeyServers(t, 1)
	entries := []config.KeyServerEntry{{Name: "ks", ObjectID: "0x99", URL: servers[0].ts.URL}}
	_, err := resolveKeyServers(context.Background(), entries, keyserver.NewClient(nil))
	assert.ErrorIs(t, err, keyserver.ErrInvalidKey)
}

func TestParseIdentity(t *testing.T) {
	b, err := parseIdentity("0xff00")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0x00}, b)

	b, err = parseIdentity("plain")
	require.NoError(t, err)
	assert.Equal(t, []byte("plain"), b)

	_, err = parseIdentity("0xzz")
	assert.Error(t, err)
}

func TestBuildPolicy(t *testing.T) {
	p, err := buildPolicy(&config.PolicyConfig{Type: config.PolicyPackageAllowlist, Packages: []string{"0x7"}})
	require.NoError(t, err)
	ctx := context.Background()
	assert.NoError(t, p.Check(ctx, &keyserver.PolicyRequest{PackageID: seal.ObjectID{31: 7}}))
	assert.ErrorIs(t, p.Check(ctx, &keyserver.PolicyRequest{PackageID: seal.ObjectID{31: 8}}), keyserver.ErrPolicyDenied)

	_, err = buildPolicy(&config.PolicyConfig{Type: "chain"})
	assert.Error(t, err)
}

func TestServe(t *testing.T) {
	cfg := config.Default().KeyServer
	cfg.Storage = config.StorageConfig{Backend: config.StorageFile, Path: t.TempDir()}
	cfg.RateLimit.Enabled = false

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, &cfg, logging.NewNop(), ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health/ready")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	ks, err := keyserver.NewClient(nil).Discover(context.Background(), "local", base)
	require.NoError(t, err)
	assert.Equal(t, seal.ObjectID{31: 1}, ks.ObjectID)

	resp, err := http.Get(base + cfg.Metrics.Path)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
