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

package vault

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/storage"
)

const testToken = "test-token"

// kvServer is a minimal KV v2 engine mounted at /v1/secret.
type kvServer struct {
	mu   sync.Mutex
	data map[string]map[string]any
}

func (kv *kvServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Vault-Token") != testToken {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"errors":["permission denied"]}`))
		return
	}

	kv.mu.Lock()
	defer kv.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/v1/secret/")
	switch {
	case strings.HasPrefix(path, "data/"):
		key := strings.TrimPrefix(path, "data/")
		switch r.Method {
		case http.MethodGet:
			v, ok := kv.data[key]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			writeBody(w, map[string]any{"data": map[string]any{"data": v, "metadata": map[string]any{"version": 1}}})
		case http.MethodPut, http.MethodPost:
			var body struct {
				Data map[string]any `json:"data"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			kv.data[key] = body.Data
			writeBody(w, map[string]any{"data": map[string]any{"version": 1}})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}

	case strings.HasPrefix(path, "metadata"):
		key := strings.TrimPrefix(strings.TrimPrefix(path, "metadata"), "/")
		if r.Method == http.MethodDelete {
			delete(kv.data, key)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if r.Method == "LIST" || r.URL.Query().Get("list") == "true" {
			dir := key
			if dir != "" {
				dir += "/"
			}
			seen := map[string]struct{}{}
			for k := range kv.data {
				rest, ok := strings.CutPrefix(k, dir)
				if !ok {
					continue
				}
				if i := strings.Index(rest, "/"); i >= 0 {
					rest = rest[:i+1]
				}
				seen[rest] = struct{}{}
			}
			if len(seen) == 0 {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			keys := make([]string, 0, len(seen))
			for k := range seen {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			writeBody(w, map[string]any{"data": map[string]any{"keys": keys}})
			return
		}
		w.WriteHeader(http.StatusMethodNotAllowed)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func writeBody(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestStorage(t *testing.T, token string) (storage.Backend, *kvServer) {
	t.Helper()
	kv := &kvServer{data: make(map[string]map[string]any)}
	ts := httptest.NewServer(kv)
	t.Cleanup(ts.Close)

	s, err := New(&Config{Address: ts.URL, Token: token})
	require.NoError(t, err)
	return s, kv
}

func TestConfigValidate(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
	_, err = New(&Config{Token: "t"})
	assert.ErrorContains(t, err, "address")
	_, err = New(&Config{Address: "http://127.0.0.1:8200"})
	assert.ErrorContains(t, err, "token")

	cfg := &Config{Address: "http://127.0.0.1:8200", Token: "t"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "secret", cfg.Mount)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
}

func TestPutGetDelete(t *testing.T) {
	s, kv := newTestStorage(t, testToken)

	_, err := s.Get("keyserver/master/a")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	value := []byte{0x00, 0x01, 0xfe, 0xff}
	require.NoError(t, s.Put("keyserver/master/a", value, nil))
	assert.Contains(t, kv.data, "keyserver/master/a")

	got, err := s.Get("keyserver/master/a")
	require.NoError(t, err)
	assert.Equal(t, value, got)

	ok, err := s.Exists("keyserver/master/a")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete("keyserver/master/a"))
	ok, err = s.Exists("keyserver/master/a")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, s.Delete("keyserver/master/a"), storage.ErrNotFound)
}

func TestList(t *testing.T) {
	s, _ := newTestStorage(t, testToken)
	for _, k := range []string{"keyserver/master/b", "keyserver/master/a", "keyserver/other", "top"} {
		require.NoError(t, s.Put(k, []byte("v"), nil))
	}

	keys, err := s.List("keyserver/master/")
	require.NoError(t, err)
	assert.Equal(t, []string{"keyserver/master/a", "keyserver/master/b"}, keys)

	keys, err = s.List("keyserver/")
	require.NoError(t, err)
	assert.Equal(t, []string{"keyserver/master/a", "keyserver/master/b", "keyserver/other"}, keys)

	keys, err = s.List("")
	require.NoError(t, err)
	assert.Len(t, keys, 4)

	keys, err = s.List("missing/")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestInvalidData(t *testing.T) {
	s, kv := newTestStorage(t, testToken)
	kv.data["bad"] = map[string]any{"value": "not base64!"}
	_, err := s.Get("bad")
	assert.ErrorIs(t, err, storage.ErrInvalidData)

	kv.data["empty"] = map[string]any{"other": "x"}
	_, err = s.Get("empty")
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestInvalidKeys(t *testing.T) {
	s, _ := newTestStorage(t, testToken)
	for _, k := range []string{"", "/abs", "dir/", "a/../b"} {
		assert.ErrorIs(t, s.Put(k, []byte("v"), nil), storage.ErrInvalidKey, k)
	}
}

func TestPermissionDenied(t *testing.T) {
	s, _ := newTestStorage(t, "wrong")
	_, err := s.Get("k")
	assert.ErrorIs(t, err, ErrVaultConnection)
}

func TestClose(t *testing.T) {
	s, _ := newTestStorage(t, testToken)
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Close(), storage.ErrClosed)
	_, err := s.Get("k")
	assert.ErrorIs(t, err, storage.ErrClosed)
	assert.ErrorIs(t, s.Put("k", nil, nil), storage.ErrClosed)
	_, err = s.List("")
	assert.ErrorIs(t, err, storage.ErrClosed)
}
