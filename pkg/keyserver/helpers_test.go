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

package keyserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/ibe"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/seal"
)

var testPackage = seal.ObjectID{0: 0xaa, 31: 0x01}

// testServer is one key server behind an httptest listener. behavior, when
// set, replaces the normal handler.
type testServer struct {
	svc      *Service
	srv      *httptest.Server
	requests atomic.Int32
	lastCID  atomic.Value
	behavior http.HandlerFunc
}

func (ts *testServer) keyServer() seal.KeyServer {
	return ts.svc.KeyServer("test", ts.srv.URL)
}

func newService(t *testing.T, id byte, policy PolicyChecker) *Service {
	t.Helper()
	msk, _, err := ibe.GenerateKeyPair(nil)
	require.NoError(t, err)
	if policy == nil {
		policy = AllowAll{}
	}
	svc, err := NewService(&ServiceConfig{
		ObjectID:  seal.ObjectID{31: id},
		MasterKey: msk,
		Policy:    policy,
	})
	require.NoError(t, err)
	return svc
}

func newTestServer(t *testing.T, svc *Service) *testServer {
	t.Helper()
	ts := &testServer{svc: svc}
	ts.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.requests.Add(1)
		ts.lastCID.Store(r.Header.Get("X-Correlation-ID"))
		if ts.behavior != nil {
			ts.behavior(w, r)
			return
		}
		serve(ts.svc, w, r)
	}))
	t.Cleanup(ts.close)
	return ts
}

// close drops open client connections first so handlers blocked on the
// request context return before Close waits on them.
func (ts *testServer) close() {
	ts.srv.CloseClientConnections()
	ts.srv.Close()
}

// serve is a minimal transport for Service.
func serve(svc *Service, w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case ServicePath:
		_ = json.NewEncoder(w).Encode(svc.Info())
	case FetchKeyPath:
		var req FetchKeyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		resp, err := svc.FetchKeys(r.Context(), &req)
		switch {
		case errors.Is(err, ErrPolicyDenied):
			writeError(w, http.StatusForbidden, err)
		case errors.Is(err, ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, err)
		case err != nil:
			writeError(w, http.StatusInternalServerError, err)
		default:
			_ = json.NewEncoder(w).Encode(resp)
		}
	default:
		http.NotFound(w, r)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(&ErrorResponse{Error: http.StatusText(status), Message: err.Error(), Code: status})
}

func failing(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, status, errors.New("unavailable"))
	}
}

// hanging reads the body so the server notices a client disconnect, then
// blocks until the request is abandoned.
func hanging(w http.ResponseWriter, r *http.Request) {
	_, _ = io.Copy(io.Discard, r.Body)
	<-r.Context().Done()
}

func newCluster(t *testing.T, n int) []*testServer {
	t.Helper()
	out := make([]*testServer, n)
	for i := range out {
		out[i] = newTestServer(t, newService(t, byte(i+1), nil))
	}
	return out
}

func keyServersOf(servers []*testServer) []seal.KeyServer {
	out := make([]seal.KeyServer, len(servers))
	for i, s := range servers {
		out[i] = s.keyServer()
	}
	return out
}

func testRequest(id string) *KeyRequest {
	return &KeyRequest{PackageID: testPackage, ID: []byte(id), PTB: []byte("ptb")}
}
