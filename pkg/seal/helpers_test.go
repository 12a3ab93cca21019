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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/ibe"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/pairing"
)

type testKeyServer struct {
	KeyServer
	msk *pairing.Scalar
}

var testPackage = ObjectID{0: 0x0a, 31: 0x01}

func newTestServers(t *testing.T, n int) []testKeyServer {
	t.Helper()
	out := make([]testKeyServer, n)
	for i := range out {
		msk, pk, err := ibe.GenerateKeyPair(nil)
		require.NoError(t, err)
		var id ObjectID
		id[0] = 0xee
		id[31] = byte(i + 1)
		out[i] = testKeyServer{
			KeyServer: KeyServer{ObjectID: id, PublicKey: pk, Name: "server"},
			msk:       msk,
		}
	}
	return out
}

func keyServers(servers []testKeyServer) []KeyServer {
	out := make([]KeyServer, len(servers))
	for i, s := range servers {
		out[i] = s.KeyServer
	}
	return out
}

// cacheFor extracts keys for fullID from the servers at the given positions.
func cacheFor(servers []testKeyServer, fullID []byte, positions ...int) *KeyCache {
	cache := NewKeyCache()
	for _, p := range positions {
		cache.Put(fullID, servers[p].ObjectID, ibe.Extract(servers[p].msk, fullID))
	}
	return cache
}

// countingReader records how many bytes were requested.
type countingReader struct {
	n int
}

func (r *countingReader) Read(p []byte) (int, error) {
	r.n += len(p)
	for i := range p {
		p[i] = byte(r.n + i)
	}
	return len(p), nil
}
