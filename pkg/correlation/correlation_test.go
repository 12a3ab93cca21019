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

package correlation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithCorrelationID(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		id   string
	}{
		{name: "background context", ctx: context.Background(), id: "abc"},
		{name: "nil context", ctx: nil, id: "def"},
		{name: "empty id", ctx: context.Background(), id: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := WithCorrelationID(tt.ctx, tt.id)
			require.NotNil(t, ctx)
			assert.Equal(t, tt.id, GetCorrelationID(ctx))
		})
	}
}

func TestGetCorrelationIDMissing(t *testing.T) {
	assert.Empty(t, GetCorrelationID(context.Background()))
	assert.Empty(t, GetCorrelationID(nil)) //nolint:staticcheck
}

func TestNewID(t *testing.T) {
	id := NewID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, NewID())
}

func TestGetOrGenerateAndEnsure(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "fixed")
	assert.Equal(t, "fixed", GetOrGenerate(ctx))
	assert.Equal(t, ctx, Ensure(ctx))

	fresh := Ensure(context.Background())
	assert.NotEmpty(t, GetCorrelationID(fresh))
	assert.NotEmpty(t, GetOrGenerate(context.Background()))
}

func TestFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-id")
	assert.Equal(t, "req-id", FromRequest(req))

	req.Header.Set(CorrelationIDHeader, "corr-id")
	assert.Equal(t, "corr-id", FromRequest(req))

	bare := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.NotEmpty(t, FromRequest(bare))
}

func TestSetHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/fetch_key", nil)
	SetHeader(context.Background(), req)
	assert.Empty(t, req.Header.Get(CorrelationIDHeader))

	SetHeader(WithCorrelationID(context.Background(), "xyz"), req)
	assert.Equal(t, "xyz", req.Header.Get(CorrelationIDHeader))
}
