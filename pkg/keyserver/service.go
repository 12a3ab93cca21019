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
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/elgamal"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/ibe"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/pairing"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/logging"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/metrics"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/seal"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/storage"
)

// DefaultMaxIDs bounds the identities released by one request.
const DefaultMaxIDs = 32

// MasterKeyPath returns the storage key holding the master secret of id.
func MasterKeyPath(id seal.ObjectID) string {
	return "keyserver/master/" + id.String()
}

// LoadOrCreateMasterKey reads the master secret of id from backend, or
// generates and stores one if none exists. The bool reports creation.
func LoadOrCreateMasterKey(backend storage.Backend, id seal.ObjectID, rand io.Reader) (*pairing.Scalar, bool, error) {
	path := MasterKeyPath(id)
	data, err := backend.Get(path)
	switch {
	case err == nil:
		defer clear(data)
		msk, err := pairing.ScalarFromBytes(data)
		if err != nil {
			return nil, false, fmt.Errorf("%w: master key %s: %w", storage.ErrInvalidData, path, err)
		}
		return msk, false, nil
	case !errors.Is(err, storage.ErrNotFound):
		return nil, false, fmt.Errorf("failed to read master key: %w", err)
	}

	msk, _, err := ibe.GenerateKeyPair(rand)
	if err != nil {
		return nil, false, err
	}
	raw := msk.Bytes()
	defer clear(raw)
	if err := backend.Put(path, raw, storage.DefaultOptions()); err != nil {
		return nil, false, fmt.Errorf("failed to store master key: %w", err)
	}
	return msk, true, nil
}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	// ObjectID identifies this key server.
	ObjectID seal.ObjectID

	// MasterKey is the IBE master secret.
	MasterKey *pairing.Scalar

	// Policy decides key release. Required.
	Policy PolicyChecker

	// MaxIDs bounds identities per request. Defaults to DefaultMaxIDs.
	MaxIDs int

	Logger logging.Logger

	// Rand defaults to crypto/rand.
	Rand io.Reader
}

// Service releases user secret keys for identities the policy allows. It is
// the transport-independent core of the key server.
type Service struct {
	id     seal.ObjectID
	msk    *pairing.Scalar
	pk     *pairing.G2
	policy PolicyChecker
	maxIDs int
	logger logging.Logger
	rand   io.Reader
}

// NewService validates cfg and creates a service.
func NewService(cfg *ServiceConfig) (*Service, error) {
	if cfg == nil || cfg.MasterKey == nil {
		return nil, fmt.Errorf("%w: master key is required", seal.ErrInvalidConfiguration)
	}
	if cfg.Policy == nil {
		return nil, fmt.Errorf("%w: policy checker is required", seal.ErrInvalidConfiguration)
	}
	maxIDs := cfg.MaxIDs
	if maxIDs <= 0 {
		maxIDs = DefaultMaxIDs
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		id:     cfg.ObjectID,
		msk:    cfg.MasterKey,
		pk:     ibe.PublicKey(cfg.MasterKey),
		policy: cfg.Policy,
		maxIDs: maxIDs,
		logger: logger.With(logging.String("component", "keyserver"), logging.String("server", cfg.ObjectID.String())),
		rand:   cfg.Rand,
	}, nil
}

// ObjectID returns the server identifier.
func (s *Service) ObjectID() seal.ObjectID {
	return s.id
}

// PublicKey returns G2*msk.
func (s *Service) PublicKey() *pairing.G2 {
	return s.pk
}

// Info returns the GET /v1/service body.
func (s *Service) Info() *ServiceInfo {
	return &ServiceInfo{ServiceID: s.id, PublicKey: s.pk.Bytes()}
}

// KeyServer describes this service for seal encryption.
func (s *Service) KeyServer(name, url string) seal.KeyServer {
	return seal.KeyServer{ObjectID: s.id, PublicKey: s.pk, Name: name, URL: url}
}

// FetchKeys checks the request, runs the policy for every identity and
// returns one ElGamal-encrypted user secret key per identity. Either all
// identities are released or none.
func (s *Service) FetchKeys(ctx context.Context, req *FetchKeyRequest) (*FetchKeyResponse, error) {
	start := time.Now()
	resp, err := s.fetchKeys(ctx, req)
	elapsed := time.Since(start)

	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
		metrics.RecordError(metrics.OpExtract, errorType(err))
		if errors.Is(err, ErrPolicyDenied) {
			metrics.RecordPolicyDenial()
		}
		s.logger.WarnContext(ctx, "key request rejected", logging.Error(err))
	} else {
		metrics.RecordKeysIssued(len(resp.DecryptionKeys))
		s.logger.InfoContext(ctx, "keys released",
			logging.Int("ids", len(resp.DecryptionKeys)),
			logging.Int64("duration_ms", elapsed.Milliseconds()))
	}
	metrics.RecordOperation(metrics.OpExtract, "none", status, elapsed.Seconds())
	return resp, err
}

func (s *Service) fetchKeys(ctx context.Context, req *FetchKeyRequest) (*FetchKeyResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: empty request", ErrInvalidRequest)
	}
	if len(req.IDs) == 0 || len(req.IDs) > s.maxIDs {
		return nil, fmt.Errorf("%w: %d ids, need 1 to %d", ErrInvalidRequest, len(req.IDs), s.maxIDs)
	}

	encKey, err := pairing.G1FromBytes(req.EncKey)
	if err != nil {
		return nil, fmt.Errorf("%w: enc_key: %w", ErrInvalidRequest, err)
	}
	vk, err := pairing.G2FromBytes(req.EncVerificationKey)
	if err != nil {
		return nil, fmt.Errorf("%w: enc_verification_key: %w", ErrInvalidRequest, err)
	}
	pk := &elgamal.PublicKey{P: encKey}
	if err := elgamal.VerifyKeyPair(pk, &elgamal.VerificationKey{P: vk}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	for _, id := range req.IDs {
		if len(id) < seal.ObjectIDSize {
			return nil, fmt.Errorf("%w: identity of %d bytes lacks a package id", ErrInvalidRequest, len(id))
		}
		pr := &PolicyRequest{
			ID:          id[seal.ObjectIDSize:],
			PTB:         req.PTB,
			Certificate: req.Certificate,
		}
		copy(pr.PackageID[:], id[:seal.ObjectIDSize])
		if err := s.policy.Check(ctx, pr); err != nil {
			if !errors.Is(err, ErrPolicyDenied) {
				err = fmt.Errorf("%w: %w", ErrPolicyDenied, err)
			}
			return nil, err
		}
	}

	resp := &FetchKeyResponse{DecryptionKeys: make([]DecryptionKey, 0, len(req.IDs))}
	for _, id := range req.IDs {
		usk := ibe.Extract(s.msk, id)
		ct, err := elgamal.Encrypt(s.rand, pk, usk)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt user secret key: %w", err)
		}
		resp.DecryptionKeys = append(resp.DecryptionKeys, DecryptionKey{
			ID:           append([]byte(nil), id...),
			EncryptedKey: encodeCiphertext(ct),
		})
	}
	return resp, nil
}

func errorType(err error) string {
	switch {
	case errors.Is(err, ErrPolicyDenied):
		return "policy_denied"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrInvalidKey):
		return "invalid_key"
	case errors.Is(err, ErrMissingKey):
		return "missing_key"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return seal.ErrorType(err)
	}
}
