// Package engine wires the cryptographic components into the encrypt and
// decrypt operations an embedding transport exposes.
//
// An encrypt request flows bottom-up: the BB84 simulation and an ML-KEM
// encapsulation against the engine's own key pair each produce raw secret
// material, key derivation fuses the two into session key material, the
// AEAD layer seals the payload under a key derived from that material, and
// the session store persists the session. The caller gets back the
// ciphertext plus a session id; decrypt reverses the path using only the
// stored session.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/routersec/cryptex-core/internal/constants"
	qerrors "github.com/routersec/cryptex-core/internal/errors"
	"github.com/routersec/cryptex-core/pkg/crypto"
	"github.com/routersec/cryptex-core/pkg/cryptex"
	"github.com/routersec/cryptex-core/pkg/hashing"
	"github.com/routersec/cryptex-core/pkg/metrics"
	"github.com/routersec/cryptex-core/pkg/qkd"
	"github.com/routersec/cryptex-core/pkg/session"
	"github.com/routersec/cryptex-core/pkg/store"
)

// Session key material size bounds, in bytes.
const (
	MinKeySize = 16
	MaxKeySize = 64
)

// defaultQKDRetries bounds re-simulation after an eavesdropping abort.
const defaultQKDRetries = 3

// Config collects engine parameters. StoragePath and MasterKey are
// required; everything else has a working default.
type Config struct {
	// StoragePath is the database file backing sessions and the registry.
	StoragePath string

	// MasterKey seals session key material at rest. At least 32 bytes;
	// sourcing and rotation are the embedding application's concern.
	MasterKey []byte

	// CipherSuite selects the payload AEAD. Defaults to AES-256-GCM.
	CipherSuite constants.CipherSuite

	// MaxInputSize caps hash inputs. Defaults to 100 MiB.
	MaxInputSize int64

	// QKDErrorThreshold overrides the eavesdropping abort threshold.
	QKDErrorThreshold float64

	// QKDChannelNoise sets the simulated channel noise probability.
	// Raising it above the threshold demonstrates the abort path.
	QKDChannelNoise float64

	// QKDRetries bounds re-simulation after an eavesdropping abort.
	// Defaults to 3.
	QKDRetries int

	// SessionTTL is the session lifetime. Zero means the default 24h;
	// negative disables expiry.
	SessionTTL time.Duration

	// StoreTimeout bounds storage operations without a caller deadline.
	StoreTimeout time.Duration

	Logger *metrics.Logger
	Tracer metrics.Tracer
}

// Engine owns one ML-KEM key pair and the stores. Safe for concurrent use.
type Engine struct {
	kv         *store.KV
	sessions   *session.Store
	registry   *cryptex.Registry
	hasher     *hashing.Engine
	sim        *qkd.Simulator
	kem        *crypto.MLKEMKeyPair
	suite      constants.CipherSuite
	qkdRetries int
	logger     *metrics.Logger
	tracer     metrics.Tracer
}

// EncryptResult pairs the sealed payload with the session that can open it.
type EncryptResult struct {
	Ciphertext []byte
	SessionID  string
}

// New builds an engine from cfg, opening the backing store and generating a
// fresh ML-KEM key pair. Close releases the store.
func New(cfg Config) (*Engine, error) {
	const op = "engine.New"
	if cfg.StoragePath == "" {
		return nil, qerrors.NewCryptoError(op, fmt.Errorf("%w: empty storage path", qerrors.ErrValidation))
	}
	if len(cfg.MasterKey) < constants.AEADKeySize {
		return nil, qerrors.NewCryptoError(op, qerrors.ErrInvalidKeySize)
	}

	suite := cfg.CipherSuite
	if suite == 0 {
		suite = constants.CipherSuiteAES256GCM
	}
	if !suite.IsSupported() {
		return nil, qerrors.NewCryptoError(op, fmt.Errorf("%w: unsupported cipher suite %d", qerrors.ErrValidation, suite))
	}

	logger := cfg.Logger
	if logger == nil {
		logger = metrics.NewLogger(metrics.WithLevel(metrics.LevelWarn))
	}
	logger = logger.Named("engine")

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = metrics.NoOpTracer{}
	}

	var storeOpts []store.Option
	if cfg.StoreTimeout > 0 {
		storeOpts = append(storeOpts, store.WithTimeout(cfg.StoreTimeout))
	}
	storeOpts = append(storeOpts, store.WithLogger(logger.Named("store")))

	kv, err := store.Open(cfg.StoragePath, storeOpts...)
	if err != nil {
		return nil, err
	}

	sessionOpts := []session.Option{session.WithLogger(logger.Named("session"))}
	switch {
	case cfg.SessionTTL > 0:
		sessionOpts = append(sessionOpts, session.WithTTL(cfg.SessionTTL))
	case cfg.SessionTTL < 0:
		sessionOpts = append(sessionOpts, session.WithTTL(0))
	}

	sessions, err := session.NewStore(kv, cfg.MasterKey, sessionOpts...)
	if err != nil {
		kv.Close()
		return nil, err
	}

	var simOpts []qkd.Option
	if cfg.QKDErrorThreshold > 0 {
		simOpts = append(simOpts, qkd.WithErrorThreshold(cfg.QKDErrorThreshold))
	}
	if cfg.QKDChannelNoise > 0 {
		simOpts = append(simOpts, qkd.WithChannelNoise(cfg.QKDChannelNoise))
	}

	var hashOpts []hashing.Option
	if cfg.MaxInputSize > 0 {
		hashOpts = append(hashOpts, hashing.WithMaxInputSize(cfg.MaxInputSize))
	}

	kem, err := crypto.GenerateMLKEMKeyPair()
	if err != nil {
		kv.Close()
		return nil, err
	}

	retries := cfg.QKDRetries
	if retries <= 0 {
		retries = defaultQKDRetries
	}

	return &Engine{
		kv:         kv,
		sessions:   sessions,
		registry:   cryptex.NewRegistry(kv, cryptex.WithLogger(logger.Named("cryptex"))),
		hasher:     hashing.NewEngine(hashOpts...),
		sim:        qkd.NewSimulator(simOpts...),
		kem:        kem,
		suite:      suite,
		qkdRetries: retries,
		logger:     logger,
		tracer:     tracer,
	}, nil
}

// Close releases the backing store.
func (e *Engine) Close() error {
	return e.kv.Close()
}

// Hasher exposes the digest engine for the hash contract.
func (e *Engine) Hasher() *hashing.Engine {
	return e.hasher
}

// Registry exposes the name-mapping registry for registry CRUD and search.
func (e *Engine) Registry() *cryptex.Registry {
	return e.registry
}

// Sessions exposes the session store for listing and inspection.
func (e *Engine) Sessions() *session.Store {
	return e.sessions
}

// Encrypt seals plaintext under a fresh session key of keySize bytes and
// persists the session. The QKD leg retries a bounded number of times on an
// eavesdropping abort before the error is surfaced to the caller.
func (e *Engine) Encrypt(ctx context.Context, plaintext []byte, keySize int) (*EncryptResult, error) {
	const op = "engine.Encrypt"
	ctx, end := e.tracer.StartSpan(ctx, op, metrics.WithAttributes(map[string]interface{}{
		"key_size": keySize,
	}))

	res, err := e.encrypt(ctx, plaintext, keySize)
	end(err)
	return res, err
}

func (e *Engine) encrypt(ctx context.Context, plaintext []byte, keySize int) (*EncryptResult, error) {
	const op = "engine.Encrypt"
	if len(plaintext) == 0 {
		return nil, qerrors.NewCryptoError(op, fmt.Errorf("%w: empty plaintext", qerrors.ErrValidation))
	}
	if keySize < MinKeySize || keySize > MaxKeySize {
		return nil, qerrors.NewCryptoError(op, qerrors.ErrInvalidKeySize)
	}

	qkdMat, err := e.establishKey(ctx, keySize)
	if err != nil {
		return nil, err
	}
	defer crypto.Zeroize(qkdMat.Secret)

	kemCiphertext, kemSecret, err := crypto.MLKEMEncapsulate(e.kem.EncapsulationKey)
	if err != nil {
		return nil, err
	}
	defer crypto.Zeroize(kemSecret)

	sessionID := uuid.NewString()

	sessionKey, err := crypto.DeriveSessionKey(qkdMat.Secret, kemSecret, sessionID, keySize)
	if err != nil {
		return nil, err
	}
	defer crypto.Zeroize(sessionKey)

	payloadKey, err := crypto.DeriveKey(constants.DomainSeparatorPayload, sessionKey, constants.AEADKeySize)
	if err != nil {
		return nil, err
	}
	defer crypto.Zeroize(payloadKey)

	aead, err := crypto.NewAEAD(e.suite, payloadKey)
	if err != nil {
		return nil, err
	}

	// Session id as associated data binds the ciphertext to its session.
	ciphertext, err := aead.Seal(plaintext, []byte(sessionID))
	if err != nil {
		return nil, err
	}

	sess := &session.Session{
		ID:            sessionID,
		Algorithm:     e.suite.String(),
		KeySize:       keySize,
		QKDErrorRate:  qkdMat.ErrorRate,
		QKDSiftedBits: qkdMat.SiftedBits,
		KEMCiphertext: kemCiphertext,
	}
	if err := e.sessions.Save(ctx, sess, sessionKey); err != nil {
		return nil, err
	}

	e.logger.Debug("payload encrypted", metrics.Fields{
		"session_id":     sessionID,
		"key_size":       keySize,
		"qkd_error_rate": qkdMat.ErrorRate,
	})
	return &EncryptResult{Ciphertext: ciphertext, SessionID: sessionID}, nil
}

// establishKey runs the QKD leg, retrying on eavesdropping aborts.
func (e *Engine) establishKey(ctx context.Context, keySize int) (*qkd.Material, error) {
	var lastErr error
	for attempt := 1; attempt <= e.qkdRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, qerrors.NewCryptoError("engine.establishKey", err)
		}

		mat, err := e.sim.Simulate(keySize * 8)
		if err == nil {
			return mat, nil
		}
		if !qerrors.Is(err, qerrors.ErrEavesdropping) {
			return nil, err
		}

		lastErr = err
		e.logger.Warn("qkd exchange aborted, retrying", metrics.Fields{
			"attempt": attempt,
			"error":   err,
		})
	}
	return nil, lastErr
}

// Decrypt opens ciphertext using the stored session. An unknown or expired
// session id reports not-found; a damaged ciphertext reports an
// authentication failure.
func (e *Engine) Decrypt(ctx context.Context, ciphertext []byte, sessionID string) ([]byte, error) {
	const op = "engine.Decrypt"
	ctx, end := e.tracer.StartSpan(ctx, op)

	plaintext, err := e.decrypt(ctx, ciphertext, sessionID)
	end(err)
	return plaintext, err
}

func (e *Engine) decrypt(ctx context.Context, ciphertext []byte, sessionID string) ([]byte, error) {
	const op = "engine.Decrypt"
	if sessionID == "" {
		return nil, qerrors.NewCryptoError(op, fmt.Errorf("%w: empty session id", qerrors.ErrValidation))
	}

	sess, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	suite, ok := constants.ParseCipherSuite(sess.Algorithm)
	if !ok {
		return nil, qerrors.NewCryptoError(op, fmt.Errorf("%w: unknown cipher suite %q", qerrors.ErrCryptoBackend, sess.Algorithm))
	}

	sessionKey, err := e.sessions.KeyMaterial(sess)
	if err != nil {
		return nil, err
	}
	defer crypto.Zeroize(sessionKey)

	payloadKey, err := crypto.DeriveKey(constants.DomainSeparatorPayload, sessionKey, constants.AEADKeySize)
	if err != nil {
		return nil, err
	}
	defer crypto.Zeroize(payloadKey)

	aead, err := crypto.NewAEAD(suite, payloadKey)
	if err != nil {
		return nil, err
	}
	return aead.Open(ciphertext, []byte(sessionID))
}

// DeleteSession removes a session, making its ciphertexts permanently
// unopenable.
func (e *Engine) DeleteSession(ctx context.Context, sessionID string) error {
	return e.sessions.Delete(ctx, sessionID)
}
