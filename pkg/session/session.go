// Package session persists encryption sessions on top of the transactional
// key-value store.
//
// A session is created only by a successful encrypt operation, read by
// decrypt, and removed by explicit delete or TTL expiry. Expiry is enforced
// at read time: Get on an expired session reports not-found and lazily
// removes the record; no background sweeper exists.
//
// Key material never reaches the store in plaintext. Before a record is
// written, the session key is sealed under a per-record subkey derived from
// a master key that the embedding application supplies; the store itself
// has no way to recover session keys without it.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"

	"github.com/routersec/cryptex-core/internal/constants"
	qerrors "github.com/routersec/cryptex-core/internal/errors"
	"github.com/routersec/cryptex-core/pkg/crypto"
	"github.com/routersec/cryptex-core/pkg/metrics"
	"github.com/routersec/cryptex-core/pkg/store"
)

// bucket is the logical table holding session records.
const bucket = "sessions"

// Session is the persistent record of one encryption session.
type Session struct {
	// ID is the globally unique session identifier.
	ID string `json:"id"`

	// Algorithm names the cipher suite the session key feeds.
	Algorithm string `json:"algorithm"`

	// KeySize is the requested key size in bytes.
	KeySize int `json:"key_size"`

	// QKDErrorRate and QKDSiftedBits record the parameters of the
	// simulated exchange that contributed entropy to the session key.
	QKDErrorRate  float64 `json:"qkd_error_rate"`
	QKDSiftedBits int     `json:"qkd_sifted_bits"`

	// EncryptedKey is the session key sealed under the at-rest subkey.
	EncryptedKey []byte `json:"encrypted_key"`

	// KEMCiphertext is the ML-KEM ciphertext from session establishment.
	KEMCiphertext []byte `json:"kem_ciphertext"`

	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt is the TTL boundary; the zero value disables expiry.
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// Expired reports whether the session has passed its TTL at time now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// record is the versioned on-disk envelope.
type record struct {
	Version int      `json:"v"`
	Session *Session `json:"session"`
}

// Store persists sessions. It owns no background goroutines; all work is
// driven by caller invocation.
type Store struct {
	kv        *store.KV
	masterKey []byte
	ttl       time.Duration
	now       func() time.Time
	logger    *metrics.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets the session lifetime applied when a saved session carries no
// explicit expiry. A zero TTL disables expiry.
func WithTTL(d time.Duration) Option {
	return func(s *Store) {
		s.ttl = d
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *metrics.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithClock replaces the time source, for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a session store over kv. masterKey seals key material at
// rest and must be at least 32 bytes; it is supplied by the embedding
// application, never generated here.
func NewStore(kv *store.KV, masterKey []byte, opts ...Option) (*Store, error) {
	if len(masterKey) < constants.AEADKeySize {
		return nil, qerrors.NewCryptoError("session.NewStore", qerrors.ErrInvalidKeySize)
	}

	key := make([]byte, len(masterKey))
	copy(key, masterKey)

	s := &Store{
		kv:        kv,
		masterKey: key,
		ttl:       constants.DefaultSessionTTLSeconds * time.Second,
		now:       time.Now,
		logger:    metrics.NewLogger(metrics.WithLevel(metrics.LevelWarn)).Named("session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Save persists sess with its key material sealed at rest. A missing ID is
// assigned; CreatedAt and ExpiresAt are stamped from the store clock. The
// write is transactional: concurrent readers see the whole session or
// nothing.
func (s *Store) Save(ctx context.Context, sess *Session, keyMaterial []byte) error {
	if sess == nil || len(keyMaterial) == 0 {
		return qerrors.NewCryptoError("session.Save", qerrors.ErrValidation)
	}
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}

	now := s.now()
	sess.CreatedAt = now
	if sess.ExpiresAt.IsZero() && s.ttl > 0 {
		sess.ExpiresAt = now.Add(s.ttl)
	}

	sealed, err := s.sealKey(sess.ID, keyMaterial)
	if err != nil {
		return err
	}
	sess.EncryptedKey = sealed

	data, err := json.Marshal(record{Version: constants.SessionRecordVersion, Session: sess})
	if err != nil {
		return qerrors.NewStoreError("session.Save", sess.ID, fmt.Errorf("%w: %v", qerrors.ErrStore, err))
	}

	if err := s.kv.Update(ctx, func(tx *store.Tx) error {
		return tx.Insert(bucket, sess.ID, data)
	}); err != nil {
		return err
	}

	s.logger.Debug("session saved", metrics.Fields{"id": sess.ID, "algorithm": sess.Algorithm})
	return nil
}

// Get loads a session by id. Missing and expired sessions both report the
// not-found sentinel; an expired record is removed on the way out.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.kv.Get(ctx, bucket, id)
	if err != nil {
		return nil, err
	}

	sess, err := decode(id, data)
	if err != nil {
		return nil, err
	}

	if sess.Expired(s.now()) {
		// Lazy removal; the read result does not depend on it succeeding.
		if derr := s.kv.Delete(ctx, bucket, id); derr != nil {
			s.logger.Warn("expired session cleanup failed", metrics.Fields{"id": id, "error": derr})
		}
		return nil, qerrors.NewStoreError("session.Get", id, qerrors.ErrNotFound)
	}

	return sess, nil
}

// KeyMaterial unseals the session key of a loaded session.
func (s *Store) KeyMaterial(sess *Session) ([]byte, error) {
	if sess == nil || len(sess.EncryptedKey) == 0 {
		return nil, qerrors.NewCryptoError("session.KeyMaterial", qerrors.ErrValidation)
	}
	return s.openKey(sess.ID, sess.EncryptedKey)
}

// Delete removes a session. Deleting an unknown id reports not-found.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.kv.Delete(ctx, bucket, id)
}

// Filter narrows List results. The zero value matches all live sessions.
type Filter struct {
	// Algorithm, when non-empty, matches the session's cipher suite name.
	Algorithm string

	// IncludeExpired also yields sessions past their TTL.
	IncludeExpired bool
}

// List returns the sessions matching f in insertion order. The sequence is
// lazy and restartable: each range opens a fresh read snapshot, and an
// iteration error is yielded as the final element.
func (s *Store) List(ctx context.Context, f Filter) iter.Seq2[*Session, error] {
	return func(yield func(*Session, error) bool) {
		now := s.now()
		err := s.kv.View(ctx, func(tx *store.Tx) error {
			return tx.Scan(bucket, func(key string, value []byte) error {
				sess, err := decode(key, value)
				if err != nil {
					return err
				}
				if !f.IncludeExpired && sess.Expired(now) {
					return nil
				}
				if f.Algorithm != "" && sess.Algorithm != f.Algorithm {
					return nil
				}
				if !yield(sess, nil) {
					return store.ErrStopScan
				}
				return nil
			})
		})
		if err != nil {
			yield(nil, err)
		}
	}
}

func decode(id string, data []byte) (*Session, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, qerrors.NewStoreError("session.decode", id, fmt.Errorf("%w: %v", qerrors.ErrStore, err))
	}
	if rec.Version != constants.SessionRecordVersion || rec.Session == nil {
		return nil, qerrors.NewStoreError("session.decode", id,
			fmt.Errorf("%w: unsupported record version %d", qerrors.ErrStore, rec.Version))
	}
	return rec.Session, nil
}

// sealKey encrypts key material under a per-record subkey, binding the
// session id as associated data so sealed blobs cannot be swapped between
// records.
func (s *Store) sealKey(id string, keyMaterial []byte) ([]byte, error) {
	subkey, err := crypto.DeriveAtRestKey(s.masterKey, id)
	if err != nil {
		return nil, err
	}
	defer crypto.Zeroize(subkey)

	aead, err := crypto.NewAEAD(constants.CipherSuiteAES256GCM, subkey)
	if err != nil {
		return nil, err
	}
	return aead.Seal(keyMaterial, []byte(id))
}

func (s *Store) openKey(id string, sealed []byte) ([]byte, error) {
	subkey, err := crypto.DeriveAtRestKey(s.masterKey, id)
	if err != nil {
		return nil, err
	}
	defer crypto.Zeroize(subkey)

	aead, err := crypto.NewAEAD(constants.CipherSuiteAES256GCM, subkey)
	if err != nil {
		return nil, err
	}
	return aead.Open(sealed, []byte(id))
}
