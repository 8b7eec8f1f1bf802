// Package hashing implements stateless multi-algorithm digest computation.
//
// The supported algorithms form a closed, versioned enumeration spanning the
// SHA-2 and SHA-3 families, the SHAKE extendable-output functions at fixed
// output lengths, the BLAKE family, and the legacy MD5 and RIPEMD-160
// digests kept for interoperability with older tooling. Dispatch goes
// through a fixed table; unknown identifiers fail, never silently default.
//
// Hashing is pure and deterministic: identical (algorithm, input) pairs
// always produce identical digests, and an Engine holds no shared mutable
// state, so concurrent use needs no synchronization.
package hashing

import (
	"crypto/md5"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"
	"lukechampine.com/blake3"

	"github.com/routersec/cryptex-core/internal/constants"
	qerrors "github.com/routersec/cryptex-core/internal/errors"
)

// Algorithm identifies one supported digest algorithm.
type Algorithm uint8

const (
	// SHA-2 family
	SHA224 Algorithm = iota + 1
	SHA256
	SHA384
	SHA512
	SHA512_224
	SHA512_256

	// SHA-3 family
	SHA3_224
	SHA3_256
	SHA3_384
	SHA3_512

	// SHAKE extendable-output functions at fixed lengths
	SHAKE128
	SHAKE256

	// BLAKE family
	BLAKE2b
	BLAKE2s
	BLAKE3

	// Legacy algorithms, retained for compatibility only.
	// Not collision resistant; never use for new integrity checks.
	MD5
	RIPEMD160
)

type algorithmInfo struct {
	name   string
	size   int
	digest func(data []byte) []byte
}

// algorithms is the fixed dispatch table for the closed algorithm set.
var algorithms = map[Algorithm]algorithmInfo{
	SHA224: {"SHA-224", sha256.Size224, func(d []byte) []byte {
		s := sha256.Sum224(d)
		return s[:]
	}},
	SHA256: {"SHA-256", sha256.Size, func(d []byte) []byte {
		s := sha256.Sum256(d)
		return s[:]
	}},
	SHA384: {"SHA-384", sha512.Size384, func(d []byte) []byte {
		s := sha512.Sum384(d)
		return s[:]
	}},
	SHA512: {"SHA-512", sha512.Size, func(d []byte) []byte {
		s := sha512.Sum512(d)
		return s[:]
	}},
	SHA512_224: {"SHA-512/224", sha512.Size224, func(d []byte) []byte {
		s := sha512.Sum512_224(d)
		return s[:]
	}},
	SHA512_256: {"SHA-512/256", sha512.Size256, func(d []byte) []byte {
		s := sha512.Sum512_256(d)
		return s[:]
	}},
	SHA3_224: {"SHA3-224", 28, func(d []byte) []byte {
		s := sha3.Sum224(d)
		return s[:]
	}},
	SHA3_256: {"SHA3-256", 32, func(d []byte) []byte {
		s := sha3.Sum256(d)
		return s[:]
	}},
	SHA3_384: {"SHA3-384", 48, func(d []byte) []byte {
		s := sha3.Sum384(d)
		return s[:]
	}},
	SHA3_512: {"SHA3-512", 64, func(d []byte) []byte {
		s := sha3.Sum512(d)
		return s[:]
	}},
	SHAKE128: {"SHAKE128", constants.ShakeDefaultOutput128, func(d []byte) []byte {
		out := make([]byte, constants.ShakeDefaultOutput128)
		sha3.ShakeSum128(out, d)
		return out
	}},
	SHAKE256: {"SHAKE256", constants.ShakeDefaultOutput256, func(d []byte) []byte {
		out := make([]byte, constants.ShakeDefaultOutput256)
		sha3.ShakeSum256(out, d)
		return out
	}},
	BLAKE2b: {"BLAKE2b-512", blake2b.Size, func(d []byte) []byte {
		s := blake2b.Sum512(d)
		return s[:]
	}},
	BLAKE2s: {"BLAKE2s-256", blake2s.Size, func(d []byte) []byte {
		s := blake2s.Sum256(d)
		return s[:]
	}},
	BLAKE3: {"BLAKE3", 32, func(d []byte) []byte {
		s := blake3.Sum256(d)
		return s[:]
	}},
	MD5: {"MD5", md5.Size, func(d []byte) []byte {
		s := md5.Sum(d)
		return s[:]
	}},
	RIPEMD160: {"RIPEMD-160", ripemd160.Size, func(d []byte) []byte {
		h := ripemd160.New()
		h.Write(d)
		return h.Sum(nil)
	}},
}

// allAlgorithms lists the closed set in its stable, versioned order.
var allAlgorithms = []Algorithm{
	SHA224, SHA256, SHA384, SHA512, SHA512_224, SHA512_256,
	SHA3_224, SHA3_256, SHA3_384, SHA3_512,
	SHAKE128, SHAKE256,
	BLAKE2b, BLAKE2s, BLAKE3,
	MD5, RIPEMD160,
}

// String returns the algorithm name.
func (a Algorithm) String() string {
	if info, ok := algorithms[a]; ok {
		return info.name
	}
	return "Unknown"
}

// Size returns the digest length in bytes, or 0 for an unknown algorithm.
func (a Algorithm) Size() int {
	if info, ok := algorithms[a]; ok {
		return info.size
	}
	return 0
}

// IsSupported reports whether the algorithm is in the closed set.
func (a Algorithm) IsSupported() bool {
	_, ok := algorithms[a]
	return ok
}

// Algorithms returns the full supported set in stable order.
func Algorithms() []Algorithm {
	out := make([]Algorithm, len(allAlgorithms))
	copy(out, allAlgorithms)
	return out
}

// ParseAlgorithm resolves a case-insensitive algorithm name. Separators
// ("-", "/", "_") are ignored so "sha3-256", "SHA3_256" and "sha3256"
// all resolve to the same identifier.
func ParseAlgorithm(name string) (Algorithm, error) {
	norm := strings.NewReplacer("-", "", "/", "", "_", "").Replace(strings.ToLower(name))
	for alg, info := range algorithms {
		cand := strings.NewReplacer("-", "", "/", "", "_", "").Replace(strings.ToLower(info.name))
		if cand == norm {
			return alg, nil
		}
	}
	return 0, qerrors.NewCryptoError("ParseAlgorithm", qerrors.ErrUnknownAlgorithm)
}

// Result is the outcome of a digest computation. It is a pure value with
// no identity: equal (algorithm, input) pairs yield equal results.
type Result struct {
	Algorithm Algorithm
	Digest    []byte
	Hex       string
}

// Engine computes digests subject to a configurable input size cap.
// The zero-value guard is NewEngine; an Engine is immutable after
// construction and safe for concurrent use.
type Engine struct {
	maxInput int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxInputSize overrides the input size cap in bytes.
func WithMaxInputSize(n int64) Option {
	return func(e *Engine) {
		e.maxInput = n
	}
}

// NewEngine creates a hashing engine. The default input cap is
// constants.MaxHashInputSize (100 MiB).
func NewEngine(opts ...Option) *Engine {
	e := &Engine{maxInput: constants.MaxHashInputSize}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxInputSize returns the configured input cap in bytes.
func (e *Engine) MaxInputSize() int64 {
	return e.maxInput
}

func (e *Engine) checkSize(data []byte) error {
	if int64(len(data)) > e.maxInput {
		return qerrors.NewCryptoError("Hash", qerrors.ErrInputTooLarge)
	}
	return nil
}

// Hash computes the digest of data under the given algorithm.
// Input exactly at the size cap succeeds; one byte more fails.
func (e *Engine) Hash(alg Algorithm, data []byte) (*Result, error) {
	info, ok := algorithms[alg]
	if !ok {
		return nil, qerrors.NewCryptoError("Hash", qerrors.ErrUnknownAlgorithm)
	}
	if err := e.checkSize(data); err != nil {
		return nil, err
	}

	digest := info.digest(data)
	return &Result{
		Algorithm: alg,
		Digest:    digest,
		Hex:       hex.EncodeToString(digest),
	}, nil
}

// HashString computes the digest of the UTF-8 bytes of s.
func (e *Engine) HashString(alg Algorithm, s string) (*Result, error) {
	return e.Hash(alg, []byte(s))
}

// HashAll computes digests for the full supported algorithm set in one call.
// The size cap is validated once for the whole call.
func (e *Engine) HashAll(data []byte) (map[Algorithm]*Result, error) {
	if err := e.checkSize(data); err != nil {
		return nil, err
	}

	out := make(map[Algorithm]*Result, len(allAlgorithms))
	for _, alg := range allAlgorithms {
		digest := algorithms[alg].digest(data)
		out[alg] = &Result{
			Algorithm: alg,
			Digest:    digest,
			Hex:       hex.EncodeToString(digest),
		}
	}
	return out, nil
}

// Verify recomputes the digest of data and compares it against the expected
// hexadecimal string, case-insensitively.
func (e *Engine) Verify(alg Algorithm, data []byte, expectedHex string) (bool, error) {
	res, err := e.Hash(alg, data)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(res.Hex, expectedHex), nil
}
