// Package constants defines security parameters and protocol constants for the
// cryptex-core encryption system.
//
// All enumerations here are closed and versioned: the supported hash
// algorithms, signature schemes and cipher suites form fixed sets that are
// dispatched through tables, never through open-ended registration.
package constants

// ML-KEM-1024 Parameters (NIST FIPS 203)
// These parameters provide NIST Category 5 security (~256-bit post-quantum security)
const (
	// MLKEMPublicKeySize is the size of ML-KEM-1024 encapsulation key in bytes
	MLKEMPublicKeySize = 1568

	// MLKEMPrivateKeySize is the size of ML-KEM-1024 decapsulation key in bytes
	MLKEMPrivateKeySize = 3168

	// MLKEMCiphertextSize is the size of ML-KEM-1024 ciphertext in bytes
	MLKEMCiphertextSize = 1568

	// MLKEMSharedSecretSize is the size of the shared secret from ML-KEM in bytes
	MLKEMSharedSecretSize = 32

	// MLKEMSeedSize is the seed length for deterministic key generation
	MLKEMSeedSize = 64
)

// Symmetric Encryption Parameters
const (
	// AEADKeySize is the key size for both supported cipher suites in bytes
	AEADKeySize = 32

	// AEADNonceSize is the nonce size for both supported cipher suites (96 bits)
	AEADNonceSize = 12

	// AEADTagSize is the authentication tag size in bytes
	AEADTagSize = 16

	// MinSealedSize is the minimum length of a valid sealed blob
	MinSealedSize = AEADNonceSize + AEADTagSize
)

// Key Derivation Parameters (SHAKE-256)
const (
	// KDFMaxOutput bounds a single derivation output (1 MiB)
	KDFMaxOutput = 1 << 20

	// DomainSeparatorSession is used when fusing QKD and KEM secrets
	// into a session encryption key.
	DomainSeparatorSession = "cryptex-core-v1-session-key"

	// DomainSeparatorAtRest is used to derive per-record subkeys for
	// sealing session key material before it is persisted.
	DomainSeparatorAtRest = "cryptex-core-v1-at-rest"

	// DomainSeparatorAmplify is used by the QKD privacy amplification step.
	DomainSeparatorAmplify = "cryptex-core-v1-qkd-amplify"

	// DomainSeparatorPayload is used to derive the payload encryption key
	// from session key material.
	DomainSeparatorPayload = "cryptex-core-v1-payload"
)

// QKD Simulation Parameters (BB84)
const (
	// QKDErrorThreshold is the default channel error rate above which the
	// exchange is treated as eavesdropped and aborted.
	QKDErrorThreshold = 0.11

	// QKDSampleFraction is the fraction of sifted bits disclosed for
	// error-rate estimation. Disclosed bits are discarded.
	QKDSampleFraction = 0.25

	// QKDOversampleFactor is how many raw qubits are exchanged per
	// requested key bit, covering sifting and sampling losses.
	QKDOversampleFactor = 8

	// QKDParityBlockSize is the block length used by parity reconciliation.
	QKDParityBlockSize = 16

	// QKDMaxRequestBits bounds a single simulate call (64 KiB of key).
	QKDMaxRequestBits = 1 << 19
)

// Hashing Parameters
const (
	// MaxHashInputSize is the default cap on hash input length (100 MiB).
	// The embedding application may lower or raise it per engine.
	MaxHashInputSize = 100 << 20

	// ShakeDefaultOutput128 is the fixed digest length used when SHAKE128
	// is invoked through the one-shot hash interface.
	ShakeDefaultOutput128 = 32

	// ShakeDefaultOutput256 is the fixed digest length for SHAKE256.
	ShakeDefaultOutput256 = 64
)

// Session Parameters
const (
	// DefaultSessionTTLSeconds is the default session lifetime (24 hours).
	// A zero TTL disables expiry.
	DefaultSessionTTLSeconds = 24 * 3600

	// SessionRecordVersion is the on-disk envelope version for session records.
	SessionRecordVersion = 1

	// CryptexRecordVersion is the on-disk envelope version for registry records.
	CryptexRecordVersion = 1
)

// Storage Parameters
const (
	// DefaultStoreTimeoutSeconds is applied to store operations whose
	// caller supplies no deadline.
	DefaultStoreTimeoutSeconds = 30

	// StoreBusyTimeoutMillis is the SQLite busy timeout.
	StoreBusyTimeoutMillis = 5000
)

// CipherSuite identifiers
type CipherSuite uint16

const (
	// CipherSuiteAES256GCM uses AES-256-GCM for symmetric encryption
	CipherSuiteAES256GCM CipherSuite = 0x0001

	// CipherSuiteChaCha20Poly1305 uses ChaCha20-Poly1305 for symmetric encryption
	CipherSuiteChaCha20Poly1305 CipherSuite = 0x0002
)

// String returns a human-readable name for the cipher suite
func (cs CipherSuite) String() string {
	switch cs {
	case CipherSuiteAES256GCM:
		return "AES-256-GCM"
	case CipherSuiteChaCha20Poly1305:
		return "ChaCha20-Poly1305"
	default:
		return "Unknown"
	}
}

// IsSupported returns true if the cipher suite is supported
func (cs CipherSuite) IsSupported() bool {
	return cs == CipherSuiteAES256GCM || cs == CipherSuiteChaCha20Poly1305
}

// ParseCipherSuite resolves a cipher suite from its String form. It returns
// false for unknown names.
func ParseCipherSuite(name string) (CipherSuite, bool) {
	switch name {
	case CipherSuiteAES256GCM.String():
		return CipherSuiteAES256GCM, true
	case CipherSuiteChaCha20Poly1305.String():
		return CipherSuiteChaCha20Poly1305, true
	default:
		return 0, false
	}
}
