// Package cryptexcore is the cryptographic core of a router security-testing
// toolkit: multi-algorithm hashing, quantum key distribution simulation,
// post-quantum key establishment, authenticated payload encryption, and
// persistent session and registry storage.
//
// Cryptex-Core fuses entropy from a simulated BB84 exchange with a genuine
// ML-KEM-1024 (NIST FIPS 203) shared secret, so the security of every
// derived key rests on the lattice KEM while the QKD simulation contributes
// auxiliary entropy and a realistic protocol model.
//
// # Quick Start
//
// For the full encrypt/decrypt pipeline:
//
//	import "github.com/routersec/cryptex-core/pkg/engine"
//
//	eng, _ := engine.New(engine.Config{
//		StoragePath: "cryptex.db",
//		MasterKey:   masterKey, // 32 bytes, sourced by the application
//	})
//	defer eng.Close()
//
//	res, _ := eng.Encrypt(ctx, []byte("secret message"), 32)
//	plaintext, _ := eng.Decrypt(ctx, res.Ciphertext, res.SessionID)
//
// For standalone hashing:
//
//	import "github.com/routersec/cryptex-core/pkg/hashing"
//
//	h := hashing.NewEngine()
//	result, _ := h.Hash(hashing.SHA256, []byte("test"))
//	fmt.Println(result.Hex)
//
// # Package Structure
//
// The library is organized into several packages:
//
//   - pkg/engine: High-level encrypt/decrypt orchestration
//   - pkg/hashing: Multi-algorithm digest engine (SHA-2/3, SHAKE, BLAKE, HMAC)
//   - pkg/qkd: BB84 quantum key distribution simulation
//   - pkg/crypto: Low-level primitives (ML-KEM, signatures, KDF, AEAD)
//   - pkg/store: Transactional embedded key-value storage
//   - pkg/session: Encryption session persistence with TTL
//   - pkg/cryptex: Name-mapping registry with uniqueness and search
//   - pkg/metrics: Structured logging and tracing
//   - internal/constants: Security parameters and storage constants
//   - internal/errors: Typed error taxonomy
//
// # Security Properties
//
//   - Post-quantum security: ML-KEM-1024 (NIST Category 5)
//   - Eavesdropping detection: BB84 error-rate threshold with retryable abort
//   - Authenticated encryption: AES-256-GCM or ChaCha20-Poly1305
//   - Domain separation: SHAKE-256 derivation with per-purpose labels
//   - At-rest protection: session keys sealed under per-record subkeys
//
// # References
//
//   - NIST FIPS 203: Module-Lattice-Based Key-Encapsulation Mechanism Standard
//   - NIST FIPS 202: SHA-3 Standard (SHAKE-256)
//   - Bennett & Brassard (1984): Quantum cryptography: public key
//     distribution and coin tossing
package cryptexcore
