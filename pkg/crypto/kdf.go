// kdf.go implements key derivation using SHAKE-256 (FIPS 202), an
// extendable-output function based on the Keccak sponge construction.
//
// The derivation follows the construction:
//
//	output = SHAKE-256(
//	    domain_separator_length || domain_separator ||
//	    input_count || (input_length || input)* ,
//	    output_length
//	)
//
// Length prefixes are 4-byte big-endian integers to ensure unambiguous parsing.
// Domain separation prevents cross-protocol key confusion; length framing
// prevents boundary-shifting between adjacent inputs.
//
// The session key derivation fuses the simulated-QKD secret with the ML-KEM
// shared secret. Because SHAKE-256 mixes its whole input, compromise of either
// secret alone does not yield the derived key: the output remains
// indistinguishable from random while at least one input stays secret.
package crypto

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"github.com/routersec/cryptex-core/internal/constants"
	qerrors "github.com/routersec/cryptex-core/internal/errors"
)

// DeriveKey derives outputLen bytes from a single input with domain separation.
func DeriveKey(domain string, input []byte, outputLen int) ([]byte, error) {
	return DeriveKeyMultiple(domain, [][]byte{input}, outputLen)
}

// DeriveKeyMultiple derives outputLen bytes from multiple inputs with domain
// separation. Each input is length-prefixed so adjacent inputs cannot be
// re-split into a colliding transcript.
func DeriveKeyMultiple(domain string, inputs [][]byte, outputLen int) ([]byte, error) {
	if outputLen <= 0 || outputLen > constants.KDFMaxOutput {
		return nil, qerrors.NewCryptoError("DeriveKeyMultiple", qerrors.ErrInvalidKeySize)
	}

	h := sha3.NewShake256()
	lenBuf := make([]byte, 4)

	// Write domain separator with length prefix
	domainBytes := []byte(domain)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(domainBytes)))
	h.Write(lenBuf)
	h.Write(domainBytes)

	// Write number of inputs
	binary.BigEndian.PutUint32(lenBuf, uint32(len(inputs)))
	h.Write(lenBuf)

	// Write each input with length prefix
	for _, input := range inputs {
		binary.BigEndian.PutUint32(lenBuf, uint32(len(input)))
		h.Write(lenBuf)
		h.Write(input)
	}

	output := make([]byte, outputLen)
	_, _ = h.Read(output) // SHAKE256.Read never fails

	return output, nil
}

// DeriveSessionKey fuses the QKD output and the KEM shared secret into one
// symmetric key of exactly outputLen bytes, with additional domain separation
// on the caller's context label.
//
// The QKD secret is a classical simulation and contributes auxiliary entropy
// only; the ML-KEM secret is the cryptographic anchor. Neither is ever used
// as a key on its own.
func DeriveSessionKey(qkdSecret, kemSecret []byte, contextLabel string, outputLen int) ([]byte, error) {
	if len(qkdSecret) == 0 {
		return nil, qerrors.NewCryptoError("DeriveSessionKey", qerrors.ErrInvalidKeySize)
	}
	if len(kemSecret) != constants.MLKEMSharedSecretSize {
		return nil, qerrors.NewCryptoError("DeriveSessionKey", qerrors.ErrInvalidKeySize)
	}

	return DeriveKeyMultiple(
		constants.DomainSeparatorSession,
		[][]byte{qkdSecret, kemSecret, []byte(contextLabel)},
		outputLen,
	)
}

// DeriveAtRestKey derives the per-record subkey used to seal session key
// material before it is persisted. Binding the record identifier into the
// derivation keeps sealed blobs from being swapped between records.
func DeriveAtRestKey(masterKey []byte, recordID string) ([]byte, error) {
	if len(masterKey) < constants.AEADKeySize {
		return nil, qerrors.NewCryptoError("DeriveAtRestKey", qerrors.ErrInvalidKeySize)
	}

	return DeriveKeyMultiple(
		constants.DomainSeparatorAtRest,
		[][]byte{masterKey, []byte(recordID)},
		constants.AEADKeySize,
	)
}
