// hmac.go provides keyed message authentication over SHA-256 and SHA-512.
package hashing

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"

	qerrors "github.com/routersec/cryptex-core/internal/errors"
)

// HMACSHA256 computes the HMAC-SHA256 tag of data under key.
func HMACSHA256(key, data []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, qerrors.NewCryptoError("HMACSHA256", qerrors.ErrInvalidKeySize)
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil), nil
}

// HMACSHA512 computes the HMAC-SHA512 tag of data under key.
func HMACSHA512(key, data []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, qerrors.NewCryptoError("HMACSHA512", qerrors.ErrInvalidKeySize)
	}
	mac := hmac.New(sha512.New, key)
	mac.Write(data)
	return mac.Sum(nil), nil
}

// VerifyHMACSHA256 reports whether expected is the HMAC-SHA256 tag of data
// under key, compared in constant time.
func VerifyHMACSHA256(key, data, expected []byte) (bool, error) {
	tag, err := HMACSHA256(key, data)
	if err != nil {
		return false, err
	}
	return hmac.Equal(tag, expected), nil
}

// VerifyHMACSHA512 reports whether expected is the HMAC-SHA512 tag of data
// under key, compared in constant time.
func VerifyHMACSHA512(key, data, expected []byte) (bool, error) {
	tag, err := HMACSHA512(key, data)
	if err != nil {
		return false, err
	}
	return hmac.Equal(tag, expected), nil
}
