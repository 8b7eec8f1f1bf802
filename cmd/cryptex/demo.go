package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/routersec/cryptex-core/internal/constants"
	"github.com/routersec/cryptex-core/pkg/crypto"
	"github.com/routersec/cryptex-core/pkg/engine"
	"github.com/routersec/cryptex-core/pkg/metrics"
)

func runDemo(message string, keySize int, db, cipher string, noise float64, logLevel string) {
	logger := metrics.NewLogger(metrics.WithLevel(metrics.ParseLevel(logLevel)))

	suite := constants.CipherSuiteAES256GCM
	if cipher == "chacha20" {
		suite = constants.CipherSuiteChaCha20Poly1305
	}

	// Demo only: an ephemeral master key means stored sessions do not
	// survive this process.
	masterKey, err := crypto.SecureRandomBytes(constants.AEADKeySize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer crypto.Zeroize(masterKey)

	eng, err := engine.New(engine.Config{
		StoragePath:     db,
		MasterKey:       masterKey,
		CipherSuite:     suite,
		QKDChannelNoise: noise,
		Logger:          logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer eng.Close()

	ctx := context.Background()

	fmt.Printf("Encrypting %d bytes (key size %d, %s)...\n", len(message), keySize, suite)
	res, err := eng.Encrypt(ctx, []byte(message), keySize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Encrypt failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Session:    %s\n", res.SessionID)
	fmt.Printf("Ciphertext: %s\n", hex.EncodeToString(res.Ciphertext))

	plaintext, err := eng.Decrypt(ctx, res.Ciphertext, res.SessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Decrypt failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Decrypted:  %q\n", plaintext)

	if err := eng.DeleteSession(ctx, res.SessionID); err != nil {
		fmt.Fprintf(os.Stderr, "Cleanup failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Session deleted; round trip complete.")
}
