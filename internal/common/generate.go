package common

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

const transactionEntropyBytes = 256

// GenerateTransactionId returns prefix followed by the hex SHA-256 digest of
// fresh random bytes.
func GenerateTransactionId(prefix string) (string, error) {
	buf := make([]byte, transactionEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	sum := sha256.Sum256(buf)
	return prefix + hex.EncodeToString(sum[:]), nil
}

// GenerateAccountNumber returns a random ten digit account number that does
// not start with zero.
func GenerateAccountNumber() (string, error) {
	// [10^9, 10^10)
	lower := big.NewInt(1_000_000_000)
	span := big.NewInt(9_000_000_000)

	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("failed to generate account number: %w", err)
	}
	n.Add(n, lower)
	return n.String(), nil
}
