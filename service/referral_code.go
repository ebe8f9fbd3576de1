package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	referralCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	referralCodeLength   = 8

	// maxReferralCodeAttempts bounds regeneration after a code collision
	maxReferralCodeAttempts = 5
)

// GenerateReferralCode returns a random alphanumeric referral code
func GenerateReferralCode() (string, error) {
	alphabetSize := big.NewInt(int64(len(referralCodeAlphabet)))
	code := make([]byte, referralCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("failed to generate referral code: %w", err)
		}
		code[i] = referralCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}
