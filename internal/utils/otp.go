package utils

import (
	"crypto/rand" // Unpredictable digits
	"math/big"
)

// OTPLength is the number of digits in a one-time code
const OTPLength = 6

// GenerateOTP returns a numeric one-time code of OTPLength digits
func GenerateOTP() (string, error) {
	b := make([]byte, OTPLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b[i] = byte('0' + n.Int64())
	}
	return string(b), nil
}
