package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// otpRange covers [100000, 999999] so codes are always six digits with no
// leading zero.
const (
	otpMin   = 100000
	otpSpan  = 900000
	OTPWidth = 6
)

// GenerateOTP produces a 6-digit decimal one-time code from a CSPRNG.
func GenerateOTP() string {
	n, err := rand.Int(rand.Reader, big.NewInt(otpSpan))
	if err != nil {
		// crypto/rand only fails when the platform entropy source is broken;
		// there is no useful recovery at this layer.
		panic(fmt.Sprintf("otp generator: %v", err))
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin)
}
