package tool

import (
	"crypto/rand"
	"math/big"
)

const (
	passwordLower   = "abcdefghijklmnopqrstuvwxyz"
	passwordUpper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	passwordDigits  = "0123456789"
	passwordSymbols = "!@#$%^&*"
)

// GenerateTempPassword returns a random password with at least one lowercase
// letter, one uppercase letter, one digit and one symbol.
func GenerateTempPassword(length int) string {
	if length < 4 {
		length = 12
	}
	all := passwordLower + passwordUpper + passwordDigits + passwordSymbols

	out := make([]byte, 0, length)
	out = append(out,
		randomByte(passwordLower),
		randomByte(passwordUpper),
		randomByte(passwordDigits),
		randomByte(passwordSymbols),
	)
	for len(out) < length {
		out = append(out, randomByte(all))
	}

	// Fisher-Yates so the mandatory characters are not always in front.
	for i := len(out) - 1; i > 0; i-- {
		j := randomInt(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}

func randomByte(charset string) byte {
	return charset[randomInt(len(charset))]
}

func randomInt(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand failures are unrecoverable here
		panic(err)
	}
	return int(v.Int64())
}
