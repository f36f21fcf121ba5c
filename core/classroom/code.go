package classroom

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	CodeLength   = 6
)

var alphabetLen = big.NewInt(int64(len(codeAlphabet)))

// GenerateCode returns a random join code made of uppercase letters and digits.
func GenerateCode() (string, error) {
	var sb strings.Builder
	sb.Grow(CodeLength)
	for i := 0; i < CodeLength; i++ {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", err
		}
		sb.WriteByte(codeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// NormalizeCode cleans a join code typed by a student.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
