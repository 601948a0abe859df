package economy

import (
	"strings"

	"github.com/kinger55555/thenailcasino/internal/random"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewCode returns an upper-case alphanumeric code of length n.
func NewCode(n int, rng random.Source) string {
	var b strings.Builder
	b.Grow(n)
	for range n {
		b.WriteByte(codeAlphabet[random.Intn(len(codeAlphabet), rng)])
	}
	return b.String()
}

// NormalizeCode trims and upper-cases user input.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
