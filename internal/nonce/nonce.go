// Package nonce generates the one-time values that bind an identity token
// to a single session exchange.
package nonce

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
)

// Alphabet is the 68-symbol set nonces are drawn from
const Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-._~+/"

const batchSize = 16

// Generator draws nonces from an entropy source using rejection sampling
// over single bytes, so every symbol is equally likely.
type Generator struct {
	source io.Reader
}

// NewGenerator returns a Generator reading from source.
// A nil source uses crypto/rand.
func NewGenerator(source io.Reader) *Generator {
	if source == nil {
		source = rand.Reader
	}
	return &Generator{source: source}
}

// Generate returns a nonce of length symbols. A length of zero or less
// yields an empty nonce.
func (g *Generator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}

	out := make([]byte, 0, length)
	buf := make([]byte, batchSize)
	for len(out) < length {
		n, err := g.source.Read(buf)
		if n == 0 && err != nil {
			return "", fmt.Errorf("read entropy: %w", err)
		}
		for _, b := range buf[:n] {
			// bytes >= len(Alphabet) are discarded to avoid modulo bias
			if int(b) >= len(Alphabet) {
				continue
			}
			out = append(out, Alphabet[b])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}

var defaultGenerator = NewGenerator(nil)

// Generate returns a nonce of length symbols from the system CSPRNG.
// It panics if the entropy source fails, since no valid nonce can be produced.
func Generate(length int) string {
	n, err := defaultGenerator.Generate(length)
	if err != nil {
		panic(err)
	}
	return n
}

// Hash returns the lowercase hex SHA-256 digest of raw. This is the value
// handed to the identity provider; the raw nonce never leaves the client
// until the token exchange.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Matches reports whether hashed is the digest of raw, in constant time
func Matches(raw, hashed string) bool {
	return subtle.ConstantTimeCompare([]byte(Hash(raw)), []byte(hashed)) == 1
}
