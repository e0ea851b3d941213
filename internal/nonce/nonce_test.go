package nonce

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlphabetSize(t *testing.T) {
	assert.Len(t, Alphabet, 68)

	seen := map[rune]bool{}
	for _, r := range Alphabet {
		assert.False(t, seen[r], "duplicate symbol %q", r)
		seen[r] = true
	}
}

func TestGenerateLength(t *testing.T) {
	for _, n := range []int{1, 16, 32, 64} {
		got := Generate(n)
		assert.Len(t, got, n)
		for _, r := range got {
			assert.True(t, strings.ContainsRune(Alphabet, r), "symbol %q not in alphabet", r)
		}
	}
}

func TestGenerateRejectsOutOfRangeBytes(t *testing.T) {
	// 68 and 255 fall outside the alphabet and must be skipped
	src := bytes.NewReader([]byte{0, 68, 255, 1, 67, 200, 10})
	g := NewGenerator(src)

	got, err := g.Generate(4)
	require.NoError(t, err)
	assert.Equal(t, "01/A", got)
}

func TestGenerateEmptyLength(t *testing.T) {
	for _, n := range []int{0, -1} {
		got, err := NewGenerator(failingReader{}).Generate(n)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NotPanics(t, func() { assert.Empty(t, Generate(n)) })
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestGenerateSourceFailure(t *testing.T) {
	_, err := NewGenerator(failingReader{}).Generate(8)
	assert.ErrorContains(t, err, "entropy exhausted")
}

func TestGenerateShortSource(t *testing.T) {
	_, err := NewGenerator(bytes.NewReader([]byte{1, 2})).Generate(8)
	assert.Error(t, err)
}

// 10,000 nonces of 32 symbols give 320,000 draws over 68 symbols.
// With 67 degrees of freedom the 0.999 quantile of chi-square is about 111.
func TestGenerateUniformDistribution(t *testing.T) {
	const (
		samples = 10000
		length  = 32
	)

	counts := make(map[byte]int, len(Alphabet))
	for i := 0; i < samples; i++ {
		for _, b := range []byte(Generate(length)) {
			counts[b]++
		}
	}

	expected := float64(samples*length) / float64(len(Alphabet))
	chi := 0.0
	for i := 0; i < len(Alphabet); i++ {
		d := float64(counts[Alphabet[i]]) - expected
		chi += d * d / expected
	}
	assert.Less(t, chi, 120.0, "chi-square statistic too large, distribution is not uniform")
}

func TestHash(t *testing.T) {
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", Hash("abc"))
	assert.Len(t, Hash(Generate(32)), 64)
}

func TestMatches(t *testing.T) {
	raw := Generate(32)
	assert.True(t, Matches(raw, Hash(raw)))
	assert.False(t, Matches(raw, Hash(raw+"x")))
	assert.False(t, Matches(raw, ""))
}
