package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashReaderSHA256(t *testing.T) {
	digest, err := HashReaderSHA256(strings.NewReader("abc"))
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", digest)
}

func TestHashReaderSHA256Empty(t *testing.T) {
	digest, err := HashReaderSHA256(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", digest)
}

func TestHashBytesSHA256MatchesReader(t *testing.T) {
	body := []byte("the quick brown fox")
	fromReader, err := HashReaderSHA256(strings.NewReader(string(body)))
	require.NoError(t, err)
	assert.Equal(t, fromReader, HashBytesSHA256(body))
}
