package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// HashReaderSHA256 streams r through SHA-256 and returns the lowercase hex
// digest. Used to verify uploaded blobs against a client-supplied hash
// without buffering the whole object.
func HashReaderSHA256(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytesSHA256 returns the lowercase hex SHA-256 digest of b.
func HashBytesSHA256(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
