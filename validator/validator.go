// Package validator enforces the upload policy: filename sanitization, size
// bounds, the MIME allow-list and content hash format. All checks are pure;
// errors surface to the caller and are never retried here.
package validator

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// ErrorKind classifies a validation failure so the HTTP layer can pick the
// right status code.
type ErrorKind int

const (
	KindFilename ErrorKind = iota
	KindSize
	KindSizeTooLarge
	KindContentType
	KindHash
)

type ValidationError struct {
	Kind    ErrorKind
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

const (
	maxFilenameLen  = 128
	defaultFilename = "file"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._ -]`)

// Policy carries the configured upload bounds. DeclaredCap is a hard ceiling
// on the client-declared size at presign time, independent of MaxBytes.
type Policy struct {
	MaxBytes    int64
	DeclaredCap int64
	AllowedMIME map[string]bool
}

// SanitizeFilename strips path components, replaces characters outside the
// alphanumeric-plus-"._ -" set and truncates to 128 characters. An empty
// result falls back to a fixed default name.
func SanitizeFilename(filename string) string {
	fn := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if fn == "." || fn == "/" {
		fn = ""
	}
	fn = unsafeFilenameChars.ReplaceAllString(fn, "_")
	if len(fn) > maxFilenameLen {
		fn = fn[:maxFilenameLen]
	}
	if fn == "" {
		return defaultFilename
	}
	return fn
}

// ValidateIntent checks the client-declared metadata before a presigned URL
// is issued, returning the sanitized filename on success.
func (p *Policy) ValidateIntent(filename, contentType string, sizeBytes int64) (string, error) {
	safe := SanitizeFilename(filename)
	if safe == "" {
		return "", &ValidationError{Kind: KindFilename, Message: "invalid filename"}
	}
	if sizeBytes <= 0 {
		return "", &ValidationError{Kind: KindSize, Message: "size_bytes must be > 0"}
	}
	if p.DeclaredCap > 0 && sizeBytes > p.DeclaredCap {
		return "", &ValidationError{Kind: KindSizeTooLarge, Message: fmt.Sprintf("declared size exceeds hard cap (%d bytes)", p.DeclaredCap)}
	}
	if sizeBytes > p.MaxBytes {
		return "", &ValidationError{Kind: KindSizeTooLarge, Message: fmt.Sprintf("file too large (max %d bytes)", p.MaxBytes)}
	}
	if !p.AllowedMIME[contentType] {
		return "", &ValidationError{Kind: KindContentType, Message: "unsupported content_type: " + contentType}
	}
	return safe, nil
}

// ValidateConfirmed re-checks the blob store's reported metadata. The values
// declared at presign time are untrusted; the uploaded object is
// authoritative.
func (p *Policy) ValidateConfirmed(observedContentType string, observedSize int64) error {
	if observedSize <= 0 || observedSize > p.MaxBytes {
		return &ValidationError{Kind: KindSize, Message: "uploaded object invalid size"}
	}
	if !p.AllowedMIME[observedContentType] {
		return &ValidationError{Kind: KindContentType, Message: "unsupported object content_type: " + observedContentType}
	}
	return nil
}

// ValidateHashFormat accepts only a 64-character lowercase hex SHA-256
// digest. An empty hash is allowed; it means "no hash supplied".
func ValidateHashFormat(hash string) error {
	if hash == "" {
		return nil
	}
	if len(hash) != 64 {
		return &ValidationError{Kind: KindHash, Message: "sha256_hex must be 64 hex chars"}
	}
	for _, c := range hash {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return &ValidationError{Kind: KindHash, Message: "sha256_hex must be 64 hex chars"}
		}
	}
	return nil
}
