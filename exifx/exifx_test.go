package exifx

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCaptureTimeSkipsNonJPEG(t *testing.T) {
	for _, ct := range []string{"image/png", "application/pdf", "text/plain", ""} {
		assert.Nil(t, ExtractCaptureTime(strings.NewReader("irrelevant"), ct), ct)
	}
}

func TestExtractCaptureTimeGarbagePayload(t *testing.T) {
	assert.Nil(t, ExtractCaptureTime(strings.NewReader("this is not a jpeg"), "image/jpeg"))
}

func TestExtractCaptureTimeEmptyPayload(t *testing.T) {
	assert.Nil(t, ExtractCaptureTime(bytes.NewReader(nil), "image/jpeg"))
}

func TestExtractCaptureTimeTruncatedJPEG(t *testing.T) {
	// SOI marker only, no EXIF segment.
	assert.Nil(t, ExtractCaptureTime(bytes.NewReader([]byte{0xff, 0xd8}), "image/jpeg"))
}
