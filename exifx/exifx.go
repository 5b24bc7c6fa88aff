// Package exifx extracts a capture timestamp from embedded image metadata.
// Only JPEG payloads are attempted; other formats and any decode failure
// yield no timestamp, never an error the caller has to handle.
package exifx

import (
	"io"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// exifTimeLayout is the EXIF datetime format, which carries no timezone.
// Values are stored as UTC.
const exifTimeLayout = "2006:01:02 15:04:05"

// ExtractCaptureTime reads EXIF metadata from r and returns the capture
// timestamp, preferring DateTimeOriginal, then DateTimeDigitized, then
// DateTime. Returns nil when the content type is not JPEG, the payload has no
// EXIF block, or no tag parses.
func ExtractCaptureTime(r io.Reader, contentType string) *time.Time {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg":
	default:
		return nil
	}

	x, err := exif.Decode(r)
	if err != nil {
		return nil
	}

	for _, field := range []exif.FieldName{
		exif.DateTimeOriginal,
		exif.DateTimeDigitized,
		exif.DateTime,
	} {
		if ts := parseDateTag(x, field); ts != nil {
			return ts
		}
	}
	return nil
}

func parseDateTag(x *exif.Exif, name exif.FieldName) *time.Time {
	tag, err := x.Get(name)
	if err != nil || tag == nil {
		return nil
	}
	if tag.Format() != tiff.StringVal {
		return nil
	}
	raw, err := tag.StringVal()
	if err != nil {
		return nil
	}
	ts, err := time.Parse(exifTimeLayout, strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	ts = ts.UTC()
	return &ts
}
