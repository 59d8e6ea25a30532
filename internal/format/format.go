// Package format defines the closed set of output formats the service
// produces. Raw format strings from requests are resolved here once; the rest
// of the code passes Format values around and never compares strings.
package format

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownFormat = errors.New("format: unknown or unsupported format")

type Format int

const (
	Unknown Format = iota
	JPEG
	PNG
	WEBP
	SVG
)

func (f Format) String() string {
	switch f {
	case JPEG:
		return "jpeg"
	case PNG:
		return "png"
	case WEBP:
		return "webp"
	case SVG:
		return "svg"
	default:
		return "unknown"
	}
}

func (f Format) ContentType() string {
	switch f {
	case JPEG:
		return "image/jpeg"
	case PNG:
		return "image/png"
	case WEBP:
		return "image/webp"
	case SVG:
		return "image/svg+xml"
	default:
		return "application/octet-stream"
	}
}

func (f Format) Ext() string {
	switch f {
	case JPEG:
		return ".jpg"
	case PNG:
		return ".png"
	case WEBP:
		return ".webp"
	case SVG:
		return ".svg"
	default:
		return ""
	}
}

// Vector reports whether the format must be rasterized before any quality
// compression can apply.
func (f Format) Vector() bool {
	return f == SVG
}

// Parse resolves a raw format string. "jpg" and "jpeg" are the same format;
// matching is case-insensitive.
func Parse(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpg", "jpeg":
		return JPEG, nil
	case "png":
		return PNG, nil
	case "webp":
		return WEBP, nil
	case "svg":
		return SVG, nil
	default:
		return Unknown, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

const sniffLen = 100

// Sniff inspects the leading bytes of a payload. It recognizes the raster
// magic numbers and detects SVG documents by the presence of an <svg or <?xml
// marker in the first 100 bytes.
func Sniff(data []byte) Format {
	if len(data) == 0 {
		return Unknown
	}

	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return JPEG
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return PNG
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return WEBP
	}

	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	lower := bytes.ToLower(head)
	if bytes.Contains(lower, []byte("<svg")) || bytes.Contains(lower, []byte("<?xml")) {
		return SVG
	}

	return Unknown
}
