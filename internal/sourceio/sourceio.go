// Package sourceio handles the byte-level plumbing of image sources: data-URI
// encoding and decoding, image format detection, remote retrieval, and the
// size arithmetic of base64 payloads.
package sourceio

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"math"
	"net/http"
	"path"
	"strings"
	"time"
)

// Format names used across the engine. Only the two formats the editor can
// commit are recognized; everything else reports as unknown.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
)

const dataURIPrefix = "data:"

// DefaultClient fetches remote sources. Replaceable for tests.
var DefaultClient = &http.Client{Timeout: 30 * time.Second}

// maxFetchBytes caps a remote response body; a photo larger than this is not
// something the in-page editor could handle anyway.
const maxFetchBytes = 64 << 20

// IsDataURI reports whether source is an RFC 2397 data URI.
func IsDataURI(source string) bool {
	return strings.HasPrefix(source, dataURIPrefix)
}

// IsHTTPURL reports whether source is an http or https URL.
func IsHTTPURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// EncodeDataURI wraps encoded image bytes in a base64 data URI for the given
// format ("jpeg" or "png").
func EncodeDataURI(format string, data []byte) string {
	return "data:image/" + format + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURI splits a base64 image data URI into its mime type and raw
// bytes.
func ParseDataURI(source string) (string, []byte, error) {
	if !IsDataURI(source) {
		return "", nil, fmt.Errorf("sourceio: not a data URI")
	}
	comma := strings.IndexByte(source, ',')
	if comma < 0 {
		return "", nil, fmt.Errorf("sourceio: data URI has no payload")
	}
	header := source[len(dataURIPrefix):comma]
	mime, _, _ := strings.Cut(header, ";")
	data, err := base64.StdEncoding.DecodeString(source[comma+1:])
	if err != nil {
		return "", nil, fmt.Errorf("sourceio: decode base64 payload: %w", err)
	}
	return mime, data, nil
}

// DetectFormat infers the image format from a source string without decoding
// it: the extension for URLs, the mime type initial for data URIs ('j' means
// jpeg, 'p' means png). Returns "" when the format cannot be determined.
func DetectFormat(source string) string {
	if IsDataURI(source) {
		rest, ok := strings.CutPrefix(source, "data:image/")
		if !ok || rest == "" {
			return ""
		}
		switch rest[0] {
		case 'j':
			return FormatJPEG
		case 'p':
			return FormatPNG
		}
		return ""
	}
	ext := strings.ToLower(path.Ext(stripQuery(source)))
	switch ext {
	case ".jpg", ".jpeg":
		return FormatJPEG
	case ".png":
		return FormatPNG
	}
	return ""
}

func stripQuery(url string) string {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		return url[:i]
	}
	return url
}

// Fetch retrieves a remote image as raw bytes.
func Fetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if client == nil {
		client = DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("sourceio: build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sourceio: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sourceio: fetch %s: unexpected status %s", url, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("sourceio: read body of %s: %w", url, err)
	}
	return data, nil
}

// PayloadSize estimates the decoded byte size of a base64 data URI: for total
// length L and header length H (everything through the comma), the payload
// decodes to round((L-H)*3/4) bytes.
func PayloadSize(dataURI string) int {
	comma := strings.IndexByte(dataURI, ',')
	if comma < 0 {
		return 0
	}
	n := len(dataURI) - comma - 1
	return int(math.Round(float64(n) * 3 / 4))
}
