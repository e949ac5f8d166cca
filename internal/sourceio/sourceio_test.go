package sourceio

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < 4; i++ {
		img.Set(i, i, color.RGBA{255, 0, 0, 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func TestDataURIRoundTrip(t *testing.T) {
	raw := pngBytes(t)
	uri := EncodeDataURI(FormatPNG, raw)

	mime, data, err := ParseDataURI(uri)
	if err != nil {
		t.Fatalf("ParseDataURI failed: %v", err)
	}
	if mime != "image/png" {
		t.Errorf("mime: got %s, want image/png", mime)
	}
	if !bytes.Equal(data, raw) {
		t.Error("payload does not round-trip")
	}
}

func TestParseDataURI_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"not a data URI", "https://example.com/a.png"},
		{"no comma", "data:image/png;base64"},
		{"bad base64", "data:image/png;base64,@@@@"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := ParseDataURI(tt.source); err == nil {
				t.Error("ParseDataURI should fail")
			}
		})
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"data:image/jpeg;base64,xxxx", FormatJPEG},
		{"data:image/jpg;base64,xxxx", FormatJPEG},
		{"data:image/png;base64,xxxx", FormatPNG},
		{"data:image/gif;base64,xxxx", ""},
		{"https://example.com/photo.JPG", FormatJPEG},
		{"https://example.com/photo.jpeg?w=100", FormatJPEG},
		{"https://example.com/icon.png", FormatPNG},
		{"https://example.com/anim.gif", ""},
		{"https://example.com/noext", ""},
	}

	for _, tt := range tests {
		if got := DetectFormat(tt.source); got != tt.want {
			t.Errorf("DetectFormat(%q): got %q, want %q", tt.source, got, tt.want)
		}
	}
}

func TestFetch(t *testing.T) {
	raw := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(raw)
	}))
	defer srv.Close()

	data, err := Fetch(context.Background(), srv.Client(), srv.URL+"/a.png")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !bytes.Equal(data, raw) {
		t.Error("fetched bytes differ from served bytes")
	}
}

func TestFetch_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	if _, err := Fetch(context.Background(), srv.Client(), srv.URL+"/missing.png"); err == nil {
		t.Error("Fetch should fail on 404")
	}
}

func TestPayloadSize(t *testing.T) {
	raw := pngBytes(t)
	uri := EncodeDataURI(FormatPNG, raw)

	got := PayloadSize(uri)
	// Base64 rounds the payload up to a multiple of 4 chars, so the estimate
	// may exceed the true size by the padding bytes.
	if diff := got - len(raw); diff < 0 || diff > 2 {
		t.Errorf("PayloadSize: got %d for %d raw bytes", got, len(raw))
	}

	encoded := base64.StdEncoding.EncodeToString(raw)
	want := int(float64(len(encoded))*3/4 + 0.5)
	if got != want {
		t.Errorf("PayloadSize: got %d, want %d", got, want)
	}

	if PayloadSize("no comma here") != 0 {
		t.Error("PayloadSize without comma should be 0")
	}
}
