// Package exif reads and rewrites the EXIF orientation tag of JPEG images.
//
// Only the orientation tag is understood. The parser walks the JPEG segment
// stream looking for the APP1 (EXIF) segment, then walks IFD0 of the embedded
// TIFF structure for tag 0x0112. Both little-endian ("II") and big-endian
// ("MM") TIFF headers are handled.
//
// The package works on byte slices rather than readers because its callers
// need to splice and patch the segment in place: orientation correction keeps
// the original metadata block but normalizes the tag so that downstream
// viewers do not rotate the already-corrected pixels a second time.
package exif

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Orientation is an EXIF orientation tag value (1-8).
type Orientation int

const (
	OrientNormal      Orientation = 1
	OrientFlipH       Orientation = 2
	OrientRotate180   Orientation = 3
	OrientFlipV       Orientation = 4
	OrientTranspose   Orientation = 5
	OrientRotate90CW  Orientation = 6
	OrientTransverse  Orientation = 7
	OrientRotate270CW Orientation = 8
)

// ErrNoEXIF is returned when a JPEG carries no APP1/EXIF segment.
var ErrNoEXIF = errors.New("exif: no APP1 segment")

var exifHeader = []byte("Exif\x00\x00")

const (
	markerSOI      = 0xD8
	markerAPP1     = 0xE1
	markerSOS      = 0xDA
	tagOrientation = 0x0112
)

// app1 describes the location of the APP1 segment inside a JPEG byte slice.
// start points at the 0xFF of the marker; length is the payload length
// including the two length bytes.
type app1 struct {
	start  int
	length int
}

// findAPP1 walks the segment stream up to SOS.
func findAPP1(data []byte) (app1, error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != markerSOI {
		return app1{}, fmt.Errorf("exif: not a JPEG stream")
	}
	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != 0xFF {
			return app1{}, ErrNoEXIF
		}
		marker := data[pos+1]
		// Padding bytes before a marker are legal.
		if marker == 0xFF {
			pos++
			continue
		}
		if marker == markerSOS {
			return app1{}, ErrNoEXIF
		}
		segLen := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		if segLen < 2 || pos+2+segLen > len(data) {
			return app1{}, fmt.Errorf("exif: truncated segment 0x%02X", marker)
		}
		if marker == markerAPP1 && bytes.HasPrefix(data[pos+4:pos+2+segLen], exifHeader) {
			return app1{start: pos, length: segLen}, nil
		}
		pos += 2 + segLen
	}
	return app1{}, ErrNoEXIF
}

// orientationOffset returns the absolute offset of the 2-byte orientation
// value within data, plus the byte order in effect at that offset.
func orientationOffset(data []byte, seg app1) (int, binary.ByteOrder, error) {
	tiff := seg.start + 4 + len(exifHeader)
	end := seg.start + 2 + seg.length
	if tiff+8 > end {
		return 0, nil, fmt.Errorf("exif: APP1 too short for TIFF header")
	}
	var order binary.ByteOrder
	switch {
	case data[tiff] == 'I' && data[tiff+1] == 'I':
		order = binary.LittleEndian
	case data[tiff] == 'M' && data[tiff+1] == 'M':
		order = binary.BigEndian
	default:
		return 0, nil, fmt.Errorf("exif: bad TIFF byte order mark")
	}
	ifd := tiff + int(order.Uint32(data[tiff+4:tiff+8]))
	if ifd+2 > end {
		return 0, nil, fmt.Errorf("exif: IFD0 offset out of range")
	}
	count := int(order.Uint16(data[ifd : ifd+2]))
	entry := ifd + 2
	for i := 0; i < count; i++ {
		if entry+12 > end {
			return 0, nil, fmt.Errorf("exif: truncated IFD0")
		}
		if order.Uint16(data[entry:entry+2]) == tagOrientation {
			// SHORT value lives in the first two bytes of the value field.
			return entry + 8, order, nil
		}
		entry += 12
	}
	return 0, nil, ErrNoEXIF
}

// ReadOrientation returns the orientation tag of a JPEG byte stream.
// Missing EXIF, a missing tag, or an out-of-range value all read as
// OrientNormal; only structural corruption is an error.
func ReadOrientation(data []byte) (Orientation, error) {
	seg, err := findAPP1(data)
	if errors.Is(err, ErrNoEXIF) {
		return OrientNormal, nil
	}
	if err != nil {
		return OrientNormal, err
	}
	off, order, err := orientationOffset(data, seg)
	if errors.Is(err, ErrNoEXIF) {
		return OrientNormal, nil
	}
	if err != nil {
		return OrientNormal, err
	}
	v := Orientation(order.Uint16(data[off : off+2]))
	if v < OrientNormal || v > OrientRotate270CW {
		return OrientNormal, nil
	}
	return v, nil
}

// ExtractAPP1 returns a copy of the full APP1 segment (marker through payload)
// with its orientation tag, if present, rewritten to OrientNormal. The copy is
// suitable for splicing into a re-encoded JPEG via Splice.
func ExtractAPP1(data []byte) ([]byte, error) {
	seg, err := findAPP1(data)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 2+seg.length)
	copy(out, data[seg.start:seg.start+2+seg.length])
	if off, order, oerr := orientationOffset(data, seg); oerr == nil {
		rel := off - seg.start
		order.PutUint16(out[rel:rel+2], uint16(OrientNormal))
	}
	return out, nil
}

// Splice inserts an APP1 segment immediately after the SOI marker of jpeg.
// Any APP1 already present is left untouched; Go's encoder never emits one,
// which is the only producer this is used with.
func Splice(jpeg, segment []byte) ([]byte, error) {
	if len(jpeg) < 2 || jpeg[0] != 0xFF || jpeg[1] != markerSOI {
		return nil, fmt.Errorf("exif: not a JPEG stream")
	}
	out := make([]byte, 0, len(jpeg)+len(segment))
	out = append(out, jpeg[:2]...)
	out = append(out, segment...)
	out = append(out, jpeg[2:]...)
	return out, nil
}

// BuildAPP1 synthesizes a minimal big-endian EXIF APP1 segment holding a
// single orientation entry. Used to construct fixtures and to tag outputs
// whose source carried no metadata.
func BuildAPP1(o Orientation) []byte {
	var tiff bytes.Buffer
	tiff.WriteString("MM")
	binary.Write(&tiff, binary.BigEndian, uint16(0x002A))
	binary.Write(&tiff, binary.BigEndian, uint32(8)) // IFD0 right after header
	binary.Write(&tiff, binary.BigEndian, uint16(1)) // one entry
	binary.Write(&tiff, binary.BigEndian, uint16(tagOrientation))
	binary.Write(&tiff, binary.BigEndian, uint16(3)) // SHORT
	binary.Write(&tiff, binary.BigEndian, uint32(1))
	binary.Write(&tiff, binary.BigEndian, uint16(o))
	binary.Write(&tiff, binary.BigEndian, uint16(0)) // value padding
	binary.Write(&tiff, binary.BigEndian, uint32(0)) // no next IFD

	payload := append(append([]byte{}, exifHeader...), tiff.Bytes()...)
	seg := make([]byte, 0, 4+len(payload))
	seg = append(seg, 0xFF, markerAPP1)
	seg = append(seg, byte((len(payload)+2)>>8), byte(len(payload)+2))
	seg = append(seg, payload...)
	return seg
}
