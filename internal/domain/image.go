package domain

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// EncodedImage is a compressed raster image together with its MIME type. The
// bytes are always a complete encoded file (JPEG, PNG, ...) decodable by a
// standard codec.
type EncodedImage struct {
	Data []byte
	MIME string
}

// LoadEncodedImage reads a user-provided image into an EncodedImage, sniffing
// the MIME type from the leading bytes. Read failures are reported as
// ErrUnreadableFile.
func LoadEncodedImage(r io.Reader) (*EncodedImage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrUnreadableFile)
	}
	return &EncodedImage{Data: data, MIME: http.DetectContentType(data)}, nil
}

// DataURI renders the image as a base64 data URI for direct embedding by the
// presentation layer.
func (e *EncodedImage) DataURI() string {
	if e == nil || len(e.Data) == 0 {
		return ""
	}
	return "data:" + e.MIME + ";base64," + base64.StdEncoding.EncodeToString(e.Data)
}

// Clone returns an independent copy so callers can hand the image across a
// suspension point without sharing the backing slice.
func (e *EncodedImage) Clone() *EncodedImage {
	if e == nil {
		return nil
	}
	data := make([]byte, len(e.Data))
	copy(data, e.Data)
	return &EncodedImage{Data: data, MIME: e.MIME}
}

// ParseDataURI decodes a base64 data URI into an EncodedImage.
func ParseDataURI(uri string) (*EncodedImage, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, errors.New("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, errors.New("malformed data URI")
	}
	mime, _, _ := strings.Cut(meta, ";")
	if !strings.Contains(meta, ";base64") {
		return nil, errors.New("data URI is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data URI: %w", err)
	}
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return &EncodedImage{Data: data, MIME: mime}, nil
}
