package storage

import (
	"bytes"
	"errors"
)

// The storefront accepts raster images only.

var ErrUnsupportedImage = errors.New("unsupported image format")

// SniffImage identifies the content type of an uploaded image from its magic
// bytes, independent of the declared header.
func SniffImage(data []byte) (string, error) {
	switch {
	case isJPEG(data):
		return "image/jpeg", nil
	case isPNG(data):
		return "image/png", nil
	case isWEBP(data):
		return "image/webp", nil
	default:
		return "", ErrUnsupportedImage
	}
}

func isJPEG(head []byte) bool {
	return len(head) > 3 && head[0] == 0xff && head[1] == 0xd8 && head[2] == 0xff
}

func isPNG(head []byte) bool {
	pngMagic := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	return len(head) >= len(pngMagic) && bytes.Equal(head[:len(pngMagic)], pngMagic)
}

func isWEBP(head []byte) bool {
	return len(head) >= 12 &&
		bytes.Equal(head[:4], []byte("RIFF")) &&
		bytes.Equal(head[8:12], []byte("WEBP"))
}
