package storage

import (
	"errors"
	"testing"
)

func TestSniffImage(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10}, "image/jpeg"},
		{"png", []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0x00}, "image/png"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), "image/webp"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SniffImage(tc.data)
			if err != nil {
				t.Fatalf("SniffImage: %v", err)
			}
			if got != tc.want {
				t.Fatalf("type = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSniffImageRejectsOthers(t *testing.T) {
	for _, data := range [][]byte{
		nil,
		{},
		[]byte("GIF89a"),
		[]byte("<svg xmlns=\"http://www.w3.org/2000/svg\"/>"),
		[]byte("%PDF-1.4"),
		[]byte("plain text"),
	} {
		if _, err := SniffImage(data); !errors.Is(err, ErrUnsupportedImage) {
			t.Fatalf("data %q: err = %v, want ErrUnsupportedImage", data, err)
		}
	}
}
