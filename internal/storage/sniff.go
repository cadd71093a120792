package storage

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrUnsupportedType is returned when content does not match the accepted kind.
var ErrUnsupportedType = errors.New("unsupported file type")

const sniffLen = 3072

// Sniffed is an upload whose content type was detected from its leading bytes.
type Sniffed struct {
	Reader    io.Reader
	MIME      string
	Extension string
}

// Sniff reads the head of r to detect its type and returns a reader replaying the full content.
// Seekable inputs are rewound and returned as is.
func Sniff(r io.Reader) (*Sniffed, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	head = head[:n]

	replay := io.MultiReader(bytes.NewReader(head), r)
	if rs, ok := r.(io.ReadSeeker); ok {
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		replay = rs
	}

	detected := mimetype.Detect(head)
	return &Sniffed{
		Reader:    replay,
		MIME:      detected.String(),
		Extension: detected.Extension(),
	}, nil
}

// RequirePDF accepts only PDF documents.
func RequirePDF(r io.Reader) (*Sniffed, error) {
	s, err := Sniff(r)
	if err != nil {
		return nil, err
	}
	if !mimetype.EqualsAny(s.MIME, "application/pdf") {
		return nil, ErrUnsupportedType
	}
	return s, nil
}

// RequireImage accepts any image/* content.
func RequireImage(r io.Reader) (*Sniffed, error) {
	s, err := Sniff(r)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(s.MIME, "image/") {
		return nil, ErrUnsupportedType
	}
	return s, nil
}
