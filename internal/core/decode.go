package core

// decode.go turns uploaded bytes into text.
//
// Reports arrive either as UTF-8 or, from older emitters, as Latin-1. UTF-8
// is tried first; if the bytes are not valid UTF-8 they are decoded as
// ISO-8859-1, which maps every byte and therefore never fails.

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Encoding names the decoder DecodePayload picked.
type Encoding string

const (
	EncodingUTF8   Encoding = "utf-8"
	EncodingLatin1 Encoding = "latin-1"
)

// DecodePayload returns the text of an uploaded blob and the encoding used.
// A leading UTF-8 BOM is dropped.
func DecodePayload(data []byte) (string, Encoding) {
	data = bytes.TrimPrefix(data, utf8BOM)

	if utf8.Valid(data) {
		return string(data), EncodingUTF8
	}

	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return string(bytes.ToValidUTF8(data, nil)), EncodingLatin1
	}
	return string(out), EncodingLatin1
}
