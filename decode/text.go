package decode

import (
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/ianaindex"
)

// decodeText converts raw bytes to a string under the named encoding. utf-8
// is validated directly; other encodings resolve through the IANA index.
func decodeText(data []byte, name string) (string, error) {
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8":
		if !utf8.Valid(data) {
			return "", TextDecodingError{Encoding: "utf-8"}
		}
		return string(data), nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return "", TextDecodingError{Encoding: name, Err: err}
	}
	if enc == nil {
		return "", TextDecodingError{Encoding: name, Err: errors.New("unsupported encoding")}
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", TextDecodingError{Encoding: name, Err: err}
	}
	return string(out), nil
}
