package tabql

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
)

// DefaultEncoding is the text encoding used when none is configured.
const DefaultEncoding = "utf8"

type codecKind int

const (
	codecUTF8 codecKind = iota
	codecASCII
	codecTable
)

// TextCodec converts cells between a named text encoding and UTF-8.
type TextCodec struct {
	name string
	kind codecKind
	enc  encoding.Encoding
}

// LookupEncoding resolves an encoding name such as "utf8", "ascii",
// "latin1" or "shift_jis". Names are matched case-insensitively against
// the WHATWG labels first and the IANA registry second.
func LookupEncoding(name string) (*TextCodec, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	switch key {
	case "utf8", "utf-8", "utf_8":
		return &TextCodec{name: name, kind: codecUTF8}, nil
	case "ascii", "us-ascii", "us_ascii":
		return &TextCodec{name: name, kind: codecASCII}, nil
	}

	for _, candidate := range []string{key, strings.ReplaceAll(key, "_", "-")} {
		if enc, err := htmlindex.Get(candidate); err == nil {
			return &TextCodec{name: name, kind: codecTable, enc: enc}, nil
		}
		if enc, err := ianaindex.IANA.Encoding(candidate); err == nil && enc != nil {
			return &TextCodec{name: name, kind: codecTable, enc: enc}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, name)
}

// Name returns the name the codec was looked up with.
func (c *TextCodec) Name() string {
	return c.name
}

// ASCIICompatible reports whether every 7-bit byte decodes to itself, which
// delimited text requires so that delimiters and quotes can be found before
// decoding.
func (c *TextCodec) ASCIICompatible() bool {
	if c.kind != codecTable {
		return true
	}
	raw := make([]byte, 0x80)
	for i := range raw {
		raw[i] = byte(i)
	}
	out, err := c.enc.NewDecoder().Bytes(raw)
	if err != nil {
		return false
	}
	return string(out) == string(raw)
}

// Decode converts one raw cell to UTF-8. ok is false when the cell
// contains bytes that are invalid in the encoding.
func (c *TextCodec) Decode(raw string) (string, bool) {
	switch c.kind {
	case codecUTF8:
		return raw, utf8.ValidString(raw)
	case codecASCII:
		return raw, isASCII(raw)
	}
	if isASCII(raw) {
		return raw, true
	}
	out, err := c.enc.NewDecoder().String(raw)
	if err != nil || strings.ContainsRune(out, utf8.RuneError) {
		return "", false
	}
	return out, true
}

// Encode converts a UTF-8 cell to the encoding.
func (c *TextCodec) Encode(s string) (string, error) {
	switch c.kind {
	case codecUTF8:
		if !utf8.ValidString(s) {
			return "", encoding.ErrInvalidUTF8
		}
		return s, nil
	case codecASCII:
		if !isASCII(s) {
			return "", fmt.Errorf("non-ASCII character in %q", s)
		}
		return s, nil
	}
	return c.enc.NewEncoder().String(s)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
