package csvfile

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var errInvalidUTF8 = errors.New("invalid utf-8")

// textEncoding decodes raw file bytes to UTF-8.
type textEncoding struct {
	name    string
	charmap encoding.Encoding // nil for utf-8
}

// lookupEncoding resolves a configured encoding name. Names are matched
// case-insensitively and common aliases are accepted.
func lookupEncoding(name string) (textEncoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "utf-8", "utf8":
		return textEncoding{name: "utf-8"}, nil
	case "latin-1", "latin1", "iso-8859-1", "iso8859-1":
		return textEncoding{name: "latin-1", charmap: charmap.ISO8859_1}, nil
	case "windows-1252", "cp1252":
		return textEncoding{name: "windows-1252", charmap: charmap.Windows1252}, nil
	default:
		return textEncoding{}, fmt.Errorf("unsupported encoding %q", name)
	}
}

func (e textEncoding) decode(data []byte) ([]byte, error) {
	if e.charmap == nil {
		data = bytes.TrimPrefix(data, utf8BOM)
		if !utf8.Valid(data) {
			return nil, errInvalidUTF8
		}
		return data, nil
	}
	out, err := e.charmap.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", e.name, err)
	}
	return out, nil
}
