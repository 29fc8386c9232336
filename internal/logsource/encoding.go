package logsource

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// ErrUnsupportedEncoding is returned for labels the WHATWG index does not know.
var ErrUnsupportedEncoding = errors.New("unsupported encoding")

// Encoding describes how raw bytes become text. Invalid input never fails:
// for UTF-8 ill-formed byte sequences are dropped, other encodings map every
// byte to some character.
type Encoding struct {
	label string
	enc   encoding.Encoding // nil for UTF-8
}

// UTF8 is the default encoding.
var UTF8 = Encoding{label: "utf-8"}

// LookupEncoding resolves a WHATWG label such as "utf-8", "latin1" or "windows-1252".
func LookupEncoding(label string) (Encoding, error) {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" || label == "utf-8" || label == "utf8" {
		return UTF8, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return Encoding{}, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, label)
	}
	name, err := htmlindex.Name(enc)
	if err == nil && name == "utf-8" {
		return UTF8, nil
	}
	return Encoding{label: name, enc: enc}, nil
}

// String returns the canonical label.
func (e Encoding) String() string {
	if e.label == "" {
		return UTF8.label
	}
	return e.label
}

// lineDecoder returns a decode function owning its own transformer state,
// so each reader gets one and no locking is needed.
func (e Encoding) lineDecoder() func(string) string {
	if e.enc == nil {
		return dropInvalidUTF8
	}
	dec := e.enc.NewDecoder()
	return func(s string) string {
		out, err := dec.String(s)
		if err != nil {
			return dropInvalidUTF8(s)
		}
		return out
	}
}

func dropInvalidUTF8(s string) string {
	return strings.ToValidUTF8(s, "")
}
