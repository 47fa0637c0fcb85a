package audiounit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arigato/aubridge/errors"
)

// Code is a four-character code as used by audio component descriptions.
//
// The text form is lossless: printable ASCII bytes other than the backslash
// appear as themselves, every other byte as \xHH. Codes with such bytes
// render longer than four characters.
type Code uint32

// String returns the lossless text form of c.
func (c Code) String() string {
	var b strings.Builder
	b.Grow(4)
	for pos := 0; pos < 4; pos++ {
		cv := byte(c >> (8 * (3 - pos)))
		if cv >= 32 && cv <= 127 && cv != '\\' {
			b.WriteByte(cv)
		} else {
			fmt.Fprintf(&b, "\\x%02x", cv)
		}
	}
	return b.String()
}

// ParseCode decodes the text form produced by Code.String.
// Input past the fourth decoded character is ignored.
func ParseCode(s string) (Code, error) {
	var c Code
	rest := s
	for i := 0; i < 4; i++ {
		v, next, ok := decodeCodeChar(rest)
		if !ok {
			return 0, errors.ParseFailed("four-character code", s, nil)
		}
		c = c<<8 | Code(v)
		rest = next
	}
	return c, nil
}

func decodeCodeChar(s string) (byte, string, bool) {
	if strings.HasPrefix(s, `\x`) && len(s) >= 4 {
		if v, err := strconv.ParseUint(s[2:4], 16, 8); err == nil {
			return byte(v), s[4:], true
		}
	}
	if len(s) == 0 || s[0] >= 0x80 {
		return 0, s, false
	}
	return s[0], s[1:], true
}

// MarshalText implements encoding.TextMarshaler.
func (c Code) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Code) UnmarshalText(text []byte) error {
	v, err := ParseCode(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
