package bridge

import (
	"strings"

	"github.com/arigato/aubridge/errors"
)

// Ownership selects whether handles hold a native reference on their unit.
type Ownership uint8

const (
	// NonOwning handles observe the unit without touching its retain count.
	NonOwning Ownership = iota
	// Shared handles retain the unit on construction and release it on finalization.
	Shared
)

func (o Ownership) String() string {
	switch o {
	case NonOwning:
		return "non-owning"
	case Shared:
		return "shared"
	default:
		return "unknown"
	}
}

// ParseOwnership parses "non-owning" or "shared".
func ParseOwnership(s string) (Ownership, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "non-owning", "nonowning":
		return NonOwning, nil
	case "shared":
		return Shared, nil
	default:
		return NonOwning, errors.ParseFailed("ownership", s, nil)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Ownership) UnmarshalText(text []byte) error {
	v, err := ParseOwnership(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}
