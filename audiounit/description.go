package audiounit

import (
	"strconv"
	"strings"

	"github.com/arigato/aubridge/errors"
)

// Component types, subtypes and manufacturers for the system-provided units.
const (
	TypeOutput      Code = 'a'<<24 | 'u'<<16 | 'o'<<8 | 'u'
	TypeMixer       Code = 'a'<<24 | 'u'<<16 | 'm'<<8 | 'x'
	TypeMusicDevice Code = 'a'<<24 | 'u'<<16 | 'm'<<8 | 'u'
	TypeGenerator   Code = 'a'<<24 | 'u'<<16 | 'g'<<8 | 'n'
	TypeEffect      Code = 'a'<<24 | 'u'<<16 | 'f'<<8 | 'x'

	SubTypeDefaultOutput     Code = 'd'<<24 | 'e'<<16 | 'f'<<8 | ' '
	SubTypeGenericOutput     Code = 'g'<<24 | 'e'<<16 | 'n'<<8 | 'r'
	SubTypeStereoMixer       Code = 's'<<24 | 'm'<<16 | 'x'<<8 | 'r'
	SubTypeMultiChannelMixer Code = 'm'<<24 | 'c'<<16 | 'm'<<8 | 'x'
	SubTypeDLSSynth          Code = 'd'<<24 | 'l'<<16 | 's'<<8 | ' '
	SubTypeSpeechSynthesis   Code = 't'<<24 | 't'<<16 | 's'<<8 | 'p'
	SubTypeAudioFilePlayer   Code = 'a'<<24 | 'f'<<16 | 'p'<<8 | 'l'

	ManufacturerApple Code = 'a'<<24 | 'p'<<16 | 'p'<<8 | 'l'
)

// Description identifies an audio component by type, subtype and manufacturer.
// Flags and FlagsMask are carried through serialization but ignored by Equal.
type Description struct {
	Type         Code
	SubType      Code
	Manufacturer Code
	Flags        uint32
	FlagsMask    uint32
}

// Well-known system components.
var (
	DefaultOutput     = Description{Type: TypeOutput, SubType: SubTypeDefaultOutput, Manufacturer: ManufacturerApple}
	GenericOutput     = Description{Type: TypeOutput, SubType: SubTypeGenericOutput, Manufacturer: ManufacturerApple}
	StereoMixer       = Description{Type: TypeMixer, SubType: SubTypeStereoMixer, Manufacturer: ManufacturerApple}
	MultiChannelMixer = Description{Type: TypeMixer, SubType: SubTypeMultiChannelMixer, Manufacturer: ManufacturerApple}
	DLSSynth          = Description{Type: TypeMusicDevice, SubType: SubTypeDLSSynth, Manufacturer: ManufacturerApple}
	SpeechSynthesis   = Description{Type: TypeGenerator, SubType: SubTypeSpeechSynthesis, Manufacturer: ManufacturerApple}
	AudioFilePlayer   = Description{Type: TypeGenerator, SubType: SubTypeAudioFilePlayer, Manufacturer: ManufacturerApple}
)

// Any matches every component.
var Any = Description{}

// Equal reports whether d and o name the same component.
func (d Description) Equal(o Description) bool {
	return d.Type == o.Type && d.SubType == o.SubType && d.Manufacturer == o.Manufacturer
}

// Matches reports whether d satisfies query. Zero fields in query match anything.
func (d Description) Matches(query Description) bool {
	if query.Type != 0 && query.Type != d.Type {
		return false
	}
	if query.SubType != 0 && query.SubType != d.SubType {
		return false
	}
	if query.Manufacturer != 0 && query.Manufacturer != d.Manufacturer {
		return false
	}
	return d.Flags&query.FlagsMask == query.Flags&query.FlagsMask
}

// String returns "type:subt:manu", with ":flags:mask" appended when either is set.
func (d Description) String() string {
	s := d.Type.String() + ":" + d.SubType.String() + ":" + d.Manufacturer.String()
	if d.Flags == 0 && d.FlagsMask == 0 {
		return s
	}
	return s + ":" + strconv.FormatUint(uint64(d.Flags), 10) + ":" + strconv.FormatUint(uint64(d.FlagsMask), 10)
}

// ParseDescription decodes the form produced by Description.String.
// Empty segments are skipped; flag values that fail to parse decode as 0.
func ParseDescription(s string) (Description, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ':' })
	if len(parts) != 3 && len(parts) != 5 {
		return Description{}, errors.ParseFailed("component description", s, nil)
	}

	var d Description
	for i, dst := range []*Code{&d.Type, &d.SubType, &d.Manufacturer} {
		c, err := ParseCode(parts[i])
		if err != nil {
			return Description{}, errors.ParseFailed("component description", s, err)
		}
		*dst = c
	}

	if len(parts) == 5 {
		d.Flags = parseFlag(parts[3])
		d.FlagsMask = parseFlag(parts[4])
	}
	return d, nil
}

func parseFlag(s string) uint32 {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0
	}
	return uint32(v)
}

// MarshalText implements encoding.TextMarshaler.
func (d Description) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Description) UnmarshalText(text []byte) error {
	v, err := ParseDescription(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
