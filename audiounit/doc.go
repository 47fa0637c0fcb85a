// Package audiounit models the native audio-unit hosting subsystem.
//
// Components are identified by a Description of three four-character codes
// (type, subtype, manufacturer). A Catalog lists installed components and a
// Host instantiates Units from it:
//
//	host := audiounit.NewHost(audiounit.SystemCatalog())
//	mixer, err := host.Instantiate(ctx, audiounit.StereoMixer)
//
// The Host owns every Unit it creates. Code that only references a unit
// (script handles, for example) subscribes to destruction with
// Host.Subscribe so that it never keeps a pointer to a torn-down unit.
//
// Descriptions round-trip through a text form that stays readable when
// codes contain non-printable bytes:
//
//	audiounit.StereoMixer.String()           // "aumx:smxr:appl"
//	audiounit.ParseDescription(`abcd:efgh:\x01\xffab:5:7`)
package audiounit
