package runtime

import (
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"
)

// Interface is the WIT source of the interface the host module implements.
const Interface = `package arigato:audio@0.1.0;

interface unit {
  resource audio-unit {
    clone: func() -> audio-unit;
    is-valid: func() -> bool;
    component-type: func() -> u32;
    component-subtype: func() -> u32;
    component-manufacturer: func() -> u32;
  }

  live-handles: func() -> u32;
}
`

// ResourceName is the WIT name of the audio unit resource.
const ResourceName = "audio-unit"

var audioUnitName = ResourceName

// AudioUnitType is the resource type definition guests import.
var AudioUnitType = &wit.TypeDef{
	Name: &audioUnitName,
	Kind: &wit.Resource{},
}

// Own returns own<audio-unit>, the type of a handle passed with its reference.
func Own() wit.Type {
	return &wit.TypeDef{Kind: &wit.Own{Type: AudioUnitType}}
}

// Borrow returns borrow<audio-unit>, the type of a method receiver.
func Borrow() wit.Type {
	return &wit.TypeDef{Kind: &wit.Borrow{Type: AudioUnitType}}
}

// Signature is the WIT-level type of one host function.
type Signature struct {
	Params  []wit.Type
	Results []wit.Type
}

// CoreTypes flattens the signature to core wasm value types.
func (s Signature) CoreTypes() (params, results []api.ValueType) {
	return flattenTypes(s.Params), flattenTypes(s.Results)
}

func flattenTypes(types []wit.Type) []api.ValueType {
	var result []api.ValueType
	for _, t := range types {
		result = append(result, flattenType(t)...)
	}
	return result
}

func flattenType(t wit.Type) []api.ValueType {
	switch v := t.(type) {
	case wit.Bool, wit.U8, wit.U16, wit.U32, wit.S8, wit.S16, wit.S32, wit.Char:
		return []api.ValueType{api.ValueTypeI32}
	case wit.U64, wit.S64:
		return []api.ValueType{api.ValueTypeI64}
	case wit.F32:
		return []api.ValueType{api.ValueTypeF32}
	case wit.F64:
		return []api.ValueType{api.ValueTypeF64}
	case *wit.TypeDef:
		switch v.Kind.(type) {
		case *wit.Own, *wit.Borrow:
			return []api.ValueType{api.ValueTypeI32}
		}
	}
	return nil
}
