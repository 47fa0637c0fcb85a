package runtime

import (
	"github.com/tetratelabs/wazero/api"
)

// Minimal core wasm encoder for test guests.

type guestImport struct {
	name string
	typ  int
}

type guestFunc struct {
	export string
	typ    int
	body   []byte
}

type funcType struct {
	params, results []api.ValueType
}

type guest struct {
	types   []funcType
	imports []guestImport
	funcs   []guestFunc
}

func (g *guest) typeIndex(params, results []api.ValueType) int {
	for i, t := range g.types {
		if string(t.params) == string(params) && string(t.results) == string(results) {
			return i
		}
	}
	g.types = append(g.types, funcType{params: params, results: results})
	return len(g.types) - 1
}

// importHost adds a host import and returns its function index.
func (g *guest) importHost(name string, params, results []api.ValueType) uint32 {
	g.imports = append(g.imports, guestImport{name: name, typ: g.typeIndex(params, results)})
	return uint32(len(g.imports) - 1)
}

func (g *guest) export(name string, params, results []api.ValueType, body ...byte) {
	g.funcs = append(g.funcs, guestFunc{export: name, typ: g.typeIndex(params, results), body: body})
}

func (g *guest) encode() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	var types [][]byte
	for _, t := range g.types {
		entry := []byte{0x60}
		entry = append(entry, vec(valueTypes(t.params)...)...)
		entry = append(entry, vec(valueTypes(t.results)...)...)
		types = append(types, entry)
	}
	out = append(out, section(1, vec(types...))...)

	var imports [][]byte
	for _, imp := range g.imports {
		entry := wasmName(HostModuleName)
		entry = append(entry, wasmName(imp.name)...)
		entry = append(entry, 0x00)
		entry = append(entry, uleb(uint32(imp.typ))...)
		imports = append(imports, entry)
	}
	out = append(out, section(2, vec(imports...))...)

	var funcs, exports, code [][]byte
	for i, f := range g.funcs {
		funcs = append(funcs, uleb(uint32(f.typ)))

		entry := wasmName(f.export)
		entry = append(entry, 0x00)
		entry = append(entry, uleb(uint32(len(g.imports)+i))...)
		exports = append(exports, entry)

		body := append([]byte{0x00}, f.body...)
		body = append(body, 0x0b)
		code = append(code, append(uleb(uint32(len(body))), body...))
	}
	out = append(out, section(3, vec(funcs...))...)
	out = append(out, section(7, vec(exports...))...)
	out = append(out, section(10, vec(code...))...)
	return out
}

func valueTypes(ts []api.ValueType) [][]byte {
	out := make([][]byte, len(ts))
	for i, t := range ts {
		out[i] = []byte{t}
	}
	return out
}

func section(id byte, content []byte) []byte {
	out := append([]byte{id}, uleb(uint32(len(content)))...)
	return append(out, content...)
}

func vec(items ...[]byte) []byte {
	out := uleb(uint32(len(items)))
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

func wasmName(s string) []byte {
	return append(uleb(uint32(len(s))), s...)
}

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

const unreachable = 0x00

func localGet(i uint32) []byte { return append([]byte{0x20}, uleb(i)...) }
func call(i uint32) []byte     { return append([]byte{0x10}, uleb(i)...) }

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

var (
	i32  = []api.ValueType{api.ValueTypeI32}
	none = []api.ValueType{}
)

// audioGuest exports thin wrappers over every host function plus
// "consume", which reads the component type of an owned handle and drops it,
// "keep", which holds on to an owned handle, and "trap", which aborts.
func audioGuest() []byte {
	g := &guest{}
	ctype := g.importHost(FuncComponentType, i32, i32)
	drop := g.importHost(FuncDrop, i32, none)
	clone := g.importHost(FuncClone, i32, i32)
	valid := g.importHost(FuncIsValid, i32, i32)
	live := g.importHost(FuncLiveHandles, none, i32)

	g.export("inspect", i32, i32, cat(localGet(0), call(ctype))...)
	g.export("drop", i32, none, cat(localGet(0), call(drop))...)
	g.export("clone", i32, i32, cat(localGet(0), call(clone))...)
	g.export("valid", i32, i32, cat(localGet(0), call(valid))...)
	g.export("live", none, i32, call(live)...)
	g.export("consume", i32, i32, cat(localGet(0), call(ctype), localGet(0), call(drop))...)
	g.export("keep", i32, none)
	g.export("trap", i32, none, unreachable)
	return g.encode()
}
