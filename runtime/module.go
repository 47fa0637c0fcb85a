package runtime

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/arigato/aubridge/errors"
)

// Module is a compiled guest module.
type Module struct {
	runtime  *Runtime
	compiled wazero.CompiledModule
}

// Exports returns the names of the module's exported functions, sorted.
func (m *Module) Exports() []string {
	defs := m.compiled.ExportedFunctions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Imports returns the host functions the module imports from HostModuleName.
func (m *Module) Imports() []string {
	var names []string
	for _, def := range m.compiled.ImportedFunctions() {
		if moduleName, name, _ := def.Import(); moduleName == HostModuleName {
			names = append(names, name)
		}
	}
	return names
}

// Instantiate creates a new instance of the module. Each instance gets a
// unique name, which keys the handle references its guest holds.
func (m *Module) Instantiate(ctx context.Context) (*Instance, error) {
	if err := m.runtime.checkOpen(); err != nil {
		return nil, err
	}

	name := "guest-" + uuid.NewString()
	cfg := wazero.NewModuleConfig().WithName(name).WithStartFunctions()
	mod, err := m.runtime.runtime.InstantiateModule(ctx, m.compiled, cfg)
	if err != nil {
		return nil, errors.Instantiation(err)
	}

	Logger().Debug("guest instantiated",
		zap.String("module", name),
		zap.Strings("exports", m.Exports()))
	return &Instance{module: m, instance: mod}, nil
}

// Close releases the compiled module.
func (m *Module) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}
