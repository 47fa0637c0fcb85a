package audiounit

import (
	"strings"
	"sync"
)

// Component is an installed audio component that units can be instantiated from.
type Component struct {
	ManufacturerName string
	Name             string
	Description      Description
}

// NewComponent builds a Component from its registered full name, which
// has the form "Manufacturer: Name". A full name without the separator
// is taken as the component name alone.
func NewComponent(desc Description, fullName string) Component {
	c := Component{Description: desc}
	if fullName == "" {
		return c
	}
	parts := strings.Split(fullName, ": ")
	if len(parts) >= 2 {
		c.ManufacturerName = parts[0]
		c.Name = parts[1]
	} else {
		c.Name = parts[0]
	}
	return c
}

// String returns "Manufacturer: Name (type:subt:manu)".
func (c Component) String() string {
	var b strings.Builder
	if c.ManufacturerName != "" {
		b.WriteString(c.ManufacturerName)
		b.WriteString(": ")
	}
	if c.Name != "" {
		b.WriteString(c.Name)
	} else {
		b.WriteByte('-')
	}
	b.WriteString(" (")
	b.WriteString(c.Description.String())
	b.WriteByte(')')
	return b.String()
}

// Catalog is an ordered registry of installed components.
// Thread-safe.
type Catalog struct {
	components []Component
	mu         sync.RWMutex
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{}
}

// SystemCatalog returns a catalog holding the well-known system components.
func SystemCatalog() *Catalog {
	c := NewCatalog()
	c.Register(DefaultOutput, "Apple: DefaultOutputUnit")
	c.Register(GenericOutput, "Apple: AUGenericOutput")
	c.Register(StereoMixer, "Apple: AUStereoMixer")
	c.Register(MultiChannelMixer, "Apple: AUMultiChannelMixer")
	c.Register(DLSSynth, "Apple: DLSMusicDevice")
	c.Register(SpeechSynthesis, "Apple: AUSpeechSynthesis")
	c.Register(AudioFilePlayer, "Apple: AUAudioFilePlayer")
	return c
}

// Register adds a component. Registering an equal description again adds
// another entry; lookups return the first match.
func (c *Catalog) Register(desc Description, fullName string) Component {
	comp := NewComponent(desc, fullName)
	c.mu.Lock()
	c.components = append(c.components, comp)
	c.mu.Unlock()
	return comp
}

// FindAll returns every component matching query in registration order.
func (c *Catalog) FindAll(query Description) []Component {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var result []Component
	for _, comp := range c.components {
		if comp.Description.Matches(query) {
			result = append(result, comp)
		}
	}
	return result
}

// Find returns the first component matching query.
func (c *Catalog) Find(query Description) (Component, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, comp := range c.components {
		if comp.Description.Matches(query) {
			return comp, true
		}
	}
	return Component{}, false
}

// Names lists every component name, "-" where a component has none.
func (c *Catalog) Names() []string {
	all := c.FindAll(Any)
	names := make([]string, 0, len(all))
	for _, comp := range all {
		if comp.Name == "" {
			names = append(names, "-")
			continue
		}
		names = append(names, comp.Name)
	}
	return names
}

// Len returns the number of registered components.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.components)
}
