package runtime

import (
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/arigato/aubridge/bridge"
	"github.com/arigato/aubridge/resource"
)

// guestRefs records the runtime references each guest instance holds,
// keyed by instance name. A reference enters when the host hands a handle
// to a guest or the guest clones one, and leaves when the guest drops it.
// Whatever is left when an instance traps or closes is released on its
// behalf.
type guestRefs struct {
	held map[string]map[resource.Handle]int
	mu   sync.Mutex
}

func newGuestRefs() *guestRefs {
	return &guestRefs{held: make(map[string]map[resource.Handle]int)}
}

func (g *guestRefs) add(owner string, h resource.Handle) {
	g.mu.Lock()
	defer g.mu.Unlock()

	refs := g.held[owner]
	if refs == nil {
		refs = make(map[resource.Handle]int)
		g.held[owner] = refs
	}
	refs[h]++
}

// remove forgets one reference to h and reports whether owner held one.
func (g *guestRefs) remove(owner string, h resource.Handle) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	refs := g.held[owner]
	if refs[h] == 0 {
		return false
	}
	refs[h]--
	if refs[h] == 0 {
		delete(refs, h)
	}
	if len(refs) == 0 {
		delete(g.held, owner)
	}
	return true
}

func (g *guestRefs) count(owner string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := 0
	for _, c := range g.held[owner] {
		n += c
	}
	return n
}

// take removes and returns everything owner holds.
func (g *guestRefs) take(owner string) map[resource.Handle]int {
	g.mu.Lock()
	defer g.mu.Unlock()

	refs := g.held[owner]
	delete(g.held, owner)
	return refs
}

// takeAll removes and returns everything every owner holds.
func (g *guestRefs) takeAll() map[string]map[resource.Handle]int {
	g.mu.Lock()
	defer g.mu.Unlock()

	all := g.held
	g.held = make(map[string]map[resource.Handle]int)
	return all
}

// releaseRefs gives every reference in refs back to b.
func releaseRefs(b *bridge.Bridge, owner string, refs map[resource.Handle]int) error {
	var errs error
	n := 0
	for h, c := range refs {
		for ; c > 0; c-- {
			errs = multierr.Append(errs, b.Release(h))
			n++
		}
	}
	if n > 0 {
		Logger().Debug("released guest references",
			zap.String("module", owner),
			zap.Int("refs", n),
			zap.Error(errs))
	}
	return errs
}
