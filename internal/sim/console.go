package sim

import (
	"fmt"
	"sync"

	"rescueops/internal/fleet"
)

// Console ties the Store, the position simulator and the advisory together
// with the operator's selection. Every write goes through its mutex, so the
// Store only ever sees one writer at a time.
type Console struct {
	mu        sync.Mutex
	store     *fleet.Store
	positions *PositionSimulator
	advisory  *AdvisoryRotator
	selected  string

	listenMu  sync.Mutex
	listeners []func(id string)
}

// NewConsole wires the core components.
func NewConsole(store *fleet.Store, positions *PositionSimulator, advisory *AdvisoryRotator) *Console {
	return &Console{store: store, positions: positions, advisory: advisory}
}

// Store returns the backing entity store.
func (c *Console) Store() *fleet.Store { return c.store }

// Select makes id the selected unit. Only units can be selected.
func (c *Console) Select(id string) error {
	c.mu.Lock()
	e, err := c.store.Get(id)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("select: %w", err)
	}
	if e.EntityType() != fleet.TypeUnit {
		c.mu.Unlock()
		return fmt.Errorf("select %s (%s): %w", id, e.EntityType(), ErrNotSelectable)
	}
	changed := c.selected != id
	c.selected = id
	c.mu.Unlock()
	if changed {
		c.emitSelection(id)
	}
	return nil
}

// Deselect clears the selection.
func (c *Console) Deselect() {
	c.mu.Lock()
	changed := c.selected != ""
	c.selected = ""
	c.mu.Unlock()
	if changed {
		c.emitSelection("")
	}
}

// SelectedID returns the selected unit id or "".
func (c *Console) SelectedID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// Selected returns the current state of the selected unit.
func (c *Console) Selected() (fleet.Unit, bool) {
	id := c.SelectedID()
	if id == "" {
		return fleet.Unit{}, false
	}
	u, err := c.store.Unit(id)
	if err != nil {
		return fleet.Unit{}, false
	}
	return u, true
}

// Dispatch applies cmd to the selected unit and announces it on the
// advisory. The unit's previous status does not restrict the command.
func (c *Console) Dispatch(cmd Command) (fleet.Unit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == "" {
		return fleet.Unit{}, ErrNoUnitSelected
	}
	status, ok := cmd.Status()
	if !ok {
		return fleet.Unit{}, fmt.Errorf("%q: %w", cmd, ErrUnknownCommand)
	}
	id := c.selected
	if err := c.store.MutateUnit(id, func(u *fleet.Unit) { u.Status = status }); err != nil {
		return fleet.Unit{}, fmt.Errorf("dispatch %s to %s: %w", cmd, id, err)
	}
	c.advisory.Set(fmt.Sprintf("AI: %s executing %s. Optimal path calculated.", id, cmd))
	u, err := c.store.Unit(id)
	if err != nil {
		return fleet.Unit{}, err
	}
	return u, nil
}

// DispatchName parses name and dispatches it.
func (c *Console) DispatchName(name string) (fleet.Unit, error) {
	cmd, err := ParseCommand(name)
	if err != nil {
		return fleet.Unit{}, err
	}
	return c.Dispatch(cmd)
}

// SimulateTick runs one position simulator step.
func (c *Console) SimulateTick() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positions.Tick()
}

// RotateAdvisory replaces the advisory with a random pool entry.
func (c *Console) RotateAdvisory() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.advisory.Rotate()
}

// Advisory returns the current advisory text.
func (c *Console) Advisory() string { return c.advisory.Current() }

// OnAdvisory registers fn for advisory changes.
func (c *Console) OnAdvisory(fn func(string)) { c.advisory.OnChange(fn) }

// OnSelectionChange registers fn to receive the new selection ("" when
// cleared).
func (c *Console) OnSelectionChange(fn func(id string)) {
	c.listenMu.Lock()
	defer c.listenMu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Console) emitSelection(id string) {
	c.listenMu.Lock()
	listeners := append([]func(string){}, c.listeners...)
	c.listenMu.Unlock()
	for _, fn := range listeners {
		fn(id)
	}
}
