package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/huangsam/pulse/schema"
)

// panel is the toggle state of one graph panel. Its mutex serializes toggles
// so that each flip is fully applied before the next one is observed.
type panel struct {
	mu      sync.Mutex
	enabled map[schema.Category]bool
}

func newPanel() *panel {
	enabled := make(map[schema.Category]bool, len(schema.AllCategories))
	for _, c := range schema.AllCategories {
		enabled[c] = true
	}
	return &panel{enabled: enabled}
}

// snapshot returns the enabled categories in ordinal order. Caller must hold p.mu.
func (p *panel) snapshot() []schema.Category {
	out := make([]schema.Category, 0, len(p.enabled))
	for c, on := range p.enabled {
		if on {
			out = append(out, c)
		}
	}
	schema.SortCategories(out)
	return out
}

// PanelController keeps an independent set of enabled categories per panel.
// Panels never share state, and a toggle on one panel is never visible from another.
type PanelController struct {
	mu     sync.RWMutex // Protects the panels map, not the panels themselves
	panels map[string]*panel
}

// NewPanelController creates a controller with the given panels mounted.
func NewPanelController(panelIDs ...string) *PanelController {
	pc := &PanelController{panels: make(map[string]*panel)}
	for _, id := range panelIDs {
		_, _ = pc.Mount(id)
	}
	return pc
}

func validatePanelID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: panel id must not be empty", schema.ErrInvalidPanel)
	}
	return nil
}

// lookup returns the panel if mounted.
func (pc *PanelController) lookup(id string) (*panel, bool) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	p, ok := pc.panels[id]
	return p, ok
}

// getOrMount returns the panel, mounting it with all categories enabled if needed.
func (pc *PanelController) getOrMount(id string) *panel {
	if p, ok := pc.lookup(id); ok {
		return p
	}
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if p, ok := pc.panels[id]; ok {
		return p
	}
	p := newPanel()
	pc.panels[id] = p
	return p
}

// Mount creates the panel with every category enabled. Mounting an existing panel
// leaves its state untouched.
func (pc *PanelController) Mount(id string) (schema.PanelToggleState, error) {
	if err := validatePanelID(id); err != nil {
		return schema.PanelToggleState{}, err
	}
	p := pc.getOrMount(id)
	p.mu.Lock()
	defer p.mu.Unlock()
	return schema.PanelToggleState{PanelID: id, Enabled: p.snapshot()}, nil
}

// Unmount destroys the panel state. It reports whether the panel existed.
func (pc *PanelController) Unmount(id string) bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	_, ok := pc.panels[id]
	delete(pc.panels, id)
	return ok
}

// Panels returns the mounted panel IDs in lexical order.
func (pc *PanelController) Panels() []string {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	ids := make([]string, 0, len(pc.panels))
	for id := range pc.panels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// State returns a snapshot of the panel. Unmounted panels report the default state
// (every category enabled) and false.
func (pc *PanelController) State(id string) (schema.PanelToggleState, bool) {
	p, ok := pc.lookup(id)
	if !ok {
		all := make([]schema.Category, len(schema.AllCategories))
		copy(all, schema.AllCategories)
		return schema.PanelToggleState{PanelID: id, Enabled: all}, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return schema.PanelToggleState{PanelID: id, Enabled: p.snapshot()}, true
}

// Toggle flips the category on the panel and returns whether it is now enabled.
// The panel is mounted on first use.
func (pc *PanelController) Toggle(id string, c schema.Category) (bool, error) {
	if err := validatePanelID(id); err != nil {
		return false, err
	}
	if !c.IsKnown() {
		return false, fmt.Errorf("%w: %q", schema.ErrUnknownCategory, c)
	}
	for {
		p := pc.getOrMount(id)
		if on, ok := pc.flip(id, p, c); ok {
			return on, nil
		}
	}
}

// flip toggles c on p while p is still the panel mounted under id. It reports false
// without touching p when the panel was unmounted or replaced after the lookup.
func (pc *PanelController) flip(id string, p *panel, c schema.Category) (bool, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	if pc.panels[id] != p {
		return false, false
	}
	p.enabled[c] = !p.enabled[c]
	return p.enabled[c], true
}

// VisibleSeries restricts each bucket to the panel's enabled categories.
// Disabled categories are left out of the returned counts entirely.
func (pc *PanelController) VisibleSeries(id string, buckets []schema.TimeBucket) []schema.VisibleBucket {
	state, _ := pc.State(id)
	return FilterBuckets(buckets, state)
}

// FilterBuckets applies a toggle snapshot to a bucket sequence. The input is not modified.
func FilterBuckets(buckets []schema.TimeBucket, state schema.PanelToggleState) []schema.VisibleBucket {
	visible := make([]schema.VisibleBucket, len(buckets))
	for i, b := range buckets {
		counts := make(map[schema.Category]int, len(state.Enabled))
		for _, c := range state.Enabled {
			counts[c] = b.Counts[c]
		}
		visible[i] = schema.VisibleBucket{Start: b.Start, End: b.End, Counts: counts}
	}
	return visible
}
