package kb

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/ionoprop/core"
	"github.com/signalsfoundry/ionoprop/model"
)

var (
	ErrScenarioNotFound = errors.New("scenario not found")
	ErrScenarioExists   = errors.New("scenario already exists")
	ErrInvalidScenario  = errors.New("invalid scenario")
)

// EventType indicates what kind of change happened in the catalog.
type EventType int

const (
	EventScenarioAdded EventType = iota
	EventScenarioUpdated
	EventScenarioRemoved
)

func (t EventType) String() string {
	switch t {
	case EventScenarioAdded:
		return "added"
	case EventScenarioUpdated:
		return "updated"
	case EventScenarioRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is emitted to subscribers when a scenario changes.
type Event struct {
	Type     EventType
	Scenario model.Scenario
}

// Catalog is an in-memory, thread-safe store of named ionospheric
// scenarios.
type Catalog struct {
	mu sync.RWMutex

	scenarios map[string]*model.Scenario

	subs   map[int]func(Event)
	nextID int
}

// NewCatalog constructs an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		scenarios: make(map[string]*model.Scenario),
		subs:      make(map[int]func(Event)),
	}
}

// Validate checks that a scenario describes a traceable ionosphere.
func Validate(s *model.Scenario) error {
	if s == nil {
		return fmt.Errorf("%w: nil scenario", ErrInvalidScenario)
	}
	if s.ID == "" {
		return fmt.Errorf("%w: empty ID", ErrInvalidScenario)
	}
	if s.IsTilted() {
		if _, err := core.NewTiltedProfile(*s.Tilt); err != nil {
			return fmt.Errorf("%w %q: %w", ErrInvalidScenario, s.ID, err)
		}
	} else if _, err := core.NewProfile(model.IonosphereParams{FoF2MHz: s.FoF2MHz, Season: s.Season}); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidScenario, s.ID, err)
	}
	if s.ElevationDeg != 0 {
		if err := core.ValidateLaunch(1, s.ElevationDeg); err != nil {
			return fmt.Errorf("%w %q: %w", ErrInvalidScenario, s.ID, err)
		}
	}
	for _, f := range s.FrequenciesMHz {
		if err := core.ValidateLaunch(f, 45); err != nil {
			return fmt.Errorf("%w %q: %w", ErrInvalidScenario, s.ID, err)
		}
	}
	return nil
}

// Medium builds the density model described by a scenario.
func Medium(s *model.Scenario) (core.Medium, error) {
	if s.IsTilted() {
		tp, err := core.NewTiltedProfile(*s.Tilt)
		if err != nil {
			return nil, err
		}
		return tp, nil
	}
	p, err := core.NewProfile(model.IonosphereParams{FoF2MHz: s.FoF2MHz, Season: s.Season})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Add stores a copy of s. It fails if the ID already exists.
func (c *Catalog) Add(s *model.Scenario) error {
	if err := Validate(s); err != nil {
		return err
	}
	cp := clone(s)

	c.mu.Lock()
	if _, exists := c.scenarios[cp.ID]; exists {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrScenarioExists, cp.ID)
	}
	c.scenarios[cp.ID] = cp
	subs := c.subscribersLocked()
	c.mu.Unlock()

	notify(subs, Event{Type: EventScenarioAdded, Scenario: *clone(cp)})
	return nil
}

// Update replaces an existing scenario.
func (c *Catalog) Update(s *model.Scenario) error {
	if err := Validate(s); err != nil {
		return err
	}
	cp := clone(s)

	c.mu.Lock()
	if _, ok := c.scenarios[cp.ID]; !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrScenarioNotFound, cp.ID)
	}
	c.scenarios[cp.ID] = cp
	subs := c.subscribersLocked()
	c.mu.Unlock()

	notify(subs, Event{Type: EventScenarioUpdated, Scenario: *clone(cp)})
	return nil
}

// Remove deletes a scenario by ID.
func (c *Catalog) Remove(id string) error {
	c.mu.Lock()
	s, ok := c.scenarios[id]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrScenarioNotFound, id)
	}
	delete(c.scenarios, id)
	subs := c.subscribersLocked()
	c.mu.Unlock()

	notify(subs, Event{Type: EventScenarioRemoved, Scenario: *s})
	return nil
}

// Get returns a copy of the scenario with the given ID.
func (c *Catalog) Get(id string) (*model.Scenario, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.scenarios[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrScenarioNotFound, id)
	}
	return clone(s), nil
}

// List returns copies of all scenarios ordered by ID.
func (c *Catalog) List() []*model.Scenario {
	c.mu.RLock()
	res := make([]*model.Scenario, 0, len(c.scenarios))
	for _, s := range c.scenarios {
		res = append(res, clone(s))
	}
	c.mu.RUnlock()

	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// Len returns the number of stored scenarios.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.scenarios)
}

// Subscribe registers a callback for catalog events. It returns an
// unsubscribe function.
func (c *Catalog) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

func (c *Catalog) subscribersLocked() []func(Event) {
	ids := make([]int, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		out = append(out, c.subs[id])
	}
	return out
}

// notify runs outside the lock so callbacks may call back into the catalog.
func notify(subs []func(Event), ev Event) {
	for _, sub := range subs {
		sub(ev)
	}
}

func clone(s *model.Scenario) *model.Scenario {
	cp := *s
	if s.Tilt != nil {
		t := *s.Tilt
		cp.Tilt = &t
	}
	if s.FrequenciesMHz != nil {
		cp.FrequenciesMHz = append([]float64(nil), s.FrequenciesMHz...)
	}
	return &cp
}
