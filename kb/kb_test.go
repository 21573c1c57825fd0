package kb

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/signalsfoundry/ionoprop/core"
	"github.com/signalsfoundry/ionoprop/model"
)

func TestAddAndGetScenario(t *testing.T) {
	c := NewCatalog()
	s := &model.Scenario{ID: "s1", Name: "Scenario1", FoF2MHz: 9}
	if err := c.Add(s); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	got, err := c.Get("s1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Name != "Scenario1" || got.FoF2MHz != 9 {
		t.Fatalf("Get returned %#v, want name Scenario1 foF2 9", got)
	}

	// Stored values are copies.
	s.Name = "mutated"
	got.Name = "mutated too"
	again, _ := c.Get("s1")
	if again.Name != "Scenario1" {
		t.Fatalf("catalog entry changed to %q through an alias", again.Name)
	}
}

func TestAddScenarioDuplicate(t *testing.T) {
	c := NewCatalog()
	if err := c.Add(&model.Scenario{ID: "s1", FoF2MHz: 9}); err != nil {
		t.Fatalf("first Add error: %v", err)
	}
	if err := c.Add(&model.Scenario{ID: "s1", FoF2MHz: 10}); !errors.Is(err, ErrScenarioExists) {
		t.Fatalf("duplicate Add error = %v, want ErrScenarioExists", err)
	}
}

func TestGetMissingScenario(t *testing.T) {
	c := NewCatalog()
	if _, err := c.Get("missing"); !errors.Is(err, ErrScenarioNotFound) {
		t.Fatalf("Get error = %v, want ErrScenarioNotFound", err)
	}
	if err := c.Update(&model.Scenario{ID: "missing", FoF2MHz: 5}); !errors.Is(err, ErrScenarioNotFound) {
		t.Fatalf("Update error = %v, want ErrScenarioNotFound", err)
	}
	if err := c.Remove("missing"); !errors.Is(err, ErrScenarioNotFound) {
		t.Fatalf("Remove error = %v, want ErrScenarioNotFound", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		s     *model.Scenario
		cause error
	}{
		{"nil", nil, nil},
		{"empty id", &model.Scenario{FoF2MHz: 9}, nil},
		{"zero foF2", &model.Scenario{ID: "x"}, core.ErrInvalidFoF2},
		{"bad tilt", &model.Scenario{ID: "x", Tilt: &model.TiltParams{FoF2TxMHz: 30, FoF2RefMHz: 4, RefDistanceKm: 3000}}, core.ErrInvalidFoF2},
		{"bad tilt distance", &model.Scenario{ID: "x", Tilt: &model.TiltParams{FoF2TxMHz: 15, FoF2RefMHz: 4}}, core.ErrInvalidDistance},
		{"bad elevation", &model.Scenario{ID: "x", FoF2MHz: 9, ElevationDeg: 91}, core.ErrInvalidElevation},
		{"bad frequency", &model.Scenario{ID: "x", FoF2MHz: 9, FrequenciesMHz: []float64{7, -1}}, core.ErrInvalidFrequency},
	}
	for _, tt := range tests {
		err := Validate(tt.s)
		if !errors.Is(err, ErrInvalidScenario) {
			t.Errorf("%s: error = %v, want ErrInvalidScenario", tt.name, err)
		}
		if tt.cause != nil && !errors.Is(err, tt.cause) {
			t.Errorf("%s: error = %v, want cause %v", tt.name, err, tt.cause)
		}
	}
}

func TestListScenariosSorted(t *testing.T) {
	c := NewCatalog()
	for _, id := range []string{"c", "a", "b"} {
		if err := c.Add(&model.Scenario{ID: id, FoF2MHz: 8}); err != nil {
			t.Fatalf("Add(%s) error: %v", id, err)
		}
	}
	list := c.List()
	if len(list) != 3 || c.Len() != 3 {
		t.Fatalf("List returned %d scenarios, want 3", len(list))
	}
	for i, want := range []string{"a", "b", "c"} {
		if list[i].ID != want {
			t.Fatalf("List[%d] = %q, want %q", i, list[i].ID, want)
		}
	}
}

func TestSubscribeReceivesEvents(t *testing.T) {
	c := NewCatalog()
	var got []Event
	unsubscribe := c.Subscribe(func(ev Event) { got = append(got, ev) })

	if err := c.Add(&model.Scenario{ID: "s1", FoF2MHz: 8}); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if err := c.Update(&model.Scenario{ID: "s1", FoF2MHz: 10}); err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if err := c.Remove("s1"); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	unsubscribe()
	if err := c.Add(&model.Scenario{ID: "s2", FoF2MHz: 8}); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	want := []EventType{EventScenarioAdded, EventScenarioUpdated, EventScenarioRemoved}
	if len(got) != len(want) {
		t.Fatalf("received %d events, want %d", len(got), len(want))
	}
	for i, ev := range got {
		if ev.Type != want[i] {
			t.Fatalf("event %d type = %v, want %v", i, ev.Type, want[i])
		}
	}
	if got[1].Scenario.FoF2MHz != 10 {
		t.Fatalf("update event foF2 = %v, want 10", got[1].Scenario.FoF2MHz)
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	c := NewCatalog()
	var a, b int
	unsubA := c.Subscribe(func(Event) { a++ })
	c.Subscribe(func(Event) { b++ })
	unsubA()
	unsubA()

	if err := c.Add(&model.Scenario{ID: "s1", FoF2MHz: 8}); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if a != 0 || b != 1 {
		t.Fatalf("callbacks ran a=%d b=%d, want a=0 b=1", a, b)
	}
}

func TestConcurrentAdds(t *testing.T) {
	c := NewCatalog()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := c.Add(&model.Scenario{ID: fmt.Sprintf("s-%d", i), FoF2MHz: 8}); err != nil {
				t.Errorf("Add error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if c.Len() != 50 {
		t.Fatalf("Len = %d, want 50", c.Len())
	}
}

func TestDefaultCatalog(t *testing.T) {
	c := NewDefaultCatalog()
	if c.Len() != len(DefaultScenarios()) {
		t.Fatalf("Len = %d, want %d", c.Len(), len(DefaultScenarios()))
	}

	term, err := c.Get("terminator")
	if err != nil {
		t.Fatalf("Get(terminator) error: %v", err)
	}
	if !term.IsTilted() {
		t.Fatalf("terminator scenario is not tilted")
	}
	m, err := Medium(term)
	if err != nil {
		t.Fatalf("Medium error: %v", err)
	}
	if _, ok := m.(*core.TiltedProfile); !ok {
		t.Fatalf("Medium(terminator) = %T, want *core.TiltedProfile", m)
	}

	day, err := c.Get("day")
	if err != nil {
		t.Fatalf("Get(day) error: %v", err)
	}
	if got := ElevationOrDefault(day); got != DefaultElevationDeg {
		t.Fatalf("ElevationOrDefault = %v, want %v", got, DefaultElevationDeg)
	}
	if got := len(day.Frequencies()); got != len(model.AmateurBandsMHz) {
		t.Fatalf("day frequencies = %d, want amateur bands", got)
	}
}
