package channel

import (
	"errors"
	"testing"
)

func TestRegistry_Shape(t *testing.T) {
	counts := map[Category]int{}
	for i, c := range Registry {
		if c.ID != ID(i) {
			t.Fatalf("Registry[%d].ID = %d", i, c.ID)
		}
		counts[c.Category]++
	}

	want := map[Category]int{
		CategoryTemperature: 3,
		CategoryPressure:    8,
		CategoryResistance:  3,
		CategoryFlow:        2,
		CategoryStatus:      2,
		CategoryValve:       ValveCount,
	}
	for cat, n := range want {
		if counts[cat] != n {
			t.Errorf("%s channels = %d, want %d", cat, counts[cat], n)
		}
	}
	if Count() != 3+8+3+2+2+39 {
		t.Errorf("Count() = %d", Count())
	}
}

func TestRegistry_UniqueNames(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range Registry {
		if seen[c.Name] {
			t.Errorf("duplicate channel name %q", c.Name)
		}
		seen[c.Name] = true
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"full range", "full range", true},
		{"Full  Range", "full range", true},
		{"MC (K)", "full range", true},
		{"still", "still", true},
		{"VE39", "VE39", true},
		{"ve7", "VE7", true},
		{"R MMR1 2", "R MMR1 2", true},
		{"PT", "PT", true},
		{"VE40", "", false},
		{"heures", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, ok := Lookup(tt.in)
			if ok != tt.ok {
				t.Fatalf("Lookup(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && c.Name != tt.want {
				t.Errorf("Lookup(%q) = %q, want %q", tt.in, c.Name, tt.want)
			}
		})
	}
}

func TestKinds(t *testing.T) {
	for _, id := range ByCategory(CategoryValve) {
		if Registry[id].Kind != KindBoolean {
			t.Errorf("%s kind = %s, want boolean", Registry[id].Name, Registry[id].Kind)
		}
	}
	for _, id := range ByCategory(CategoryTemperature) {
		c := Registry[id]
		if c.Kind != KindNumeric || c.Unit != "K" {
			t.Errorf("%s = %+v, want numeric K", c.Name, c)
		}
	}
}

func TestResolve(t *testing.T) {
	ids, err := Resolve([]string{"still", "P1"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if Registry[ids[0]].Name != "still" || Registry[ids[1]].Name != "P1" {
		t.Errorf("Resolve() = %v", ids)
	}

	if _, err := Resolve([]string{"still", "bogus"}); !errors.Is(err, ErrUnknownChannel) {
		t.Errorf("Resolve(bogus) error = %v, want ErrUnknownChannel", err)
	}
}

func TestParseCategory(t *testing.T) {
	if c, err := ParseCategory("valve"); err != nil || c != CategoryValve {
		t.Errorf("ParseCategory(valve) = %v, %v", c, err)
	}
	if _, err := ParseCategory("humidity"); !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("ParseCategory(humidity) error = %v", err)
	}
}

func TestGet(t *testing.T) {
	if _, ok := Get(-1); ok {
		t.Error("Get(-1) ok = true")
	}
	if _, ok := Get(ID(Count())); ok {
		t.Error("Get(Count()) ok = true")
	}
	if c, ok := Get(0); !ok || c.Label() != "MC (K)" {
		t.Errorf("Get(0) = %+v, %v", c, ok)
	}
}
