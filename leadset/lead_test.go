package leadset

import "testing"

func TestValid(t *testing.T) {
	cases := []struct {
		name Name
		want bool
	}{
		{I, true},
		{V6, true},
		{V3R, true},
		{V7, true},
		{Name("xyz"), false},
		{Name(""), false},
	}
	for _, c := range cases {
		if got := Valid(c.name); got != c.want {
			t.Errorf("Valid(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestIndex(t *testing.T) {
	if i := Index(I); i != 0 {
		t.Errorf("Index(I) = %d, want 0", i)
	}
	if i := Index(V7); i != len(Pediatric15)-1 {
		t.Errorf("Index(V7) = %d, want %d", i, len(Pediatric15)-1)
	}
	if i := Index(Name("nope")); i != -1 {
		t.Errorf("Index(nope) = %d, want -1", i)
	}
}

func TestStandard12Length(t *testing.T) {
	if len(Standard12) != 12 {
		t.Errorf("len(Standard12) = %d, want 12", len(Standard12))
	}
	if len(Pediatric15) != 15 {
		t.Errorf("len(Pediatric15) = %d, want 15", len(Pediatric15))
	}
}

func TestPrecordialAndLimbDisjoint(t *testing.T) {
	seen := make(map[Name]bool)
	for _, l := range Precordial {
		seen[l] = true
	}
	for _, l := range Limb {
		if seen[l] {
			t.Errorf("lead %s present in both Precordial and Limb", l)
		}
	}
}
