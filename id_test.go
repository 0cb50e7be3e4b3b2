package taskflow

import "testing"

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	if a == b {
		t.Error("IDs must be unique")
	}
	if len(a) != 36 {
		t.Errorf("ID %q is not a canonical UUID", a)
	}
	// UUIDv7 is time-ordered, so later IDs sort after earlier ones.
	if !(a < b) {
		t.Errorf("IDs not time-sortable: %q then %q", a, b)
	}
}
