package regnum

import "testing"

func TestAMD64ToName(t *testing.T) {
	for num, want := range amd64DwarfToName {
		if got := AMD64ToName(num); got != want {
			t.Errorf("AMD64ToName(%d) = %q, want %q", num, got, want)
		}
	}
	if got := AMD64ToName(1000); got != "unknown1000" {
		t.Errorf("AMD64ToName(1000) = %q, want unknown1000", got)
	}
	if got := AMD64ToName(-1); got != "unknown-1" {
		t.Errorf("AMD64ToName(-1) = %q, want unknown-1", got)
	}
}
