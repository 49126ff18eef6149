package protocol

import "testing"

func TestIsMoreRecentBasics(t *testing.T) {
	tests := []struct {
		name      string
		candidate SequenceID
		reference SequenceID
		want      bool
	}{
		{"equal", 100, 100, false},
		{"next", 101, 100, true},
		{"previous", 99, 100, false},
		{"wraparound forward", 1, 65535, true},
		{"wraparound backward", 65535, 1, false},
		{"zero after max", 0, 65535, true},
		{"far forward", 100 + 32767, 100, true},
		{"antipodal", 100 + 32768, 100, false},
		{"antipodal reversed", 100, 100 + 32768, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsMoreRecent(tc.candidate, tc.reference); got != tc.want {
				t.Errorf("IsMoreRecent(%d, %d) = %v, want %v", tc.candidate, tc.reference, got, tc.want)
			}
		})
	}
}

// TestIsMoreRecentAsymmetry walks the whole ring against a handful of
// references: for a != b exactly one direction is more recent, except the
// antipodal pair where neither is.
func TestIsMoreRecentAsymmetry(t *testing.T) {
	for _, ref := range []SequenceID{0, 1, 12345, 32767, 32768, 65534, 65535} {
		for i := 0; i < 1<<16; i++ {
			c := SequenceID(i)
			fwd := IsMoreRecent(c, ref)
			back := IsMoreRecent(ref, c)

			switch {
			case c == ref:
				if fwd || back {
					t.Fatalf("IsMoreRecent(%d, %d) must be false both ways", c, ref)
				}
			case c-ref == 32768:
				if fwd || back {
					t.Fatalf("antipodal pair (%d, %d) must be false both ways", c, ref)
				}
			default:
				if fwd == back {
					t.Fatalf("IsMoreRecent(%d, %d) = %v and reversed = %v, want exactly one true", c, ref, fwd, back)
				}
			}
		}
	}
}

func TestDifferenceAndNeighbours(t *testing.T) {
	if d := Difference(2, 65534); d != 4 {
		t.Errorf("Difference(2, 65534) = %d, want 4", d)
	}
	if d := Difference(65534, 2); d != -4 {
		t.Errorf("Difference(65534, 2) = %d, want -4", d)
	}
	if SequenceID(65535).Next() != 0 {
		t.Error("Next() did not wrap")
	}
	if SequenceID(0).Prev() != 65535 {
		t.Error("Prev() did not wrap")
	}
	if !IsMoreRecentOrEqual(7, 7) || IsMoreRecentOrEqual(6, 7) {
		t.Error("IsMoreRecentOrEqual mismatch")
	}
}
