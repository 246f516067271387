package rowid

import "testing"

func TestComposeDecompose(t *testing.T) {
	cases := []struct {
		segid  uint16
		dlidx  bool
		height uint8
		pgno   uint32
	}{
		{1, false, 0, 1},
		{0xffff, true, 31, (1 << 31) - 1},
		{42, false, 3, 12345},
	}
	for _, c := range cases {
		r := Compose(c.segid, c.dlidx, c.height, c.pgno)
		segid, dlidx, height, pgno := Decompose(r)
		if segid != c.segid || dlidx != c.dlidx || height != c.height || pgno != c.pgno {
			t.Fatalf("round trip mismatch for %+v: got segid=%d dlidx=%v height=%d pgno=%d",
				c, segid, dlidx, height, pgno)
		}
	}
}

func TestReservedRowids(t *testing.T) {
	if !IsReserved(Averages) || !IsReserved(Structure) {
		t.Fatalf("expected both reserved rowids to report reserved")
	}
	if IsReserved(Compose(1, false, 0, 1)) {
		t.Fatalf("ordinary composed rowid should not be reserved")
	}
}

func TestComposeDoesNotCollideWithReserved(t *testing.T) {
	// Segment ids start at 1, so the smallest rowid Compose produces for
	// a real segment is segid 1's pgno 0.
	r := Compose(1, false, 0, 0)
	if r == Averages || r == Structure {
		t.Fatalf("composed rowid collided with a reserved id: %d", r)
	}
}
