package timeline

import (
	"errors"
	"testing"
)

func TestInterpolateLinear(t *testing.T) {
	tbl := NewTable("z")
	if err := tbl.AddPoint(0, "z", 100); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := tbl.AddPoint(10, "z", 200); err != nil {
		t.Fatalf("add: %v", err)
	}

	cases := []struct {
		x    float64
		want float64
	}{
		{5, 150},
		{0, 100},
		{10, 200},
		{2.5, 125},
		{-5, 100}, // clamp below
		{20, 200}, // clamp above
	}
	for _, tc := range cases {
		out, err := tbl.Interpolate([]string{"z"}, []float64{tc.x})
		if err != nil {
			t.Fatalf("interpolate at %v: %v", tc.x, err)
		}
		if got := out[0][0]; got != tc.want {
			t.Fatalf("at %v: got %v, want %v", tc.x, got, tc.want)
		}
	}
}

func TestInterpolateMultiChannel(t *testing.T) {
	tbl := NewTable("lon", "lat")
	if err := tbl.AddPoints(0, []string{"lon", "lat"}, []float64{-70, 43}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := tbl.AddPoints(1000, []string{"lon", "lat"}, []float64{-71, 44}); err != nil {
		t.Fatalf("add: %v", err)
	}
	out, err := tbl.Interpolate([]string{"lon", "lat"}, []float64{500})
	if err != nil {
		t.Fatalf("interpolate: %v", err)
	}
	if out[0][0] != -70.5 || out[1][0] != 43.5 {
		t.Fatalf("got lon %v lat %v, want -70.5, 43.5", out[0][0], out[1][0])
	}
}

func TestSingleChannelAddRejectedOnMultiChannelTable(t *testing.T) {
	tbl := NewTable("lon", "lat")
	if err := tbl.AddPoint(0, "lon", -70); !errors.Is(err, ErrNoSuchVariable) {
		t.Fatalf("got %v, want ErrNoSuchVariable", err)
	}
	if tbl.NPoints() != 0 {
		t.Fatalf("rejected add still grew the table to %d points", tbl.NPoints())
	}
}

func TestAddPointsAtomicOnBadName(t *testing.T) {
	tbl := NewTable("lon", "lat")
	if err := tbl.AddPoints(0, []string{"lon", "alt"}, []float64{-70, 5}); !errors.Is(err, ErrNoSuchVariable) {
		t.Fatalf("got %v, want ErrNoSuchVariable", err)
	}
	if tbl.NPoints() != 0 {
		t.Fatalf("failed add left %d points behind", tbl.NPoints())
	}
	lon, err := tbl.Var("lon")
	if err != nil {
		t.Fatalf("var: %v", err)
	}
	if len(lon) != 0 {
		t.Fatalf("lon channel has %d values after failed add", len(lon))
	}
}

func TestAddPointsLengthMismatch(t *testing.T) {
	tbl := NewTable("lon", "lat")
	if err := tbl.AddPoints(0, []string{"lon", "lat"}, []float64{-70}); !errors.Is(err, ErrChannelMismatch) {
		t.Fatalf("got %v, want ErrChannelMismatch", err)
	}
}

func TestInterpolateErrors(t *testing.T) {
	empty := NewTable("z")
	if _, err := empty.Interpolate([]string{"z"}, []float64{1}); !errors.Is(err, ErrEmptyTable) {
		t.Fatalf("empty table: got %v, want ErrEmptyTable", err)
	}

	tbl := NewTable("z")
	if err := tbl.AddPoint(0, "z", 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := tbl.Interpolate([]string{"q"}, []float64{1}); !errors.Is(err, ErrNoSuchVariable) {
		t.Fatalf("unknown channel: got %v, want ErrNoSuchVariable", err)
	}
	if _, err := tbl.Var("q"); !errors.Is(err, ErrNoSuchVariable) {
		t.Fatalf("Var on unknown channel: got %v, want ErrNoSuchVariable", err)
	}
}

func TestInterpolateDuplicateAxisValue(t *testing.T) {
	tbl := NewTable("z")
	for _, p := range []struct{ x, y float64 }{{0, 1}, {5, 2}, {5, 3}, {10, 4}} {
		if err := tbl.AddPoint(p.x, "z", p.y); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	out, err := tbl.Interpolate([]string{"z"}, []float64{5})
	if err != nil {
		t.Fatalf("interpolate: %v", err)
	}
	// A repeated axis value must not divide by zero; either bracketing value
	// is acceptable, and the implementation picks the earlier one.
	if got := out[0][0]; got != 2 {
		t.Fatalf("at duplicated axis value: got %v, want 2", got)
	}
}
