package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/firereach/ladderreach/pkg/core"
)

func TestPosition3DFromString_ValidWithElevation(t *testing.T) {
	p, err := Position3DFromString("100.5,200.25,50.0")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.X != 100.5 {
		t.Errorf("expected X=100.5, got %f", p.X)
	}
	if p.Y != 200.25 {
		t.Errorf("expected Y=200.25, got %f", p.Y)
	}
	if p.Z != 50.0 {
		t.Errorf("expected Z=50.0, got %f", p.Z)
	}
}

func TestPosition3DFromString_ValidWithoutElevation(t *testing.T) {
	p, err := Position3DFromString("100.5, 200.25")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.X != 100.5 || p.Y != 200.25 || p.Z != 0 {
		t.Errorf("unexpected position %+v", p)
	}
}

func TestPosition3DFromString_ExtraComponents(t *testing.T) {
	p, err := Position3DFromString("1,2,3,extra,ignored")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != (core.Position3D{X: 1, Y: 2, Z: 3}) {
		t.Errorf("unexpected position %+v", p)
	}
}

func TestPosition3DFromString_Invalid(t *testing.T) {
	inputs := []string{
		"",
		"100.5",
		"abc,200.25",
		"100.5,xyz",
		"100.5,200.25,invalid",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := Position3DFromString(in)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrInvalidCoordinates) {
				t.Errorf("expected ErrInvalidCoordinates, got %v", err)
			}
		})
	}
}

func TestInSceneExtent(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"0,0", true},
		{"20037508.34,-20037508.34,12", true},
		{"20037508.35,0", false},
		{"0,-1e9", false},
		{"NaN,1", false},
		{"1,+Inf", false},
		{"1,2,NaN", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, err := Position3DFromString(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := InSceneExtent(p); got != tt.want {
				t.Errorf("InSceneExtent(%+v) = %v, want %v", p, got, tt.want)
			}
		})
	}
}

func TestCoords3857RoundTrip(t *testing.T) {
	p := Coords3857From4326(-117.195, 34.057, 400)
	if p.Z != 400 {
		t.Errorf("expected Z=400, got %f", p.Z)
	}

	lon, lat := Coords4326From3857(p)
	if math.Abs(lon+117.195) > 1e-9 {
		t.Errorf("expected lon=-117.195, got %f", lon)
	}
	if math.Abs(lat-34.057) > 1e-9 {
		t.Errorf("expected lat=34.057, got %f", lat)
	}
}

func TestScaleFactor(t *testing.T) {
	if k := ScaleFactor(core.Position3D{}); math.Abs(k-1) > 1e-9 {
		t.Errorf("expected scale 1 at the equator, got %f", k)
	}

	p := Coords3857From4326(0, 60, 0)
	if k := ScaleFactor(p); math.Abs(k-2) > 1e-6 {
		t.Errorf("expected scale 2 at 60 degrees, got %f", k)
	}
}

func TestDestination_DistanceAndBearing(t *testing.T) {
	origin := Coords3857From4326(-117.195, 34.057, 12)
	k := ScaleFactor(origin)

	for _, az := range []float64{0, 45, 90, 180, 270, 315} {
		d := Destination(origin, 10, az)
		planar := math.Hypot(d.X-origin.X, d.Y-origin.Y) / k
		if math.Abs(planar-10) > 1e-3 {
			t.Errorf("az=%v: expected 10 m, got %f", az, planar)
		}
		if got := Azimuth(origin, d); math.Abs(angleDiff(got, az)) > 1e-3 {
			t.Errorf("az=%v: expected bearing %v, got %f", az, az, got)
		}
		if d.Z != 12 {
			t.Errorf("expected Z carried over, got %f", d.Z)
		}
	}
}

func TestBufferSegment_RingShape(t *testing.T) {
	a := Coords3857From4326(-117.195, 34.057, 0)
	b := Destination(a, 8, 90)
	k := ScaleFactor(a)

	ring := BufferSegment(a, b, 2, 8)

	if len(ring) != 2*9+1 {
		t.Fatalf("expected %d ring points, got %d", 2*9+1, len(ring))
	}
	if ring[0] != ring[len(ring)-1] {
		t.Error("ring is not closed")
	}
	for i, p := range ring[:9] {
		if d := math.Hypot(p.X-b.X, p.Y-b.Y) / k; math.Abs(d-2) > 1e-3 {
			t.Errorf("front cap point %d at %f m from b", i, d)
		}
	}
	for i, p := range ring[9 : len(ring)-1] {
		if d := math.Hypot(p.X-a.X, p.Y-a.Y) / k; math.Abs(d-2) > 1e-3 {
			t.Errorf("back cap point %d at %f m from a", i, d)
		}
	}
}

func angleDiff(a, b float64) float64 {
	d := math.Mod(a-b+540, 360) - 180
	return d
}
