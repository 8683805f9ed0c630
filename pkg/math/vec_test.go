package math

import (
	"math"
	"testing"
)

func TestVec3Basics(t *testing.T) {
	a := Vec3{1, 2, 3}
	b := Vec3{4, -1, 2}

	sum := a.Add(b)
	if sum != (Vec3{5, 1, 5}) {
		t.Errorf("Add: got %+v", sum)
	}

	diff := a.Sub(b)
	if diff != (Vec3{-3, 3, 1}) {
		t.Errorf("Sub: got %+v", diff)
	}

	scaled := a.Scale(2)
	if scaled != (Vec3{2, 4, 6}) {
		t.Errorf("Scale: got %+v", scaled)
	}

	if dot := a.Dot(b); dot != 4-2+6 {
		t.Errorf("Dot: expected 8, got %v", dot)
	}
}

func TestVec3Cross(t *testing.T) {
	x := Vec3{X: 1}
	y := Vec3{Y: 1}

	z := x.Cross(y)
	if z != (Vec3{Z: 1}) {
		t.Errorf("X cross Y should be Z, got %+v", z)
	}
}

func TestVec3Normalize(t *testing.T) {
	v := Vec3{3, 4, 0}
	n := v.Normalize()

	if math.Abs(n.Length()-1) > 1e-12 {
		t.Errorf("normalized length should be 1, got %v", n.Length())
	}
	if math.Abs(n.X-0.6) > 1e-12 || math.Abs(n.Y-0.8) > 1e-12 {
		t.Errorf("expected (0.6, 0.8, 0), got %+v", n)
	}

	// Zero vector stays zero instead of dividing by zero.
	if z := (Vec3{}).Normalize(); z != (Vec3{}) {
		t.Errorf("zero vector normalize: got %+v", z)
	}
}

func TestMat3Rotated(t *testing.T) {
	// Diagonal tensor rotated 90 degrees about Z swaps the X and Y moments.
	inertia := Mat3{
		1, 0, 0,
		0, 2, 0,
		0, 0, 3,
	}
	q := QuatFromAxisAngle(Vec3{Z: 1}, math.Pi/2)
	r := inertia.Rotated(q)

	d := r.Diagonal()
	if math.Abs(d.X-2) > 1e-9 || math.Abs(d.Y-1) > 1e-9 || math.Abs(d.Z-3) > 1e-9 {
		t.Errorf("expected diagonal (2,1,3), got (%v,%v,%v)", d.X, d.Y, d.Z)
	}
}

func TestParallelAxisTerm(t *testing.T) {
	// Point mass m at distance d along X contributes m*d^2 about Y and Z.
	term := ParallelAxisTerm(2, Vec3{X: 3})

	d := term.Diagonal()
	if math.Abs(d.X) > 1e-12 {
		t.Errorf("no contribution about the offset axis expected, got %v", d.X)
	}
	if math.Abs(d.Y-18) > 1e-12 || math.Abs(d.Z-18) > 1e-12 {
		t.Errorf("expected 18 about Y and Z, got %v and %v", d.Y, d.Z)
	}
}
