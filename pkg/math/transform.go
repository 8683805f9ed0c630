package math

// Transform is a rigid transform: a rotation followed by a translation.
// It is the quaternion-backed representation of a pose.
type Transform struct {
	Translation Vec3
	Rotation    Quat
}

// TransformIdentity returns the identity transform.
func TransformIdentity() Transform {
	return Transform{Rotation: QuatIdentity()}
}

// Mul composes two transforms: result = t * child, applying child first.
// Translation: t.R * child.T + t.T; rotation: t.R * child.R.
func (t Transform) Mul(child Transform) Transform {
	return Transform{
		Translation: t.Rotation.Rotate(child.Translation).Add(t.Translation),
		Rotation:    t.Rotation.Mul(child.Rotation).Normalize(),
	}
}

// Apply transforms a point into the parent frame.
func (t Transform) Apply(p Vec3) Vec3 {
	return t.Rotation.Rotate(p).Add(t.Translation)
}

// Inverse returns the inverse transform, so that t.Mul(t.Inverse()) is
// identity within floating-point tolerance.
func (t Transform) Inverse() Transform {
	inv := t.Rotation.Conjugate()
	return Transform{
		Translation: inv.Rotate(t.Translation).Scale(-1),
		Rotation:    inv,
	}
}

// ScaleTranslation returns the transform with its translation scaled.
// Rotation is unaffected; unit scaling never touches orientation.
func (t Transform) ScaleTranslation(s float64) Transform {
	return Transform{
		Translation: t.Translation.Scale(s),
		Rotation:    t.Rotation,
	}
}
