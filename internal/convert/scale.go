package convert

import (
	gomath "math"

	"github.com/Faultbox/sdf2usd/pkg/sdf"
)

// applyScale rescales a parsed model in place by a uniform factor. Scale
// touches pose translations, geometry dimensions and prismatic travel
// limits. Rotations, masses and angular quantities are unaffected.
func applyScale(m *sdf.Model, scale float64) {
	if scale == 1 {
		return
	}

	m.Pose = m.Pose.ScaleTranslation(scale)

	for _, l := range m.Links {
		l.Pose = l.Pose.ScaleTranslation(scale)
		if l.Inertial != nil {
			l.Inertial.Pose = l.Inertial.Pose.ScaleTranslation(scale)
		}
		for _, v := range l.Visuals {
			v.Pose = v.Pose.ScaleTranslation(scale)
			scaleGeometry(v.Geometry, scale)
		}
		for _, c := range l.Collisions {
			c.Pose = c.Pose.ScaleTranslation(scale)
			scaleGeometry(c.Geometry, scale)
		}
	}

	for _, j := range m.Joints {
		j.Pose = j.Pose.ScaleTranslation(scale)
		if j.Kind == sdf.JointPrismatic {
			// Unbounded travel stays unbounded: scaling the sentinel
			// magnitude would turn it into a finite limit.
			if gomath.Abs(j.Axis.Lower) < limitOmitThreshold {
				j.Axis.Lower *= scale
			}
			if gomath.Abs(j.Axis.Upper) < limitOmitThreshold {
				j.Axis.Upper *= scale
			}
		}
	}
}

func scaleGeometry(g *sdf.Geometry, scale float64) {
	if g == nil {
		return
	}
	switch {
	case g.Mesh != nil:
		g.Mesh.Scale = g.Mesh.Scale.Scale(scale)
	case g.Box != nil:
		g.Box.Size = g.Box.Size.Scale(scale)
	case g.Cylinder != nil:
		g.Cylinder.Radius *= scale
		g.Cylinder.Length *= scale
	case g.Sphere != nil:
		g.Sphere.Radius *= scale
	case g.Capsule != nil:
		g.Capsule.Radius *= scale
		g.Capsule.Length *= scale
	}
}
