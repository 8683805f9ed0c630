package convert

import (
	gomath "math"

	"github.com/Faultbox/sdf2usd/pkg/math"
	"github.com/Faultbox/sdf2usd/pkg/sdf"
)

// limitOmitThreshold marks a travel limit as unbounded. Descriptions use
// huge magnitudes (1e16 by default) to mean "no limit"; anything at or
// above the threshold is omitted from the output rather than emitted.
const limitOmitThreshold = 1e10

// Drive carries joint actuation parameters.
type Drive struct {
	Damping   float64
	Stiffness float64
}

// MappedJoint is a joint lowered onto the closed output set: fixed,
// revolute or prismatic. Pose places the joint frame relative to the
// parent link. Limits are in output units (degrees for revolute, meters
// for prismatic) and nil when unbounded.
type MappedJoint struct {
	Name   string
	Kind   sdf.JointKind
	Parent string
	Child  string
	Pose   math.Transform
	Axis   math.Vec3
	Lower  *float64
	Upper  *float64
	Drive  *Drive

	// Lossy is set when the source joint had no direct equivalent and
	// was downgraded to fixed.
	Lossy   bool
	RawType string
}

// mapJoints lowers every joint onto the output set. Ball and unsupported
// joints become fixed joints flagged as lossy; the caller reports them.
func mapJoints(m *sdf.Model) []MappedJoint {
	out := make([]MappedJoint, 0, len(m.Joints))
	for _, j := range m.Joints {
		mj := MappedJoint{
			Name:    j.Name,
			Parent:  j.Parent,
			Child:   j.Child,
			Pose:    j.Pose,
			Axis:    j.Axis.XYZ,
			RawType: j.RawType,
		}

		switch j.Kind {
		case sdf.JointRevolute:
			mj.Kind = sdf.JointRevolute
			mj.Lower = angularLimit(j.Axis.Lower)
			mj.Upper = angularLimit(j.Axis.Upper)
			mj.Drive = jointDrive(j.Axis)
		case sdf.JointPrismatic:
			mj.Kind = sdf.JointPrismatic
			mj.Lower = linearLimit(j.Axis.Lower)
			mj.Upper = linearLimit(j.Axis.Upper)
			mj.Drive = jointDrive(j.Axis)
		case sdf.JointFixed:
			mj.Kind = sdf.JointFixed
		default:
			mj.Kind = sdf.JointFixed
			mj.Lossy = true
		}
		out = append(out, mj)
	}
	return out
}

// angularLimit converts a radian limit to degrees, or nil when unbounded.
func angularLimit(v float64) *float64 {
	if gomath.Abs(v) >= limitOmitThreshold {
		return nil
	}
	deg := v * 180 / gomath.Pi
	return &deg
}

// linearLimit passes a linear limit through, or nil when unbounded.
func linearLimit(v float64) *float64 {
	if gomath.Abs(v) >= limitOmitThreshold {
		return nil
	}
	return &v
}

func jointDrive(a sdf.Axis) *Drive {
	if a.Damping <= 0 && a.Stiffness <= 0 {
		return nil
	}
	return &Drive{Damping: a.Damping, Stiffness: a.Stiffness}
}

// dominantAxis reduces an arbitrary axis vector to the closest principal
// axis token. Joint prims express their axis as X, Y or Z; off-axis
// components are dropped in favor of the largest magnitude.
func dominantAxis(v math.Vec3) string {
	ax, ay, az := gomath.Abs(v.X), gomath.Abs(v.Y), gomath.Abs(v.Z)
	if ax == 0 && ay == 0 && az == 0 {
		return "Z"
	}
	switch {
	case ax >= ay && ax >= az:
		return "X"
	case ay >= az:
		return "Y"
	}
	return "Z"
}
