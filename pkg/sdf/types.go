// Package sdf parses Gazebo SDF robot descriptions into a typed model and
// resolves the asset references they contain.
package sdf

import (
	"github.com/Faultbox/sdf2usd/pkg/math"
)

// LimitSentinel is the default joint limit magnitude for an unbounded axis.
const LimitSentinel = 1e16

// Model is a single top-level SDF model: the full assembly being converted.
type Model struct {
	Name   string
	Pose   math.Transform
	Links  []*Link
	Joints []*Joint
}

// Link returns the link with the given name, or nil.
func (m *Model) Link(name string) *Link {
	for _, l := range m.Links {
		if l.Name == name {
			return l
		}
	}
	return nil
}

// Link is a rigid body in the kinematic tree.
type Link struct {
	Name       string
	Pose       math.Transform
	Inertial   *Inertial
	Visuals    []*Visual
	Collisions []*Collision
}

// Inertial holds mass properties of a link. Pose places the center of mass
// (and inertia frame) relative to the link frame.
type Inertial struct {
	Mass    float64
	Pose    math.Transform
	Inertia Inertia
}

// Inertia is a symmetric 3x3 inertia tensor given by its six moments.
type Inertia struct {
	IXX, IXY, IXZ float64
	IYY, IYZ      float64
	IZZ           float64
}

// Tensor expands the moments into a full symmetric matrix.
func (i Inertia) Tensor() math.Mat3 {
	return math.Mat3{
		i.IXX, i.IXY, i.IXZ,
		i.IXY, i.IYY, i.IYZ,
		i.IXZ, i.IYZ, i.IZZ,
	}
}

// Visual is renderable geometry attached to a link.
type Visual struct {
	Name     string
	Pose     math.Transform
	Geometry *Geometry
	Material *Material
}

// Collision is collision geometry attached to a link.
type Collision struct {
	Name     string
	Pose     math.Transform
	Geometry *Geometry
}

// Geometry is a tagged union: exactly one field is set.
type Geometry struct {
	Mesh     *MeshGeometry
	Box      *BoxGeometry
	Cylinder *CylinderGeometry
	Sphere   *SphereGeometry
	Capsule  *CapsuleGeometry
}

// Kind returns the populated variant name.
func (g *Geometry) Kind() string {
	switch {
	case g.Mesh != nil:
		return "mesh"
	case g.Box != nil:
		return "box"
	case g.Cylinder != nil:
		return "cylinder"
	case g.Sphere != nil:
		return "sphere"
	case g.Capsule != nil:
		return "capsule"
	}
	return "unknown"
}

// MeshGeometry references an external mesh asset. URI is the raw reference
// as written in the document; resolution happens downstream.
type MeshGeometry struct {
	URI   string
	Scale math.Vec3
}

// BoxGeometry is an axis-aligned box given by its full extents.
type BoxGeometry struct {
	Size math.Vec3
}

// CylinderGeometry is a Z-aligned cylinder.
type CylinderGeometry struct {
	Radius float64
	Length float64
}

// SphereGeometry is a sphere.
type SphereGeometry struct {
	Radius float64
}

// CapsuleGeometry is a Z-aligned capsule.
type CapsuleGeometry struct {
	Radius float64
	Length float64
}

// Material describes surface appearance for a visual.
type Material struct {
	Diffuse  math.Vec3
	Specular math.Vec3
	PBR      *PBRMaterial
}

// PBRMaterial holds metal-workflow PBR parameters.
type PBRMaterial struct {
	Metalness float64
	Roughness float64
	AlbedoMap string
}

// JointKind is the closed set of joint variants the converter understands.
// Source documents carry an open set of type strings; anything outside the
// closed set parses as JointBall or JointUnsupported and is mapped
// conservatively downstream.
type JointKind int

const (
	JointRevolute JointKind = iota
	JointPrismatic
	JointFixed
	JointBall
	JointUnsupported
)

// String returns the joint kind name.
func (k JointKind) String() string {
	switch k {
	case JointRevolute:
		return "revolute"
	case JointPrismatic:
		return "prismatic"
	case JointFixed:
		return "fixed"
	case JointBall:
		return "ball"
	}
	return "unsupported"
}

// JointKindFromString maps an SDF joint type string onto the closed set.
func JointKindFromString(s string) JointKind {
	switch s {
	case "revolute":
		return JointRevolute
	case "prismatic":
		return JointPrismatic
	case "fixed":
		return JointFixed
	case "ball":
		return JointBall
	}
	return JointUnsupported
}

// Axis describes the motion axis of a revolute or prismatic joint.
type Axis struct {
	XYZ       math.Vec3
	Lower     float64
	Upper     float64
	Damping   float64
	Stiffness float64
	Friction  float64
}

// Joint connects a parent link to a child link. Pose places the joint frame
// relative to the parent link.
type Joint struct {
	Name    string
	Kind    JointKind
	RawType string
	Parent  string
	Child   string
	Pose    math.Transform
	Axis    Axis
}

func defaultAxis() Axis {
	return Axis{
		XYZ:   math.Vec3{Z: 1},
		Lower: -LimitSentinel,
		Upper: LimitSentinel,
	}
}
