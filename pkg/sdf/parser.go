package sdf

import (
	"encoding/xml"
	"fmt"
	gomath "math"
	"os"
	"strconv"
	"strings"

	"github.com/Faultbox/sdf2usd/pkg/math"
)

// Parser turns raw SDF markup into a Model. The zero value is ready to use.
type Parser struct {
	// Skipped, when set, receives a note for every unknown element the
	// parser ignores. Unknown elements are diagnostics, not errors.
	Skipped func(element string)
}

// Parse is a convenience wrapper around Parser.Parse with no diagnostics.
func Parse(data []byte) (*Model, error) {
	var p Parser
	return p.Parse(data)
}

// ParseFile reads and parses an SDF document from disk.
func ParseFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Kind: MalformedMarkup, Element: path, Err: err}
	}
	var p Parser
	return p.Parse(data)
}

// Parse parses SDF markup. The document must contain exactly one top-level
// model, either as the root element or nested under <sdf>.
func (p *Parser) Parse(data []byte) (*Model, error) {
	var root xmlRoot
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, &ParseError{Kind: MalformedMarkup, Err: err}
	}

	var xm *xmlModel
	switch {
	case root.XMLName.Local == "model":
		// The model element is the document root; decode it directly.
		xm = new(xmlModel)
		if err := xml.Unmarshal(data, xm); err != nil {
			return nil, &ParseError{Kind: MalformedMarkup, Err: err}
		}
	case len(root.Models) == 1:
		xm = &root.Models[0]
	case len(root.Models) > 1:
		return nil, &ParseError{
			Kind:   UnsupportedElement,
			Detail: fmt.Sprintf("%d top-level models, expected exactly one", len(root.Models)),
		}
	case len(root.Worlds) > 0:
		return nil, &ParseError{Kind: UnsupportedElement, Element: "world",
			Detail: "world composition is not supported"}
	default:
		return nil, &ParseError{Kind: MalformedMarkup, Detail: "no <model> element found"}
	}

	return p.buildModel(xm)
}

func (p *Parser) buildModel(xm *xmlModel) (*Model, error) {
	if xm.Name == "" {
		return nil, &ParseError{Kind: MissingRequiredAttribute, Element: "model",
			Detail: "missing name attribute"}
	}

	m := &Model{Name: xm.Name, Pose: math.TransformIdentity()}

	var err error
	if m.Pose, err = p.buildPose(xm.Pose, "model "+xm.Name); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(xm.Links))
	for i := range xm.Links {
		link, err := p.buildLink(&xm.Links[i])
		if err != nil {
			return nil, err
		}
		if seen[link.Name] {
			return nil, &ParseError{Kind: MalformedMarkup, Element: "link " + link.Name,
				Detail: "duplicate link name"}
		}
		seen[link.Name] = true
		m.Links = append(m.Links, link)
	}

	for i := range xm.Joints {
		joint, err := p.buildJoint(&xm.Joints[i])
		if err != nil {
			return nil, err
		}
		if !seen[joint.Parent] {
			return nil, &ParseError{Kind: DanglingReference, Element: "joint " + joint.Name,
				Detail: fmt.Sprintf("parent link %q does not exist", joint.Parent)}
		}
		if !seen[joint.Child] {
			return nil, &ParseError{Kind: DanglingReference, Element: "joint " + joint.Name,
				Detail: fmt.Sprintf("child link %q does not exist", joint.Child)}
		}
		m.Joints = append(m.Joints, joint)
	}

	p.skipAll(xm.Extra, "model "+xm.Name)
	return m, nil
}

func (p *Parser) buildLink(xl *xmlLink) (*Link, error) {
	if xl.Name == "" {
		return nil, &ParseError{Kind: MissingRequiredAttribute, Element: "link",
			Detail: "missing name attribute"}
	}

	link := &Link{Name: xl.Name, Pose: math.TransformIdentity()}
	where := "link " + xl.Name

	var err error
	if link.Pose, err = p.buildPose(xl.Pose, where); err != nil {
		return nil, err
	}

	if xl.Inertial != nil {
		if link.Inertial, err = p.buildInertial(xl.Inertial, where); err != nil {
			return nil, err
		}
	}

	for i := range xl.Visuals {
		vis, err := p.buildVisual(&xl.Visuals[i], where)
		if err != nil {
			return nil, err
		}
		if vis.Geometry != nil {
			link.Visuals = append(link.Visuals, vis)
		}
	}

	for i := range xl.Collisions {
		col, err := p.buildCollision(&xl.Collisions[i], where)
		if err != nil {
			return nil, err
		}
		if col.Geometry != nil {
			link.Collisions = append(link.Collisions, col)
		}
	}

	p.skipAll(xl.Extra, where)
	return link, nil
}

func (p *Parser) buildInertial(xi *xmlInertial, where string) (*Inertial, error) {
	in := &Inertial{Pose: math.TransformIdentity()}
	where += " inertial"

	var err error
	if xi.Mass != "" {
		if in.Mass, err = parseFloat(xi.Mass, where+" mass"); err != nil {
			return nil, err
		}
	}
	if in.Pose, err = p.buildPose(xi.Pose, where); err != nil {
		return nil, err
	}
	if xi.Inertia != nil {
		moments := []struct {
			text string
			dst  *float64
			name string
		}{
			{xi.Inertia.IXX, &in.Inertia.IXX, "ixx"},
			{xi.Inertia.IXY, &in.Inertia.IXY, "ixy"},
			{xi.Inertia.IXZ, &in.Inertia.IXZ, "ixz"},
			{xi.Inertia.IYY, &in.Inertia.IYY, "iyy"},
			{xi.Inertia.IYZ, &in.Inertia.IYZ, "iyz"},
			{xi.Inertia.IZZ, &in.Inertia.IZZ, "izz"},
		}
		for _, m := range moments {
			if m.text == "" {
				continue
			}
			if *m.dst, err = parseFloat(m.text, where+" "+m.name); err != nil {
				return nil, err
			}
		}
	}
	return in, nil
}

func (p *Parser) buildVisual(xv *xmlVisual, where string) (*Visual, error) {
	vis := &Visual{Name: xv.Name, Pose: math.TransformIdentity()}
	if vis.Name == "" {
		vis.Name = "visual"
	}
	where += " visual " + vis.Name

	var err error
	if vis.Pose, err = p.buildPose(xv.Pose, where); err != nil {
		return nil, err
	}
	if xv.Geometry != nil {
		if vis.Geometry, err = p.buildGeometry(xv.Geometry, where); err != nil {
			return nil, err
		}
	}
	if xv.Material != nil {
		if vis.Material, err = p.buildMaterial(xv.Material, where); err != nil {
			return nil, err
		}
	}
	return vis, nil
}

func (p *Parser) buildCollision(xc *xmlCollision, where string) (*Collision, error) {
	col := &Collision{Name: xc.Name, Pose: math.TransformIdentity()}
	if col.Name == "" {
		col.Name = "collision"
	}
	where += " collision " + col.Name

	var err error
	if col.Pose, err = p.buildPose(xc.Pose, where); err != nil {
		return nil, err
	}
	if xc.Geometry != nil {
		if col.Geometry, err = p.buildGeometry(xc.Geometry, where); err != nil {
			return nil, err
		}
	}
	return col, nil
}

func (p *Parser) buildGeometry(xg *xmlGeometry, where string) (*Geometry, error) {
	geom := &Geometry{}
	where += " geometry"

	switch {
	case xg.Mesh != nil:
		mesh := &MeshGeometry{URI: strings.TrimSpace(xg.Mesh.URI), Scale: math.Vec3{X: 1, Y: 1, Z: 1}}
		if xg.Mesh.Scale != "" {
			scale, err := parseVec3(xg.Mesh.Scale, where+" mesh scale")
			if err != nil {
				return nil, err
			}
			mesh.Scale = scale
		}
		geom.Mesh = mesh

	case xg.Box != nil:
		box := &BoxGeometry{Size: math.Vec3{X: 1, Y: 1, Z: 1}}
		if xg.Box.Size != "" {
			size, err := parseVec3(xg.Box.Size, where+" box size")
			if err != nil {
				return nil, err
			}
			box.Size = size
		}
		geom.Box = box

	case xg.Cylinder != nil:
		cyl := &CylinderGeometry{Radius: 0.5, Length: 1}
		if err := parseOptFloat(xg.Cylinder.Radius, &cyl.Radius, where+" cylinder radius"); err != nil {
			return nil, err
		}
		if err := parseOptFloat(xg.Cylinder.Length, &cyl.Length, where+" cylinder length"); err != nil {
			return nil, err
		}
		geom.Cylinder = cyl

	case xg.Sphere != nil:
		sph := &SphereGeometry{Radius: 0.5}
		if err := parseOptFloat(xg.Sphere.Radius, &sph.Radius, where+" sphere radius"); err != nil {
			return nil, err
		}
		geom.Sphere = sph

	case xg.Capsule != nil:
		capsule := &CapsuleGeometry{Radius: 0.5, Length: 1}
		if err := parseOptFloat(xg.Capsule.Radius, &capsule.Radius, where+" capsule radius"); err != nil {
			return nil, err
		}
		if err := parseOptFloat(xg.Capsule.Length, &capsule.Length, where+" capsule length"); err != nil {
			return nil, err
		}
		geom.Capsule = capsule

	default:
		p.skipAll(xg.Extra, where)
		return nil, nil
	}

	p.skipAll(xg.Extra, where)
	return geom, nil
}

func (p *Parser) buildMaterial(xm *xmlMaterial, where string) (*Material, error) {
	mat := &Material{
		Diffuse:  math.Vec3{X: 0.8, Y: 0.8, Z: 0.8},
		Specular: math.Vec3{X: 0.1, Y: 0.1, Z: 0.1},
	}
	where += " material"

	if xm.Diffuse != "" {
		diffuse, err := parseVec3(xm.Diffuse, where+" diffuse")
		if err != nil {
			return nil, err
		}
		mat.Diffuse = diffuse
	}
	if xm.Specular != "" {
		specular, err := parseVec3(xm.Specular, where+" specular")
		if err != nil {
			return nil, err
		}
		mat.Specular = specular
	}
	if xm.PBR != nil && xm.PBR.Metal != nil {
		pbr := &PBRMaterial{Roughness: 0.5}
		if err := parseOptFloat(xm.PBR.Metal.Metalness, &pbr.Metalness, where+" metalness"); err != nil {
			return nil, err
		}
		if err := parseOptFloat(xm.PBR.Metal.Roughness, &pbr.Roughness, where+" roughness"); err != nil {
			return nil, err
		}
		pbr.AlbedoMap = strings.TrimSpace(xm.PBR.Metal.AlbedoMap)
		mat.PBR = pbr
	}
	return mat, nil
}

func (p *Parser) buildJoint(xj *xmlJoint) (*Joint, error) {
	if xj.Name == "" {
		return nil, &ParseError{Kind: MissingRequiredAttribute, Element: "joint",
			Detail: "missing name attribute"}
	}

	rawType := xj.Type
	if rawType == "" {
		rawType = "revolute"
	}

	joint := &Joint{
		Name:    xj.Name,
		Kind:    JointKindFromString(rawType),
		RawType: rawType,
		Pose:    math.TransformIdentity(),
		Axis:    defaultAxis(),
	}
	where := "joint " + xj.Name

	var err error
	if joint.Pose, err = p.buildPose(xj.Pose, where); err != nil {
		return nil, err
	}

	joint.Parent = strings.TrimSpace(xj.Parent)
	joint.Child = strings.TrimSpace(xj.Child)
	if joint.Parent == "" || joint.Child == "" {
		return nil, &ParseError{Kind: MissingRequiredAttribute, Element: where,
			Detail: "joint requires both parent and child"}
	}

	if xj.Axis != nil {
		if xj.Axis.XYZ != "" {
			if joint.Axis.XYZ, err = parseVec3(xj.Axis.XYZ, where+" axis xyz"); err != nil {
				return nil, err
			}
		}
		if xj.Axis.Limit != nil {
			if err = parseOptFloat(xj.Axis.Limit.Lower, &joint.Axis.Lower, where+" lower limit"); err != nil {
				return nil, err
			}
			if err = parseOptFloat(xj.Axis.Limit.Upper, &joint.Axis.Upper, where+" upper limit"); err != nil {
				return nil, err
			}
		}
		if xj.Axis.Dynamics != nil {
			if err = parseOptFloat(xj.Axis.Dynamics.Damping, &joint.Axis.Damping, where+" damping"); err != nil {
				return nil, err
			}
			if err = parseOptFloat(xj.Axis.Dynamics.Stiffness, &joint.Axis.Stiffness, where+" stiffness"); err != nil {
				return nil, err
			}
			if err = parseOptFloat(xj.Axis.Dynamics.Friction, &joint.Axis.Friction, where+" friction"); err != nil {
				return nil, err
			}
		}
	}
	return joint, nil
}

// buildPose parses a <pose> element: six whitespace-separated floats
// "x y z roll pitch yaw", with RPY in radians unless degrees="true".
func (p *Parser) buildPose(xp *xmlPose, where string) (math.Transform, error) {
	if xp == nil || strings.TrimSpace(xp.Text) == "" {
		return math.TransformIdentity(), nil
	}

	parts := strings.Fields(xp.Text)
	if len(parts) != 6 {
		return math.Transform{}, &ParseError{Kind: MalformedMarkup, Element: where,
			Detail: fmt.Sprintf("pose needs 6 values, got %d", len(parts))}
	}

	vals := make([]float64, 6)
	for i, s := range parts {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.Transform{}, &ParseError{Kind: MalformedMarkup, Element: where,
				Detail: fmt.Sprintf("bad pose value %q", s), Err: err}
		}
		vals[i] = v
	}

	roll, pitch, yaw := vals[3], vals[4], vals[5]
	if strings.EqualFold(xp.Degrees, "true") {
		roll = radians(roll)
		pitch = radians(pitch)
		yaw = radians(yaw)
	}

	return math.Transform{
		Translation: math.Vec3{X: vals[0], Y: vals[1], Z: vals[2]},
		Rotation:    math.QuatFromEuler(roll, pitch, yaw),
	}, nil
}

func (p *Parser) skipAll(elems []xmlElem, where string) {
	if p.Skipped == nil {
		return
	}
	for _, e := range elems {
		if e.XMLName.Local != "" {
			p.Skipped(fmt.Sprintf("<%s> in %s", e.XMLName.Local, where))
		}
	}
}

func radians(deg float64) float64 {
	return deg * gomath.Pi / 180
}

func parseFloat(s, where string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, &ParseError{Kind: MalformedMarkup, Element: where,
			Detail: fmt.Sprintf("bad number %q", strings.TrimSpace(s)), Err: err}
	}
	return v, nil
}

// parseOptFloat parses into dst when text is non-empty; empty keeps the
// default already in dst.
func parseOptFloat(s string, dst *float64, where string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	v, err := parseFloat(s, where)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func parseVec3(s, where string) (math.Vec3, error) {
	parts := strings.Fields(s)
	if len(parts) < 3 {
		return math.Vec3{}, &ParseError{Kind: MalformedMarkup, Element: where,
			Detail: fmt.Sprintf("need 3 values, got %d", len(parts))}
	}
	vals := make([]float64, 3)
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(parts[i], 64)
		if err != nil {
			return math.Vec3{}, &ParseError{Kind: MalformedMarkup, Element: where,
				Detail: fmt.Sprintf("bad value %q", parts[i]), Err: err}
		}
		vals[i] = v
	}
	return math.Vec3{X: vals[0], Y: vals[1], Z: vals[2]}, nil
}

// XML layer: intermediate structs the decoder fills before validation.

type xmlRoot struct {
	XMLName xml.Name
	Models  []xmlModel `xml:"model"`
	Worlds  []xmlElem  `xml:"world"`
}

type xmlElem struct {
	XMLName xml.Name
}

type xmlModel struct {
	Name   string     `xml:"name,attr"`
	Pose   *xmlPose   `xml:"pose"`
	Links  []xmlLink  `xml:"link"`
	Joints []xmlJoint `xml:"joint"`
	Extra  []xmlElem  `xml:",any"`
}

type xmlPose struct {
	Degrees string `xml:"degrees,attr"`
	Text    string `xml:",chardata"`
}

type xmlLink struct {
	Name       string         `xml:"name,attr"`
	Pose       *xmlPose       `xml:"pose"`
	Inertial   *xmlInertial   `xml:"inertial"`
	Visuals    []xmlVisual    `xml:"visual"`
	Collisions []xmlCollision `xml:"collision"`
	Extra      []xmlElem      `xml:",any"`
}

type xmlInertial struct {
	Mass    string      `xml:"mass"`
	Pose    *xmlPose    `xml:"pose"`
	Inertia *xmlInertia `xml:"inertia"`
}

type xmlInertia struct {
	IXX string `xml:"ixx"`
	IXY string `xml:"ixy"`
	IXZ string `xml:"ixz"`
	IYY string `xml:"iyy"`
	IYZ string `xml:"iyz"`
	IZZ string `xml:"izz"`
}

type xmlVisual struct {
	Name     string       `xml:"name,attr"`
	Pose     *xmlPose     `xml:"pose"`
	Geometry *xmlGeometry `xml:"geometry"`
	Material *xmlMaterial `xml:"material"`
}

type xmlCollision struct {
	Name     string       `xml:"name,attr"`
	Pose     *xmlPose     `xml:"pose"`
	Geometry *xmlGeometry `xml:"geometry"`
}

type xmlGeometry struct {
	Mesh     *xmlMesh     `xml:"mesh"`
	Box      *xmlBox      `xml:"box"`
	Cylinder *xmlCylinder `xml:"cylinder"`
	Sphere   *xmlSphere   `xml:"sphere"`
	Capsule  *xmlCapsule  `xml:"capsule"`
	Extra    []xmlElem    `xml:",any"`
}

type xmlMesh struct {
	URI   string `xml:"uri"`
	Scale string `xml:"scale"`
}

type xmlBox struct {
	Size string `xml:"size"`
}

type xmlCylinder struct {
	Radius string `xml:"radius"`
	Length string `xml:"length"`
}

type xmlSphere struct {
	Radius string `xml:"radius"`
}

type xmlCapsule struct {
	Radius string `xml:"radius"`
	Length string `xml:"length"`
}

type xmlMaterial struct {
	Diffuse  string  `xml:"diffuse"`
	Specular string  `xml:"specular"`
	PBR      *xmlPBR `xml:"pbr"`
}

type xmlPBR struct {
	Metal *xmlMetal `xml:"metal"`
}

type xmlMetal struct {
	Metalness string `xml:"metalness"`
	Roughness string `xml:"roughness"`
	AlbedoMap string `xml:"albedo_map"`
}

type xmlJoint struct {
	Name   string   `xml:"name,attr"`
	Type   string   `xml:"type,attr"`
	Pose   *xmlPose `xml:"pose"`
	Parent string   `xml:"parent"`
	Child  string   `xml:"child"`
	Axis   *xmlAxis `xml:"axis"`
}

type xmlAxis struct {
	XYZ      string       `xml:"xyz"`
	Limit    *xmlLimit    `xml:"limit"`
	Dynamics *xmlDynamics `xml:"dynamics"`
}

type xmlLimit struct {
	Lower string `xml:"lower"`
	Upper string `xml:"upper"`
}

type xmlDynamics struct {
	Damping   string `xml:"damping"`
	Stiffness string `xml:"stiffness"`
	Friction  string `xml:"friction"`
}
