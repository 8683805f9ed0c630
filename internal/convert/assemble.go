package convert

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Faultbox/sdf2usd/internal/mesh"
	"github.com/Faultbox/sdf2usd/pkg/math"
	"github.com/Faultbox/sdf2usd/pkg/sdf"
	"github.com/Faultbox/sdf2usd/pkg/usd"
)

// assembler builds the output scene graph from the validated model.
type assembler struct {
	poses     *worldPoses
	cls       *classification
	cache     *mesh.Cache
	outDir    string
	physics   bool
	collision bool

	rootPath  string
	linkPaths map[string]string
}

// assemble turns a composed, classified model into a stage ready for
// serialization. Mesh conversion must have completed: every resolved mesh
// location is looked up in the cache.
func assemble(m *sdf.Model, poses *worldPoses, cls *classification, joints []MappedJoint,
	cache *mesh.Cache, outDir, upAxis string, physics, collision bool) (*usd.Stage, error) {

	a := &assembler{
		poses:     poses,
		cls:       cls,
		cache:     cache,
		outDir:    outDir,
		physics:   physics,
		collision: collision,
		linkPaths: make(map[string]string),
	}

	rootName := usd.SanitizeName(m.Name)
	a.rootPath = "/" + rootName

	root := &usd.Prim{Name: rootName, Type: "Xform"}
	if physics {
		root.APISchemas = append(root.APISchemas, "PhysicsArticulationRootAPI")
	}
	rootPose := math.Transform{Rotation: upAxisCorrection(upAxis)}.Mul(m.Pose)
	root.Attrs = xformOps(rootPose)

	names := nameSet{"Looks": true}
	for _, name := range poses.Order {
		l := m.Link(name)
		prim := names.unique(l.Name)
		a.linkPaths[name] = a.rootPath + "/" + prim
		if err := a.addLink(root, l, prim); err != nil {
			return nil, err
		}
	}

	if physics {
		for i := range joints {
			a.addJoint(root, &joints[i], names)
		}
	}

	if looks := a.buildLooks(); looks != nil {
		root.AddChild(looks)
	}

	return &usd.Stage{
		DefaultPrim:   rootName,
		UpAxis:        upAxis,
		MetersPerUnit: 1,
		Root:          root,
	}, nil
}

func (a *assembler) addLink(root *usd.Prim, l *sdf.Link, prim string) error {
	link := &usd.Prim{Name: prim, Type: "Xform"}
	link.Attrs = xformOps(a.poses.Links[l.Name])

	if a.physics {
		link.APISchemas = append(link.APISchemas, "PhysicsRigidBodyAPI")
		if l.Inertial != nil && l.Inertial.Mass > 0 {
			link.APISchemas = append(link.APISchemas, "PhysicsMassAPI")
			in := l.Inertial
			com := in.Pose.Translation
			diag := in.Inertia.Tensor().Diagonal()
			link.Attrs = append(link.Attrs,
				usd.Float("physics:mass", in.Mass),
				usd.Float3("physics:centerOfMass", com.X, com.Y, com.Z),
				usd.Float3("physics:diagonalInertia", diag.X, diag.Y, diag.Z),
			)
		}
	}

	if len(l.Visuals) > 0 {
		scope := link.AddChild(&usd.Prim{Name: "visuals", Type: "Scope"})
		names := nameSet{}
		for _, v := range l.Visuals {
			p, err := a.buildEntry(names.unique(v.Name), v.Pose, v.Geometry, false)
			if err != nil {
				return err
			}
			if def := a.cls.byVisual[v]; def != nil {
				p.APISchemas = append(p.APISchemas, "MaterialBindingAPI")
				p.Rels = append(p.Rels, usd.Rel{
					Name:    "material:binding",
					Targets: []string{a.rootPath + "/Looks/" + def.ID},
				})
			}
			scope.AddChild(p)
		}
	}

	if a.collision && len(l.Collisions) > 0 {
		scope := link.AddChild(&usd.Prim{Name: "collisions", Type: "Scope"})
		scope.Attrs = append(scope.Attrs, usd.UniformToken("purpose", "guide"))
		names := nameSet{}
		for _, c := range l.Collisions {
			p, err := a.buildEntry(names.unique(c.Name), c.Pose, c.Geometry, a.physics)
			if err != nil {
				return err
			}
			scope.AddChild(p)
		}
	}

	root.AddChild(link)
	return nil
}

// buildEntry builds one visual or collision Xform with its geometry child.
func (a *assembler) buildEntry(prim string, pose math.Transform, g *sdf.Geometry, collider bool) (*usd.Prim, error) {
	p := &usd.Prim{Name: prim, Type: "Xform"}
	p.Attrs = xformOps(pose)

	geo, err := a.buildGeometry(g)
	if err != nil {
		return nil, err
	}
	if collider {
		geo.APISchemas = append(geo.APISchemas, "PhysicsCollisionAPI")
	}
	p.AddChild(geo)
	return p, nil
}

func (a *assembler) buildGeometry(g *sdf.Geometry) (*usd.Prim, error) {
	switch {
	case g.Mesh != nil:
		loc := a.cls.meshes[g.Mesh]
		h, ok := a.cache.Lookup(loc)
		if !ok {
			return nil, &mesh.ConversionError{Location: loc, Err: fmt.Errorf("no conversion result")}
		}
		p := &usd.Prim{
			Name:       "geometry",
			Type:       "Xform",
			References: []string{a.relAsset(h.Output)},
		}
		if s := g.Mesh.Scale; s != (math.Vec3{X: 1, Y: 1, Z: 1}) {
			p.Attrs = append(p.Attrs,
				usd.Float3("xformOp:scale", s.X, s.Y, s.Z),
				usd.TokenArray("xformOpOrder", "xformOp:scale"),
			)
		}
		return p, nil
	case g.Box != nil:
		s := g.Box.Size
		p := &usd.Prim{Name: "geometry", Type: "Cube"}
		p.Attrs = append(p.Attrs,
			usd.Double("size", 1),
			usd.Float3("xformOp:scale", s.X, s.Y, s.Z),
			usd.TokenArray("xformOpOrder", "xformOp:scale"),
		)
		return p, nil
	case g.Cylinder != nil:
		p := &usd.Prim{Name: "geometry", Type: "Cylinder"}
		p.Attrs = append(p.Attrs,
			usd.Double("radius", g.Cylinder.Radius),
			usd.Double("height", g.Cylinder.Length),
			usd.UniformToken("axis", "Z"),
		)
		return p, nil
	case g.Sphere != nil:
		p := &usd.Prim{Name: "geometry", Type: "Sphere"}
		p.Attrs = append(p.Attrs, usd.Double("radius", g.Sphere.Radius))
		return p, nil
	case g.Capsule != nil:
		p := &usd.Prim{Name: "geometry", Type: "Capsule"}
		p.Attrs = append(p.Attrs,
			usd.Double("radius", g.Capsule.Radius),
			usd.Double("height", g.Capsule.Length),
			usd.UniformToken("axis", "Z"),
		)
		return p, nil
	}
	return nil, fmt.Errorf("unclassified geometry %q", g.Kind())
}

func (a *assembler) addJoint(root *usd.Prim, j *MappedJoint, names nameSet) {
	var primType string
	switch j.Kind {
	case sdf.JointRevolute:
		primType = "PhysicsRevoluteJoint"
	case sdf.JointPrismatic:
		primType = "PhysicsPrismaticJoint"
	default:
		primType = "PhysicsFixedJoint"
	}

	p := &usd.Prim{Name: names.unique(j.Name), Type: primType}
	p.Rels = append(p.Rels,
		usd.Rel{Name: "physics:body0", Targets: []string{a.linkPaths[j.Parent]}},
		usd.Rel{Name: "physics:body1", Targets: []string{a.linkPaths[j.Child]}},
	)

	// Joint frame relative to each body. rel0 is the authored joint pose;
	// rel1 derives from the composed world transforms.
	rel0 := j.Pose
	rel1 := a.poses.Links[j.Child].Inverse().Mul(a.poses.Joints[j.Name])
	p.Attrs = append(p.Attrs,
		usd.Float3("physics:localPos0", rel0.Translation.X, rel0.Translation.Y, rel0.Translation.Z),
		usd.Quatf("physics:localRot0", rel0.Rotation.W, rel0.Rotation.X, rel0.Rotation.Y, rel0.Rotation.Z),
		usd.Float3("physics:localPos1", rel1.Translation.X, rel1.Translation.Y, rel1.Translation.Z),
		usd.Quatf("physics:localRot1", rel1.Rotation.W, rel1.Rotation.X, rel1.Rotation.Y, rel1.Rotation.Z),
	)

	if j.Kind == sdf.JointRevolute || j.Kind == sdf.JointPrismatic {
		p.Attrs = append(p.Attrs, usd.UniformToken("physics:axis", dominantAxis(j.Axis)))
		if j.Lower != nil {
			p.Attrs = append(p.Attrs, usd.Float("physics:lowerLimit", *j.Lower))
		}
		if j.Upper != nil {
			p.Attrs = append(p.Attrs, usd.Float("physics:upperLimit", *j.Upper))
		}
		if j.Drive != nil {
			kind := "angular"
			if j.Kind == sdf.JointPrismatic {
				kind = "linear"
			}
			p.APISchemas = append(p.APISchemas, "PhysicsDriveAPI:"+kind)
			p.Attrs = append(p.Attrs, usd.Float("drive:"+kind+":physics:damping", j.Drive.Damping))
			if j.Drive.Stiffness > 0 {
				p.Attrs = append(p.Attrs, usd.Float("drive:"+kind+":physics:stiffness", j.Drive.Stiffness))
			}
		}
	}

	root.AddChild(p)
}

func (a *assembler) buildLooks() *usd.Prim {
	if len(a.cls.materials) == 0 {
		return nil
	}
	looks := &usd.Prim{Name: "Looks", Type: "Scope"}

	for _, def := range a.cls.materials {
		matPath := a.rootPath + "/Looks/" + def.ID
		mat := &usd.Prim{Name: def.ID, Type: "Material"}
		mat.Attrs = append(mat.Attrs, usd.Attr{
			Type:  "token",
			Name:  "outputs:surface.connect",
			Value: "<" + matPath + "/PreviewSurface.outputs:surface>",
		})

		shader := &usd.Prim{Name: "PreviewSurface", Type: "Shader"}
		shader.Attrs = append(shader.Attrs,
			usd.UniformToken("info:id", "UsdPreviewSurface"),
			usd.Float("inputs:metallic", def.Metalness),
			usd.Float("inputs:roughness", def.Roughness),
		)

		if def.AlbedoMap != "" {
			staged, err := a.cache.CopyTexture(def.AlbedoMap)
			if err != nil {
				staged = def.AlbedoMap
			}
			tex := &usd.Prim{Name: "diffuse_texture", Type: "Shader"}
			tex.Attrs = append(tex.Attrs,
				usd.UniformToken("info:id", "UsdUVTexture"),
				usd.Asset("inputs:file", a.relAsset(staged)),
			)
			mat.AddChild(tex)
			shader.Attrs = append(shader.Attrs, usd.Attr{
				Type:  "color3f",
				Name:  "inputs:diffuseColor.connect",
				Value: "<" + matPath + "/diffuse_texture.outputs:rgb>",
			})
		} else {
			shader.Attrs = append(shader.Attrs,
				usd.Color3f("inputs:diffuseColor", def.Diffuse.X, def.Diffuse.Y, def.Diffuse.Z))
		}

		mat.AddChild(shader)
		looks.AddChild(mat)
	}
	return looks
}

// relAsset expresses a staged asset path relative to the output directory,
// the way downstream consumers expect sibling references.
func (a *assembler) relAsset(path string) string {
	rel, err := filepath.Rel(a.outDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return "./" + filepath.ToSlash(rel)
}

// xformOps expresses a transform as translate and orient ops.
func xformOps(t math.Transform) []usd.Attr {
	return []usd.Attr{
		usd.Double3("xformOp:translate", t.Translation.X, t.Translation.Y, t.Translation.Z),
		usd.Quatf("xformOp:orient", t.Rotation.W, t.Rotation.X, t.Rotation.Y, t.Rotation.Z),
		usd.TokenArray("xformOpOrder", "xformOp:translate", "xformOp:orient"),
	}
}

// nameSet hands out unique sibling prim names, deterministically suffixing
// collisions in encounter order.
type nameSet map[string]bool

func (s nameSet) unique(name string) string {
	base := usd.SanitizeName(name)
	candidate := base
	for i := 1; s[candidate]; i++ {
		candidate = fmt.Sprintf("%s_%d", base, i)
	}
	s[candidate] = true
	return candidate
}
