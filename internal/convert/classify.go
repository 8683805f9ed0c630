package convert

import (
	"fmt"

	"github.com/Faultbox/sdf2usd/pkg/math"
	"github.com/Faultbox/sdf2usd/pkg/sdf"
)

// materialDef is one deduplicated surface definition. Visuals sharing the
// same parameters share one definition; IDs are assigned in first-seen
// order and are stable for a given input.
type materialDef struct {
	ID        string
	Diffuse   math.Vec3
	Specular  math.Vec3
	Metalness float64
	Roughness float64
	AlbedoMap string // resolved filesystem path, empty when untextured
}

type materialKey struct {
	diffuse   math.Vec3
	specular  math.Vec3
	metalness float64
	roughness float64
	albedo    string
}

// classification is the validated geometry inventory of a model: every
// mesh reference resolved to a canonical location and every material
// interned. Building it fails before any mesh conversion is requested,
// so invalid dimensions never trigger partial output.
type classification struct {
	meshes    map[*sdf.MeshGeometry]string
	sources   []string
	materials []*materialDef
	byVisual  map[*sdf.Visual]*materialDef
}

// classify validates all geometry in the model and resolves its external
// references. Collision entries are skipped entirely when excluded from
// the output.
func classify(m *sdf.Model, r *sdf.Resolver, includeCollision bool) (*classification, error) {
	c := &classification{
		meshes:   make(map[*sdf.MeshGeometry]string),
		byVisual: make(map[*sdf.Visual]*materialDef),
	}
	seen := make(map[materialKey]*materialDef)

	for _, l := range m.Links {
		for _, v := range l.Visuals {
			entity := l.Name + "/" + v.Name
			if err := c.addGeometry(v.Geometry, entity, r); err != nil {
				return nil, err
			}
			def, err := c.intern(seen, v.Material, r)
			if err != nil {
				return nil, err
			}
			c.byVisual[v] = def
		}
		if !includeCollision {
			continue
		}
		for _, col := range l.Collisions {
			entity := l.Name + "/" + col.Name
			if err := c.addGeometry(col.Geometry, entity, r); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

func (c *classification) addGeometry(g *sdf.Geometry, entity string, r *sdf.Resolver) error {
	if g == nil {
		return &GeometryError{Entity: entity, Detail: "no geometry"}
	}
	switch {
	case g.Mesh != nil:
		if g.Mesh.URI == "" {
			return &GeometryError{Entity: entity, Detail: "mesh without uri"}
		}
		loc, err := r.Resolve(g.Mesh.URI)
		if err != nil {
			return err
		}
		c.meshes[g.Mesh] = loc
		c.sources = append(c.sources, loc)
	case g.Box != nil:
		s := g.Box.Size
		if s.X <= 0 || s.Y <= 0 || s.Z <= 0 {
			return dimensionError(entity, "box size", fmt.Sprintf("(%g %g %g)", s.X, s.Y, s.Z))
		}
	case g.Cylinder != nil:
		if g.Cylinder.Radius <= 0 {
			return dimensionError(entity, "cylinder radius", fmt.Sprintf("%g", g.Cylinder.Radius))
		}
		if g.Cylinder.Length <= 0 {
			return dimensionError(entity, "cylinder length", fmt.Sprintf("%g", g.Cylinder.Length))
		}
	case g.Sphere != nil:
		if g.Sphere.Radius <= 0 {
			return dimensionError(entity, "sphere radius", fmt.Sprintf("%g", g.Sphere.Radius))
		}
	case g.Capsule != nil:
		if g.Capsule.Radius <= 0 {
			return dimensionError(entity, "capsule radius", fmt.Sprintf("%g", g.Capsule.Radius))
		}
		if g.Capsule.Length <= 0 {
			return dimensionError(entity, "capsule length", fmt.Sprintf("%g", g.Capsule.Length))
		}
	default:
		return &GeometryError{Entity: entity, Detail: "empty geometry element"}
	}
	return nil
}

func dimensionError(entity, what, got string) error {
	return &GeometryError{Entity: entity, Detail: what + " must be positive, got " + got}
}

// intern returns the shared definition for a material, creating it on
// first sight. Visuals without a material share the default surface.
func (c *classification) intern(seen map[materialKey]*materialDef, mat *sdf.Material, r *sdf.Resolver) (*materialDef, error) {
	def := materialDef{
		Diffuse:   math.Vec3{X: 0.8, Y: 0.8, Z: 0.8},
		Specular:  math.Vec3{X: 0.1, Y: 0.1, Z: 0.1},
		Roughness: 0.5,
	}
	if mat != nil {
		def.Diffuse = mat.Diffuse
		def.Specular = mat.Specular
		if mat.PBR != nil {
			def.Metalness = mat.PBR.Metalness
			def.Roughness = mat.PBR.Roughness
			if mat.PBR.AlbedoMap != "" {
				loc, err := r.Resolve(mat.PBR.AlbedoMap)
				if err != nil {
					return nil, err
				}
				def.AlbedoMap = loc
			}
		}
	}

	key := materialKey{
		diffuse:   def.Diffuse,
		specular:  def.Specular,
		metalness: def.Metalness,
		roughness: def.Roughness,
		albedo:    def.AlbedoMap,
	}
	if existing, ok := seen[key]; ok {
		return existing, nil
	}

	def.ID = fmt.Sprintf("material_%d", len(c.materials))
	seen[key] = &def
	c.materials = append(c.materials, &def)
	return &def, nil
}
