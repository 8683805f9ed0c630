package convert

import (
	"fmt"

	"github.com/jinzhu/copier"

	"github.com/Faultbox/sdf2usd/pkg/math"
	"github.com/Faultbox/sdf2usd/pkg/sdf"
)

// mergeFixedJoints folds every chain of fixed joints into the nearest
// ancestor that survives: the merged link's visuals, collisions and mass
// properties are re-expressed in the surviving link's frame and appended
// to it, then the merged link and its fixed joint disappear. Non-fixed
// joints whose parent was merged re-attach to the survivor.
//
// The input model is left untouched; the result is a deep copy. World
// poses of surviving links and joints are unchanged by construction.
func mergeFixedJoints(m *sdf.Model, poses *worldPoses) (*sdf.Model, *worldPoses, error) {
	incoming := make(map[string]*sdf.Joint, len(m.Joints))
	for _, j := range m.Joints {
		incoming[j.Child] = j
	}

	// keepFor maps every link to the closest ancestor reachable through
	// fixed joints only. Links below a movable joint keep themselves.
	keepFor := make(map[string]string, len(m.Links))
	var resolve func(name string) string
	resolve = func(name string) string {
		if k, ok := keepFor[name]; ok {
			return k
		}
		k := name
		if j := incoming[name]; j != nil && j.Kind == sdf.JointFixed {
			k = resolve(j.Parent)
		}
		keepFor[name] = k
		return k
	}
	for _, l := range m.Links {
		resolve(l.Name)
	}

	merged := &sdf.Model{Name: m.Name, Pose: m.Pose}
	kept := make(map[string]*sdf.Link, len(m.Links))
	inertias := make(map[string][]massEntry)
	foldedInto := make(map[string]bool)

	// Walk root-first so a surviving link is cloned before anything
	// folds into it.
	for _, name := range poses.Order {
		src := m.Link(name)
		target := keepFor[name]

		if target == name {
			var clone sdf.Link
			if err := copier.CopyWithOption(&clone, src, copier.Option{DeepCopy: true}); err != nil {
				return nil, nil, fmt.Errorf("clone link %s: %w", name, err)
			}
			kept[name] = &clone
			merged.Links = append(merged.Links, &clone)
			if src.Inertial != nil && src.Inertial.Mass > 0 {
				inertias[name] = append(inertias[name], newMassEntry(src.Inertial, math.TransformIdentity()))
			}
			continue
		}

		dst := kept[target]
		rel := poses.Links[target].Inverse().Mul(poses.Links[name])

		for _, v := range src.Visuals {
			var clone sdf.Visual
			if err := copier.CopyWithOption(&clone, v, copier.Option{DeepCopy: true}); err != nil {
				return nil, nil, fmt.Errorf("clone visual %s/%s: %w", name, v.Name, err)
			}
			clone.Name = name + "_" + v.Name
			clone.Pose = rel.Mul(v.Pose)
			dst.Visuals = append(dst.Visuals, &clone)
		}
		for _, c := range src.Collisions {
			var clone sdf.Collision
			if err := copier.CopyWithOption(&clone, c, copier.Option{DeepCopy: true}); err != nil {
				return nil, nil, fmt.Errorf("clone collision %s/%s: %w", name, c.Name, err)
			}
			clone.Name = name + "_" + c.Name
			clone.Pose = rel.Mul(c.Pose)
			dst.Collisions = append(dst.Collisions, &clone)
		}
		if src.Inertial != nil && src.Inertial.Mass > 0 {
			inertias[target] = append(inertias[target], newMassEntry(src.Inertial, rel))
			foldedInto[target] = true
		}
	}

	for name, entries := range inertias {
		if foldedInto[name] {
			kept[name].Inertial = combineMass(entries)
		}
	}

	for _, j := range m.Joints {
		if j.Kind == sdf.JointFixed {
			continue
		}
		var clone sdf.Joint
		if err := copier.CopyWithOption(&clone, j, copier.Option{DeepCopy: true}); err != nil {
			return nil, nil, fmt.Errorf("clone joint %s: %w", j.Name, err)
		}
		if target := keepFor[j.Parent]; target != j.Parent {
			clone.Parent = target
			clone.Pose = poses.Links[target].Inverse().Mul(poses.Joints[j.Name])
		}
		merged.Joints = append(merged.Joints, &clone)
	}

	out := &worldPoses{
		Links:  make(map[string]math.Transform, len(merged.Links)),
		Joints: make(map[string]math.Transform, len(merged.Joints)),
		Root:   poses.Root,
	}
	for _, l := range merged.Links {
		out.Links[l.Name] = poses.Links[l.Name]
		out.Order = append(out.Order, l.Name)
	}
	for _, j := range merged.Joints {
		out.Joints[j.Name] = poses.Joints[j.Name]
	}
	return merged, out, nil
}

// massEntry is one body's mass properties expressed in the surviving
// link's frame.
type massEntry struct {
	mass   float64
	com    math.Vec3
	tensor math.Mat3
}

func newMassEntry(in *sdf.Inertial, rel math.Transform) massEntry {
	frame := rel.Mul(in.Pose)
	return massEntry{
		mass:   in.Mass,
		com:    frame.Translation,
		tensor: in.Inertia.Tensor().Rotated(frame.Rotation),
	}
}

// combineMass sums bodies into one inertial: total mass, mass-weighted
// center of mass, and inertia tensors shifted to the combined center via
// the parallel axis theorem.
func combineMass(entries []massEntry) *sdf.Inertial {
	var total float64
	var weighted math.Vec3
	for _, e := range entries {
		total += e.mass
		weighted = weighted.Add(e.com.Scale(e.mass))
	}
	com := weighted.Scale(1 / total)

	tensor := math.Mat3{}
	for _, e := range entries {
		tensor = tensor.Add(e.tensor).Add(math.ParallelAxisTerm(e.mass, e.com.Sub(com)))
	}

	return &sdf.Inertial{
		Mass: total,
		Pose: math.Transform{Translation: com, Rotation: math.QuatIdentity()},
		Inertia: sdf.Inertia{
			IXX: tensor[0], IXY: tensor[1], IXZ: tensor[2],
			IYY: tensor[4], IYZ: tensor[5],
			IZZ: tensor[8],
		},
	}
}
