package convert

import (
	"fmt"
	gomath "math"

	"github.com/Faultbox/sdf2usd/pkg/math"
	"github.com/Faultbox/sdf2usd/pkg/sdf"
)

// worldPoses holds every link and joint frame composed into the model frame.
// Link transforms are root-down compositions along the kinematic tree; joint
// transforms are the joint frames placed in the same space.
type worldPoses struct {
	Links  map[string]math.Transform
	Joints map[string]math.Transform

	// Root is the single link without an incoming joint. Order lists link
	// names root-first, parents always before children.
	Root  string
	Order []string
}

// composePoses validates the kinematic tree and composes world transforms
// for every link and joint frame.
//
// The chain for a child link is
//
//	world(child) = world(parent) * jointPose * childPose
//
// where jointPose places the joint frame relative to the parent link and
// childPose places the child relative to that frame. The root link composes
// directly against the model frame.
func composePoses(m *sdf.Model) (*worldPoses, error) {
	incoming := make(map[string]*sdf.Joint, len(m.Joints))
	children := make(map[string][]*sdf.Joint, len(m.Joints))
	for _, j := range m.Joints {
		if prev, dup := incoming[j.Child]; dup {
			return nil, &PoseError{
				Entity: j.Child,
				Detail: fmt.Sprintf("link is the child of both %q and %q", prev.Name, j.Name),
			}
		}
		incoming[j.Child] = j
		children[j.Parent] = append(children[j.Parent], j)
	}

	var root string
	for _, l := range m.Links {
		name := l.Name
		if incoming[name] != nil {
			continue
		}
		if root != "" {
			return nil, &PoseError{
				Entity: m.Name,
				Detail: fmt.Sprintf("multiple root links: %q and %q", root, name),
			}
		}
		root = name
	}
	if root == "" {
		if len(m.Links) == 0 {
			return nil, &PoseError{Entity: m.Name, Detail: "model has no links"}
		}
		return nil, &PoseError{Entity: m.Name, Detail: "no root link, joint graph is cyclic"}
	}

	poses := &worldPoses{
		Links:  make(map[string]math.Transform, len(m.Links)),
		Joints: make(map[string]math.Transform, len(m.Joints)),
		Root:   root,
	}

	poses.Links[root] = m.Link(root).Pose
	poses.Order = append(poses.Order, root)

	// Breadth-first from the root. Every reachable link composes against
	// its already-placed parent.
	queue := []string{root}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		parentWorld := poses.Links[parent]

		for _, j := range children[parent] {
			jointWorld := parentWorld.Mul(j.Pose)
			poses.Joints[j.Name] = jointWorld

			child := m.Link(j.Child)
			poses.Links[j.Child] = jointWorld.Mul(child.Pose)
			poses.Order = append(poses.Order, j.Child)
			queue = append(queue, j.Child)
		}
	}

	if len(poses.Order) != len(m.Links) {
		for _, l := range m.Links {
			if _, ok := poses.Links[l.Name]; !ok {
				return nil, &PoseError{
					Entity: l.Name,
					Detail: "link is not reachable from the root, joint graph is cyclic or disconnected",
				}
			}
		}
	}
	return poses, nil
}

// upAxisCorrection returns the single corrective rotation applied at the
// assembly root when the target stage is Y-up. Robot descriptions are Z-up,
// so the correction is a -90 degree rotation about X.
func upAxisCorrection(upAxis string) math.Quat {
	if upAxis == "Y" {
		return math.QuatFromAxisAngle(math.Vec3{X: 1}, -gomath.Pi/2)
	}
	return math.QuatIdentity()
}
