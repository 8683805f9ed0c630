package convert

import (
	"errors"
	gomath "math"
	"testing"

	"github.com/Faultbox/sdf2usd/pkg/math"
	"github.com/Faultbox/sdf2usd/pkg/sdf"
)

func asPoseError(err error, target **PoseError) bool {
	return errors.As(err, target)
}

func link(name string, pose math.Transform) *sdf.Link {
	return &sdf.Link{Name: name, Pose: pose}
}

func joint(name string, kind sdf.JointKind, parent, child string, pose math.Transform) *sdf.Joint {
	return &sdf.Joint{
		Name: name, Kind: kind, RawType: kind.String(),
		Parent: parent, Child: child, Pose: pose,
		Axis: sdf.Axis{XYZ: math.Vec3{Z: 1}, Lower: -sdf.LimitSentinel, Upper: sdf.LimitSentinel},
	}
}

func translate(x, y, z float64) math.Transform {
	return math.Transform{Translation: math.Vec3{X: x, Y: y, Z: z}, Rotation: math.QuatIdentity()}
}

func transformsClose(t *testing.T, got, want math.Transform, label string) {
	t.Helper()
	if got.Translation.Distance(want.Translation) > 1e-9 {
		t.Errorf("%s translation: got %+v, want %+v", label, got.Translation, want.Translation)
	}
	if got.Rotation.AngleTo(want.Rotation) > 1e-9 {
		t.Errorf("%s rotation: got %+v, want %+v", label, got.Rotation, want.Rotation)
	}
}

func TestComposeChain(t *testing.T) {
	rot := math.Transform{
		Translation: math.Vec3{X: 1},
		Rotation:    math.QuatFromAxisAngle(math.Vec3{Z: 1}, gomath.Pi/2),
	}
	m := &sdf.Model{
		Name: "chain",
		Links: []*sdf.Link{
			link("base", translate(0, 0, 0.5)),
			link("arm", translate(0, 0, 0.2)),
			link("hand", translate(0.1, 0, 0)),
		},
		Joints: []*sdf.Joint{
			joint("shoulder", sdf.JointRevolute, "base", "arm", rot),
			joint("wrist", sdf.JointRevolute, "arm", "hand", translate(0, 0.3, 0)),
		},
	}

	poses, err := composePoses(m)
	if err != nil {
		t.Fatalf("composePoses failed: %v", err)
	}
	if poses.Root != "base" {
		t.Errorf("root: got %q", poses.Root)
	}
	if len(poses.Order) != 3 || poses.Order[0] != "base" {
		t.Errorf("order: got %v", poses.Order)
	}

	wantArm := m.Links[0].Pose.Mul(rot).Mul(m.Links[1].Pose)
	transformsClose(t, poses.Links["arm"], wantArm, "arm")

	wantHand := wantArm.Mul(translate(0, 0.3, 0)).Mul(m.Links[2].Pose)
	transformsClose(t, poses.Links["hand"], wantHand, "hand")

	// Round trip: re-expressing a child against its parent recovers the
	// local chain.
	local := poses.Links["arm"].Inverse().Mul(poses.Links["hand"])
	wantLocal := translate(0, 0.3, 0).Mul(m.Links[2].Pose)
	transformsClose(t, local, wantLocal, "arm->hand local")

	// Joint frames sit on the parent side of the chain.
	transformsClose(t, poses.Joints["shoulder"], m.Links[0].Pose.Mul(rot), "shoulder frame")
}

func TestComposeMultipleParents(t *testing.T) {
	m := &sdf.Model{
		Name:  "m",
		Links: []*sdf.Link{link("a", translate(0, 0, 0)), link("b", translate(0, 0, 0)), link("c", translate(0, 0, 0))},
		Joints: []*sdf.Joint{
			joint("j1", sdf.JointFixed, "a", "c", translate(0, 0, 0)),
			joint("j2", sdf.JointFixed, "b", "c", translate(0, 0, 0)),
		},
	}
	_, err := composePoses(m)
	var pe *PoseError
	if !asPoseError(err, &pe) || pe.Entity != "c" {
		t.Fatalf("expected PoseError for link c, got %v", err)
	}
}

func TestComposeCycle(t *testing.T) {
	m := &sdf.Model{
		Name:  "m",
		Links: []*sdf.Link{link("a", translate(0, 0, 0)), link("b", translate(0, 0, 0))},
		Joints: []*sdf.Joint{
			joint("j1", sdf.JointFixed, "a", "b", translate(0, 0, 0)),
			joint("j2", sdf.JointFixed, "b", "a", translate(0, 0, 0)),
		},
	}
	var pe *PoseError
	if _, err := composePoses(m); !asPoseError(err, &pe) {
		t.Fatalf("expected PoseError for cycle, got %v", err)
	}
}

func TestComposeDetachedCycle(t *testing.T) {
	m := &sdf.Model{
		Name:  "m",
		Links: []*sdf.Link{link("root", translate(0, 0, 0)), link("a", translate(0, 0, 0)), link("b", translate(0, 0, 0))},
		Joints: []*sdf.Joint{
			joint("j1", sdf.JointFixed, "a", "b", translate(0, 0, 0)),
			joint("j2", sdf.JointFixed, "b", "a", translate(0, 0, 0)),
		},
	}
	var pe *PoseError
	if _, err := composePoses(m); !asPoseError(err, &pe) {
		t.Fatalf("expected PoseError for unreachable links, got %v", err)
	}
}

func TestComposeTwoRoots(t *testing.T) {
	m := &sdf.Model{
		Name:  "m",
		Links: []*sdf.Link{link("a", translate(0, 0, 0)), link("b", translate(0, 0, 0))},
	}
	var pe *PoseError
	if _, err := composePoses(m); !asPoseError(err, &pe) {
		t.Fatalf("expected PoseError for two roots, got %v", err)
	}
}

func TestUpAxisCorrection(t *testing.T) {
	// Z-up content in a Y-up stage: the old up axis must land on +Y.
	q := upAxisCorrection("Y")
	up := q.Rotate(math.Vec3{Z: 1})
	if gomath.Abs(up.Y-1) > 1e-9 || gomath.Abs(up.X) > 1e-9 || gomath.Abs(up.Z) > 1e-9 {
		t.Errorf("Z-up should map to +Y, got %+v", up)
	}

	ident := upAxisCorrection("Z")
	if ident.AngleTo(math.QuatIdentity()) > 1e-9 {
		t.Errorf("Z target must be the identity, got %+v", ident)
	}
}
