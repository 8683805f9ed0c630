package convert

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/Faultbox/sdf2usd/internal/config"
	"github.com/Faultbox/sdf2usd/internal/mesh"
	"github.com/Faultbox/sdf2usd/pkg/sdf"
)

// recordingMesh counts conversion requests reaching the backend.
type recordingMesh struct {
	calls int64
}

func (s *recordingMesh) Convert(source string, _ float64) (mesh.Handle, error) {
	atomic.AddInt64(&s.calls, 1)
	return mesh.Handle{Source: source, Output: source + ".out"}, nil
}

func (s *recordingMesh) CopyTexture(source string) (string, error) {
	return source, nil
}

func runConversion(t *testing.T, cfg *config.Config, doc string) (string, *Result, error) {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "robot.sdf")
	if err := os.WriteFile(input, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	output := filepath.Join(dir, "out", "robot.usda")
	res, err := New(cfg).WithMeshService(&recordingMesh{}).Run(input, output)
	return output, res, err
}

const twoWheelRobot = `<sdf version="1.9">
  <model name="cart">
    <link name="base">
      <pose>0 0 0.2 0 0 0</pose>
      <inertial><mass>4</mass><inertia><ixx>0.1</ixx><iyy>0.1</iyy><izz>0.1</izz></inertia></inertial>
      <visual name="body">
        <geometry><box><size>0.6 0.4 0.2</size></box></geometry>
      </visual>
    </link>
    <link name="wheel_left">
      <pose>0 0.25 0 0 0 0</pose>
      <visual name="disc">
        <geometry><cylinder><radius>0.1</radius><length>0.04</length></cylinder></geometry>
      </visual>
    </link>
    <link name="wheel_right">
      <pose>0 -0.25 0 0 0 0</pose>
      <visual name="disc">
        <geometry><cylinder><radius>0.1</radius><length>0.04</length></cylinder></geometry>
      </visual>
    </link>
    <joint name="axle_left" type="revolute">
      <parent>base</parent><child>wheel_left</child>
      <axis><xyz>0 0 1</xyz><limit><lower>-1</lower><upper>1</upper></limit></axis>
    </joint>
    <joint name="axle_right" type="revolute">
      <parent>base</parent><child>wheel_right</child>
      <axis><xyz>0 0 1</xyz><limit><lower>-1</lower><upper>1</upper></limit></axis>
    </joint>
  </model>
</sdf>`

func TestConvertArticulatedRobot(t *testing.T) {
	output, res, err := runConversion(t, config.Default(), twoWheelRobot)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Links != 3 || res.Joints != 2 {
		t.Errorf("result: %+v", res)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)

	for _, want := range []string{
		`defaultPrim = "cart"`,
		`upAxis = "Z"`,
		`def Xform "cart"`,
		"PhysicsArticulationRootAPI",
		`def Xform "base"`,
		`def Xform "wheel_left"`,
		`def Xform "wheel_right"`,
		"PhysicsRigidBodyAPI",
		"physics:mass = 4",
		`def PhysicsRevoluteJoint "axle_left"`,
		`def PhysicsRevoluteJoint "axle_right"`,
		`physics:axis = "Z"`,
		`rel physics:body0 = </cart/base>`,
		`rel physics:body1 = </cart/wheel_left>`,
		`def Material "material_0"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}

	// Revolute limits convert from radians to degrees.
	if !strings.Contains(out, "physics:lowerLimit = -57.29577951308232") {
		t.Error("lower limit not converted to degrees")
	}
	if !strings.Contains(out, "physics:upperLimit = 57.29577951308232") {
		t.Error("upper limit not converted to degrees")
	}

	// Both cylinder visuals share one default material.
	if strings.Contains(out, "material_1") {
		t.Error("identical materials must be interned once")
	}
}

const weldedStack = `<sdf version="1.9">
  <model name="stack">
    <link name="base">
      <inertial><mass>1</mass><inertia><ixx>0.01</ixx><iyy>0.01</iyy><izz>0.01</izz></inertia></inertial>
    </link>
    <link name="mid">
      <inertial><mass>2</mass><inertia><ixx>0.02</ixx><iyy>0.02</iyy><izz>0.02</izz></inertia></inertial>
    </link>
    <link name="top">
      <inertial><mass>3</mass><inertia><ixx>0.03</ixx><iyy>0.03</iyy><izz>0.03</izz></inertia></inertial>
    </link>
    <joint name="w1" type="fixed"><parent>base</parent><child>mid</child></joint>
    <joint name="w2" type="fixed"><parent>mid</parent><child>top</child></joint>
  </model>
</sdf>`

func TestConvertMergeFixedJoints(t *testing.T) {
	cfg := config.Default()
	cfg.Convert.MergeFixedJoints = true

	output, res, err := runConversion(t, cfg, weldedStack)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Links != 1 || res.Joints != 0 {
		t.Errorf("expected one merged link, got %+v", res)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)

	if strings.Count(out, "PhysicsRigidBodyAPI") != 1 {
		t.Error("merged model should carry exactly one rigid body")
	}
	if !strings.Contains(out, "physics:mass = 6") {
		t.Error("merged mass should be the sum of all bodies")
	}
	if strings.Contains(out, "PhysicsFixedJoint") {
		t.Error("fixed joints should be merged away")
	}
}

func TestConvertWithoutMergeKeepsFixedJoints(t *testing.T) {
	output, _, err := runConversion(t, config.Default(), weldedStack)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(output)
	if strings.Count(string(data), "def PhysicsFixedJoint") != 2 {
		t.Error("without merging, fixed joints must be emitted")
	}
}

func TestConvertInvalidDimensionFailsBeforeMeshWork(t *testing.T) {
	dir := t.TempDir()
	meshFile := filepath.Join(dir, "hull.stl")
	if err := os.WriteFile(meshFile, []byte("solid"), 0o644); err != nil {
		t.Fatal(err)
	}

	doc := `<sdf version="1.9">
	  <model name="broken">
	    <link name="bad">
	      <visual name="v">
	        <geometry><cylinder><radius>-0.5</radius><length>1</length></cylinder></geometry>
	      </visual>
	    </link>
	    <link name="meshy">
	      <visual name="v">
	        <geometry><mesh><uri>hull.stl</uri></mesh></geometry>
	      </visual>
	    </link>
	    <joint name="j" type="fixed"><parent>bad</parent><child>meshy</child></joint>
	  </model>
	</sdf>`

	input := filepath.Join(dir, "robot.sdf")
	if err := os.WriteFile(input, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	output := filepath.Join(dir, "out", "robot.usda")

	svc := &recordingMesh{}
	_, err := New(config.Default()).WithMeshService(svc).Run(input, output)

	var ge *GeometryError
	if !errors.As(err, &ge) {
		t.Fatalf("expected GeometryError, got %v", err)
	}
	if n := atomic.LoadInt64(&svc.calls); n != 0 {
		t.Errorf("no mesh conversion may be requested after a geometry error, got %d calls", n)
	}
	if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
		t.Error("no output document may be written on failure")
	}
}

func TestConvertDanglingReference(t *testing.T) {
	doc := `<sdf version="1.9">
	  <model name="m">
	    <link name="a"/>
	    <joint name="j" type="fixed"><parent>a</parent><child>ghost</child></joint>
	  </model>
	</sdf>`

	output, _, err := runConversion(t, config.Default(), doc)
	if !sdf.IsParseKind(err, sdf.DanglingReference) {
		t.Fatalf("expected DanglingReference, got %v", err)
	}
	if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
		t.Error("no output document may be written on failure")
	}
}

func TestConvertNoPhysics(t *testing.T) {
	cfg := config.Default()
	cfg.Convert.IncludePhysics = false

	output, _, err := runConversion(t, cfg, twoWheelRobot)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(output)
	out := string(data)

	if strings.Contains(out, "Physics") {
		t.Error("physics output disabled, no physics prims or schemas expected")
	}
	if !strings.Contains(out, `def Xform "wheel_left"`) {
		t.Error("links must still be emitted without physics")
	}
}

func TestConvertYUpStage(t *testing.T) {
	cfg := config.Default()
	cfg.Convert.UpAxis = "Y"

	output, _, err := runConversion(t, cfg, twoWheelRobot)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(output)
	out := string(data)

	if !strings.Contains(out, `upAxis = "Y"`) {
		t.Error("stage metadata must carry the up axis")
	}
	// The corrective rotation shows up once, on the assembly root.
	root := out[:strings.Index(out, `def Xform "base"`)]
	if !strings.Contains(root, "xformOp:orient = (0.70710678") ||
		!strings.Contains(root, ", -0.70710678") {
		t.Error("root orient should carry the -90 degree X rotation")
	}
}

func TestConvertScale(t *testing.T) {
	cfg := config.Default()
	cfg.Convert.Scale = 2

	output, _, err := runConversion(t, cfg, twoWheelRobot)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(output)
	out := string(data)

	// base pose z=0.2 scales to 0.4; cylinder radius 0.1 to 0.2.
	if !strings.Contains(out, "xformOp:translate = (0, 0, 0.4)") {
		t.Error("link translations must scale")
	}
	if !strings.Contains(out, "radius = 0.2") {
		t.Error("geometry dimensions must scale")
	}
	// Angular limits are unaffected by scale.
	if !strings.Contains(out, "physics:upperLimit = 57.29577951308232") {
		t.Error("angular limits must not scale")
	}
}
