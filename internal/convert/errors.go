package convert

import "fmt"

// PoseError reports a kinematic hierarchy whose poses cannot be composed.
type PoseError struct {
	Entity string
	Detail string
}

func (e *PoseError) Error() string {
	return fmt.Sprintf("broken hierarchy (%s): %s", e.Entity, e.Detail)
}

// GeometryError reports geometry with invalid parameters, such as a zero or
// negative primitive dimension.
type GeometryError struct {
	Entity string
	Detail string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("invalid dimension (%s): %s", e.Entity, e.Detail)
}
