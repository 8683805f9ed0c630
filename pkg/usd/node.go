// Package usd describes an abstract USD scene graph and serializes it as
// usda ASCII text.
package usd

import (
	"fmt"
	"strconv"
	"strings"
)

// Stage is a complete scene-graph document: layer metadata plus one root prim.
type Stage struct {
	DefaultPrim   string
	UpAxis        string
	MetersPerUnit float64
	Root          *Prim
}

// Prim is one named node in the scene graph.
type Prim struct {
	Name       string
	Type       string
	APISchemas []string
	References []string
	Attrs      []Attr
	Rels       []Rel
	Children   []*Prim
}

// AddChild appends a child prim and returns it.
func (p *Prim) AddChild(c *Prim) *Prim {
	p.Children = append(p.Children, c)
	return c
}

// Attr is a typed prim attribute with its value already formatted for usda.
type Attr struct {
	Type    string
	Name    string
	Value   string
	Uniform bool
}

// Rel is a relationship to other prims by path.
type Rel struct {
	Name    string
	Targets []string
}

// Attribute constructors. Values are formatted once, so the writer stays a
// plain tree walk.

// Float returns a float attribute.
func Float(name string, v float64) Attr {
	return Attr{Type: "float", Name: name, Value: fnum(v)}
}

// Double returns a double attribute.
func Double(name string, v float64) Attr {
	return Attr{Type: "double", Name: name, Value: fnum(v)}
}

// Double3 returns a double3 attribute.
func Double3(name string, x, y, z float64) Attr {
	return Attr{Type: "double3", Name: name, Value: fmt.Sprintf("(%s, %s, %s)", fnum(x), fnum(y), fnum(z))}
}

// Float3 returns a float3 attribute.
func Float3(name string, x, y, z float64) Attr {
	return Attr{Type: "float3", Name: name, Value: fmt.Sprintf("(%s, %s, %s)", fnum(x), fnum(y), fnum(z))}
}

// Color3f returns a color3f attribute.
func Color3f(name string, r, g, b float64) Attr {
	return Attr{Type: "color3f", Name: name, Value: fmt.Sprintf("(%s, %s, %s)", fnum(r), fnum(g), fnum(b))}
}

// Quatf returns a quatf attribute in (w, x, y, z) order.
func Quatf(name string, w, x, y, z float64) Attr {
	return Attr{Type: "quatf", Name: name, Value: fmt.Sprintf("(%s, %s, %s, %s)", fnum(w), fnum(x), fnum(y), fnum(z))}
}

// Token returns a token attribute.
func Token(name, v string) Attr {
	return Attr{Type: "token", Name: name, Value: strconv.Quote(v)}
}

// UniformToken returns a uniform token attribute.
func UniformToken(name, v string) Attr {
	return Attr{Type: "token", Name: name, Value: strconv.Quote(v), Uniform: true}
}

// TokenArray returns a uniform token[] attribute.
func TokenArray(name string, vals ...string) Attr {
	quoted := make([]string, len(vals))
	for i, v := range vals {
		quoted[i] = strconv.Quote(v)
	}
	return Attr{Type: "token[]", Name: name, Value: "[" + strings.Join(quoted, ", ") + "]", Uniform: true}
}

// Bool returns a bool attribute.
func Bool(name string, v bool) Attr {
	return Attr{Type: "bool", Name: name, Value: strconv.FormatBool(v)}
}

// Asset returns an asset-path attribute.
func Asset(name, path string) Attr {
	return Attr{Type: "asset", Name: name, Value: "@" + path + "@"}
}

func fnum(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// SanitizeName makes a name safe for use as a USD prim name: invalid
// characters become underscores and a leading digit is prefixed.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == '-', r == '.', r == ' ', r == '/':
			b.WriteByte('_')
		}
	}
	out := b.String()
	if out == "" {
		return "_unnamed"
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}
	return out
}
