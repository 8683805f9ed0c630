package usd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// WriteError reports a failure to serialize or store the output document.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Encode serializes the stage as usda ASCII text.
//
// The writer always emits ASCII, even when the output path carries a binary
// .usd extension; crate encoding is outside this package's scope.
func (s *Stage) Encode() string {
	var b strings.Builder
	b.WriteString("#usda 1.0\n(\n")
	if s.DefaultPrim != "" {
		fmt.Fprintf(&b, "    defaultPrim = %s\n", strconv.Quote(s.DefaultPrim))
	}
	mpu := s.MetersPerUnit
	if mpu == 0 {
		mpu = 1
	}
	fmt.Fprintf(&b, "    metersPerUnit = %s\n", fnum(mpu))
	if s.UpAxis != "" {
		fmt.Fprintf(&b, "    upAxis = %s\n", strconv.Quote(s.UpAxis))
	}
	b.WriteString(")\n")

	if s.Root != nil {
		b.WriteString("\n")
		writePrim(&b, s.Root, 0)
	}
	return b.String()
}

// WriteFile serializes the stage and writes it to path.
func (s *Stage) WriteFile(path string) error {
	if s.Root == nil {
		return &WriteError{Path: path, Err: fmt.Errorf("stage has no root prim")}
	}
	if err := os.WriteFile(path, []byte(s.Encode()), 0o644); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

func writePrim(b *strings.Builder, p *Prim, depth int) {
	in := strings.Repeat("    ", depth)

	primType := p.Type
	if primType != "" {
		primType += " "
	}
	fmt.Fprintf(b, "%sdef %s%s", in, primType, strconv.Quote(p.Name))

	if len(p.APISchemas) > 0 || len(p.References) > 0 {
		b.WriteString(" (\n")
		if len(p.APISchemas) > 0 {
			quoted := make([]string, len(p.APISchemas))
			for i, s := range p.APISchemas {
				quoted[i] = strconv.Quote(s)
			}
			fmt.Fprintf(b, "%s    prepend apiSchemas = [%s]\n", in, strings.Join(quoted, ", "))
		}
		for _, ref := range p.References {
			fmt.Fprintf(b, "%s    prepend references = @%s@\n", in, ref)
		}
		fmt.Fprintf(b, "%s)\n%s{\n", in, in)
	} else {
		b.WriteString("\n" + in + "{\n")
	}

	inner := in + "    "
	for _, a := range p.Attrs {
		if a.Uniform {
			fmt.Fprintf(b, "%suniform %s %s = %s\n", inner, a.Type, a.Name, a.Value)
		} else {
			fmt.Fprintf(b, "%s%s %s = %s\n", inner, a.Type, a.Name, a.Value)
		}
	}
	for _, r := range p.Rels {
		targets := make([]string, len(r.Targets))
		for i, tgt := range r.Targets {
			targets[i] = "<" + tgt + ">"
		}
		if len(targets) == 1 {
			fmt.Fprintf(b, "%srel %s = %s\n", inner, r.Name, targets[0])
		} else {
			fmt.Fprintf(b, "%srel %s = [%s]\n", inner, r.Name, strings.Join(targets, ", "))
		}
	}

	for _, c := range p.Children {
		b.WriteString("\n")
		writePrim(b, c, depth+1)
	}

	b.WriteString(in + "}\n")
}
