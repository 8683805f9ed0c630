package sdf

import "fmt"

// ParseKind classifies a parse failure.
type ParseKind int

const (
	// MalformedMarkup covers broken XML and malformed numeric text.
	MalformedMarkup ParseKind = iota
	// MissingRequiredAttribute is reported when a link or joint has no name.
	MissingRequiredAttribute
	// UnsupportedElement is reported when the document's structure is out of
	// scope, such as multiple top-level models.
	UnsupportedElement
	// DanglingReference is reported when a joint names a link that does not
	// exist in the model.
	DanglingReference
)

// String returns the parse kind name.
func (k ParseKind) String() string {
	switch k {
	case MalformedMarkup:
		return "malformed markup"
	case MissingRequiredAttribute:
		return "missing required attribute"
	case UnsupportedElement:
		return "unsupported element"
	case DanglingReference:
		return "dangling reference"
	}
	return "unknown"
}

// ParseError is a structured parse failure: what kind of problem, on which
// element, and the underlying cause when there is one.
type ParseError struct {
	Kind    ParseKind
	Element string
	Detail  string
	Err     error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse: %s", e.Kind)
	if e.Element != "" {
		msg += fmt.Sprintf(" (%s)", e.Element)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsParseKind reports whether err is a ParseError of the given kind.
func IsParseKind(err error, kind ParseKind) bool {
	pe, ok := err.(*ParseError)
	return ok && pe.Kind == kind
}

// ResolveKind classifies a reference resolution failure.
type ResolveKind int

const (
	// SchemeUnsupported is reported for reference schemes the resolver does
	// not understand, such as http://.
	SchemeUnsupported ResolveKind = iota
	// NotFound is reported when the resolved location does not exist.
	NotFound
)

// String returns the resolve kind name.
func (k ResolveKind) String() string {
	switch k {
	case SchemeUnsupported:
		return "scheme unsupported"
	case NotFound:
		return "not found"
	}
	return "unknown"
}

// ResolutionError reports a reference that could not be resolved. Location
// holds the candidate canonical location when one was computed.
type ResolutionError struct {
	Kind     ResolveKind
	URI      string
	Location string
}

func (e *ResolutionError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("resolve %q: %s (%s)", e.URI, e.Kind, e.Location)
	}
	return fmt.Sprintf("resolve %q: %s", e.URI, e.Kind)
}

// IsResolveKind reports whether err is a ResolutionError of the given kind.
func IsResolveKind(err error, kind ResolveKind) bool {
	re, ok := err.(*ResolutionError)
	return ok && re.Kind == kind
}
