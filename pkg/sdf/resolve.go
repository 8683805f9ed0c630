package sdf

import (
	"os"
	"path/filepath"
	"strings"
)

// Resolver maps SDF asset references onto canonical filesystem locations.
//
// Resolution order:
//   - model://name/rest resolves against the registered root for "name",
//     falling back to the document base directory when unregistered
//   - file:// prefixes are stripped and the remainder used verbatim
//   - absolute paths are used verbatim
//   - anything else is relative to the document base directory
//
// The returned location is absolute and cleaned, so two references naming
// the same file compare equal and can key deduplication.
type Resolver struct {
	// BaseDir is the directory of the source document.
	BaseDir string

	modelPaths map[string]string
}

// NewResolver creates a resolver rooted at the source document's directory.
func NewResolver(baseDir string) *Resolver {
	return &Resolver{BaseDir: baseDir, modelPaths: make(map[string]string)}
}

// RegisterModelPath registers the package root for a model:// name.
func (r *Resolver) RegisterModelPath(name, root string) {
	r.modelPaths[name] = root
}

// Resolve turns a reference string into a canonical absolute location.
// The location must exist on disk; a missing target is a NotFound error.
func (r *Resolver) Resolve(uri string) (string, error) {
	uri = strings.TrimSpace(uri)

	var candidate string
	switch {
	case strings.HasPrefix(uri, "model://"):
		rest := strings.TrimPrefix(uri, "model://")
		name, sub, _ := strings.Cut(rest, "/")
		root, ok := r.modelPaths[name]
		if !ok {
			// Unregistered package: the document usually sits inside its own
			// model directory, so fall back to the base directory.
			root = r.BaseDir
		}
		candidate = filepath.Join(root, filepath.FromSlash(sub))

	case strings.HasPrefix(uri, "file://"):
		candidate = strings.TrimPrefix(uri, "file://")

	case strings.Contains(uri, "://"):
		return "", &ResolutionError{Kind: SchemeUnsupported, URI: uri}

	case filepath.IsAbs(uri):
		candidate = uri

	default:
		candidate = filepath.Join(r.BaseDir, filepath.FromSlash(uri))
	}

	abs, err := filepath.Abs(candidate)
	if err != nil {
		return "", &ResolutionError{Kind: NotFound, URI: uri, Location: candidate}
	}
	abs = filepath.Clean(abs)

	if _, err := os.Stat(abs); err != nil {
		return "", &ResolutionError{Kind: NotFound, URI: uri, Location: abs}
	}
	return abs, nil
}
