// Package mesh handles external mesh asset conversion: the service
// contract, a per-run deduplicating cache, and a copy-based backend.
package mesh

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Service converts one mesh asset per call. Implementations must be
// idempotent per canonical source location and safe for concurrent use.
type Service interface {
	// Convert converts the mesh at the canonical source location and
	// returns a handle to the converted output.
	Convert(source string, scale float64) (Handle, error)
	// CopyTexture places a texture file next to the converted meshes and
	// returns its new location.
	CopyTexture(source string) (string, error)
}

// Handle identifies a converted mesh asset.
type Handle struct {
	Source string
	Output string
}

// ConversionError reports a failed mesh conversion.
type ConversionError struct {
	Location string
	Err      error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert mesh %s: %v", e.Location, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Formats the copy backend accepts, matching what downstream asset
// converters ingest.
var supportedFormats = map[string]bool{
	".dae":  true,
	".stl":  true,
	".obj":  true,
	".fbx":  true,
	".gltf": true,
	".glb":  true,
}

var textureExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tga":  true,
	".bmp":  true,
	".tiff": true,
	".hdr":  true,
}

// Copier is the default Service: it stages mesh files (and their adjacent
// textures) into <outDir>/meshes with collision-free names, leaving actual
// triangle decoding to the runtime that consumes the scene. Convert runs
// on the cache's worker pool, so name reservation and texture staging are
// mutex-guarded.
type Copier struct {
	dir string

	mu   sync.Mutex
	used map[string]bool
}

// NewCopier creates a Copier staging into <outDir>/meshes.
func NewCopier(outDir string) (*Copier, error) {
	dir := filepath.Join(outDir, "meshes")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &ConversionError{Location: dir, Err: err}
	}
	return &Copier{dir: dir, used: make(map[string]bool)}, nil
}

// Dir returns the staging directory.
func (c *Copier) Dir() string { return c.dir }

// Convert stages one mesh file. Scale is carried by the referencing node in
// the output document, so the copy itself is scale-independent.
func (c *Copier) Convert(source string, _ float64) (Handle, error) {
	ext := strings.ToLower(filepath.Ext(source))
	if !supportedFormats[ext] {
		return Handle{}, &ConversionError{Location: source,
			Err: fmt.Errorf("unsupported mesh format %q", ext)}
	}

	out := c.reserveName(filepath.Base(source))
	if err := copyFile(source, out); err != nil {
		return Handle{}, &ConversionError{Location: source, Err: err}
	}

	if err := c.copyAdjacentTextures(filepath.Dir(source)); err != nil {
		return Handle{}, err
	}

	return Handle{Source: source, Output: out}, nil
}

// CopyTexture stages a texture file into the meshes directory.
func (c *Copier) CopyTexture(source string) (string, error) {
	return c.stageTexture(source)
}

// reserveName picks an output path that no earlier conversion claimed.
func (c *Copier) reserveName(base string) string {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	c.mu.Lock()
	defer c.mu.Unlock()
	name := base
	for n := 1; c.used[name]; n++ {
		name = fmt.Sprintf("%s_%d%s", stem, n, ext)
	}
	c.used[name] = true
	return filepath.Join(c.dir, name)
}

// stageTexture copies a texture into the meshes directory once. The check
// and the copy happen under the lock so concurrent workers cannot race
// onto the same destination.
func (c *Copier) stageTexture(source string) (string, error) {
	dest := filepath.Join(c.dir, filepath.Base(source))

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}
	if err := copyFile(source, dest); err != nil {
		return "", &ConversionError{Location: source, Err: err}
	}
	return dest, nil
}

// copyAdjacentTextures stages texture files sitting next to a mesh, since
// mesh formats reference them by bare filename.
func (c *Copier) copyAdjacentTextures(meshDir string) error {
	entries, err := os.ReadDir(meshDir)
	if err != nil {
		return &ConversionError{Location: meshDir, Err: err}
	}
	for _, e := range entries {
		if e.IsDir() || !textureExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		if _, err := c.stageTexture(filepath.Join(meshDir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
