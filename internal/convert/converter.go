// Package convert implements the conversion pipeline: parse the robot
// description, compose poses along the kinematic tree, classify geometry,
// convert external meshes, and assemble the output scene graph.
package convert

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/sdf2usd/internal/config"
	"github.com/Faultbox/sdf2usd/internal/logger"
	"github.com/Faultbox/sdf2usd/internal/mesh"
	"github.com/Faultbox/sdf2usd/pkg/sdf"
)

// Converter runs the full pipeline for one input document.
type Converter struct {
	cfg *config.Config
	svc mesh.Service
	log *zap.Logger
}

// New creates a Converter for the given configuration.
func New(cfg *config.Config) *Converter {
	log := logger.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Converter{cfg: cfg, log: log}
}

// WithMeshService overrides the mesh conversion backend. The default
// backend stages mesh files next to the output document.
func (c *Converter) WithMeshService(svc mesh.Service) *Converter {
	c.svc = svc
	return c
}

// Result summarizes one completed conversion.
type Result struct {
	Model      string
	Links      int
	Joints     int
	Meshes     int
	Materials  int
	OutputPath string
}

// Run converts inputPath and writes the scene to outputPath. The run is
// fail-fast: the first error aborts and no output document is written.
func (c *Converter) Run(inputPath, outputPath string) (*Result, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", inputPath, err)
	}

	parser := sdf.Parser{Skipped: func(element string) {
		c.log.Debug("skipping unsupported element", zap.String("element", element))
	}}
	model, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	c.log.Info("parsed model",
		zap.String("model", model.Name),
		zap.Int("links", len(model.Links)),
		zap.Int("joints", len(model.Joints)))

	applyScale(model, c.cfg.Convert.Scale)

	poses, err := composePoses(model)
	if err != nil {
		return nil, err
	}

	if c.cfg.Convert.MergeFixedJoints {
		before := len(model.Links)
		model, poses, err = mergeFixedJoints(model, poses)
		if err != nil {
			return nil, err
		}
		c.log.Info("merged fixed joints",
			zap.Int("links_before", before),
			zap.Int("links_after", len(model.Links)))
	}

	resolver := sdf.NewResolver(filepath.Dir(inputPath))
	for name, root := range c.cfg.Mesh.ModelPaths {
		resolver.RegisterModelPath(name, root)
	}

	cls, err := classify(model, resolver, c.cfg.Convert.IncludeCollision)
	if err != nil {
		return nil, err
	}

	outDir := filepath.Dir(outputPath)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", outDir, err)
	}

	svc := c.svc
	if svc == nil {
		copier, err := mesh.NewCopier(outDir)
		if err != nil {
			return nil, err
		}
		svc = copier
	}
	cache := mesh.NewCache(svc)
	if len(cls.sources) > 0 {
		c.log.Info("converting meshes",
			zap.Int("references", len(cls.sources)),
			zap.Int("workers", c.cfg.Mesh.Workers))
		if err := cache.ConvertAll(cls.sources, c.cfg.Convert.Scale, c.cfg.Mesh.Workers); err != nil {
			return nil, err
		}
	}

	joints := mapJoints(model)
	for i := range joints {
		if joints[i].Lossy {
			c.log.Warn("joint type has no direct equivalent, emitting fixed joint",
				zap.String("joint", joints[i].Name),
				zap.String("type", joints[i].RawType))
		}
	}

	stage, err := assemble(model, poses, cls, joints, cache, outDir,
		c.cfg.Convert.UpAxis, c.cfg.Convert.IncludePhysics, c.cfg.Convert.IncludeCollision)
	if err != nil {
		return nil, err
	}

	if err := stage.WriteFile(outputPath); err != nil {
		return nil, err
	}
	var size int64
	if fi, err := os.Stat(outputPath); err == nil {
		size = fi.Size()
	}

	res := &Result{
		Model:      model.Name,
		Links:      len(model.Links),
		Joints:     len(model.Joints),
		Meshes:     len(cls.meshes),
		Materials:  len(cls.materials),
		OutputPath: outputPath,
	}
	c.log.Info("wrote scene",
		zap.String("output", outputPath),
		zap.Int("links", res.Links),
		zap.Int("joints", res.Joints),
		zap.Int("meshes", res.Meshes),
		zap.Int("materials", res.Materials),
		zap.Int64("bytes", size))
	return res, nil
}
