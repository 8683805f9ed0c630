// Command sdf2usd converts an SDF robot description into a USD scene.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/sdf2usd/internal/config"
	"github.com/Faultbox/sdf2usd/internal/convert"
	"github.com/Faultbox/sdf2usd/internal/logger"
)

var (
	noPhysics   = flag.Bool("no-physics", false, "omit physics schemas and joints from the output")
	noCollision = flag.Bool("no-collision", false, "omit collision geometry from the output")
	mergeFixed  = flag.Bool("merge-fixed-joints", false, "fold links connected by fixed joints into their parent")
	scale       = flag.Float64("scale", 1.0, "uniform scale applied to the whole model")
	upAxis      = flag.String("up-axis", "Z", "stage up axis (Y or Z)")
	watch       = flag.Bool("watch", false, "stay running and re-convert when the input changes")
	verbose     = flag.Bool("v", false, "enable debug logging")
	quiet       = flag.Bool("q", false, "log errors only")
	configPath  = flag.String("config", "", "path to a YAML configuration file")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [options] <input.sdf> <output.usda>\n\n", filepath.Base(os.Args[0]))
	fmt.Fprintln(os.Stderr, "Converts an SDF robot description into a USD scene.")
	fmt.Fprintln(os.Stderr, "\nOptions:")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 2 {
		usage()
		os.Exit(1)
	}
	input, output := flag.Arg(0), flag.Arg(1)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Flags set on the command line win over the configuration file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "no-physics":
			cfg.Convert.IncludePhysics = !*noPhysics
		case "no-collision":
			cfg.Convert.IncludeCollision = !*noCollision
		case "merge-fixed-joints":
			cfg.Convert.MergeFixedJoints = *mergeFixed
		case "scale":
			cfg.Convert.Scale = *scale
		case "up-axis":
			cfg.Convert.UpAxis = *upAxis
		}
	})

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	level := cfg.Logging.Level
	if *verbose {
		level = "debug"
	}
	if *quiet {
		level = "error"
	}
	if err := logger.Init(level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	run := func() error {
		_, err := convert.New(cfg).Run(input, output)
		return err
	}

	if err := run(); err != nil {
		logger.Error("conversion failed", zap.Error(err))
		if !*watch {
			os.Exit(1)
		}
	}

	if *watch {
		if err := watchLoop(input, run); err != nil {
			logger.Error("watch failed", zap.Error(err))
			os.Exit(1)
		}
	}
}

// watchLoop re-runs the conversion whenever the input document changes.
// The parent directory is watched rather than the file itself, since
// editors typically replace files on save.
func watchLoop(input string, run func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	target, err := filepath.Abs(input)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}
	logger.Info("watching for changes", zap.String("input", input))

	// Debounce: editors fire several events per save.
	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name, err := filepath.Abs(ev.Name)
			if err != nil || name != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(200 * time.Millisecond)

		case <-debounce.C:
			logger.Info("input changed, converting", zap.String("input", input))
			if err := run(); err != nil {
				logger.Error("conversion failed", zap.Error(err))
			}

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(werr))
		}
	}
}
