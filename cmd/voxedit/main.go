package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/voxedit/internal/config"
	"github.com/banshee-data/voxedit/internal/db"
	"github.com/banshee-data/voxedit/internal/refine"
	"github.com/banshee-data/voxedit/internal/region"
	"github.com/banshee-data/voxedit/internal/version"
	"github.com/banshee-data/voxedit/internal/voxel"
)

const defaultDBPath = "voxedit.db"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches a subcommand and returns the process exit code. Deferred
// cleanup in the handlers completes before main exits.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}
	command, args := args[0], args[1:]

	var err error
	switch command {
	case "segment":
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		err = runSegment(ctx, args, stdout)
	case "runs":
		err = runRuns(args, stdout)
	case "migrate":
		err = runMigrate(args, stdout)
	case "version":
		fmt.Fprintln(stdout, version.String())
	case "help", "-h", "-help", "--help":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)
		return 1
	}
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "%s: %v\n", command, err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `voxedit - edit-region segmentation for voxel radiance fields

Usage: voxedit <command> [options]

Commands:
  segment    Segment the edit region of a model pair and write the refined model
  runs       List stored segmentation runs
  migrate    Manage the run database schema (up, down, status, force N)
  version    Show version information
  help       Show this help message

Examples:
  voxedit segment -edit edit.vox -object object.vox -out refined.vox
  voxedit segment -edit edit.vox -object object.vox -reference ref.vox \
      -config config/region.example.yaml -plots plots -chart slices.html
  voxedit runs -db voxedit.db -limit 10
  voxedit migrate status -db voxedit.db`)
}

// loadConfig resolves the region configuration from path, or the built-in
// defaults when path is empty.
func loadConfig(path string) (region.Config, error) {
	if path == "" {
		return region.DefaultConfig(), nil
	}
	rc, err := config.LoadRegionConfig(path)
	if err != nil {
		return region.Config{}, err
	}
	return region.ConfigFromRegion(rc), nil
}

func runSegment(ctx context.Context, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("segment", flag.ContinueOnError)
	editPath := fs.String("edit", "", "Edit model file (required)")
	objectPath := fs.String("object", "", "Object model file (required)")
	referencePath := fs.String("reference", "", "Pre-edit model used by component cleanup")
	configPath := fs.String("config", "", "Region config file (.json, .yaml or .yml)")
	outPath := fs.String("out", "", "Refined model output file")
	dbPath := fs.String("db", "", "Record the run in this SQLite database")
	plotDir := fs.String("plots", "", "Directory for slice heatmaps")
	plotStride := fs.Int("plot-stride", 1, "Plot every Nth Z slice")
	chartPath := fs.String("chart", "", "HTML chart of per-slice label counts")
	metricsPath := fs.String("metrics", "", "Prometheus textfile output")
	seed := fs.Int64("seed", 0, "Override random_seed for object seed sampling")
	precision := fs.String("precision", string(voxel.PrecisionFloat64), "Refined model precision: float64 or float16")
	notes := fs.String("notes", "", "Free-form notes stored with the run")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *editPath == "" || *objectPath == "" {
		return fmt.Errorf("-edit and -object are required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			cfg.RandomSeed = *seed
		}
	})

	var store refine.RunStore
	if *dbPath != "" {
		database, err := db.NewDB(*dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()
		store = db.NewRegionRunStore(database.DB)
	}

	runner := refine.NewRunner(cfg, refine.Options{
		EditPath:      *editPath,
		ObjectPath:    *objectPath,
		ReferencePath: *referencePath,
		OutPath:       *outPath,
		Precision:     voxel.Precision(*precision),
		PlotDir:       *plotDir,
		PlotStride:    *plotStride,
		ChartPath:     *chartPath,
		MetricsPath:   *metricsPath,
		Notes:         *notes,
	}, store)
	sum, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	s := sum.Result.Stats
	fmt.Fprintf(w, "active=%d edit=%d object=%d (%.1f%% edit) flow=%.4g in %v\n",
		s.ActiveNodes, s.EditNodes, s.ObjectNodes, 100*s.EditFraction(), s.Flow, s.TotalDuration.Round(time.Millisecond))
	if s.Degenerate {
		fmt.Fprintln(w, "warning: no seeds found, every active voxel labelled object")
	}
	if sum.RunID != "" {
		fmt.Fprintf(w, "run %s\n", sum.RunID)
	}
	return nil
}

func runRuns(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	dbPath := fs.String("db", defaultDBPath, "SQLite database path")
	limit := fs.Int("limit", 20, "Maximum runs to list (0 for all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	runs, err := db.NewRegionRunStore(database.DB).ListRuns(*limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tCREATED\tDIMS\tACTIVE\tEDIT\tFLOW\tFALLBACK\tDEGENERATE")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%.4g\t%t\t%t\n",
			r.RunID,
			time.Unix(0, r.CreatedAtNs).UTC().Format(time.RFC3339),
			r.Dims,
			r.ActiveNodes,
			r.EditNodes,
			r.Flow,
			r.Fallback,
			r.Degenerate,
		)
	}
	return tw.Flush()
}

// runMigrate accepts the action and its arguments before or after -db.
func runMigrate(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	dbPath := fs.String("db", defaultDBPath, "SQLite database path")
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return err
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
	return db.RunMigrateCommand(positional, *dbPath, w)
}
