package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Joesum98/Isochrones/internal/config"
	"github.com/Joesum98/Isochrones/internal/isochrone"
	"github.com/Joesum98/Isochrones/internal/logging"
	"github.com/Joesum98/Isochrones/internal/metrics"
	"github.com/Joesum98/Isochrones/internal/plot"
	"github.com/Joesum98/Isochrones/internal/postgres"
	"github.com/Joesum98/Isochrones/internal/schema"
	"go.uber.org/zap"
)

var errUsage = errors.New("invalid usage")

type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	metrics *metrics.Recorder
	stdout  io.Writer
}

// run dispatches a subcommand and returns the process exit code.
func (a *app) run(ctx context.Context, command string, args []string) int {
	var err error
	switch command {
	case "describe":
		err = a.describe(ctx, args)
	case "plot":
		err = a.plotDiagram(ctx, args)
	case "export":
		err = a.export(ctx, args)
	case "help", "-h", "--help":
		fmt.Fprint(a.stdout, usage)
		return 0
	default:
		err = fmt.Errorf("%w: unknown command %q", errUsage, command)
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		a.logger.Error("Invalid arguments", zap.String("command", command), zap.Error(err))
		return 2
	default:
		a.logger.Error("Command failed", zap.String("command", command), zap.Error(err))
		return 1
	}
}

// load reads a table, building an object-store client only for s3:// paths.
func (a *app) load(ctx context.Context, location string) (*isochrone.Table, error) {
	var store *isochrone.Client
	if isochrone.IsObjectURI(location) {
		var err error
		store, err = isochrone.NewClient(a.cfg.GetS3Config(), a.logger.Logger)
		if err != nil {
			return nil, err
		}
	}
	return isochrone.NewReader(a.logger, a.metrics, store).ReadFile(ctx, location)
}

func (a *app) describe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("describe", flag.ContinueOnError)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	location, err := singleArg(fs)
	if err != nil {
		return err
	}

	table, err := a.load(ctx, location)
	if err != nil {
		return err
	}

	mhs, err := isochrone.Metallicities(table)
	if err != nil {
		return err
	}
	ages, err := isochrone.Ages(table)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "rows:          %d\n", table.Len())
	fmt.Fprintf(a.stdout, "columns:       %s\n", strings.Join(table.Columns(), " "))
	fmt.Fprintf(a.stdout, "metallicities: %s\n", formatValues(mhs))
	fmt.Fprintf(a.stdout, "ages (Gyr):    %s\n", formatValues(ages))
	return nil
}

type plotOptions struct {
	mh, age     string
	diagram     plot.Diagram
	interactive bool
	scale       plot.Scale
	output      string
}

func (a *app) plotDiagram(ctx context.Context, args []string) error {
	var opts plotOptions
	fs := flag.NewFlagSet("plot", flag.ContinueOnError)
	fs.StringVar(&opts.mh, "mh", "", "keep only rows with this [M/H]")
	fs.StringVar(&opts.age, "age", "", "keep only rows with this age in Gyr")
	fs.StringVar(&opts.diagram.Filter1, "filt1", "U", "first band; also the magnitude axis")
	fs.StringVar(&opts.diagram.Filter2, "filt2", "B", "second band of the colour index")
	fs.StringVar(&opts.diagram.Color, "color", isochrone.ColAge, "column that colours the points")
	fs.BoolVar(&opts.interactive, "interactive", false, "write an HTML page instead of an image")
	fs.Float64Var(&opts.scale.Min, "cmin", 1, "lower colour bound (interactive)")
	fs.Float64Var(&opts.scale.Max, "cmax", 12, "upper colour bound (interactive)")
	fs.Float64Var(&opts.scale.Step, "step", 1, "colour bar tick increment (interactive)")
	fs.StringVar(&opts.output, "o", "", "output path; the extension picks the image format")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	location, err := singleArg(fs)
	if err != nil {
		return err
	}

	table, err := a.load(ctx, location)
	if err != nil {
		return err
	}
	table, err = applyFilters(table, opts.mh, opts.age)
	if err != nil {
		return err
	}

	timer := metrics.NewTimer()
	if opts.interactive {
		err = a.renderInteractive(table, opts)
	} else {
		err = a.renderStatic(table, opts)
	}
	if err != nil {
		a.metrics.RecordError("render", backendName(opts.interactive))
		return err
	}

	a.metrics.RecordRender(backendName(opts.interactive))
	a.logger.LogPerformanceMetric("render_duration", timer.Duration().Seconds(), "seconds")
	return nil
}

func backendName(interactive bool) string {
	if interactive {
		return "interactive"
	}
	return "static"
}

func (a *app) renderStatic(table *isochrone.Table, opts plotOptions) error {
	fig, err := plot.Static(table, opts.diagram)
	if err != nil {
		return err
	}

	output := opts.output
	if output == "" {
		output = "isochrone.png"
	}
	if err := fig.Save(output); err != nil {
		return err
	}

	a.logger.Info("Wrote static diagram",
		zap.String("path", output),
		zap.Int("points", fig.Points))
	return nil
}

func (a *app) renderInteractive(table *isochrone.Table, opts plotOptions) error {
	fig, err := plot.Interactive(table, opts.diagram, opts.scale)
	if err != nil {
		if errors.Is(err, plot.ErrInvalidScale) {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		return err
	}

	output := opts.output
	if output == "" {
		output = "isochrone.html"
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	if err := fig.Render(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", output, err)
	}

	a.logger.Info("Wrote interactive diagram",
		zap.String("path", output),
		zap.Int("points", fig.Points))
	return nil
}

func (a *app) export(ctx context.Context, args []string) error {
	var mh, age, arrowPath, pgTable string
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.StringVar(&mh, "mh", "", "keep only rows with this [M/H]")
	fs.StringVar(&age, "age", "", "keep only rows with this age in Gyr")
	fs.StringVar(&arrowPath, "arrow", "", "write an Arrow IPC file to this path")
	fs.StringVar(&pgTable, "pg", "", "copy rows into this Postgres table")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	location, err := singleArg(fs)
	if err != nil {
		return err
	}
	if arrowPath == "" && pgTable == "" {
		return fmt.Errorf("%w: export needs -arrow or -pg", errUsage)
	}

	table, err := a.load(ctx, location)
	if err != nil {
		return err
	}
	table, err = applyFilters(table, mh, age)
	if err != nil {
		return err
	}

	if arrowPath != "" {
		if err := a.exportArrow(table, location, arrowPath); err != nil {
			return err
		}
	}
	if pgTable != "" {
		if err := a.exportPostgres(ctx, table, pgTable); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) exportArrow(table *isochrone.Table, source, path string) error {
	timer := metrics.NewTimer()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := schema.NewArrowSchemaManager().WriteIPC(f, table, filepath.Base(source)); err != nil {
		f.Close()
		a.metrics.RecordError("export", "arrow")
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	a.metrics.RecordExport("arrow", int64(table.Len()), timer.Duration())
	a.logger.Info("Wrote Arrow file", zap.String("path", path), zap.Int("rows", table.Len()))
	return nil
}

func (a *app) exportPostgres(ctx context.Context, table *isochrone.Table, name string) error {
	pgcfg := a.cfg.GetPostgresConfig()

	client, err := postgres.NewClient(pgcfg, a.logger.Logger)
	if err != nil {
		return err
	}
	defer client.Close()

	writer := postgres.NewWriter(client, pgcfg["schema"], a.logger.Logger, a.metrics)
	_, err = writer.Write(ctx, table, name)
	return err
}

// applyFilters narrows table by metallicity and age when given.
func applyFilters(table *isochrone.Table, mh, age string) (*isochrone.Table, error) {
	if mh != "" {
		m, err := strconv.ParseFloat(mh, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: -mh %q is not a number", errUsage, mh)
		}
		if table, err = isochrone.Metallicity(table, m); err != nil {
			return nil, err
		}
	}
	if age != "" {
		v, err := strconv.ParseFloat(age, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: -age %q is not a number", errUsage, age)
		}
		if table, err = isochrone.Age(table, v); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return err
}

func singleArg(fs *flag.FlagSet) (string, error) {
	if fs.NArg() != 1 {
		return "", fmt.Errorf("%w: %s needs exactly one table path, got %d", errUsage, fs.Name(), fs.NArg())
	}
	return fs.Arg(0), nil
}

func formatValues(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}
