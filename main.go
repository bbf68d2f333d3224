package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kwv/beaconmesh/logger"
	"github.com/kwv/beaconmesh/mesh"
)

// Version is set at build time via -ldflags
var Version = "dev"

// AppOptions holds every CLI flag
type AppOptions struct {
	ConfigFile       string
	InputFile        string
	CalibrationCache string
	NoCache          bool
	LogLevel         string
	Reference        int // -1 keeps the configured reference
	Workers          int
	Part             int // 0 prints both answers
	OutputFile       string
	RenderFormat     string // raster or vector
	VectorFormat     string // svg or png
	HttpPort         int
	MqttMode         bool
	ResultCache      string // serve only; empty keeps results in memory
}

// Runner executes the subcommands. App is the production implementation.
type Runner interface {
	ApplyOptions(opts AppOptions)
	RunSolve(ctx context.Context, out io.Writer) error
	RunCalibrate(ctx context.Context, out io.Writer) error
	RunRender(ctx context.Context, out io.Writer) error
	RunExport(ctx context.Context, out io.Writer) error
	RunService(ctx context.Context, out io.Writer) error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	err := runContext(ctx, os.Args[1:], os.Stdout, NewApp())
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func run(args []string, out io.Writer, app Runner) error {
	return runContext(context.Background(), args, out, app)
}

func runContext(ctx context.Context, args []string, out io.Writer, app Runner) error {
	root := newRootCmd(app)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(out)
	return root.ExecuteContext(ctx)
}

func newRootCmd(app Runner) *cobra.Command {
	opts := AppOptions{}
	var renderOutput, exportOutput string

	root := &cobra.Command{
		Use:          "beaconmesh",
		Short:        "Register 3D scanner beacon reports into one reference frame.",
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, ok := logger.ParseLevel(opts.LogLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", opts.LogLevel)
			}
			logger.SetLevel(level)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "beaconmesh version: %s\n", Version)
			return cmd.Help()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.ConfigFile, "config", "config.yaml", "path to configuration file (defaults apply when missing)")
	pf.StringVarP(&opts.InputFile, "input", "i", "input.txt", "scanner report file, - for stdin")
	pf.StringVar(&opts.CalibrationCache, "calibration-cache", mesh.DefaultCalibrationCachePath, "path to calibration cache file")
	pf.BoolVar(&opts.NoCache, "no-cache", false, "ignore the calibration cache")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level: debug, info, warn, error")
	pf.IntVar(&opts.Reference, "reference", -1, "reference scanner id (overrides config)")
	pf.IntVar(&opts.Workers, "workers", 0, "concurrent matchers (overrides config, 0 keeps it)")

	// wrap applies the options before a subcommand runs
	wrap := func(fn func(Runner, context.Context, io.Writer) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			app.ApplyOptions(opts)
			return fn(app, cmd.Context(), cmd.OutOrStdout())
		}
	}

	solveCmd := &cobra.Command{
		Use:   "solve",
		Short: "Print the unique beacon count and the largest scanner distance.",
		Args:  cobra.NoArgs,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			if opts.Part < 0 || opts.Part > 2 {
				return fmt.Errorf("--part must be 1 or 2, got %d", opts.Part)
			}
			return nil
		},
		RunE: wrap(Runner.RunSolve),
	}
	solveCmd.Flags().IntVar(&opts.Part, "part", 0, "print only answer 1 (unique beacons) or 2 (max scanner distance)")

	calibrateCmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Register every scanner and write the transform chains to the calibration cache.",
		Args:  cobra.NoArgs,
		RunE:  wrap(Runner.RunCalibrate),
	}

	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Render a top-down map of the unified beacons.",
		Args:  cobra.NoArgs,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			if opts.RenderFormat != "raster" && opts.RenderFormat != "vector" {
				return fmt.Errorf("--format must be raster or vector, got %q", opts.RenderFormat)
			}
			if opts.VectorFormat != "svg" && opts.VectorFormat != "png" {
				return fmt.Errorf("--vector-format must be svg or png, got %q", opts.VectorFormat)
			}
			opts.OutputFile = renderOutput
			return nil
		},
		RunE: wrap(Runner.RunRender),
	}
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "beacon-map.png", "output file")
	renderCmd.Flags().StringVar(&opts.RenderFormat, "format", "raster", "render format: raster or vector")
	renderCmd.Flags().StringVar(&opts.VectorFormat, "vector-format", "svg", "vector output format: svg or png")

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write unified beacons and scanner positions as GeoJSON.",
		Args:  cobra.NoArgs,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			opts.OutputFile = exportOutput
			return nil
		},
		RunE: wrap(Runner.RunExport),
	}
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "beacons.geojson", "output file, - for stdout")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the latest result over HTTP and optionally publish it to MQTT.",
		Args:  cobra.NoArgs,
		RunE:  wrap(Runner.RunService),
	}
	serveCmd.Flags().IntVar(&opts.HttpPort, "http-port", 8080, "HTTP server port")
	serveCmd.Flags().BoolVar(&opts.MqttMode, "mqtt", false, "publish results and accept reports over MQTT")
	serveCmd.Flags().StringVar(&opts.ResultCache, "result-cache", "", "persist the latest result to this file and reload it on start")

	root.AddCommand(solveCmd, calibrateCmd, renderCmd, exportCmd, serveCmd)
	return root
}
