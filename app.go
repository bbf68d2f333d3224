package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/kwv/beaconmesh/logger"
	"github.com/kwv/beaconmesh/mesh"
)

// App encapsulates the application state and dependencies
type App struct {
	Config       *mesh.Config
	StateTracker *mesh.StateTracker
	MQTTClient   *mesh.MQTTClient
	Publisher    *mesh.Publisher

	// Stdin is read when the input file is "-"
	Stdin io.Reader

	opts    AppOptions
	solveMu sync.Mutex
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{
		StateTracker: mesh.NewStateTracker(),
		Stdin:        os.Stdin,
	}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.opts = opts
	if opts.ResultCache != "" {
		a.StateTracker = mesh.NewStateTrackerWithCache(opts.ResultCache)
	}
}

// loadConfig loads the config file and applies CLI overrides
func (a *App) loadConfig() (*mesh.Config, error) {
	if a.Config != nil {
		return a.Config, nil
	}

	config, err := mesh.LoadConfigOrDefault(a.opts.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if a.opts.Reference >= 0 {
		config.Registration.Reference = a.opts.Reference
	}
	if a.opts.Workers > 0 {
		config.Registration.Workers = a.opts.Workers
	}
	a.Config = config
	return config, nil
}

// readReports parses the input file, or stdin for "-"
func (a *App) readReports() (map[int][]mesh.Vector3, error) {
	if a.opts.InputFile == "-" {
		return mesh.ParseReport(a.Stdin)
	}
	return mesh.ParseReportFile(a.opts.InputFile)
}

// solveReports registers reports, restoring cached chains when useCache is set
// and the cache matches. The registered scanners are returned with the result.
func (a *App) solveReports(ctx context.Context, reports map[int][]mesh.Vector3, useCache bool) (*mesh.Result, []*mesh.Scanner, error) {
	config, err := a.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	opts := config.Registration

	scanners, err := mesh.NewScanners(ctx, reports, opts.Workers)
	if err != nil {
		return nil, nil, err
	}

	if useCache && !a.opts.NoCache && a.opts.CalibrationCache != "" {
		cal, err := mesh.LoadCalibration(a.opts.CalibrationCache)
		if err != nil {
			logger.Warnf("[CALIBRATION] ignoring cache %s: %v", a.opts.CalibrationCache, err)
		} else if cal != nil {
			if _, err := cal.Restore(scanners, opts.Reference); err != nil {
				return nil, nil, fmt.Errorf("restoring calibration: %w", err)
			}
		}
	}

	result, err := mesh.SolveScanners(ctx, scanners, opts)
	if err != nil {
		return nil, nil, err
	}
	return result, scanners, nil
}

func (a *App) solve(ctx context.Context) (*mesh.Result, error) {
	reports, err := a.readReports()
	if err != nil {
		return nil, err
	}
	result, _, err := a.solveReports(ctx, reports, true)
	return result, err
}

// RunSolve prints the unique beacon count and the largest scanner distance
func (a *App) RunSolve(ctx context.Context, out io.Writer) error {
	result, err := a.solve(ctx)
	if err != nil {
		return err
	}

	switch a.opts.Part {
	case 1:
		_, err = fmt.Fprintln(out, result.UniqueBeacons)
	case 2:
		_, err = fmt.Fprintln(out, result.MaxScannerDistance)
	default:
		_, err = fmt.Fprintf(out, "unique beacons: %d\nmax scanner distance: %d\n",
			result.UniqueBeacons, result.MaxScannerDistance)
	}
	return err
}

// RunCalibrate registers every scanner from scratch and saves the chains
func (a *App) RunCalibrate(ctx context.Context, out io.Writer) error {
	reports, err := a.readReports()
	if err != nil {
		return err
	}

	result, scanners, err := a.solveReports(ctx, reports, false)
	if err != nil {
		return err
	}

	cal := mesh.NewCalibration(result.RunID, result.Reference, scanners)
	if err := mesh.SaveCalibration(a.opts.CalibrationCache, cal); err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "calibrated %d scanners (run %s), saved to %s\n",
		len(cal.Scanners), cal.RunID, a.opts.CalibrationCache)
	return err
}

// RunRender renders the unified beacons to the output file
func (a *App) RunRender(ctx context.Context, out io.Writer) error {
	result, err := a.solve(ctx)
	if err != nil {
		return err
	}
	config := a.Config

	switch a.opts.RenderFormat {
	case "vector":
		err = a.renderVector(result, config)
	default:
		err = mesh.NewRasterRenderer(result, config.Render, config.Scanners).SavePNG(a.opts.OutputFile)
	}
	if err != nil {
		return fmt.Errorf("rendering %s: %w", a.opts.OutputFile, err)
	}

	_, err = fmt.Fprintf(out, "rendered %d beacons to %s\n", result.UniqueBeacons, a.opts.OutputFile)
	return err
}

func (a *App) renderVector(result *mesh.Result, config *mesh.Config) error {
	f, err := os.Create(a.opts.OutputFile)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	renderer := mesh.NewVectorRenderer(result, config.Render, config.Scanners)
	if a.opts.VectorFormat == "png" {
		return renderer.RenderToPNG(f)
	}
	return renderer.RenderToSVG(f)
}

// RunExport writes the result as GeoJSON to the output file, or out for "-"
func (a *App) RunExport(ctx context.Context, out io.Writer) error {
	result, err := a.solve(ctx)
	if err != nil {
		return err
	}

	if a.opts.OutputFile == "-" {
		data, err := mesh.ResultToGeoJSON(result).MarshalJSON()
		if err != nil {
			return fmt.Errorf("marshaling GeoJSON: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	if err := mesh.SaveGeoJSON(a.opts.OutputFile, result); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "exported %d beacons to %s\n", result.UniqueBeacons, a.opts.OutputFile)
	return err
}

// handleReports solves reports received over MQTT and publishes the result
func (a *App) handleReports(ctx context.Context, reports map[int][]mesh.Vector3, err error) {
	if err != nil {
		a.StateTracker.SetError(err)
		return
	}

	// One solve at a time; results replace each other in arrival order
	a.solveMu.Lock()
	defer a.solveMu.Unlock()

	result, _, err := a.solveReports(ctx, reports, false)
	if err != nil {
		logger.Errorf("[SOLVE] %v", err)
		a.StateTracker.SetError(err)
		return
	}
	a.StateTracker.SetResult(result)

	if a.Publisher != nil {
		if err := a.Publisher.PublishResult(result); err != nil {
			logger.Warnf("[MQTT] publish failed: %v", err)
		}
	}
}

// RunService serves the latest result over HTTP until ctx is cancelled.
// The input file is solved on startup when present. With MQTT enabled,
// results are published and reports on the report topic are re-solved.
func (a *App) RunService(ctx context.Context, out io.Writer) error {
	_, _ = fmt.Fprintf(out, "Starting beaconmesh service %s...\n", Version)

	config, err := a.loadConfig()
	if err != nil {
		return err
	}

	if _, statErr := os.Stat(a.opts.InputFile); statErr == nil || a.opts.InputFile == "-" {
		result, err := a.solve(ctx)
		if err != nil {
			logger.Errorf("[SOLVE] initial input %s: %v", a.opts.InputFile, err)
			a.StateTracker.SetError(err)
		} else {
			a.StateTracker.SetResult(result)
		}
	} else {
		logger.Infof("[SOLVE] no input at %s, waiting for reports", a.opts.InputFile)
	}

	if a.opts.MqttMode {
		client, err := mesh.InitMQTT(config, func(reports map[int][]mesh.Vector3, err error) {
			a.handleReports(ctx, reports, err)
		})
		if err != nil {
			return fmt.Errorf("starting MQTT: %w", err)
		}
		if client != nil {
			a.MQTTClient = client
			a.Publisher = mesh.NewPublisher(client.GetClient(), client.PublishPrefix())
			defer client.Disconnect()
			go a.publishWhenConnected(ctx)
		}
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.opts.HttpPort),
		Handler:           newHTTPServer(a.StateTracker, config),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("[HTTP] listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	_, _ = fmt.Fprintln(out, "Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// publishWhenConnected publishes the startup result once the broker connection is up
func (a *App) publishWhenConnected(ctx context.Context) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		result := a.StateTracker.Result()
		if result == nil {
			return
		}
		err := a.Publisher.PublishResult(result)
		if errors.Is(err, mesh.ErrNotConnected) {
			continue
		}
		if err != nil {
			logger.Warnf("[MQTT] publish failed: %v", err)
		}
		return
	}
}
