// Package pipeline runs the single-pass extraction: open the remote archive,
// cut the configured time/space subset, reduce it to an hourly area-mean
// series, compute QA metrics, and write the gridded and tabular artifacts.
// Every failure is fatal to the run; there is no retry.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hydroclim/aorc-extract/internal/adapter/csvfile"
	"github.com/hydroclim/aorc-extract/internal/adapter/netcdf"
	"github.com/hydroclim/aorc-extract/internal/adapter/zarr"
	"github.com/hydroclim/aorc-extract/internal/config"
	"github.com/hydroclim/aorc-extract/internal/domain"
	"github.com/hydroclim/aorc-extract/internal/observability"
)

// Fatal conditions the job distinguishes for callers and tests.
var (
	// ErrVariableNotFound reports the required variable absent from the archive.
	ErrVariableNotFound = errors.New("missing variable")
	// ErrCoordinateNotFound reports an absent time, latitude or longitude axis.
	ErrCoordinateNotFound = errors.New("coordinate not found")
	// ErrEmptySubset reports a requested window that selects no data.
	ErrEmptySubset = errors.New("empty subset")
)

// Result summarizes one completed run.
type Result struct {
	Steps        int
	MissingHours int
	MaxValue     float64
	MaxTime      time.Time
	SubsetPath   string
	AreaMeanPath string
}

// Job is one configured extraction run over an opened store.
type Job struct {
	store   zarr.Store
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Job with the given store and observability.
func New(store zarr.Store, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Job {
	return &Job{store: store, cfg: cfg, logger: logger, metrics: metrics}
}

// Run executes the extraction end to end and reports what it did.
func (j *Job) Run(ctx context.Context) (*Result, error) {
	runStart := time.Now()
	defer func() {
		j.metrics.RunDuration.Set(time.Since(runStart).Seconds())
	}()

	start := time.Now()
	ds, err := zarr.Open(ctx, j.store, j.cfg.FetchWorkers, j.logger)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	j.observeStage("open", start)
	j.logger.Info("archive opened",
		"consolidated", ds.Consolidated(),
		"arrays", len(ds.VarNames()),
	)

	start = time.Now()
	j.logger.Info("subsetting in time and space")
	sub, err := resolveSubset(ctx, ds, j.cfg)
	if err != nil {
		return nil, err
	}
	j.observeStage("subset", start)
	j.logger.Info("subset resolved",
		"time_steps", len(sub.times),
		"rows", len(sub.lats),
		"cols", len(sub.lons),
		"first_step", sub.times[0],
		"last_step", sub.times[len(sub.times)-1],
	)

	start = time.Now()
	grid, series, err := j.aggregate(ctx, sub)
	if err != nil {
		return nil, err
	}
	j.observeStage("aggregate", start)

	start = time.Now()
	j.logger.Info("computing qa metrics")
	res := &Result{Steps: series.Len()}
	expected := domain.HourlyRange(j.cfg.TimeStart, j.cfg.TimeEnd)
	res.MissingHours = series.MissingHours(expected)
	j.metrics.MissingHours.Set(float64(res.MissingHours))
	j.logger.Info("missing hours in requested period",
		"missing", res.MissingHours,
		"expected", len(expected),
	)
	if maxVal, maxAt, ok := series.Max(); ok {
		res.MaxValue, res.MaxTime = maxVal, maxAt
		j.metrics.MaxAreaMean.Set(maxVal)
		j.logger.Info("max hourly area mean", "value", maxVal, "at", maxAt)
	} else {
		j.logger.Warn("series has no finite values, max undefined")
	}
	j.observeStage("qa", start)

	start = time.Now()
	if err := os.MkdirAll(j.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	res.SubsetPath = j.cfg.SubsetPath()
	j.logger.Info("writing gridded subset", "path", res.SubsetPath)
	if err := netcdf.WriteGrid(res.SubsetPath, grid); err != nil {
		return nil, err
	}
	res.AreaMeanPath = j.cfg.AreaMeanPath()
	j.logger.Info("writing area-mean series", "path", res.AreaMeanPath)
	if err := csvfile.WriteSeries(res.AreaMeanPath, j.cfg.Variable+"_area_mean", series); err != nil {
		return nil, err
	}
	j.observeStage("write", start)

	j.logger.Info("run complete", "steps", res.Steps, "duration", time.Since(runStart))
	return res, nil
}

// aggregate materializes the subset in time batches sized to the storage
// chunking, filling the grid and reducing every step to its area-weighted
// spatial mean as it lands.
func (j *Job) aggregate(ctx context.Context, sub *subset) (*domain.Grid, domain.Series, error) {
	grid := domain.NewGrid(sub.variable.Name(), sub.units, sub.times, sub.lats, sub.lons)
	weights := domain.CosineLatWeights(sub.lats)
	values := make([]float64, len(sub.times))

	nt, ny, nx := len(sub.times), len(sub.lats), len(sub.lons)
	batch := sub.timeChunk
	if batch < 1 {
		batch = 1
	}
	j.logger.Info("aggregating", "batch_steps", batch, "batches", (nt+batch-1)/batch)

	for off := 0; off < nt; off += batch {
		bn := min(batch, nt-off)
		flat, err := sub.variable.Read(ctx, sub.selection(off, bn))
		if err != nil {
			return nil, domain.Series{}, fmt.Errorf("read steps %d-%d: %w", off, off+bn-1, err)
		}
		sub.scatter(flat, bn, grid.Values[off*ny*nx:(off+bn)*ny*nx])
		for s := 0; s < bn; s++ {
			values[off+s] = domain.AreaMean(grid.Plane(off+s), weights, nx)
		}
		j.metrics.StepsProcessed.Add(float64(bn))
	}

	return grid, domain.Series{Times: sub.times, Values: values}, nil
}

func (j *Job) observeStage(stage string, start time.Time) {
	j.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
