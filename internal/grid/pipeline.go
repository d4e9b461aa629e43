package grid

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/gridstitch/internal/childproc"
	"github.com/GriffinCanCode/gridstitch/internal/heif"
	"github.com/GriffinCanCode/gridstitch/internal/infrastructure/logging"
	"github.com/GriffinCanCode/gridstitch/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/gridstitch/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/gridstitch/internal/shared/id"
	"github.com/GriffinCanCode/gridstitch/internal/shared/paths"
	"github.com/GriffinCanCode/gridstitch/internal/shared/utils"
	"github.com/GriffinCanCode/gridstitch/internal/stitch"
)

var ErrHeterogeneousTiles = errors.New("grid tiles differ in size")

// Options tunes a Pipeline.
type Options struct {
	// SampleBufferSize caps the size of one compressed tile sample.
	SampleBufferSize int
	// StrictTiles fails a grid on a short decoded tile instead of
	// zero-filling it.
	StrictTiles bool
	// DumpRaw writes the uncropped canvas next to the output.
	DumpRaw bool
	// MaxLaunchFailures consecutive transcoder launch failures per stage
	// skip the remaining grids. Zero never skips.
	MaxLaunchFailures uint32
}

// Result describes one processed grid.
type Result struct {
	GridID     uint32           `json:"grid_id"`
	RunID      string           `json:"run_id"`
	Status     string           `json:"status"`
	Error      string           `json:"error,omitempty"`
	Output     string           `json:"output,omitempty"`
	RawDump    string           `json:"raw_dump,omitempty"`
	Rows       int              `json:"rows"`
	Columns    int              `json:"columns"`
	TileWidth  int              `json:"tile_width,omitempty"`
	TileHeight int              `json:"tile_height,omitempty"`
	Width      int              `json:"width"`
	Height     int              `json:"height"`
	TilesFed   int              `json:"tiles_fed"`
	Drained    int              `json:"tiles_drained"`
	ShortTiles []stitch.TilePos `json:"short_tiles,omitempty"`
	Bytes      int64            `json:"bytes,omitempty"`
	Digest     string           `json:"digest,omitempty"`
	Algorithm  string           `json:"digest_algorithm,omitempty"`
	Duration   time.Duration    `json:"duration_ns"`
}

// Pipeline turns one grid into one output image: it decodes every tile
// through the transcoder, stitches the canvas and encodes the cropped
// result. Grids are processed one at a time; a Pipeline is not safe for
// concurrent use.
type Pipeline struct {
	transcoder *Transcoder
	opts       Options
	logger     *logging.Logger
	metrics    *monitoring.Metrics
	hasher     *utils.Hasher

	decodeBreaker *resilience.Breaker
	encodeBreaker *resilience.Breaker

	// samples is reused across grids.
	samples []byte
}

// NewPipeline creates a pipeline. logger and metrics may be nil.
func NewPipeline(tc *Transcoder, opts Options, logger *logging.Logger, metrics *monitoring.Metrics) *Pipeline {
	if logger == nil {
		logger = logging.Nop()
	}
	p := &Pipeline{
		transcoder: tc,
		opts:       opts,
		logger:     logger,
		metrics:    metrics,
		hasher:     utils.DefaultHasher(),
	}
	p.decodeBreaker = p.newBreaker(monitoring.StageDecode)
	p.encodeBreaker = p.newBreaker(monitoring.StageEncode)
	return p
}

func (p *Pipeline) newBreaker(stage string) *resilience.Breaker {
	return resilience.New(stage, resilience.Settings{
		MaxFailures: p.opts.MaxLaunchFailures,
		OnStateChange: func(name string, from, to resilience.State) {
			p.logger.Warn("transcoder launch breaker changed state",
				zap.String("stage", name), zap.Stringer("from", from), zap.Stringer("to", to))
		},
	})
}

// Process decodes, stitches and encodes grid into output. The returned
// Result is never nil; on failure no file exists at output.
func (p *Pipeline) Process(ctx context.Context, r heif.Reader, grid heif.Grid, output string) (*Result, error) {
	runID := id.NewGridRunID()
	log := p.logger.ForGrid(runID.String(), grid.ID)
	timer := monitoring.NewTimer(p.metrics)

	res := &Result{
		GridID:  grid.ID,
		RunID:   runID.String(),
		Rows:    grid.Rows,
		Columns: grid.Columns,
		Width:   grid.OutputWidth,
		Height:  grid.OutputHeight,
	}

	err := p.process(ctx, log, r, grid, output, res)

	status := monitoring.StatusSuccess
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		status = monitoring.StatusSkipped
	case err != nil:
		status = monitoring.StatusFailed
	}
	res.Status = status
	res.Duration = timer.Stop(status)

	if err != nil {
		res.Error = err.Error()
		log.Error("grid failed", zap.String("status", status), zap.Duration("duration", res.Duration), zap.Error(err))
		return res, err
	}
	log.Info("grid written",
		zap.String("output", output),
		zap.Int("width", res.Width), zap.Int("height", res.Height),
		zap.Int("short_tiles", len(res.ShortTiles)),
		zap.String("digest", utils.ShortHash(res.Digest)),
		zap.Duration("duration", res.Duration))
	return res, nil
}

func (p *Pipeline) process(ctx context.Context, log *zap.Logger, r heif.Reader, grid heif.Grid, output string, res *Result) error {
	if grid.Tiles() <= 0 || len(grid.ImageIDs) == 0 {
		return fmt.Errorf("grid %d: %w", grid.ID, stitch.ErrEmptyGrid)
	}

	tileWidth, tileHeight, err := tileSize(r, grid.ImageIDs)
	if err != nil {
		return err
	}
	res.TileWidth, res.TileHeight = tileWidth, tileHeight

	geom, err := stitch.NewGeometry(grid.Rows, grid.Columns, tileWidth, tileHeight)
	if err != nil {
		return err
	}
	if err := geom.CheckCrop(grid.OutputWidth, grid.OutputHeight); err != nil {
		return err
	}
	log.Debug("grid geometry",
		zap.Int("rows", geom.Rows), zap.Int("columns", geom.Columns),
		zap.Int("tile_width", tileWidth), zap.Int("tile_height", tileHeight),
		zap.Int("canvas_width", geom.FinalWidth), zap.Int("canvas_height", geom.FinalHeight))

	buffers := stitch.NewBuffers(geom)
	if err := p.decode(ctx, log, r, grid, geom, buffers, res); err != nil {
		return err
	}

	if err := p.encode(ctx, log, geom, buffers.Final, grid.OutputWidth, grid.OutputHeight, output); err != nil {
		return err
	}
	res.Output = output

	if p.opts.DumpRaw {
		dump := paths.RawDump(output)
		n, err := writeRawDump(dump, buffers.Final)
		if err != nil {
			log.Warn("raw canvas dump failed", zap.String("path", dump), zap.Error(err))
		} else {
			res.RawDump = dump
			log.Debug("raw canvas dumped", zap.String("path", dump), zap.Int64("bytes", n),
				zap.Int("width", geom.FinalWidth), zap.Int("height", geom.FinalHeight))
		}
	}

	digest, n, err := p.hasher.HashFile(output)
	if err != nil {
		log.Warn("digesting output failed", zap.Error(err))
		return nil
	}
	res.Digest, res.Bytes, res.Algorithm = digest, n, string(p.hasher.Algorithm())
	return nil
}

// tileSize reads the first tile's dimensions and checks every other tile
// against them.
func tileSize(r heif.Reader, ids []uint32) (int, int, error) {
	width, height, err := dimensions(r, ids[0])
	if err != nil {
		return 0, 0, err
	}
	for i, tid := range ids[1:] {
		w, h, err := dimensions(r, tid)
		if err != nil {
			return 0, 0, err
		}
		if w != width || h != height {
			return 0, 0, fmt.Errorf("%w: tile %d (item %d) is %dx%d, first tile is %dx%d",
				ErrHeterogeneousTiles, i+1, tid, w, h, width, height)
		}
	}
	return width, height, nil
}

func dimensions(r heif.Reader, item uint32) (int, int, error) {
	w, err := r.Width(item)
	if err != nil {
		return 0, 0, fmt.Errorf("tile item %d width: %w", item, err)
	}
	h, err := r.Height(item)
	if err != nil {
		return 0, 0, fmt.Errorf("tile item %d height: %w", item, err)
	}
	return w, h, nil
}

func (p *Pipeline) decode(ctx context.Context, log *zap.Logger, r heif.Reader, grid heif.Grid, geom stitch.Geometry, buffers *stitch.Buffers, res *Result) error {
	argv := p.transcoder.DecodeArgv(geom.TileWidth, geom.TileHeight)
	proc, err := p.start(monitoring.StageDecode, p.decodeBreaker, argv, log)
	if err != nil {
		return err
	}

	stitcher := &stitch.Stitcher{
		Geometry: geom,
		Buffers:  buffers,
		Samples:  p.sampleBuffer(),
		Strict:   p.opts.StrictTiles,
		Logger:   log,
		Metrics:  p.metrics,
	}
	report, runErr := stitcher.Run(ctx, proc, r, grid.ImageIDs)
	if report != nil {
		res.TilesFed = report.TilesFed
		res.Drained = report.TilesDrained
		res.ShortTiles = report.ShortTiles
	}

	// The decoder has produced everything it is going to; its exit status
	// only matters when the stitch itself failed.
	proc.Stop(false)
	if err := proc.Close(); err != nil {
		p.metrics.RecordProcessFailure(monitoring.StageDecode)
		if runErr != nil {
			return errors.Join(runErr, err)
		}
		log.Warn("decoder exited abnormally after a complete decode", zap.Error(err))
	}
	return runErr
}

func (p *Pipeline) encode(ctx context.Context, log *zap.Logger, geom stitch.Geometry, canvas []byte, width, height int, output string) (err error) {
	if err := ctx.Err(); err != nil {
		return context.Cause(ctx)
	}

	staging := paths.Staging(output)
	defer func() {
		if err != nil {
			if rmErr := os.Remove(staging); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				log.Warn("removing staging file", zap.String("path", staging), zap.Error(rmErr))
			}
		}
	}()

	argv := p.transcoder.EncodeArgv(width, height, staging)
	proc, err := p.start(monitoring.StageEncode, p.encodeBreaker, argv, log)
	if err != nil {
		return err
	}

	writeErr := geom.CropRows(canvas, width, height, func(row []byte) error {
		if _, err := proc.Write(row); err != nil {
			return err
		}
		p.metrics.RecordEncoded(len(row))
		return nil
	})
	proc.CloseInput()
	discardOutput(proc)
	proc.Stop(false)

	if exitErr := proc.Close(); exitErr != nil {
		p.metrics.RecordProcessFailure(monitoring.StageEncode)
		return errors.Join(writeErr, fmt.Errorf("encoder: %w", exitErr))
	}
	if writeErr != nil {
		return writeErr
	}

	if _, err := os.Stat(staging); err != nil {
		return fmt.Errorf("encoder exited cleanly but wrote nothing: %w", err)
	}
	if err := os.Rename(staging, output); err != nil {
		return fmt.Errorf("moving %s into place: %w", staging, err)
	}
	return nil
}

// discardOutput drains anything the encoder prints on stdout so it never
// blocks on a full pipe while finishing its file.
func discardOutput(proc *childproc.Process) {
	buf := make([]byte, 32*1024)
	for {
		n, err := proc.ReadFull(buf)
		if err != nil || n < len(buf) {
			return
		}
	}
}

func (p *Pipeline) start(stage string, breaker *resilience.Breaker, argv []string, log *zap.Logger) (*childproc.Process, error) {
	proc, err := resilience.Call(breaker, func() (*childproc.Process, error) {
		proc, err := childproc.Start(p.transcoder.Path, argv, childproc.Options{
			Stderr:   p.transcoder.Stderr,
			PipeSize: p.transcoder.PipeSize,
			Logger:   log,
		})
		p.metrics.RecordProcessStart(stage, err)
		return proc, err
	})
	if err != nil {
		return nil, fmt.Errorf("starting %s transcoder: %w", stage, err)
	}
	log.Debug("transcoder started", zap.String("stage", stage), zap.Int("pid", proc.Pid()))
	return proc, nil
}

func (p *Pipeline) sampleBuffer() []byte {
	if len(p.samples) != p.opts.SampleBufferSize {
		p.samples = make([]byte, p.opts.SampleBufferSize)
	}
	return p.samples
}
