package stitch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/gridstitch/internal/infrastructure/monitoring"
)

var (
	ErrProcessDied = errors.New("decoder process stopped")
	ErrIncomplete  = errors.New("decoder output ended before all tiles")
	ErrShortTile   = errors.New("decoded tile is incomplete")
)

// Process is the decoder side of the pipes, satisfied by *childproc.Process.
type Process interface {
	Write(b []byte) (int, error)
	ReadFull(buf []byte) (int, error)
	Ready() bool
	CloseInput()
	Stop(force bool)
}

// SampleSource fetches one tile's compressed bytes into buf and returns
// how many were written.
type SampleSource interface {
	ItemData(id uint32, buf []byte) (int, error)
}

// TilePos identifies one grid cell.
type TilePos struct {
	Index int `json:"index"`
	Row   int `json:"row"`
	Col   int `json:"col"`
	Bytes int `json:"bytes"`
}

// Report summarizes one decode pass. It is complete once Run returns.
type Report struct {
	TilesFed     int
	TilesDrained int
	ShortTiles   []TilePos
	BytesFed     int64
}

// Stitcher runs one decode pass: it feeds every compressed tile to a
// started decoder while a second goroutine drains decoded tiles and copies
// them into the canvas.
type Stitcher struct {
	Geometry Geometry
	Buffers  *Buffers
	// Samples is the scratch buffer for compressed tiles. Its length is the
	// largest sample accepted.
	Samples []byte
	// Strict turns a short or missing decoded tile into a grid failure.
	Strict  bool
	Logger  *zap.Logger
	Metrics *monitoring.Metrics

	progress rate.Sometimes
}

// Run feeds tileIDs (row-major) into proc and stitches its output. The
// decoder input is half-closed once feeding ends, and the drain goroutine
// is always joined before Run returns. A feed failure fails the whole pass;
// decoder output that ends early only marks the missing tiles.
func (s *Stitcher) Run(ctx context.Context, proc Process, src SampleSource, tileIDs []uint32) (*Report, error) {
	if len(tileIDs) != s.Geometry.Tiles() {
		return nil, fmt.Errorf("grid lists %d tiles, geometry expects %d", len(tileIDs), s.Geometry.Tiles())
	}
	if s.Logger == nil {
		s.Logger = zap.NewNop()
	}
	s.progress = rate.Sometimes{First: 1, Interval: time.Second}

	report := &Report{}
	group, groupCtx := errgroup.WithContext(ctx)

	var drained int
	var short []TilePos
	group.Go(func() error {
		var err error
		drained, short, err = s.drain(proc)
		if err != nil {
			// Unblock a feeder stuck on a full pipe.
			proc.Stop(false)
		}
		return err
	})

	feedErr := s.feed(groupCtx, proc, src, tileIDs, report)
	proc.CloseInput()

	drainErr := group.Wait()
	report.TilesDrained = drained
	report.ShortTiles = short

	if feedErr != nil {
		return report, feedErr
	}
	if drainErr != nil {
		return report, drainErr
	}
	return report, nil
}

func (s *Stitcher) feed(ctx context.Context, proc Process, src SampleSource, tileIDs []uint32, report *Report) error {
	for i, id := range tileIDs {
		row, col := s.Geometry.Position(i)
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("feeding tile %d (row %d col %d): %w", i, row, col, context.Cause(ctx))
		}

		n, err := src.ItemData(id, s.Samples)
		if err != nil {
			s.Logger.Error("failed retrieving encoded tile data",
				zap.Uint32("item", id), zap.Int("tile", i), zap.Int("row", row), zap.Int("col", col), zap.Error(err))
			return fmt.Errorf("fetching tile %d (item %d): %w", i, id, err)
		}

		if _, err := proc.Write(s.Samples[:n]); err != nil {
			s.Logger.Error("failed feeding tile to decoder",
				zap.Uint32("item", id), zap.Int("tile", i), zap.Error(err))
			return fmt.Errorf("feeding tile %d (item %d): %w", i, id, err)
		}
		report.TilesFed++
		report.BytesFed += int64(n)
		s.Metrics.RecordTileFed(n)

		if i+1 < len(tileIDs) && !proc.Ready() {
			s.Logger.Error("decoder stopped while feeding", zap.Uint32("item", id), zap.Int("tile", i))
			return fmt.Errorf("after tile %d (item %d): %w", i, id, ErrProcessDied)
		}
	}
	return nil
}

// drain reads one tile's worth of bytes per cell in the order the tiles
// were fed. Decoded streams carry no tile boundaries, so position is the
// only synchronization. When the decoder output ends or the process goes
// away, the remaining cells are recorded as lost and the canvas keeps what
// arrived; only Strict turns that into an error.
func (s *Stitcher) drain(proc Process) (int, []TilePos, error) {
	g := s.Geometry
	tile := s.Buffers.Tile
	var short []TilePos
	drained := 0

	for i := 0; i < g.Tiles(); i++ {
		row, col := g.Position(i)
		n, err := proc.ReadFull(tile)
		if err != nil {
			s.Logger.Error("decoder read failed", zap.Int("row", row), zap.Int("col", col), zap.Error(err))
			return drained, s.lose(proc, short, i), s.halted(row, col, err)
		}
		if n == 0 {
			return drained, s.lose(proc, short, i), s.halted(row, col, nil)
		}
		drained++

		if n < len(tile) {
			s.Logger.Warn("incomplete decoded data",
				zap.Int("row", row), zap.Int("col", col), zap.Int("bytes", n), zap.Int("expected", len(tile)))
			short = append(short, TilePos{Index: i, Row: row, Col: col, Bytes: n})
			if s.Strict {
				s.Metrics.RecordTileDrained(n, true)
				return drained, short, fmt.Errorf("row %d col %d: %w (%d of %d bytes)", row, col, ErrShortTile, n, len(tile))
			}
			clear(tile[n:])
		}

		g.Place(s.Buffers.Final, tile, row, col)
		s.Metrics.RecordTileDrained(n, n < len(tile))
		s.progress.Do(func() {
			s.Logger.Debug("stitching", zap.Int("tile", i+1), zap.Int("of", g.Tiles()))
		})

		if n < len(tile) && !proc.Ready() && i+1 < g.Tiles() {
			next, nextCol := g.Position(i + 1)
			return drained, s.lose(proc, short, i+1), s.halted(next, nextCol, nil)
		}
	}
	return drained, short, nil
}

// lose records every cell from index first onwards as missing and stops
// the process so a feeder blocked on its input returns.
func (s *Stitcher) lose(proc Process, short []TilePos, first int) []TilePos {
	proc.Stop(false)
	g := s.Geometry
	for i := first; i < g.Tiles(); i++ {
		row, col := g.Position(i)
		short = append(short, TilePos{Index: i, Row: row, Col: col})
	}
	missing := g.Tiles() - first
	s.Metrics.RecordTilesLost(missing)
	s.Logger.Warn("decoder output ended early",
		zap.Int("tile", first), zap.Int("missing_tiles", missing))
	return short
}

func (s *Stitcher) halted(row, col int, cause error) error {
	if !s.Strict {
		return nil
	}
	if cause != nil {
		return fmt.Errorf("row %d col %d: %w: %w", row, col, ErrIncomplete, cause)
	}
	return fmt.Errorf("row %d col %d: %w", row, col, ErrIncomplete)
}
