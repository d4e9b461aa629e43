package grid

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/gridstitch/internal/heif"
	"github.com/GriffinCanCode/gridstitch/internal/infrastructure/logging"
	"github.com/GriffinCanCode/gridstitch/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/gridstitch/internal/shared/paths"
)

// FileResult collects the grids processed from one input container.
type FileResult struct {
	Input string        `json:"input"`
	Info  heif.FileInfo `json:"info"`
	Grids []*Result     `json:"grids"`
	Error string        `json:"error,omitempty"`
}

// Failed counts grids that did not produce an output.
func (f *FileResult) Failed() int {
	n := 0
	for _, g := range f.Grids {
		if g.Error != "" {
			n++
		}
	}
	return n
}

// Driver walks every grid item of a container through a Pipeline.
type Driver struct {
	Pipeline *Pipeline
	OutDir   string
	Format   string
	// PrefixInput prepends the input's base name to output names, for runs
	// over several containers.
	PrefixInput bool
	Logger      *logging.Logger
}

// Run processes all grids in r. A failing grid is logged and recorded in
// the result; processing continues with the next one. The error is non-nil
// only when the grid list itself cannot be read or ctx is done.
func (d *Driver) Run(ctx context.Context, input string, r heif.Reader) (*FileResult, error) {
	logger := d.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	log := logger.With(zap.String("input", input))

	fr := &FileResult{Input: input, Info: r.FileInformation()}
	log.Debug("container opened",
		zap.String("brand", fr.Info.MajorBrand),
		zap.Strings("compatible", fr.Info.CompatibleBrands),
		zap.Int("items", fr.Info.Items))

	ids, err := r.ItemsByType(heif.ItemTypeGrid)
	if err != nil {
		fr.Error = err.Error()
		return fr, fmt.Errorf("listing grid items: %w", err)
	}
	if len(ids) == 0 {
		log.Info("no grid items found")
		return fr, nil
	}
	log.Info("found grid items", zap.Int("grids", len(ids)))

	if err := os.MkdirAll(d.OutDir, 0o755); err != nil {
		fr.Error = err.Error()
		return fr, fmt.Errorf("creating output directory: %w", err)
	}

	for _, gid := range ids {
		if err := ctx.Err(); err != nil {
			fr.Error = err.Error()
			return fr, context.Cause(ctx)
		}

		grid, err := r.Grid(gid)
		if err != nil {
			log.Error("reading grid descriptor", zap.Uint32("grid", gid), zap.Error(err))
			fr.Grids = append(fr.Grids, &Result{GridID: gid, Status: monitoring.StatusFailed, Error: err.Error()})
			continue
		}

		output := paths.GridOutputFor(d.OutDir, input, d.PrefixInput, gid, d.Format)
		res, err := d.Pipeline.Process(ctx, r, grid, output)
		fr.Grids = append(fr.Grids, res)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fr, err
		}
	}
	return fr, nil
}
