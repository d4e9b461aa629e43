package grid

import (
	"fmt"
	"os"
	"time"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/gridstitch/internal/shared/id"
)

// Report is the machine-readable summary of one CLI run.
type Report struct {
	RunID    string        `json:"run_id"`
	Started  time.Time     `json:"started"`
	Finished time.Time     `json:"finished"`
	Files    []*FileResult `json:"files"`
	Grids    int           `json:"grids"`
	Failed   int           `json:"failed"`
}

// NewReport starts the report for one run. The start time is the moment the
// run id was minted.
func NewReport(runID id.RunID) *Report {
	return &Report{RunID: runID.String(), Started: runID.Time()}
}

// Add records one input's results.
func (r *Report) Add(fr *FileResult) {
	r.Files = append(r.Files, fr)
	r.Grids += len(fr.Grids)
	r.Failed += fr.Failed()
}

// Marshal encodes the report as indented JSON.
func (r *Report) Marshal() ([]byte, error) {
	return sonic.ConfigStd.MarshalIndent(r, "", "  ")
}

// WriteFile writes the report to path, replacing it atomically.
func (r *Report) WriteFile(path string) error {
	data, err := r.Marshal()
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// ReadReport loads a report written by WriteFile.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := sonic.ConfigStd.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding report %s: %w", path, err)
	}
	if _, err := id.ParseRunID(r.RunID); err != nil {
		return nil, fmt.Errorf("report %s: %w", path, err)
	}
	return &r, nil
}
