package monitoring

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordGrid(StatusSuccess, time.Second)
		m.RecordTileFed(10)
		m.RecordTileDrained(10, true)
		m.RecordTilesLost(2)
		m.RecordEncoded(10)
		m.RecordProcessStart(StageDecode, errors.New("boom"))
		m.RecordProcessFailure(StageEncode)
		NewTimer(m).Stop(StatusFailed)
	})
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "unused.prom")))
}

func TestRecordTiles(t *testing.T) {
	m := NewMetrics()

	m.RecordTileFed(100)
	m.RecordTileFed(50)
	m.RecordTileDrained(300, false)
	m.RecordTileDrained(120, true)
	m.RecordEncoded(900)
	m.RecordTilesLost(3)
	m.RecordTilesLost(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TilesFed))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TilesDrained))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TilesShort))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.TilesLost))
	assert.Equal(t, 150.0, testutil.ToFloat64(m.BytesWritten.WithLabelValues(StageDecode)))
	assert.Equal(t, 900.0, testutil.ToFloat64(m.BytesWritten.WithLabelValues(StageEncode)))
	assert.Equal(t, 420.0, testutil.ToFloat64(m.BytesRead.WithLabelValues(StageDecode)))
}

func TestRecordProcess(t *testing.T) {
	m := NewMetrics()

	m.RecordProcessStart(StageDecode, nil)
	m.RecordProcessStart(StageDecode, errors.New("exec format error"))
	m.RecordProcessFailure(StageEncode)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ProcessStarts.WithLabelValues(StageDecode)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProcessFailures.WithLabelValues(StageDecode)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProcessFailures.WithLabelValues(StageEncode)))
}

func TestTimerRecordsGrid(t *testing.T) {
	m := NewMetrics()

	d := NewTimer(m).Stop(StatusSuccess)
	assert.GreaterOrEqual(t, d, time.Duration(0))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GridsTotal.WithLabelValues(StatusSuccess)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.GridDuration))
}

func TestWriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.RecordGrid(StatusFailed, 2*time.Second)

	path := filepath.Join(t.TempDir(), "gridstitch.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, `gridstitch_grids_total{status="failed"} 1`), text)
	assert.Contains(t, text, "gridstitch_grid_duration_seconds_bucket")
}
