package storage

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	e := newTestEngine(t, Config{Metrics: m})

	_, err := e.UploadFile("a", []byte("12345"), "text/plain", nil)
	require.NoError(t, err)
	_, err = e.CreateFileVersion("a", []byte("123"))
	require.NoError(t, err)
	_, err = e.DownloadFile("a")
	require.NoError(t, err)
	_, err = e.UploadFile("a", nil, "text/plain", nil)
	assert.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("upload", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("upload", "FileAlreadyExists")))
	assert.Equal(t, 8.0, testutil.ToFloat64(m.BytesUploaded))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.BytesDownloaded))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.UsedBytes))
	assert.Equal(t, float64(Capacity), testutil.ToFloat64(m.CapacityBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Files))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RetainedVersions))

	require.NoError(t, e.DeleteFile("a"))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.UsedBytes))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Files))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.recordOperation("upload", nil, 0)
	m.recordUpload(1)
	m.recordDownload(1)
	m.updateState(0, 0, 0, 0)
}
