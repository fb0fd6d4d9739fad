package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info", "json")

	logger.Debug("hidden")
	logger.Info("file loaded", "file", "2020-01.csv", "encoding", "latin-1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "file loaded", entry["msg"])
	assert.Equal(t, "latin-1", entry["encoding"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "debug", "text")

	logger.Debug("aggregated", "months", 12)

	assert.Contains(t, buf.String(), "msg=aggregated")
	assert.Contains(t, buf.String(), "months=12")
}

func TestNewMetricsForTesting_Registerable(t *testing.T) {
	m := NewMetricsForTesting()
	reg := prometheus.NewRegistry()
	require.NoError(t, func() error {
		for _, c := range m.collectors() {
			if err := reg.Register(c); err != nil {
				return err
			}
		}
		return nil
	}())

	m.RowsDropped.WithLabelValues("negative_duration").Add(3)
	m.FilesLoaded.WithLabelValues("utf-8").Inc()

	assert.Equal(t, 3.0, testutil.ToFloat64(m.RowsDropped.WithLabelValues("negative_duration")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FilesLoaded.WithLabelValues("utf-8")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RowsDropped))
}
