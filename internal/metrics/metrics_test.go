package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestRecordRow(t *testing.T) {
	// Reset metrics before test
	rowsTotal.Reset()

	RecordRow("merged")
	RecordRow("merged")
	RecordRow("unresolved")

	metric := &dto.Metric{}
	if err := rowsTotal.WithLabelValues("merged").Write(metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2 {
		t.Errorf("Expected counter value 2, got %f", metric.Counter.GetValue())
	}

	metric = &dto.Metric{}
	if err := rowsTotal.WithLabelValues("unresolved").Write(metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 1 {
		t.Errorf("Expected counter value 1, got %f", metric.Counter.GetValue())
	}
}

func TestRecordResolve(t *testing.T) {
	resolveTotal.Reset()

	RecordResolve("recursive-scan")

	metric := &dto.Metric{}
	if err := resolveTotal.WithLabelValues("recursive-scan").Write(metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 1 {
		t.Errorf("Expected counter value 1, got %f", metric.Counter.GetValue())
	}
}

func TestRecordDecode(t *testing.T) {
	decodeDuration.Reset()

	RecordDecode("mp3", 20*time.Millisecond, nil)
	RecordDecode("ffmpeg", 2*time.Second, errors.New("exit 1"))

	metric := &dto.Metric{}
	histogram := decodeDuration.WithLabelValues("ffmpeg", "failed").(prometheus.Histogram)
	if err := histogram.Write(metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 1 {
		t.Errorf("Expected 1 sample, got %d", metric.Histogram.GetSampleCount())
	}
	if metric.Histogram.GetSampleSum() != 2 {
		t.Errorf("Expected sum 2, got %f", metric.Histogram.GetSampleSum())
	}
}

func TestRecordRun(t *testing.T) {
	RecordRun(9000, time.Unix(1700000000, 0))

	metric := &dto.Metric{}
	if err := mergedDuration.Write(metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Gauge.GetValue() != 9 {
		t.Errorf("Expected gauge 9, got %f", metric.Gauge.GetValue())
	}
}

func TestWriteTextfile(t *testing.T) {
	rowsTotal.Reset()
	RecordRow("merged")

	path := filepath.Join(t.TempDir(), "clipmerge.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), `clipmerge_rows_total{outcome="merged"} 1`) {
		t.Errorf("textfile missing row counter:\n%s", data)
	}
}
