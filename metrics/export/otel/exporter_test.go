package otel

import (
	"errors"
	"testing"

	"go.opentelemetry.io/otel/metric/noop"

	triauth "github.com/triauth/triauth"
)

type fakeSource struct{}

func (fakeSource) MetricsSnapshot() triauth.MetricsSnapshot {
	return triauth.MetricsSnapshot{
		Counters: map[triauth.MetricID]uint64{
			triauth.MetricLoginSuccess: 1,
		},
		Histograms: map[triauth.MetricID][]uint64{
			triauth.MetricLoginLatency: {1, 0, 0, 0, 0, 0, 0, 0},
		},
	}
}

func (fakeSource) AuditDropped() uint64 { return 0 }

func TestNewOTelExporterValidation(t *testing.T) {
	if _, err := NewOTelExporterFromSource(nil, fakeSource{}); !errors.Is(err, ErrNilMeter) {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}

	meter := noop.NewMeterProvider().Meter("triauth-test")
	if _, err := NewOTelExporterFromSource(meter, nil); !errors.Is(err, ErrNilSource) {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
}

func TestNewOTelExporterRegistersAndCloses(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("triauth-test")

	exporter, err := NewOTelExporterFromSource(meter, fakeSource{})
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	if err := exporter.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	var nilExporter *OTelExporter
	if err := nilExporter.Close(); err != nil {
		t.Fatalf("nil Close failed: %v", err)
	}
}
