package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/vango-dev/editstream/pkg/protocol"
)

func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return New(WithRegistry(reg), WithNamespace("test")), reg
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if matches(m, labels) {
				switch {
				case m.Counter != nil:
					return m.GetCounter().GetValue()
				case m.Gauge != nil:
					return m.GetGauge().GetValue()
				case m.Histogram != nil:
					return float64(m.GetHistogram().GetSampleCount())
				}
			}
		}
	}
	return 0
}

func matches(m *dto.Metric, labels map[string]string) bool {
	for _, lp := range m.GetLabel() {
		if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
			return false
		}
	}
	return true
}

func TestCollectorApply(t *testing.T) {
	c, reg := newTestCollector(t)

	c.ObserveApply(6, time.Millisecond, nil)
	c.ObserveApply(2, time.Millisecond, &protocol.RenderError{Err: protocol.ErrUnknownID})

	if v := counterValue(t, reg, "test_applies_total", map[string]string{"code": "OK"}); v != 1 {
		t.Errorf("ok applies = %v", v)
	}
	if v := counterValue(t, reg, "test_applies_total", map[string]string{"code": "UnknownId"}); v != 1 {
		t.Errorf("unknown-id applies = %v", v)
	}
	if v := counterValue(t, reg, "test_apply_edits", nil); v != 2 {
		t.Errorf("apply_edits samples = %v", v)
	}
}

func TestCollectorScheduler(t *testing.T) {
	c, reg := newTestCollector(t)

	c.ObserveDelivery("event", nil)
	c.ObserveDelivery("event", errors.New("handler"))
	c.ObserveDelivery("task", nil)
	c.ObserveCancel()
	c.ObserveCancel()
	c.ObserveCycle(3, time.Millisecond, nil)

	tests := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"test_deliveries_total", map[string]string{"source": "event", "status": "ok"}, 1},
		{"test_deliveries_total", map[string]string{"source": "event", "status": "error"}, 1},
		{"test_deliveries_total", map[string]string{"source": "task", "status": "ok"}, 1},
		{"test_diff_cancellations_total", nil, 2},
		{"test_cycles_total", map[string]string{"code": "OK"}, 1},
	}
	for _, tc := range tests {
		if v := counterValue(t, reg, tc.name, tc.labels); v != tc.want {
			t.Errorf("%s%v = %v, want %v", tc.name, tc.labels, v, tc.want)
		}
	}
}

func TestCollectorBridgeAndTransport(t *testing.T) {
	c, reg := newTestCollector(t)

	c.ObserveTranslate("click", nil)
	c.ObserveTranslate("touchstart", protocol.ErrUnsupportedEvent)
	c.ObserveSession(true)
	c.ObserveSession(true)
	c.ObserveSession(false)
	c.ObserveFrame("out", protocol.FrameEdits, 10)
	c.ObserveFrame("out", protocol.FrameEdits, 5)

	if v := counterValue(t, reg, "test_event_translations_total", map[string]string{"code": "UnsupportedEvent"}); v != 1 {
		t.Errorf("unsupported translations = %v", v)
	}
	if v := counterValue(t, reg, "test_active_sessions", nil); v != 1 {
		t.Errorf("active sessions = %v", v)
	}
	if v := counterValue(t, reg, "test_frames_total", map[string]string{"direction": "out", "type": "Edits"}); v != 2 {
		t.Errorf("frames = %v", v)
	}
	if v := counterValue(t, reg, "test_frame_bytes_total", map[string]string{"direction": "out"}); v != 15 {
		t.Errorf("frame bytes = %v", v)
	}
}
