package analyzer

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestPerformanceMetricsMarshalFlattensExtra(t *testing.T) {
	m := PerformanceMetrics{
		TTFB:                 12.5,
		DOMContentLoaded:     340,
		WindowLoad:           900,
		FirstContentfulPaint: ptr(210),
		Extra: map[string]float64{
			"JSHeapUsedSize": 1048576,
			"Nodes":          412,
		},
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got := map[string]float64{}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal flat map: %v", err)
	}
	for k, want := range map[string]float64{
		"ttfb":                 12.5,
		"domContentLoaded":     340,
		"windowLoad":           900,
		"firstContentfulPaint": 210,
		"JSHeapUsedSize":       1048576,
		"Nodes":                412,
	} {
		if got[k] != want {
			t.Fatalf("key %q = %v, want %v", k, got[k], want)
		}
	}
	if _, ok := got["largestContentfulPaint"]; ok {
		t.Fatal("nil optional field must be omitted")
	}
}

func TestPerformanceMetricsNamedFieldsWinCollisions(t *testing.T) {
	m := PerformanceMetrics{
		TTFB:  50,
		Extra: map[string]float64{"ttfb": 9999, "Nodes": 7},
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got := map[string]float64{}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["ttfb"] != 50 {
		t.Fatalf("ttfb = %v, struct field must win over extension entry", got["ttfb"])
	}
	if got["Nodes"] != 7 {
		t.Fatalf("Nodes = %v, want 7", got["Nodes"])
	}
}

func TestPerformanceMetricsUnmarshalKeepsUnknownKeys(t *testing.T) {
	in := []byte(`{"ttfb":10,"domContentLoaded":20,"windowLoad":30,"cumulativeLayoutShift":0.02,"ScriptDuration":0.5}`)
	var m PerformanceMetrics
	if err := json.Unmarshal(in, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.TTFB != 10 || m.DOMContentLoaded != 20 || m.WindowLoad != 30 {
		t.Fatalf("fixed fields wrong: %+v", m)
	}
	if m.CumulativeLayoutShift == nil || *m.CumulativeLayoutShift != 0.02 {
		t.Fatalf("cumulativeLayoutShift = %v, want 0.02", m.CumulativeLayoutShift)
	}
	if m.FirstContentfulPaint != nil {
		t.Fatal("firstContentfulPaint should stay nil when absent")
	}
	if m.Extra["ScriptDuration"] != 0.5 {
		t.Fatalf("extension key lost: %v", m.Extra)
	}
}

func TestCodedErrorUnwrap(t *testing.T) {
	cause := errors.New("socket closed")
	err := newError(CodeNavFailed, "navigation aborted", cause)

	var coded *CodedError
	if !errors.As(err, &coded) {
		t.Fatal("errors.As should find CodedError")
	}
	if coded.Code != CodeNavFailed {
		t.Fatalf("code = %q", coded.Code)
	}
	if !errors.Is(err, cause) {
		t.Fatal("errors.Is should reach the cause")
	}
}
