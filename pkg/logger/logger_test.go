package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf).With(String("run_id", "r1"))

	l.Info("run persisted",
		Strings("notes", []string{"no barometer", "no currency index"}),
		Any("probabilities", map[string]float64{"hold": 0.9}),
		Float64("fused_rate_pct", 0.55),
	)

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if line["message"] != "run persisted" || line["level"] != "info" || line["run_id"] != "r1" {
		t.Fatalf("unexpected line %v", line)
	}
	if line["notes"] != "no barometer, no currency index" {
		t.Fatalf("notes = %v", line["notes"])
	}
	probs, ok := line["probabilities"].(map[string]interface{})
	if !ok || probs["hold"] != 0.9 {
		t.Fatalf("probabilities = %v", line["probabilities"])
	}
}

func TestNopDiscards(t *testing.T) {
	Nop().Error("ignored", String("k", "v"))
}
