package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Server.Port != 8080 || c.Store.Backend != "memory" {
		t.Fatalf("unexpected defaults: port=%d store=%s", c.Server.Port, c.Store.Backend)
	}
	if c.Engine.Decision.StepPct != 0.25 || c.Engine.Curve.HorizonMonths != 3 {
		t.Fatalf("engine defaults not applied: %+v", c.Engine)
	}
	if c.Kafka.RequiredAcks != -1 || c.Redis.LatestRunTTL != 24*time.Hour {
		t.Fatalf("unexpected kafka/redis defaults")
	}
}

func TestLoadYAMLKeepsUnsetDefaults(t *testing.T) {
	path := writeFile(t, `
server:
  port: 9090
engine:
  fallback_policy_rate_pct: 0.5
  rule:
    neutral_rate: 1.25
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Server.Port != 9090 {
		t.Fatalf("port = %d", c.Server.Port)
	}
	if c.Server.ReadTimeout != 10*time.Second {
		t.Fatalf("read timeout default lost: %v", c.Server.ReadTimeout)
	}
	if c.Engine.Rule.NeutralRate != 1.25 || c.Engine.Rule.Variance != 0.25 {
		t.Fatalf("rule = %+v", c.Engine.Rule)
	}
	if c.Engine.FallbackPolicyPct == nil || *c.Engine.FallbackPolicyPct != 0.5 {
		t.Fatalf("fallback policy rate not loaded")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RATECAST_HTTP_PORT", "7070")
	t.Setenv("RATECAST_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("RATECAST_FALLBACK_POLICY_RATE_PCT", "0.75")

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Server.Port != 7070 {
		t.Fatalf("port = %d", c.Server.Port)
	}
	if !c.Kafka.Enabled || len(c.Kafka.Brokers) != 2 {
		t.Fatalf("kafka = %+v", c.Kafka)
	}
	if c.Engine.FallbackPolicyPct == nil || *c.Engine.FallbackPolicyPct != 0.75 {
		t.Fatalf("fallback override not applied")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown store":      "store:\n  backend: sqlite\n",
		"clickhouse no host": "store:\n  backend: clickhouse\n",
		"kafka no brokers":   "kafka:\n  enabled: true\n",
		"history too short":  "engine:\n  history_months: 6\n",
		"non-positive step":  "engine:\n  decision:\n    step_pct: 0\n",
		"official weights":   "engine:\n  nowcast:\n    official_weight_h6: 0.9\n    official_weight_h12: 0.5\n",
		"bad environment":    "environment: qa\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeFile(t, body)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
