package repository

import (
	"strings"
	"testing"
	"time"

	"RateCast/internal/domain/models"
	domrepo "RateCast/internal/domain/repository"
)

func TestHistoryQueryCutoffBeforeDedup(t *testing.T) {
	tbl, err := tableFor(models.KindInflation)
	if err != nil {
		t.Fatalf("tableFor: %v", err)
	}
	cutoff := time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)
	query, args := historyQuery(tbl, 24, domrepo.Query{Provider: "stat", Cutoff: cutoff})

	if strings.Contains(query, "FINAL") {
		t.Fatalf("FINAL would dedupe before the cutoff applies:\n%s", query)
	}
	cut := strings.Index(query, "ingested_at <= ?")
	byKey := strings.Index(query, "LIMIT 1 BY natural_key")
	byPeriod := strings.Index(query, "LIMIT 1 BY period")
	if cut < 0 || byKey < 0 || byPeriod < 0 {
		t.Fatalf("missing clause in query:\n%s", query)
	}
	if !(cut < byKey && byKey < byPeriod) {
		t.Fatalf("expected cutoff, then key dedup, then period selection:\n%s", query)
	}
	if !strings.Contains(query, "ORDER BY natural_key, ingested_at ASC") {
		t.Fatalf("key dedup must keep the earliest ingestion:\n%s", query)
	}
	if !strings.HasSuffix(strings.TrimSpace(query), "LIMIT 24") {
		t.Fatalf("missing row limit:\n%s", query)
	}
	if len(args) != 2 || args[0] != "stat" || args[1] != cutoff {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestHistoryQueryWithoutFilters(t *testing.T) {
	tbl, err := tableFor(models.KindRateCurve)
	if err != nil {
		t.Fatalf("tableFor: %v", err)
	}
	query, args := historyQuery(tbl, 0, domrepo.Query{Provider: "ignored"})
	if strings.Contains(query, "WHERE") || len(args) != 0 {
		t.Fatalf("rate curves have no provider column: %s %v", query, args)
	}
}

func TestSchemaKeepsFirstIngestion(t *testing.T) {
	for _, ddl := range ClickHouseSchema() {
		if strings.Contains(ddl, "model_runs") {
			continue
		}
		if !strings.Contains(ddl, "ReplacingMergeTree(ingest_rank)") {
			t.Fatalf("observation table must merge on ingest_rank:\n%s", ddl)
		}
	}
}
