package narrative

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"RateCast/internal/domain/models"
	pkghttp "RateCast/pkg/http"
)

func testRun() *models.ModelRun {
	m := 0.5
	v := 0.0042
	return &models.ModelRun{
		RunID:                 "r-1",
		CreatedAt:             time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		ModelVersion:          "policy-kalman-v1",
		RuleImpliedRatePct:    0.65,
		RuleImpliedVariance:   0.25,
		MarketImpliedRatePct:  &m,
		MarketImpliedVariance: &v,
		MarketHorizonMonths:   3,
		FusedRatePct:          0.5025,
		FusedVariance:         0.0041,
		CurrentPolicyRatePct:  0.5,
		DecisionStepPct:       0.25,
		Probabilities:         models.Probabilities{Cut: 0.02, Hold: 0.95, Hike: 0.03},
		Decision:              models.DecisionHold,
	}
}

func TestHTTPNarratorSendsRunContext(t *testing.T) {
	var got NarrateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/narrate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(NarrateResponse{Text: "Hold is most likely."})
	}))
	defer srv.Close()

	n := NewHTTPNarrator(pkghttp.NewClient(pkghttp.WithBaseURL(srv.URL)), "")
	text, err := n.Narrate(context.Background(), testRun(), "why?")
	if err != nil {
		t.Fatalf("Narrate: %v", err)
	}
	if text != "Hold is most likely." {
		t.Fatalf("text = %q", text)
	}
	if got.RunID != "r-1" || got.Question != "why?" {
		t.Fatalf("request = %+v", got)
	}
	if !strings.Contains(got.Context, "most likely hold") {
		t.Fatalf("context missing decision: %s", got.Context)
	}
}

func TestHTTPNarratorEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"  "}`))
	}))
	defer srv.Close()

	n := NewHTTPNarrator(pkghttp.NewClient(pkghttp.WithBaseURL(srv.URL)), "/gen")
	if _, err := n.Narrate(context.Background(), testRun(), "why?"); err == nil {
		t.Fatalf("expected error for empty text")
	}
}

func TestSummaryWithoutMarket(t *testing.T) {
	run := testRun()
	run.MarketImpliedRatePct = nil
	run.MarketImpliedVariance = nil
	if s := Summary(run); !strings.Contains(s, "market-implied rate unavailable") {
		t.Fatalf("summary = %s", s)
	}
}
