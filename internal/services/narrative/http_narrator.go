package narrative

import (
	"context"
	"fmt"
	"strings"

	"RateCast/internal/domain/models"
	domsvc "RateCast/internal/domain/service"
	pkghttp "RateCast/pkg/http"
)

// NarrateRequest is sent to the generation service. It carries only numbers the engine already produced.
type NarrateRequest struct {
	Question string          `json:"question"`
	RunID    string          `json:"run_id"`
	Context  string          `json:"context"`
	Run      *models.ModelRun `json:"run"`
}

type NarrateResponse struct {
	Text string `json:"text"`
}

// HTTPNarrator calls an external text generation endpoint.
type HTTPNarrator struct {
	client *pkghttp.Client
	path   string
}

func NewHTTPNarrator(client *pkghttp.Client, path string) domsvc.Narrator {
	if path == "" {
		path = "/v1/narrate"
	}
	return &HTTPNarrator{client: client, path: path}
}

func (n *HTTPNarrator) Narrate(ctx context.Context, run *models.ModelRun, question string) (string, error) {
	req := NarrateRequest{
		Question: question,
		RunID:    run.RunID,
		Context:  Summary(run),
		Run:      run,
	}
	var resp NarrateResponse
	if err := n.client.PostJSON(ctx, n.path, req, &resp); err != nil {
		return "", fmt.Errorf("narrator: %w", err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", fmt.Errorf("narrator: empty response")
	}
	return resp.Text, nil
}

// Summary renders the run as plain lines for the generation prompt.
func Summary(run *models.ModelRun) string {
	var b strings.Builder
	fmt.Fprintf(&b, "model %s run %s at %s\n", run.ModelVersion, run.RunID, run.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(&b, "inflation nowcast h3=%.2f%% h6=%.2f%% h12=%.2f%%\n", run.Nowcast.H3, run.Nowcast.H6, run.Nowcast.H12)
	fmt.Fprintf(&b, "output gap %.3f, currency deviation %.2f%%\n", run.OutputGap, run.CurrencyDeviationPct)
	fmt.Fprintf(&b, "rule-implied rate %.3f%% (variance %.4f)\n", run.RuleImpliedRatePct, run.RuleImpliedVariance)
	if run.MarketImpliedRatePct != nil && run.MarketImpliedVariance != nil {
		fmt.Fprintf(&b, "market-implied rate %.3f%% at %.0f months (variance %.4f)\n",
			*run.MarketImpliedRatePct, run.MarketHorizonMonths, *run.MarketImpliedVariance)
	} else {
		b.WriteString("market-implied rate unavailable\n")
	}
	fmt.Fprintf(&b, "fused rate %.3f%% (variance %.4f, gain %.3f)\n", run.FusedRatePct, run.FusedVariance, run.KalmanGain)
	fmt.Fprintf(&b, "current policy rate %.2f%%, step %.2f\n", run.CurrentPolicyRatePct, run.DecisionStepPct)
	fmt.Fprintf(&b, "probabilities cut=%.3f hold=%.3f hike=%.3f, most likely %s\n",
		run.Probabilities.Cut, run.Probabilities.Hold, run.Probabilities.Hike, run.Decision)
	for _, note := range run.Notes {
		fmt.Fprintf(&b, "note: %s\n", note)
	}
	return b.String()
}
