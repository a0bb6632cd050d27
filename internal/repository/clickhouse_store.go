package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"RateCast/internal/domain/models"
	domrepo "RateCast/internal/domain/repository"
	pkgch "RateCast/pkg/clickhouse"
	applogger "RateCast/pkg/logger"
)

// CHStore implements ObservationStore and RunStore backed by ClickHouse.
type CHStore struct {
	db  *sql.DB
	now func() time.Time
	l   *applogger.Logger
}

func NewCHStore(ch *pkgch.Client) *CHStore {
	return &CHStore{db: ch.DB(), now: time.Now}
}

// SetLogger injects a structured logger.
func (s *CHStore) SetLogger(l *applogger.Logger) { s.l = l }

// kindTable describes how one observation kind maps to its table.
type kindTable struct {
	table       string
	hasProvider bool
	columns     []string
	values      func(o models.Observation) ([]any, error)
	scan        func(rows *sql.Rows) (models.Observation, error)
}

var tables = map[models.ObservationKind]kindTable{
	models.KindInflation: {
		table:       "inflation_observations",
		hasProvider: true,
		columns:     []string{"natural_key", "provider", "period", "yoy_pct", "mom_pct", "has_mom", "source_reference", "revision", "ingested_at"},
		values: func(o models.Observation) ([]any, error) {
			v := o.(*models.InflationObservation)
			var mom decimal.Decimal
			var hasMoM uint8
			if v.MoMPct != nil {
				mom = decimal.NewFromFloat(*v.MoMPct)
				hasMoM = 1
			}
			return []any{v.NaturalKey(), v.Provider, v.AsOf, decimal.NewFromFloat(v.YoYPct), mom, hasMoM, v.SourceReference, uint16(v.Revision), v.IngestedAt}, nil
		},
		scan: func(rows *sql.Rows) (models.Observation, error) {
			var (
				v        models.InflationObservation
				key      string
				yoy, mom decimal.Decimal
				hasMoM   uint8
				rev      uint16
			)
			if err := rows.Scan(&key, &v.Provider, &v.AsOf, &yoy, &mom, &hasMoM, &v.SourceReference, &rev, &v.IngestedAt); err != nil {
				return nil, err
			}
			v.YoYPct = yoy.InexactFloat64()
			if hasMoM == 1 {
				m := mom.InexactFloat64()
				v.MoMPct = &m
			}
			v.Revision = int(rev)
			return &v, nil
		},
	},
	models.KindBarometer: {
		table:       "barometer_observations",
		hasProvider: true,
		columns:     []string{"natural_key", "provider", "period", "value", "source_reference", "revision", "ingested_at"},
		values: func(o models.Observation) ([]any, error) {
			v := o.(*models.BarometerObservation)
			return []any{v.NaturalKey(), v.Provider, v.AsOf, decimal.NewFromFloat(v.Value), v.SourceReference, uint16(v.Revision), v.IngestedAt}, nil
		},
		scan: func(rows *sql.Rows) (models.Observation, error) {
			var (
				v   models.BarometerObservation
				key string
				val decimal.Decimal
				rev uint16
			)
			if err := rows.Scan(&key, &v.Provider, &v.AsOf, &val, &v.SourceReference, &rev, &v.IngestedAt); err != nil {
				return nil, err
			}
			v.Value = val.InexactFloat64()
			v.Revision = int(rev)
			return &v, nil
		},
	},
	models.KindOfficialForecast: {
		table:   "official_forecasts",
		columns: []string{"natural_key", "period", "forecast_json", "source_reference", "document_reference", "revision", "ingested_at"},
		values: func(o models.Observation) ([]any, error) {
			v := o.(*models.OfficialForecast)
			b, err := json.Marshal(v.Forecast)
			if err != nil {
				return nil, err
			}
			return []any{v.NaturalKey(), v.MeetingDate, string(b), v.SourceReference, v.DocumentReference, uint16(v.Revision), v.IngestedAt}, nil
		},
		scan: func(rows *sql.Rows) (models.Observation, error) {
			var (
				v       models.OfficialForecast
				key, js string
				rev     uint16
			)
			if err := rows.Scan(&key, &v.MeetingDate, &js, &v.SourceReference, &v.DocumentReference, &rev, &v.IngestedAt); err != nil {
				return nil, err
			}
			if err := json.Unmarshal([]byte(js), &v.Forecast); err != nil {
				return nil, fmt.Errorf("decode forecast %s: %w", key, err)
			}
			v.Revision = int(rev)
			return &v, nil
		},
	},
	models.KindRateCurve: {
		table:   "rate_curve_snapshots",
		columns: []string{"natural_key", "period", "points_json", "source_reference", "revision", "ingested_at"},
		values: func(o models.Observation) ([]any, error) {
			v := o.(*models.RateCurveSnapshot)
			b, err := json.Marshal(v.Points)
			if err != nil {
				return nil, err
			}
			return []any{v.NaturalKey(), v.AsOf, string(b), v.SourceReference, uint16(v.Revision), v.IngestedAt}, nil
		},
		scan: func(rows *sql.Rows) (models.Observation, error) {
			var (
				v       models.RateCurveSnapshot
				key, js string
				rev     uint16
			)
			if err := rows.Scan(&key, &v.AsOf, &js, &v.SourceReference, &rev, &v.IngestedAt); err != nil {
				return nil, err
			}
			if err := json.Unmarshal([]byte(js), &v.Points); err != nil {
				return nil, fmt.Errorf("decode curve %s: %w", key, err)
			}
			v.Revision = int(rev)
			return &v, nil
		},
	},
	models.KindCurrencyIndex: {
		table:       "currency_index_observations",
		hasProvider: true,
		columns:     []string{"natural_key", "provider", "period", "index_value", "source_reference", "revision", "ingested_at"},
		values: func(o models.Observation) ([]any, error) {
			v := o.(*models.CurrencyIndexObservation)
			return []any{v.NaturalKey(), v.Provider, v.AsOf, decimal.NewFromFloat(v.IndexValue), v.SourceReference, uint16(v.Revision), v.IngestedAt}, nil
		},
		scan: func(rows *sql.Rows) (models.Observation, error) {
			var (
				v   models.CurrencyIndexObservation
				key string
				val decimal.Decimal
				rev uint16
			)
			if err := rows.Scan(&key, &v.Provider, &v.AsOf, &val, &v.SourceReference, &rev, &v.IngestedAt); err != nil {
				return nil, err
			}
			v.IndexValue = val.InexactFloat64()
			v.Revision = int(rev)
			return &v, nil
		},
	},
	models.KindPolicyRate: {
		table:   "policy_rates",
		columns: []string{"natural_key", "period", "rate_pct", "source_reference", "revision", "ingested_at"},
		values: func(o models.Observation) ([]any, error) {
			v := o.(*models.PolicyRateState)
			return []any{v.NaturalKey(), v.EffectiveDate, decimal.NewFromFloat(v.RatePct), v.SourceReference, uint16(v.Revision), v.IngestedAt}, nil
		},
		scan: func(rows *sql.Rows) (models.Observation, error) {
			var (
				v    models.PolicyRateState
				key  string
				rate decimal.Decimal
				rev  uint16
			)
			if err := rows.Scan(&key, &v.EffectiveDate, &rate, &v.SourceReference, &rev, &v.IngestedAt); err != nil {
				return nil, err
			}
			v.RatePct = rate.InexactFloat64()
			v.Revision = int(rev)
			return &v, nil
		},
	},
}

func tableFor(kind models.ObservationKind) (kindTable, error) {
	t, ok := tables[kind]
	if !ok {
		return kindTable{}, fmt.Errorf("unsupported observation kind: %s", kind)
	}
	return t, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, domrepo.ErrStoreUnavailable, err)
}

func (s *CHStore) Ingest(ctx context.Context, o models.Observation) (models.IngestOutcome, error) {
	start := time.Now()
	t, err := tableFor(o.Kind())
	if err != nil {
		return "", err
	}
	key := o.NaturalKey()

	var n uint64
	q := fmt.Sprintf("SELECT count() FROM %s WHERE natural_key = ?", t.table)
	if err := s.db.QueryRowContext(ctx, q, key).Scan(&n); err != nil {
		s.logErr("clickhouse ingest lookup error", t.table, err)
		return "", unavailable("ingest lookup", err)
	}
	if n > 0 {
		return models.OutcomeDuplicate, nil
	}

	if o.Ingested().IsZero() {
		o.SetIngested(s.now().UTC())
	}
	args, err := t.values(o)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", o.Kind(), err)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.columns)), ", ")
	ins := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.table, strings.Join(t.columns, ", "), placeholders)
	if _, err := s.db.ExecContext(ctx, ins, args...); err != nil {
		s.logErr("clickhouse ingest insert error", t.table, err)
		return "", unavailable("ingest insert", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse ingest ok",
			applogger.String("table", t.table),
			applogger.String("natural_key", key),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return models.OutcomeCreated, nil
}

func (s *CHStore) Latest(ctx context.Context, kind models.ObservationKind, q domrepo.Query) (models.Observation, error) {
	rows, err := s.History(ctx, kind, 1, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domrepo.ErrNotFound
	}
	return rows[0], nil
}

// History picks the highest revision per period with LIMIT 1 BY, then the newest n periods.
func (s *CHStore) History(ctx context.Context, kind models.ObservationKind, n int, q domrepo.Query) ([]models.Observation, error) {
	start := time.Now()
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query, args := historyQuery(t, n, q)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logErr("clickhouse history query error", t.table, err)
		return nil, unavailable("history", err)
	}
	defer rows.Close()

	var desc []models.Observation
	for rows.Next() {
		o, err := t.scan(rows)
		if err != nil {
			s.logErr("clickhouse history scan error", t.table, err)
			return nil, fmt.Errorf("scan %s: %w", t.table, err)
		}
		desc = append(desc, o)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("history rows", err)
	}

	out := make([]models.Observation, len(desc))
	for i := range desc {
		out[i] = desc[len(desc)-1-i]
	}
	if s.l != nil {
		s.l.Debug("clickhouse history ok",
			applogger.String("table", t.table),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHStore) SaveRun(ctx context.Context, run *models.ModelRun) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}
	const q = `INSERT INTO model_runs (run_id, created_at, model_version, state, decision, fused_rate_pct, payload_json)
        VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, q,
		run.RunID,
		run.CreatedAt,
		run.ModelVersion,
		string(run.State),
		string(run.Decision),
		decimal.NewFromFloat(run.FusedRatePct),
		string(payload),
	)
	if err != nil {
		s.logErr("clickhouse save_run error", "model_runs", err)
		return unavailable("save run", err)
	}
	return nil
}

func (s *CHStore) LatestRun(ctx context.Context) (*models.ModelRun, error) {
	const q = `SELECT payload_json FROM model_runs FINAL ORDER BY created_at DESC LIMIT 1`
	return s.loadRun(ctx, q)
}

func (s *CHStore) GetRun(ctx context.Context, runID string) (*models.ModelRun, error) {
	const q = `SELECT payload_json FROM model_runs FINAL WHERE run_id = ? LIMIT 1`
	return s.loadRun(ctx, q, runID)
}

func (s *CHStore) loadRun(ctx context.Context, q string, args ...any) (*models.ModelRun, error) {
	var payload string
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domrepo.ErrNotFound
		}
		s.logErr("clickhouse load_run error", "model_runs", err)
		return nil, unavailable("load run", err)
	}
	var run models.ModelRun
	if err := json.Unmarshal([]byte(payload), &run); err != nil {
		return nil, fmt.Errorf("decode run: %w", err)
	}
	return &run, nil
}

func (s *CHStore) Health(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Close is a no-op; the connection pool is owned by pkg/clickhouse.Client.
func (s *CHStore) Close() error { return nil }

func (s *CHStore) logErr(msg, table string, err error) {
	if s.l == nil {
		return
	}
	s.l.Error(msg, applogger.String("table", table), applogger.Error(err))
}

// historyQuery filters by provider, period and ingestion cutoff first, keeps the earliest row per
// natural_key, then the highest revision per period.
func historyQuery(t kindTable, n int, q domrepo.Query) (string, []any) {
	var conds []string
	var args []any
	if t.hasProvider && q.Provider != "" {
		conds = append(conds, "provider = ?")
		args = append(args, q.Provider)
	}
	if !q.Before.IsZero() {
		conds = append(conds, "period <= ?")
		args = append(args, q.Before)
	}
	if !q.Cutoff.IsZero() {
		conds = append(conds, "ingested_at <= ?")
		args = append(args, q.Cutoff)
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	limit := ""
	if n > 0 {
		limit = fmt.Sprintf("LIMIT %d", n)
	}
	cols := strings.Join(t.columns, ", ")
	query := fmt.Sprintf(`
        SELECT %s
        FROM (
            SELECT %s
            FROM %s
            %s
            ORDER BY natural_key, ingested_at ASC
            LIMIT 1 BY natural_key
        )
        ORDER BY period DESC, revision DESC, ingested_at DESC
        LIMIT 1 BY period
        %s
    `, cols, cols, t.table, where, limit)
	return query, args
}
