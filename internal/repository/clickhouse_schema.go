package repository

// Observation tables are ReplacingMergeTree ordered by natural_key. ingest_rank falls as ingested_at
// grows, so a merge keeps the first ingestion of a key. Reads dedupe the same way before merges run.
var clickhouseSchema = []string{
	`CREATE TABLE IF NOT EXISTS inflation_observations (
        natural_key      String,
        provider         LowCardinality(String),
        period           Date,
        yoy_pct          Decimal64(6),
        mom_pct          Decimal64(6),
        has_mom          UInt8,
        source_reference String,
        revision         UInt16,
        ingested_at      DateTime64(3, 'UTC'),
        ingest_rank      UInt64 MATERIALIZED toUInt64(281474976710655 - toUnixTimestamp64Milli(ingested_at))
    ) ENGINE = ReplacingMergeTree(ingest_rank)
    ORDER BY natural_key`,

	`CREATE TABLE IF NOT EXISTS barometer_observations (
        natural_key      String,
        provider         LowCardinality(String),
        period           Date,
        value            Decimal64(6),
        source_reference String,
        revision         UInt16,
        ingested_at      DateTime64(3, 'UTC'),
        ingest_rank      UInt64 MATERIALIZED toUInt64(281474976710655 - toUnixTimestamp64Milli(ingested_at))
    ) ENGINE = ReplacingMergeTree(ingest_rank)
    ORDER BY natural_key`,

	`CREATE TABLE IF NOT EXISTS official_forecasts (
        natural_key        String,
        period             Date,
        forecast_json      String,
        source_reference   String,
        document_reference String,
        revision           UInt16,
        ingested_at      DateTime64(3, 'UTC'),
        ingest_rank      UInt64 MATERIALIZED toUInt64(281474976710655 - toUnixTimestamp64Milli(ingested_at))
    ) ENGINE = ReplacingMergeTree(ingest_rank)
    ORDER BY natural_key`,

	`CREATE TABLE IF NOT EXISTS rate_curve_snapshots (
        natural_key      String,
        period           Date,
        points_json      String,
        source_reference String,
        revision         UInt16,
        ingested_at      DateTime64(3, 'UTC'),
        ingest_rank      UInt64 MATERIALIZED toUInt64(281474976710655 - toUnixTimestamp64Milli(ingested_at))
    ) ENGINE = ReplacingMergeTree(ingest_rank)
    ORDER BY natural_key`,

	`CREATE TABLE IF NOT EXISTS currency_index_observations (
        natural_key      String,
        provider         LowCardinality(String),
        period           Date,
        index_value      Decimal64(6),
        source_reference String,
        revision         UInt16,
        ingested_at      DateTime64(3, 'UTC'),
        ingest_rank      UInt64 MATERIALIZED toUInt64(281474976710655 - toUnixTimestamp64Milli(ingested_at))
    ) ENGINE = ReplacingMergeTree(ingest_rank)
    ORDER BY natural_key`,

	`CREATE TABLE IF NOT EXISTS policy_rates (
        natural_key      String,
        period           Date,
        rate_pct         Decimal64(6),
        source_reference String,
        revision         UInt16,
        ingested_at      DateTime64(3, 'UTC'),
        ingest_rank      UInt64 MATERIALIZED toUInt64(281474976710655 - toUnixTimestamp64Milli(ingested_at))
    ) ENGINE = ReplacingMergeTree(ingest_rank)
    ORDER BY natural_key`,

	`CREATE TABLE IF NOT EXISTS model_runs (
        run_id         String,
        created_at     DateTime64(3, 'UTC'),
        model_version  LowCardinality(String),
        state          LowCardinality(String),
        decision       LowCardinality(String),
        fused_rate_pct Decimal64(6),
        payload_json   String
    ) ENGINE = ReplacingMergeTree(created_at)
    ORDER BY run_id`,
}

// ClickHouseSchema returns the idempotent DDL for every table the store uses.
func ClickHouseSchema() []string {
	out := make([]string, len(clickhouseSchema))
	copy(out, clickhouseSchema)
	return out
}
