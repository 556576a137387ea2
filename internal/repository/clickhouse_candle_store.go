package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"CoinScout/internal/domain/models"
	domrepo "CoinScout/internal/domain/repository"
	pkgch "CoinScout/pkg/clickhouse"
	applogger "CoinScout/pkg/logger"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// CandleSchema returns the DDL for the candle table read by CHCandleStore.
func CandleSchema(table string) []string {
	return []string{
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            inst_id String,
            bar LowCardinality(String),
            bucket DateTime,
            open Float64,
            high Float64,
            low Float64,
            close Float64,
            vol Float64
        ) ENGINE = ReplacingMergeTree
        ORDER BY (inst_id, bar, bucket)
    `, table),
	}
}

// CHCandleStore implements CandleSource backed by ClickHouse.
type CHCandleStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHCandleStore(ch *pkgch.Client, table string) (*CHCandleStore, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid candle table name: %q", table)
	}
	return &CHCandleStore{db: ch.DB(), table: table}, nil
}

// SetLogger injects a structured logger.
func (s *CHCandleStore) SetLogger(l *applogger.Logger) { s.l = l }

// GetLatestNCandles returns up to n most recent candles in ascending order.
func (s *CHCandleStore) GetLatestNCandles(ctx context.Context, instID string, n int, bar domrepo.Bar) ([]models.Candle, error) {
	start := time.Now()
	const qtpl = `
        SELECT bucket, inst_id, open, high, low, close, vol
        FROM %s FINAL
        WHERE inst_id = ? AND bar = ?
        ORDER BY bucket DESC
        LIMIT ?
    `
	q := fmt.Sprintf(qtpl, s.table)
	rows, err := s.db.QueryContext(ctx, q, instID, string(bar), n)
	if err != nil {
		s.logError("clickhouse latest_candles query error", instID, bar, n, err)
		return nil, fmt.Errorf("get latest candles: %w", err)
	}
	defer rows.Close()

	tmp := make([]models.Candle, 0, n)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Bucket, &c.Symbol, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			s.logError("clickhouse latest_candles scan error", instID, bar, n, err)
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		tmp = append(tmp, c)
	}
	if err := rows.Err(); err != nil {
		s.logError("clickhouse latest_candles rows error", instID, bar, n, err)
		return nil, fmt.Errorf("rows: %w", err)
	}
	// reverse to ASC
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	if s.l != nil {
		s.l.Debug("clickhouse latest_candles ok",
			applogger.String("table", s.table),
			applogger.String("inst_id", instID),
			applogger.String("bar", string(bar)),
			applogger.Int("limit", n),
			applogger.Int("rows", len(tmp)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return tmp, nil
}

func (s *CHCandleStore) logError(msg, instID string, bar domrepo.Bar, n int, err error) {
	if s.l == nil {
		return
	}
	s.l.Error(msg,
		applogger.String("table", s.table),
		applogger.String("inst_id", instID),
		applogger.String("bar", string(bar)),
		applogger.Int("limit", n),
		applogger.Error(err),
	)
}
