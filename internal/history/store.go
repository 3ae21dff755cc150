// Package history keeps a local SQLite log of committed usage so the CLI can
// show trends across days.
package history

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/blake2b"

	"github.com/janekbaraniewski/usagetray/internal/core"
)

const (
	dateLayout = "2006-01-02"
	// fixed width so stored timestamps sort lexically
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Entry is one recorded period snapshot.
type Entry struct {
	RecordedAt   time.Time
	UsageDate    string
	Period       core.Period
	TotalCostUSD float64
	TotalTokens  int64
	Models       int
}

// DailyCost is the last known cost of the today period on one calendar day.
type DailyCost struct {
	Date    string
	CostUSD float64
}

func OpenStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("history: creating DB dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("history: opening DB: %w", err)
	}
	if err := configureSQLiteConnection(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: configure DB: %w", err)
	}

	store := NewStore(db)
	if err := store.Init(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func configureSQLiteConnection(db *sql.DB) error {
	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		return fmt.Errorf("set journal_mode WAL: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		return fmt.Errorf("set busy_timeout: %w", err)
	}
	return nil
}

func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS usage_snapshots (
			snapshot_id TEXT PRIMARY KEY,
			recorded_at TEXT NOT NULL,
			usage_date TEXT NOT NULL,
			period TEXT NOT NULL,
			total_cost_usd REAL NOT NULL,
			total_tokens INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_usage_snapshots_period_date ON usage_snapshots(period, usage_date);`,
		`CREATE TABLE IF NOT EXISTS usage_snapshot_models (
			snapshot_id TEXT NOT NULL,
			model TEXT NOT NULL,
			input_tokens INTEGER NOT NULL,
			output_tokens INTEGER NOT NULL,
			cache_creation_tokens INTEGER NOT NULL,
			cache_read_tokens INTEGER NOT NULL,
			cost_usd REAL NOT NULL,
			PRIMARY KEY(snapshot_id, model),
			FOREIGN KEY(snapshot_id) REFERENCES usage_snapshots(snapshot_id) ON DELETE CASCADE
		);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("history: init schema: %w", err)
		}
	}
	return nil
}

// Record stores one row per period. A period whose usage is identical to an
// already recorded one on the same day is skipped.
func (s *Store) Record(ctx context.Context, at time.Time, usage map[core.Period]core.AggregatedUsage) error {
	_, err := s.RecordCount(ctx, at, usage)
	return err
}

// RecordCount is Record returning the number of newly stored snapshots.
func (s *Store) RecordCount(ctx context.Context, at time.Time, usage map[core.Period]core.AggregatedUsage) (int, error) {
	if at.IsZero() {
		at = s.now()
	}
	usageDate := at.Format(dateLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("history: begin tx: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	for _, period := range core.AllPeriods {
		agg, ok := usage[period]
		if !ok {
			continue
		}
		sorted := agg.Sorted()
		id := snapshotID(period, usageDate, sorted)

		var total int64
		for _, b := range sorted {
			total += b.TotalTokens()
		}

		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO usage_snapshots (
				snapshot_id, recorded_at, usage_date, period, total_cost_usd, total_tokens
			) VALUES (?, ?, ?, ?, ?, ?)
		`,
			id,
			at.UTC().Format(timeLayout),
			usageDate,
			string(period),
			agg.TotalCost(),
			total,
		)
		if err != nil {
			return 0, fmt.Errorf("history: insert snapshot: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			continue
		}
		inserted++

		for _, b := range sorted {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO usage_snapshot_models (
					snapshot_id, model, input_tokens, output_tokens,
					cache_creation_tokens, cache_read_tokens, cost_usd
				) VALUES (?, ?, ?, ?, ?, ?, ?)
			`, id, b.Model, b.InputTokens, b.OutputTokens, b.CacheCreationTokens, b.CacheReadTokens, b.CostUSD); err != nil {
				return 0, fmt.Errorf("history: insert model row: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("history: commit tx: %w", err)
	}
	return inserted, nil
}

// snapshotID is a BLAKE2b digest of the period, day and sorted breakdowns.
func snapshotID(period core.Period, usageDate string, sorted []core.ModelBreakdown) string {
	var b strings.Builder
	b.WriteString(string(period))
	b.WriteByte('\n')
	b.WriteString(usageDate)
	b.WriteByte('\n')
	for _, m := range sorted {
		fmt.Fprintf(&b, "%s|%d|%d|%d|%d|%.6f\n",
			m.Model, m.InputTokens, m.OutputTokens, m.CacheCreationTokens, m.CacheReadTokens, m.CostUSD)
	}
	sum := blake2b.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Recent returns the newest snapshots first.
func (s *Store) Recent(ctx context.Context, period core.Period, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.recorded_at, s.usage_date, s.period, s.total_cost_usd, s.total_tokens,
			(SELECT COUNT(*) FROM usage_snapshot_models m WHERE m.snapshot_id = s.snapshot_id)
		FROM usage_snapshots s
		WHERE (? = '' OR s.period = ?)
		ORDER BY s.recorded_at DESC
		LIMIT ?
	`, string(period), string(period), limit)
	if err != nil {
		return nil, fmt.Errorf("history: query recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e          Entry
			recordedAt string
			p          string
		)
		if err := rows.Scan(&recordedAt, &e.UsageDate, &p, &e.TotalCostUSD, &e.TotalTokens, &e.Models); err != nil {
			return nil, fmt.Errorf("history: scan recent: %w", err)
		}
		e.RecordedAt, _ = time.Parse(time.RFC3339Nano, recordedAt)
		e.Period = core.Period(p)
		out = append(out, e)
	}
	return out, rows.Err()
}

// DailyCosts returns one point per day for the last n days ending today.
// Days without a record report zero.
func (s *Store) DailyCosts(ctx context.Context, days int) ([]DailyCost, error) {
	if days <= 0 {
		days = 14
	}
	today := s.now()
	start := today.AddDate(0, 0, -(days - 1)).Format(dateLayout)

	rows, err := s.db.QueryContext(ctx, `
		SELECT usage_date, MAX(total_cost_usd)
		FROM usage_snapshots
		WHERE period = ? AND usage_date >= ?
		GROUP BY usage_date
	`, string(core.PeriodToday), start)
	if err != nil {
		return nil, fmt.Errorf("history: query daily costs: %w", err)
	}
	defer rows.Close()

	byDate := make(map[string]float64)
	for rows.Next() {
		var (
			date string
			cost float64
		)
		if err := rows.Scan(&date, &cost); err != nil {
			return nil, fmt.Errorf("history: scan daily cost: %w", err)
		}
		byDate[date] = cost
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]DailyCost, 0, days)
	for i := days - 1; i >= 0; i-- {
		date := today.AddDate(0, 0, -i).Format(dateLayout)
		out = append(out, DailyCost{Date: date, CostUSD: byDate[date]})
	}
	return out, nil
}

// Prune drops snapshots recorded before now minus retention.
func (s *Store) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-retention).UTC().Format(timeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("history: begin prune: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM usage_snapshot_models
		WHERE snapshot_id IN (SELECT snapshot_id FROM usage_snapshots WHERE recorded_at < ?)
	`, cutoff); err != nil {
		return 0, fmt.Errorf("history: prune models: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM usage_snapshots WHERE recorded_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("history: prune snapshots: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("history: commit prune: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
