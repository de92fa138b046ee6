package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"keto-planner/internal/shared"
)

const timestampLayout = "2006-01-02 15:04:05"

// ExecutionMetric records metadata for a single pipeline stage execution.
type ExecutionMetric struct {
	AgentName        string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	LatencyMS        int64
	Attempts         int
	Error            string
	Timestamp        time.Time
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Record saves a metric to the database.
func (s *Store) Record(m ExecutionMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	_, err := s.db.ExecContext(context.Background(), `
		INSERT INTO execution_metrics
			(agent_name, model, prompt_tokens, completion_tokens, total_tokens, latency_ms, attempts, error, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.AgentName, m.Model, m.PromptTokens, m.CompletionTokens, m.TotalTokens,
		m.LatencyMS, m.Attempts, m.Error, ts.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert execution metric: %w", err)
	}
	return nil
}

// RecordMeta records a stage execution. Stages without token usage, such as local
// normalization, are recorded too so repair activity can be audited.
func (s *Store) RecordMeta(meta shared.AgentMeta) error {
	return s.Record(MapMeta(meta, s.now()))
}

// RecordMetas records every meta, stopping at the first failure.
func (s *Store) RecordMetas(metas []shared.AgentMeta) error {
	for _, m := range metas {
		if err := s.RecordMeta(m); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DailyUsage represents token totals for a single day.
type DailyUsage struct {
	Date            string
	TotalPrompt     int
	TotalCompletion int
	TotalExecution  int
}

// GetDailyUsage retrieves usage for the last N days, newest first.
func (s *Store) GetDailyUsage(days int) ([]DailyUsage, error) {
	rows, err := s.db.QueryContext(context.Background(), `
		SELECT date(timestamp) AS day,
		       COALESCE(SUM(prompt_tokens), 0),
		       COALESCE(SUM(completion_tokens), 0),
		       COUNT(*)
		FROM execution_metrics
		WHERE timestamp >= ?
		GROUP BY day
		ORDER BY day DESC`, s.since(days))
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	defer rows.Close()

	var results []DailyUsage
	for rows.Next() {
		var u DailyUsage
		var day sql.NullString
		if err := rows.Scan(&day, &u.TotalPrompt, &u.TotalCompletion, &u.TotalExecution); err != nil {
			return nil, err
		}
		u.Date = "Unknown"
		if day.Valid {
			u.Date = day.String
		}
		results = append(results, u)
	}
	return results, rows.Err()
}

// AgentCount is the number of executions of one stage.
type AgentCount struct {
	AgentName string
	Count     int
	Failures  int
}

// CountByAgent reports how often each stage ran in the last N days. Repair stages
// showing up here means the happy path did not hold.
func (s *Store) CountByAgent(days int) ([]AgentCount, error) {
	rows, err := s.db.QueryContext(context.Background(), `
		SELECT agent_name, COUNT(*), COALESCE(SUM(CASE WHEN error != '' THEN 1 ELSE 0 END), 0)
		FROM execution_metrics
		WHERE timestamp >= ?
		GROUP BY agent_name
		ORDER BY agent_name`, s.since(days))
	if err != nil {
		return nil, fmt.Errorf("failed to count executions: %w", err)
	}
	defer rows.Close()

	var results []AgentCount
	for rows.Next() {
		var c AgentCount
		if err := rows.Scan(&c.AgentName, &c.Count, &c.Failures); err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// Cleanup removes records older than the specified number of days.
func (s *Store) Cleanup(olderThanDays int) (int64, error) {
	res, err := s.db.ExecContext(context.Background(),
		`DELETE FROM execution_metrics WHERE timestamp < ?`, s.since(olderThanDays))
	if err != nil {
		return 0, fmt.Errorf("failed to clean up execution metrics: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) since(days int) string {
	return s.now().AddDate(0, 0, -days).Format(timestampLayout)
}

// MapMeta converts a stage meta into an ExecutionMetric stamped at ts.
func MapMeta(meta shared.AgentMeta, ts time.Time) ExecutionMetric {
	return ExecutionMetric{
		AgentName:        meta.AgentName,
		Model:            meta.Usage.Model,
		PromptTokens:     meta.Usage.PromptTokens,
		CompletionTokens: meta.Usage.CompletionTokens,
		TotalTokens:      meta.Usage.TotalTokens,
		LatencyMS:        meta.Latency.Milliseconds(),
		Attempts:         meta.Attempts,
		Error:            meta.Err,
		Timestamp:        ts,
	}
}
